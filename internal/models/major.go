package models

import "time"

// Major is a program of study owned by a department.
type Major struct {
	ID            string    `db:"id" json:"id"`
	DepartmentID  string    `db:"department_id" json:"department_id"`
	Name          string    `db:"name" json:"name"`
	Code          string    `db:"code" json:"code"`
	DurationYears int       `db:"duration_years" json:"duration_years"`
	Description   string    `db:"description" json:"description"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// MajorDetail enriches Major with its department name.
type MajorDetail struct {
	Major
	DepartmentName string `db:"department_name" json:"department_name"`
}

// MajorFilter provides filters for listing majors.
type MajorFilter struct {
	DepartmentID string
	Search       string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}

package models

import "time"

// CourseType classifies catalog offerings.
type CourseType string

const (
	CourseTypeRequired  CourseType = "REQUIRED"
	CourseTypeElective  CourseType = "ELECTIVE"
	CourseTypePractical CourseType = "PRACTICAL"
)

// Valid reports whether the course type is a known value.
func (t CourseType) Valid() bool {
	switch t {
	case CourseTypeRequired, CourseTypeElective, CourseTypePractical:
		return true
	}
	return false
}

// Course is a catalog offering, independent of any major.
type Course struct {
	ID          string     `db:"id" json:"id"`
	Name        string     `db:"name" json:"name"`
	Code        string     `db:"code" json:"code"`
	Type        CourseType `db:"course_type" json:"course_type"`
	Credits     float64    `db:"credits" json:"credits"`
	Hours       int        `db:"hours" json:"hours"`
	Description string     `db:"description" json:"description"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// CourseFilter provides filters for listing courses.
type CourseFilter struct {
	Type      CourseType
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

package models

import "time"

// LetterGrade is the recorded letter grade for a graded enrollment.
type LetterGrade string

const (
	GradeA LetterGrade = "A"
	GradeB LetterGrade = "B"
	GradeC LetterGrade = "C"
	GradeD LetterGrade = "D"
	GradeF LetterGrade = "F"
)

// Valid reports whether the grade is a known letter.
func (g LetterGrade) Valid() bool {
	switch g {
	case GradeA, GradeB, GradeC, GradeD, GradeF:
		return true
	}
	return false
}

// Enrollment records a student's registration in a course for a term.
// The (student_id, course_id, semester) tuple is unique; enrollment_date is
// set at creation and never updated.
type Enrollment struct {
	ID             string       `db:"id" json:"id"`
	StudentID      string       `db:"student_id" json:"student_id"`
	CourseID       string       `db:"course_id" json:"course_id"`
	MajorID        string       `db:"major_id" json:"major_id"`
	Semester       string       `db:"semester" json:"semester"`
	AcademicYear   string       `db:"academic_year" json:"academic_year"`
	Grade          *LetterGrade `db:"grade" json:"grade,omitempty"`
	Score          *float64     `db:"score" json:"score,omitempty"`
	EnrollmentDate time.Time    `db:"enrollment_date" json:"enrollment_date"`
	CreatedAt      time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time    `db:"updated_at" json:"updated_at"`
}

// Graded reports whether a letter grade has been recorded.
func (e Enrollment) Graded() bool {
	return e.Grade != nil && *e.Grade != ""
}

// EnrollmentDetail enriches Enrollment with student and course info.
type EnrollmentDetail struct {
	Enrollment
	StudentName string `db:"student_name" json:"student_name"`
	StudentNo   string `db:"student_no" json:"student_no"`
	CourseName  string `db:"course_name" json:"course_name"`
	CourseCode  string `db:"course_code" json:"course_code"`
	MajorName   string `db:"major_name" json:"major_name"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	StudentID    string
	CourseID     string
	MajorID      string
	Semester     string
	AcademicYear string
	GradedOnly   bool
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}

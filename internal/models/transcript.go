package models

import "time"

// TermLabel identifies an offering period by its stored string pair.
type TermLabel struct {
	Semester     string `json:"semester"`
	AcademicYear string `json:"academic_year"`
}

// TranscriptSummary aggregates a student's graded performance.
// GradedCount and ScoredCount are independent denominators: a record can
// carry a letter grade without a score and vice versa.
type TranscriptSummary struct {
	StudentID          string      `json:"student_id"`
	StudentNo          string      `json:"student_no"`
	TotalEnrollments   int         `json:"total_enrollments"`
	GradedCount        int         `json:"graded_count"`
	GPA                float64     `json:"gpa"`
	GPALetter          LetterGrade `json:"gpa_letter"`
	ScoredCount        int         `json:"scored_count"`
	AverageScore       float64     `json:"average_score"`
	CurrentTerm        TermLabel   `json:"current_term"`
	CurrentTermCourses int         `json:"current_term_courses"`
	GeneratedAt        time.Time   `json:"generated_at"`
}

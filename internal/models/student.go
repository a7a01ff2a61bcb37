package models

import "time"

// EnrollmentStatus tracks a student's registration state.
type EnrollmentStatus string

const (
	StatusEnrolled    EnrollmentStatus = "ENROLLED"
	StatusSuspended   EnrollmentStatus = "SUSPENDED"
	StatusGraduated   EnrollmentStatus = "GRADUATED"
	StatusDroppedOut  EnrollmentStatus = "DROPPED_OUT"
	StatusTransferred EnrollmentStatus = "TRANSFERRED"
)

// Gender values stored on profiles.
const (
	GenderMale   = "M"
	GenderFemale = "F"
)

// StudentProfile is the academic-record extension of a student-role account.
// department_id and major_id are nulled, not cascaded, when their referents
// are deleted.
type StudentProfile struct {
	ID        string `db:"id" json:"id"`
	UserID    string `db:"user_id" json:"user_id"`
	StudentNo string `db:"student_no" json:"student_no"`
	RealName  string `db:"real_name" json:"real_name"`
	Gender    string `db:"gender" json:"gender"`

	BirthDate *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	Phone     string     `db:"phone" json:"phone"`
	Email     string     `db:"email" json:"email"`
	Address   string     `db:"address" json:"address"`

	EnrollmentDate   *time.Time       `db:"enrollment_date" json:"enrollment_date,omitempty"`
	EnrollmentStatus EnrollmentStatus `db:"enrollment_status" json:"enrollment_status"`
	PoliticalStatus  string           `db:"political_status" json:"political_status"`

	EmergencyContact   string `db:"emergency_contact" json:"emergency_contact"`
	EmergencyPhone     string `db:"emergency_phone" json:"emergency_phone"`
	EmergencyRelation  string `db:"emergency_relation" json:"emergency_relation"`
	EmergencyContact2  string `db:"emergency_contact2" json:"emergency_contact2"`
	EmergencyPhone2    string `db:"emergency_phone2" json:"emergency_phone2"`
	EmergencyRelation2 string `db:"emergency_relation2" json:"emergency_relation2"`

	DepartmentID *string `db:"department_id" json:"department_id,omitempty"`
	MajorID      *string `db:"major_id" json:"major_id,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// StudentProfileDetail contains profile information with account and catalog context.
type StudentProfileDetail struct {
	StudentProfile
	Username       string  `db:"username" json:"username"`
	DepartmentName *string `db:"department_name" json:"department_name,omitempty"`
	MajorName      *string `db:"major_name" json:"major_name,omitempty"`
}

// StudentFilter encapsulates allowed search parameters for listing profiles.
type StudentFilter struct {
	Search       string
	DepartmentID string
	Status       EnrollmentStatus
	Gender       string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}

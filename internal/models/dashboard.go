package models

import "time"

// DashboardSummary is the cached admin overview payload.
type DashboardSummary struct {
	UsersByRole         map[UserRole]int         `json:"users_by_role"`
	StudentTotal        int                      `json:"student_total"`
	StudentsByStatus    map[EnrollmentStatus]int `json:"students_by_status"`
	DepartmentTotal     int                      `json:"department_total"`
	MajorTotal          int                      `json:"major_total"`
	CourseTotal         int                      `json:"course_total"`
	EnrollmentTotal     int                      `json:"enrollment_total"`
	OrphanCount         int                      `json:"orphan_count"`
	OrphanUsers         []User                   `json:"orphan_users"`
	RecentRegistrations []User                   `json:"recent_registrations"`
	GeneratedAt         time.Time                `json:"generated_at"`
}

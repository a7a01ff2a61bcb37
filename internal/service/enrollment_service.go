package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/liyun-dev/campus-sis-api/internal/models"
	appErrors "github.com/liyun-dev/campus-sis-api/pkg/errors"
)

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	Exists(ctx context.Context, studentID, courseID, semester, excludeID string) (bool, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	UpdateGrade(ctx context.Context, id string, grade *models.LetterGrade, score *float64) error
	Delete(ctx context.Context, id string) error
}

type enrollmentStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.StudentProfile, error)
	FindByUserID(ctx context.Context, userID string) (*models.StudentProfile, error)
}

type enrollmentCourseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type enrollmentAuditRepository interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// EnrollRequest is the admin enrollment payload. MajorID overrides the
// profile's major when set.
type EnrollRequest struct {
	StudentID    string `json:"student_id" validate:"required,uuid4"`
	CourseID     string `json:"course_id" validate:"required,uuid4"`
	MajorID      string `json:"major_id" validate:"omitempty,uuid4"`
	Semester     string `json:"semester" validate:"required,max=20"`
	AcademicYear string `json:"academic_year" validate:"required,max=20"`
}

// SelfEnrollRequest is the student self-service enrollment payload.
type SelfEnrollRequest struct {
	CourseID     string `json:"course_id" validate:"required,uuid4"`
	Semester     string `json:"semester" validate:"required,max=20"`
	AcademicYear string `json:"academic_year" validate:"required,max=20"`
}

// SetGradeRequest records a grade and/or score. Either field may be null;
// the two are not checked against each other.
type SetGradeRequest struct {
	Grade *models.LetterGrade `json:"grade"`
	Score *float64            `json:"score"`
}

// EnrollmentService manages the enrollment ledger.
type EnrollmentService struct {
	repo      enrollmentRepository
	students  enrollmentStudentRepository
	courses   enrollmentCourseRepository
	audit     enrollmentAuditRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs an EnrollmentService instance.
func NewEnrollmentService(repo enrollmentRepository, students enrollmentStudentRepository, courses enrollmentCourseRepository, audit enrollmentAuditRepository, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &EnrollmentService{repo: repo, students: students, courses: courses, audit: audit, validator: validate, logger: logger}
}

// List returns enrollments matching the filter.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return enrollments, total, nil
}

// Get returns an enrollment with joined context.
func (s *EnrollmentService) Get(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	enrollment, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return enrollment, nil
}

// Enroll registers a student in a course for a term on behalf of an admin.
// The major defaults to the profile's major and must resolve one way or the
// other.
func (s *EnrollmentService) Enroll(ctx context.Context, req EnrollRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	profile, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
	}

	majorID := req.MajorID
	if majorID == "" {
		if profile.MajorID == nil || *profile.MajorID == "" {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "student has no major assigned")
		}
		majorID = *profile.MajorID
	}

	return s.enroll(ctx, profile.ID, req.CourseID, majorID, req.Semester, req.AcademicYear)
}

// SelfEnroll registers the calling student in a course. The student's major
// must already be set.
func (s *EnrollmentService) SelfEnroll(ctx context.Context, userID string, req SelfEnrollRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	profile, err := s.students.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
	}
	if profile.MajorID == nil || *profile.MajorID == "" {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "a major must be assigned before enrolling")
	}
	return s.enroll(ctx, profile.ID, req.CourseID, *profile.MajorID, req.Semester, req.AcademicYear)
}

func (s *EnrollmentService) enroll(ctx context.Context, studentID, courseID, majorID, semester, academicYear string) (*models.Enrollment, error) {
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	taken, err := s.repo.Exists(ctx, studentID, courseID, semester, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student is already enrolled in this course for the semester")
	}

	enrollment := &models.Enrollment{
		StudentID:    studentID,
		CourseID:     courseID,
		MajorID:      majorID,
		Semester:     semester,
		AcademicYear: academicYear,
	}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}

	s.logger.Info("enrollment created",
		zap.String("enrollment_id", enrollment.ID),
		zap.String("student_id", studentID),
		zap.String("course_id", courseID),
		zap.String("semester", semester))

	return enrollment, nil
}

// SetGrade records the grade and score on an enrollment. Grade and score are
// validated independently and may each be null.
func (s *EnrollmentService) SetGrade(ctx context.Context, id string, req SetGradeRequest, actorID string) (*models.Enrollment, error) {
	if req.Grade != nil && !req.Grade.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "grade must be one of A, B, C, D, F")
	}
	if req.Score != nil && (*req.Score < 0 || *req.Score > 100) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "score must be between 0 and 100")
	}

	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	if err := s.repo.UpdateGrade(ctx, id, req.Grade, req.Score); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update grade")
	}
	enrollment.Grade = req.Grade
	enrollment.Score = req.Score

	if s.audit != nil {
		newValues := "{}"
		if req.Grade != nil && req.Score != nil {
			newValues = fmt.Sprintf(`{"grade":%q,"score":%v}`, *req.Grade, *req.Score)
		} else if req.Grade != nil {
			newValues = fmt.Sprintf(`{"grade":%q}`, *req.Grade)
		} else if req.Score != nil {
			newValues = fmt.Sprintf(`{"score":%v}`, *req.Score)
		}
		if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     &actorID,
			Action:     models.AuditActionGradeUpdate,
			Resource:   "enrollment",
			ResourceID: &id,
			NewValues:  []byte(newValues),
		}); err != nil {
			s.logger.Warn("failed to record grade audit log", zap.Error(err))
		}
	}

	return enrollment, nil
}

// Delete removes an enrollment.
func (s *EnrollmentService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete enrollment")
	}
	return nil
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/liyun-dev/campus-sis-api/internal/models"
	appErrors "github.com/liyun-dev/campus-sis-api/pkg/errors"
)

type studentProfileRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentProfileDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.StudentProfile, error)
	FindDetailByID(ctx context.Context, id string) (*models.StudentProfileDetail, error)
	FindByUserID(ctx context.Context, userID string) (*models.StudentProfile, error)
	CreateIfAbsent(ctx context.Context, profile *models.StudentProfile) (*models.StudentProfile, bool, error)
	Update(ctx context.Context, profile *models.StudentProfile) error
	UpdateContact(ctx context.Context, userID, realName, phone, email string) error
	Delete(ctx context.Context, id string) error
}

type studentUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	ListStudentsWithoutProfile(ctx context.Context) ([]models.User, error)
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type studentCatalogRepository interface {
	FindDepartment(ctx context.Context, id string) (*models.Department, error)
	FindMajor(ctx context.Context, id string) (*models.Major, error)
}

// StudentProfileUpdate carries admin-editable profile fields.
type StudentProfileUpdate struct {
	RealName           string                  `json:"real_name" validate:"omitempty,max=100"`
	Gender             string                  `json:"gender" validate:"omitempty,oneof=M F"`
	BirthDate          *time.Time              `json:"birth_date"`
	Phone              string                  `json:"phone" validate:"omitempty,max=20"`
	Email              string                  `json:"email" validate:"omitempty,email"`
	Address            string                  `json:"address" validate:"omitempty,max=255"`
	EnrollmentStatus   models.EnrollmentStatus `json:"enrollment_status" validate:"omitempty,oneof=ENROLLED SUSPENDED GRADUATED DROPPED_OUT TRANSFERRED"`
	PoliticalStatus    string                  `json:"political_status" validate:"omitempty,max=50"`
	EmergencyContact   string                  `json:"emergency_contact" validate:"omitempty,max=100"`
	EmergencyPhone     string                  `json:"emergency_phone" validate:"omitempty,max=20"`
	EmergencyRelation  string                  `json:"emergency_relation" validate:"omitempty,max=50"`
	EmergencyContact2  string                  `json:"emergency_contact2" validate:"omitempty,max=100"`
	EmergencyPhone2    string                  `json:"emergency_phone2" validate:"omitempty,max=20"`
	EmergencyRelation2 string                  `json:"emergency_relation2" validate:"omitempty,max=50"`
	DepartmentID       *string                 `json:"department_id"`
	MajorID            *string                 `json:"major_id"`
}

// StudentService manages student profiles and the provisioning rule.
type StudentService struct {
	profiles  studentProfileRepository
	users     studentUserRepository
	catalog   studentCatalogRepository
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewStudentService constructs a StudentService instance.
func NewStudentService(profiles studentProfileRepository, users studentUserRepository, catalog studentCatalogRepository, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &StudentService{
		profiles:  profiles,
		users:     users,
		catalog:   catalog,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// StudentNumber derives the student number from the enrollment year and the
// account sequence. Sequences past 9999 widen the number instead of wrapping.
func StudentNumber(at time.Time, seq int64) string {
	return fmt.Sprintf("STU%02d%04d", at.Year()%100, seq)
}

// RealName derives the display name stored on the profile. Both name parts
// must be present for the surname-first concatenation, otherwise the username
// stands in.
func RealName(user *models.User) string {
	if user.FirstName != "" && user.LastName != "" {
		return user.LastName + user.FirstName
	}
	return user.Username
}

// ProvisionForUser creates the student profile for a student-role account.
// The operation is idempotent: when a profile already exists (including a
// concurrent insert losing the race) the existing profile is returned
// untouched. Accounts whose role does not provision a profile are skipped.
func (s *StudentService) ProvisionForUser(ctx context.Context, user *models.User) (*models.StudentProfile, error) {
	if user == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "user is required")
	}
	if !user.Role.ProvisionsProfile() {
		return nil, nil
	}

	now := s.now().UTC()
	enrollmentDate := now
	profile := &models.StudentProfile{
		UserID:           user.ID,
		StudentNo:        StudentNumber(now, user.Seq),
		RealName:         RealName(user),
		Gender:           models.GenderMale,
		Phone:            user.Phone,
		Email:            user.Email,
		EnrollmentDate:   &enrollmentDate,
		EnrollmentStatus: models.StatusEnrolled,
	}

	stored, inserted, err := s.profiles.CreateIfAbsent(ctx, profile)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to provision student profile")
	}
	if !inserted {
		s.logger.Debug("student profile already provisioned",
			zap.String("user_id", user.ID),
			zap.String("student_no", stored.StudentNo))
		return stored, nil
	}

	s.logger.Info("student profile provisioned",
		zap.String("user_id", user.ID),
		zap.String("student_no", stored.StudentNo))

	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &user.ID,
		Action:     models.AuditActionProfileProvision,
		Resource:   "student_profile",
		ResourceID: &stored.ID,
		NewValues:  []byte(fmt.Sprintf(`{"student_no":%q}`, stored.StudentNo)),
	}); err != nil {
		s.logger.Warn("failed to record provision audit log", zap.Error(err))
	}

	return stored, nil
}

// SyncFromUser pushes account-sourced contact fields into an existing profile.
// Accounts without a profile are left alone; the orphan queue surfaces them.
func (s *StudentService) SyncFromUser(ctx context.Context, user *models.User) error {
	if user == nil || !user.Role.ProvisionsProfile() {
		return nil
	}
	if err := s.profiles.UpdateContact(ctx, user.ID, RealName(user), user.Phone, user.Email); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sync student profile")
	}
	return nil
}

// List returns student profiles matching the filter.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentProfileDetail, int, error) {
	profiles, total, err := s.profiles.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return profiles, total, nil
}

// Get returns a profile with account and catalog context.
func (s *StudentService) Get(ctx context.Context, id string) (*models.StudentProfileDetail, error) {
	profile, err := s.profiles.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
	}
	return profile, nil
}

// GetByUserID returns the profile owned by an account.
func (s *StudentService) GetByUserID(ctx context.Context, userID string) (*models.StudentProfile, error) {
	profile, err := s.profiles.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
	}
	return profile, nil
}

// Update applies admin edits to a profile. Department and major references
// are checked against the catalog before they are stored.
func (s *StudentService) Update(ctx context.Context, id string, req StudentProfileUpdate) (*models.StudentProfile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}

	profile, err := s.profiles.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
	}

	if req.DepartmentID != nil && *req.DepartmentID != "" {
		if _, err := s.catalog.FindDepartment(ctx, *req.DepartmentID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrValidation, "department does not exist")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check department")
		}
	}
	if req.MajorID != nil && *req.MajorID != "" {
		major, err := s.catalog.FindMajor(ctx, *req.MajorID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrValidation, "major does not exist")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check major")
		}
		if req.DepartmentID != nil && *req.DepartmentID != "" && major.DepartmentID != *req.DepartmentID {
			return nil, appErrors.Clone(appErrors.ErrValidation, "major does not belong to the department")
		}
	}

	if req.RealName != "" {
		profile.RealName = req.RealName
	}
	if req.Gender != "" {
		profile.Gender = req.Gender
	}
	if req.BirthDate != nil {
		profile.BirthDate = req.BirthDate
	}
	if req.Phone != "" {
		profile.Phone = req.Phone
	}
	if req.Email != "" {
		profile.Email = req.Email
	}
	if req.Address != "" {
		profile.Address = req.Address
	}
	if req.EnrollmentStatus != "" {
		profile.EnrollmentStatus = req.EnrollmentStatus
	}
	if req.PoliticalStatus != "" {
		profile.PoliticalStatus = req.PoliticalStatus
	}
	if req.EmergencyContact != "" {
		profile.EmergencyContact = req.EmergencyContact
	}
	if req.EmergencyPhone != "" {
		profile.EmergencyPhone = req.EmergencyPhone
	}
	if req.EmergencyRelation != "" {
		profile.EmergencyRelation = req.EmergencyRelation
	}
	if req.EmergencyContact2 != "" {
		profile.EmergencyContact2 = req.EmergencyContact2
	}
	if req.EmergencyPhone2 != "" {
		profile.EmergencyPhone2 = req.EmergencyPhone2
	}
	if req.EmergencyRelation2 != "" {
		profile.EmergencyRelation2 = req.EmergencyRelation2
	}
	if req.DepartmentID != nil {
		if *req.DepartmentID == "" {
			profile.DepartmentID = nil
		} else {
			profile.DepartmentID = req.DepartmentID
		}
	}
	if req.MajorID != nil {
		if *req.MajorID == "" {
			profile.MajorID = nil
		} else {
			profile.MajorID = req.MajorID
		}
	}

	if err := s.profiles.Update(ctx, profile); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student profile")
	}
	return profile, nil
}

// Delete removes a profile and its enrollments.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if _, err := s.profiles.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
	}
	if err := s.profiles.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student profile")
	}
	return nil
}

// ListOrphans returns student-role accounts that have no profile yet.
func (s *StudentService) ListOrphans(ctx context.Context) ([]models.User, error) {
	users, err := s.users.ListStudentsWithoutProfile(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list orphan accounts")
	}
	return users, nil
}

// QuickProvision provisions a profile for one orphan account on demand.
func (s *StudentService) QuickProvision(ctx context.Context, userID string) (*models.StudentProfile, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if !user.Role.ProvisionsProfile() {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "account role does not take a student profile")
	}
	return s.ProvisionForUser(ctx, user)
}

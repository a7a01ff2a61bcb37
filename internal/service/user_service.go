package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/liyun-dev/campus-sis-api/internal/models"
	appErrors "github.com/liyun-dev/campus-sis-api/pkg/errors"
)

type userRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	ExistsByUsername(ctx context.Context, username, excludeID string) (bool, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type profileProvisioner interface {
	ProvisionForUser(ctx context.Context, user *models.User) (*models.StudentProfile, error)
	SyncFromUser(ctx context.Context, user *models.User) error
}

// CreateUserRequest is the admin account-creation payload.
type CreateUserRequest struct {
	Username  string          `json:"username" validate:"required,min=3,max=50"`
	Email     string          `json:"email" validate:"required,email"`
	Password  string          `json:"password" validate:"required,min=8"`
	FirstName string          `json:"first_name" validate:"omitempty,max=50"`
	LastName  string          `json:"last_name" validate:"omitempty,max=50"`
	Phone     string          `json:"phone" validate:"omitempty,max=20"`
	Role      models.UserRole `json:"role" validate:"required,oneof=ADMIN STUDENT TEACHER"`
}

// RegisterRequest is the public self-registration payload. Role is always
// STUDENT for self-registered accounts.
type RegisterRequest struct {
	Username  string `json:"username" validate:"required,min=3,max=50"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name" validate:"omitempty,max=50"`
	LastName  string `json:"last_name" validate:"omitempty,max=50"`
	Phone     string `json:"phone" validate:"omitempty,max=20"`
}

// UpdateUserRequest carries mutable account fields. Nil means unchanged.
type UpdateUserRequest struct {
	Email     *string          `json:"email" validate:"omitempty,email"`
	FirstName *string          `json:"first_name" validate:"omitempty,max=50"`
	LastName  *string          `json:"last_name" validate:"omitempty,max=50"`
	Phone     *string          `json:"phone" validate:"omitempty,max=20"`
	Role      *models.UserRole `json:"role" validate:"omitempty,oneof=ADMIN STUDENT TEACHER"`
	Active    *bool            `json:"active"`
}

// UserService manages accounts and drives profile provisioning.
type UserService struct {
	repo        userRepository
	provisioner profileProvisioner
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewUserService constructs a UserService instance.
func NewUserService(repo userRepository, provisioner profileProvisioner, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, provisioner: provisioner, validator: validate, logger: logger}
}

// Create creates an account with an explicit role. Student-role accounts get
// their profile provisioned in the same call path.
func (s *UserService) Create(ctx context.Context, req CreateUserRequest, actorID string) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}
	return s.create(ctx, req, actorID)
}

// Register creates a self-service student account.
func (s *UserService) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}
	return s.create(ctx, CreateUserRequest{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Role:      models.RoleStudent,
	}, "")
}

func (s *UserService) create(ctx context.Context, req CreateUserRequest, actorID string) (*models.User, error) {
	taken, err := s.repo.ExistsByUsername(ctx, req.Username, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check username")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "username is already taken")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
		Role:         req.Role,
		Active:       true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	auditActor := &user.ID
	if actorID != "" {
		auditActor = &actorID
	}
	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     auditActor,
		Action:     models.AuditActionUserCreate,
		Resource:   "user",
		ResourceID: &user.ID,
	}); err != nil {
		s.logger.Warn("failed to record user create audit log", zap.Error(err))
	}

	if user.Role.ProvisionsProfile() {
		if _, err := s.provisioner.ProvisionForUser(ctx, user); err != nil {
			// The account exists either way; surface the miss to the
			// orphan queue instead of failing the creation.
			s.logger.Error("profile provisioning failed after user create",
				zap.String("user_id", user.ID), zap.Error(err))
		}
	}

	return user, nil
}

// Get returns an account by ID.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// List returns accounts matching the filter.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	return users, total, nil
}

// Update mutates an account. Contact changes on student accounts are synced
// into the profile. Changing the role away from STUDENT intentionally leaves
// the profile in place; the gap is logged so operators can see it happen.
func (s *UserService) Update(ctx context.Context, id string, req UpdateUserRequest, actorID string) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	previousRole := user.Role
	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.Active != nil {
		user.Active = *req.Active
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user")
	}

	if previousRole.ProvisionsProfile() && !user.Role.ProvisionsProfile() {
		s.logger.Warn("role changed away from student; profile left in place",
			zap.String("user_id", user.ID),
			zap.String("old_role", string(previousRole)),
			zap.String("new_role", string(user.Role)))
	}

	if user.Role.ProvisionsProfile() {
		if err := s.provisioner.SyncFromUser(ctx, user); err != nil {
			s.logger.Warn("failed to sync student profile after user update",
				zap.String("user_id", user.ID), zap.Error(err))
		}
	}

	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     models.AuditActionUserUpdate,
		Resource:   "user",
		ResourceID: &user.ID,
	}); err != nil {
		s.logger.Warn("failed to record user update audit log", zap.Error(err))
	}

	return user, nil
}

// Delete deactivates an account. Refresh tokens and profile rows survive;
// the account simply can no longer authenticate.
func (s *UserService) Delete(ctx context.Context, id string, actorID string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete user")
	}
	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     models.AuditActionUserDelete,
		Resource:   "user",
		ResourceID: &id,
		CreatedAt:  time.Now().UTC(),
	}); err != nil {
		s.logger.Warn("failed to record user delete audit log", zap.Error(err))
	}
	return nil
}

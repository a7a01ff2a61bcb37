package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/liyun-dev/campus-sis-api/internal/models"
	appErrors "github.com/liyun-dev/campus-sis-api/pkg/errors"
)

type majorRepository interface {
	List(ctx context.Context, filter models.MajorFilter) ([]models.MajorDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Major, error)
	FindDetailByID(ctx context.Context, id string) (*models.MajorDetail, error)
	ExistsByCode(ctx context.Context, code, excludeID string) (bool, error)
	Create(ctx context.Context, major *models.Major) error
	Update(ctx context.Context, major *models.Major) error
	Delete(ctx context.Context, id string) error
}

type majorDepartmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Department, error)
}

// MajorRequest is the create/update payload for majors.
type MajorRequest struct {
	DepartmentID  string `json:"department_id" validate:"required,uuid4"`
	Name          string `json:"name" validate:"required,max=100"`
	Code          string `json:"code" validate:"required,max=20"`
	DurationYears int    `json:"duration_years" validate:"required,min=1,max=8"`
	Description   string `json:"description" validate:"omitempty,max=500"`
}

// MajorService manages the major catalog.
type MajorService struct {
	repo        majorRepository
	departments majorDepartmentRepository
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewMajorService constructs a MajorService instance.
func NewMajorService(repo majorRepository, departments majorDepartmentRepository, validate *validator.Validate, logger *zap.Logger) *MajorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &MajorService{repo: repo, departments: departments, validator: validate, logger: logger}
}

// List returns majors matching the filter.
func (s *MajorService) List(ctx context.Context, filter models.MajorFilter) ([]models.MajorDetail, int, error) {
	majors, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list majors")
	}
	return majors, total, nil
}

// Get returns a major with its department context.
func (s *MajorService) Get(ctx context.Context, id string) (*models.MajorDetail, error) {
	major, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "major not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load major")
	}
	return major, nil
}

// Create adds a major under an existing department.
func (s *MajorService) Create(ctx context.Context, req MajorRequest) (*models.Major, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid major payload")
	}
	if _, err := s.departments.FindByID(ctx, req.DepartmentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "department does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check department")
	}
	taken, err := s.repo.ExistsByCode(ctx, req.Code, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check major code")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "major code is already in use")
	}

	major := &models.Major{
		DepartmentID:  req.DepartmentID,
		Name:          req.Name,
		Code:          req.Code,
		DurationYears: req.DurationYears,
		Description:   req.Description,
	}
	if err := s.repo.Create(ctx, major); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create major")
	}
	return major, nil
}

// Update edits a major.
func (s *MajorService) Update(ctx context.Context, id string, req MajorRequest) (*models.Major, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid major payload")
	}
	major, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "major not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load major")
	}
	if _, err := s.departments.FindByID(ctx, req.DepartmentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "department does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check department")
	}
	taken, err := s.repo.ExistsByCode(ctx, req.Code, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check major code")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "major code is already in use")
	}

	major.DepartmentID = req.DepartmentID
	major.Name = req.Name
	major.Code = req.Code
	major.DurationYears = req.DurationYears
	major.Description = req.Description
	if err := s.repo.Update(ctx, major); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update major")
	}
	return major, nil
}

// Delete removes a major and its enrollments. Student profiles keep their
// department but lose the major reference.
func (s *MajorService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "major not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load major")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete major")
	}
	s.logger.Info("major deleted with cascade", zap.String("major_id", id))
	return nil
}

package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/liyun-dev/campus-sis-api/internal/models"
	appErrors "github.com/liyun-dev/campus-sis-api/pkg/errors"
)

type dashboardUserRepository interface {
	CountByRole(ctx context.Context, role models.UserRole) (int, error)
	ListStudentsWithoutProfile(ctx context.Context) ([]models.User, error)
	ListRecent(ctx context.Context, since time.Time, limit int) ([]models.User, error)
}

type dashboardStudentRepository interface {
	Count(ctx context.Context) (int, error)
	CountByStatus(ctx context.Context) (map[models.EnrollmentStatus]int, error)
}

type counter interface {
	Count(ctx context.Context) (int, error)
}

// DashboardConfig tunes the admin dashboard aggregation.
type DashboardConfig struct {
	CacheTTL     time.Duration
	RecentWindow time.Duration
	RecentLimit  int
}

// DashboardService assembles the cached admin overview.
type DashboardService struct {
	users       dashboardUserRepository
	students    dashboardStudentRepository
	departments counter
	majors      counter
	courses     counter
	enrollments counter
	cache       transcriptCache
	logger      *zap.Logger
	now         func() time.Time
	cfg         DashboardConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(users dashboardUserRepository, students dashboardStudentRepository, departments, majors, courses, enrollments counter, cache transcriptCache, logger *zap.Logger, cfg DashboardConfig) *DashboardService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.RecentWindow <= 0 {
		cfg.RecentWindow = 7 * 24 * time.Hour
	}
	if cfg.RecentLimit <= 0 {
		cfg.RecentLimit = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		users:       users,
		students:    students,
		departments: departments,
		majors:      majors,
		courses:     courses,
		enrollments: enrollments,
		cache:       cache,
		logger:      logger,
		now:         time.Now,
		cfg:         cfg,
	}
}

const dashboardCacheKey = "dashboard:admin"

// Summary returns the admin overview and reports whether it was served from
// cache.
func (s *DashboardService) Summary(ctx context.Context) (*models.DashboardSummary, bool, error) {
	if s.cache != nil {
		var cached models.DashboardSummary
		if hit, err := s.cache.Get(ctx, dashboardCacheKey, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	summary, err := s.compose(ctx)
	if err != nil {
		return nil, false, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, dashboardCacheKey, summary, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("failed to cache dashboard summary", zap.Error(err))
		}
	}
	return summary, false, nil
}

func (s *DashboardService) compose(ctx context.Context) (*models.DashboardSummary, error) {
	usersByRole := make(map[models.UserRole]int, 3)
	for _, role := range []models.UserRole{models.RoleAdmin, models.RoleStudent, models.RoleTeacher} {
		count, err := s.users.CountByRole(ctx, role)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count users")
		}
		usersByRole[role] = count
	}

	studentTotal, err := s.students.Count(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students")
	}
	byStatus, err := s.students.CountByStatus(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students by status")
	}

	departmentTotal, err := s.departments.Count(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count departments")
	}
	majorTotal, err := s.majors.Count(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count majors")
	}
	courseTotal, err := s.courses.Count(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count courses")
	}
	enrollmentTotal, err := s.enrollments.Count(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count enrollments")
	}

	orphans, err := s.users.ListStudentsWithoutProfile(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list orphan accounts")
	}

	recent, err := s.users.ListRecent(ctx, s.now().UTC().Add(-s.cfg.RecentWindow), s.cfg.RecentLimit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list recent registrations")
	}

	return &models.DashboardSummary{
		UsersByRole:         usersByRole,
		StudentTotal:        studentTotal,
		StudentsByStatus:    byStatus,
		DepartmentTotal:     departmentTotal,
		MajorTotal:          majorTotal,
		CourseTotal:         courseTotal,
		EnrollmentTotal:     enrollmentTotal,
		OrphanCount:         len(orphans),
		OrphanUsers:         orphans,
		RecentRegistrations: recent,
		GeneratedAt:         s.now().UTC(),
	}, nil
}

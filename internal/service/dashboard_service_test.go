package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liyun-dev/campus-sis-api/internal/models"
)

type mockDashboardUsers struct {
	byRole  map[models.UserRole]int
	orphans []models.User
	recent  []models.User
}

func (m *mockDashboardUsers) CountByRole(ctx context.Context, role models.UserRole) (int, error) {
	return m.byRole[role], nil
}

func (m *mockDashboardUsers) ListStudentsWithoutProfile(ctx context.Context) ([]models.User, error) {
	return m.orphans, nil
}

func (m *mockDashboardUsers) ListRecent(ctx context.Context, since time.Time, limit int) ([]models.User, error) {
	return m.recent, nil
}

type mockDashboardStudents struct {
	total    int
	byStatus map[models.EnrollmentStatus]int
}

func (m *mockDashboardStudents) Count(ctx context.Context) (int, error) {
	return m.total, nil
}

func (m *mockDashboardStudents) CountByStatus(ctx context.Context) (map[models.EnrollmentStatus]int, error) {
	return m.byStatus, nil
}

type fixedCounter int

func (c fixedCounter) Count(ctx context.Context) (int, error) {
	return int(c), nil
}

func TestDashboardSummaryComposesTotals(t *testing.T) {
	users := &mockDashboardUsers{
		byRole: map[models.UserRole]int{
			models.RoleAdmin:   2,
			models.RoleStudent: 120,
			models.RoleTeacher: 15,
		},
		orphans: []models.User{{ID: "orphan-1"}, {ID: "orphan-2"}},
		recent:  []models.User{{ID: "new-1"}},
	}
	students := &mockDashboardStudents{
		total:    118,
		byStatus: map[models.EnrollmentStatus]int{models.StatusEnrolled: 110, models.StatusSuspended: 8},
	}

	svc := NewDashboardService(users, students, fixedCounter(4), fixedCounter(12), fixedCounter(40), fixedCounter(900), nil, nil, DashboardConfig{})

	summary, cached, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.False(t, cached)

	assert.Equal(t, 120, summary.UsersByRole[models.RoleStudent])
	assert.Equal(t, 118, summary.StudentTotal)
	assert.Equal(t, 4, summary.DepartmentTotal)
	assert.Equal(t, 12, summary.MajorTotal)
	assert.Equal(t, 40, summary.CourseTotal)
	assert.Equal(t, 900, summary.EnrollmentTotal)
	assert.Equal(t, 2, summary.OrphanCount)
	assert.Len(t, summary.RecentRegistrations, 1)
}

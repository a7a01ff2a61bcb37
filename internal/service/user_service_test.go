package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liyun-dev/campus-sis-api/internal/models"
	appErrors "github.com/liyun-dev/campus-sis-api/pkg/errors"
)

type mockUserRepo struct {
	users  map[string]*models.User
	seq    int64
	audits []models.AuditLog
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) ExistsByUsername(ctx context.Context, username, excludeID string) (bool, error) {
	for _, u := range m.users {
		if u.Username == username && u.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	return nil, 0, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if m.users == nil {
		m.users = make(map[string]*models.User)
	}
	m.seq++
	user.ID = "user-" + user.Username
	user.Seq = m.seq
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) Update(ctx context.Context, user *models.User) error {
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) Delete(ctx context.Context, id string) error {
	if u, ok := m.users[id]; ok {
		u.Active = false
	}
	return nil
}

func (m *mockUserRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.audits = append(m.audits, *log)
	return nil
}

type mockProvisioner struct {
	provisioned []string
	synced      []string
	lastUser    *models.User
}

func (m *mockProvisioner) ProvisionForUser(ctx context.Context, user *models.User) (*models.StudentProfile, error) {
	m.provisioned = append(m.provisioned, user.ID)
	m.lastUser = user
	return &models.StudentProfile{UserID: user.ID}, nil
}

func (m *mockProvisioner) SyncFromUser(ctx context.Context, user *models.User) error {
	m.synced = append(m.synced, user.ID)
	m.lastUser = user
	return nil
}

func TestUserServiceCreateProvisionsStudents(t *testing.T) {
	repo := &mockUserRepo{}
	prov := &mockProvisioner{}
	svc := NewUserService(repo, prov, nil, nil)

	user, err := svc.Create(context.Background(), CreateUserRequest{
		Username: "wanglei",
		Email:    "wang@example.com",
		Password: "secret-pass",
		Role:     models.RoleStudent,
	}, "admin-1")
	require.NoError(t, err)

	assert.Equal(t, []string{user.ID}, prov.provisioned)
	assert.True(t, user.Active)
	assert.NotEqual(t, "secret-pass", user.PasswordHash)
	assert.NotEmpty(t, user.PasswordHash)
}

func TestUserServiceCreateSkipsProvisioningForStaff(t *testing.T) {
	repo := &mockUserRepo{}
	prov := &mockProvisioner{}
	svc := NewUserService(repo, prov, nil, nil)

	_, err := svc.Create(context.Background(), CreateUserRequest{
		Username: "headmaster",
		Email:    "head@example.com",
		Password: "secret-pass",
		Role:     models.RoleAdmin,
	}, "admin-1")
	require.NoError(t, err)
	assert.Empty(t, prov.provisioned)
}

func TestUserServiceCreateRejectsDuplicateUsername(t *testing.T) {
	repo := &mockUserRepo{users: map[string]*models.User{
		"user-wanglei": {ID: "user-wanglei", Username: "wanglei"},
	}}
	svc := NewUserService(repo, &mockProvisioner{}, nil, nil)

	_, err := svc.Create(context.Background(), CreateUserRequest{
		Username: "wanglei",
		Email:    "other@example.com",
		Password: "secret-pass",
		Role:     models.RoleStudent,
	}, "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestUserServiceRegisterForcesStudentRole(t *testing.T) {
	repo := &mockUserRepo{}
	prov := &mockProvisioner{}
	svc := NewUserService(repo, prov, nil, nil)

	user, err := svc.Register(context.Background(), RegisterRequest{
		Username: "selfserve",
		Email:    "self@example.com",
		Password: "secret-pass",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, user.Role)
	assert.Equal(t, []string{user.ID}, prov.provisioned)
}

func TestUserServiceUpdateSyncsStudentContact(t *testing.T) {
	repo := &mockUserRepo{users: map[string]*models.User{
		"user-1": {ID: "user-1", Username: "wanglei", Role: models.RoleStudent, Active: true},
	}}
	prov := &mockProvisioner{}
	svc := NewUserService(repo, prov, nil, nil)

	phone := "13900000000"
	_, err := svc.Update(context.Background(), "user-1", UpdateUserRequest{Phone: &phone}, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"user-1"}, prov.synced)
	assert.Equal(t, phone, prov.lastUser.Phone)
}

func TestUserServiceRoleChangeLeavesProfileInPlace(t *testing.T) {
	repo := &mockUserRepo{users: map[string]*models.User{
		"user-1": {ID: "user-1", Username: "wanglei", Role: models.RoleStudent, Active: true},
	}}
	prov := &mockProvisioner{}
	svc := NewUserService(repo, prov, nil, nil)

	teacher := models.RoleTeacher
	user, err := svc.Update(context.Background(), "user-1", UpdateUserRequest{Role: &teacher}, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleTeacher, user.Role)

	// No provisioning, no sync, no profile removal: the profile simply
	// stays behind.
	assert.Empty(t, prov.provisioned)
	assert.Empty(t, prov.synced)
}

func TestUserServiceDeleteIsSoft(t *testing.T) {
	repo := &mockUserRepo{users: map[string]*models.User{
		"user-1": {ID: "user-1", Username: "wanglei", Role: models.RoleStudent, Active: true},
	}}
	svc := NewUserService(repo, &mockProvisioner{}, nil, nil)

	require.NoError(t, svc.Delete(context.Background(), "user-1", "admin-1"))
	assert.False(t, repo.users["user-1"].Active)
}

package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liyun-dev/campus-sis-api/internal/models"
	appErrors "github.com/liyun-dev/campus-sis-api/pkg/errors"
)

type mockProfileRepo struct {
	byUserID map[string]*models.StudentProfile
	created  *models.StudentProfile
	synced   []string
	updated  *models.StudentProfile
	deleted  []string
}

func (m *mockProfileRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentProfileDetail, int, error) {
	return nil, 0, nil
}

func (m *mockProfileRepo) FindByID(ctx context.Context, id string) (*models.StudentProfile, error) {
	for _, p := range m.byUserID {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockProfileRepo) FindDetailByID(ctx context.Context, id string) (*models.StudentProfileDetail, error) {
	p, err := m.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.StudentProfileDetail{StudentProfile: *p}, nil
}

func (m *mockProfileRepo) FindByUserID(ctx context.Context, userID string) (*models.StudentProfile, error) {
	if p, ok := m.byUserID[userID]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockProfileRepo) CreateIfAbsent(ctx context.Context, profile *models.StudentProfile) (*models.StudentProfile, bool, error) {
	if existing, ok := m.byUserID[profile.UserID]; ok {
		return existing, false, nil
	}
	if m.byUserID == nil {
		m.byUserID = make(map[string]*models.StudentProfile)
	}
	profile.ID = "profile-" + profile.UserID
	m.byUserID[profile.UserID] = profile
	m.created = profile
	return profile, true, nil
}

func (m *mockProfileRepo) Update(ctx context.Context, profile *models.StudentProfile) error {
	m.updated = profile
	return nil
}

func (m *mockProfileRepo) UpdateContact(ctx context.Context, userID, realName, phone, email string) error {
	m.synced = append(m.synced, userID)
	if p, ok := m.byUserID[userID]; ok {
		p.RealName = realName
		p.Phone = phone
		p.Email = email
	}
	return nil
}

func (m *mockProfileRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

type mockUserReader struct {
	users   map[string]*models.User
	orphans []models.User
	audits  []models.AuditLog
}

func (m *mockUserReader) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserReader) ListStudentsWithoutProfile(ctx context.Context) ([]models.User, error) {
	return m.orphans, nil
}

func (m *mockUserReader) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.audits = append(m.audits, *log)
	return nil
}

type mockCatalogReader struct {
	departments map[string]*models.Department
	majors      map[string]*models.Major
}

func (m *mockCatalogReader) FindDepartment(ctx context.Context, id string) (*models.Department, error) {
	if d, ok := m.departments[id]; ok {
		return d, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCatalogReader) FindMajor(ctx context.Context, id string) (*models.Major, error) {
	if mj, ok := m.majors[id]; ok {
		return mj, nil
	}
	return nil, sql.ErrNoRows
}

func newStudentService(profiles *mockProfileRepo, users *mockUserReader, catalog *mockCatalogReader) *StudentService {
	svc := NewStudentService(profiles, users, catalog, nil, nil)
	svc.now = func() time.Time { return time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC) }
	return svc
}

func TestStudentNumberFormat(t *testing.T) {
	at := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "STU260042", StudentNumber(at, 42))
	assert.Equal(t, "STU269999", StudentNumber(at, 9999))
	// Sequences past four digits widen rather than wrap.
	assert.Equal(t, "STU2610000", StudentNumber(at, 10000))
	assert.Equal(t, "STU010001", StudentNumber(time.Date(2101, 1, 1, 0, 0, 0, 0, time.UTC), 1))
}

func TestRealNameDerivation(t *testing.T) {
	assert.Equal(t, "WangLei", RealName(&models.User{Username: "wl", FirstName: "Lei", LastName: "Wang"}))
	assert.Equal(t, "wl", RealName(&models.User{Username: "wl", FirstName: "Lei"}))
	assert.Equal(t, "wl", RealName(&models.User{Username: "wl", LastName: "Wang"}))
	assert.Equal(t, "wl", RealName(&models.User{Username: "wl"}))
}

func TestProvisionForUserCreatesProfile(t *testing.T) {
	profiles := &mockProfileRepo{}
	users := &mockUserReader{}
	svc := newStudentService(profiles, users, &mockCatalogReader{})

	user := &models.User{
		ID:        "user-1",
		Seq:       7,
		Username:  "wanglei",
		Email:     "wang@example.com",
		Phone:     "13800000000",
		FirstName: "Lei",
		LastName:  "Wang",
		Role:      models.RoleStudent,
	}
	profile, err := svc.ProvisionForUser(context.Background(), user)
	require.NoError(t, err)
	require.NotNil(t, profile)

	assert.Equal(t, "STU260007", profile.StudentNo)
	assert.Equal(t, "WangLei", profile.RealName)
	assert.Equal(t, models.GenderMale, profile.Gender)
	assert.Equal(t, "13800000000", profile.Phone)
	assert.Equal(t, "wang@example.com", profile.Email)
	assert.Equal(t, models.StatusEnrolled, profile.EnrollmentStatus)
	require.NotNil(t, profile.EnrollmentDate)
	assert.Equal(t, 2026, profile.EnrollmentDate.Year())

	require.Len(t, users.audits, 1)
	assert.Equal(t, models.AuditActionProfileProvision, users.audits[0].Action)
}

func TestProvisionForUserIsIdempotent(t *testing.T) {
	existing := &models.StudentProfile{ID: "profile-1", UserID: "user-1", StudentNo: "STU250001"}
	profiles := &mockProfileRepo{byUserID: map[string]*models.StudentProfile{"user-1": existing}}
	users := &mockUserReader{}
	svc := newStudentService(profiles, users, &mockCatalogReader{})

	user := &models.User{ID: "user-1", Seq: 42, Username: "wanglei", Role: models.RoleStudent}
	profile, err := svc.ProvisionForUser(context.Background(), user)
	require.NoError(t, err)

	// The original number survives; the second call changes nothing.
	assert.Equal(t, "STU250001", profile.StudentNo)
	assert.Nil(t, profiles.created)
	assert.Empty(t, users.audits)
}

func TestProvisionForUserSkipsNonStudents(t *testing.T) {
	profiles := &mockProfileRepo{}
	svc := newStudentService(profiles, &mockUserReader{}, &mockCatalogReader{})

	for _, role := range []models.UserRole{models.RoleAdmin, models.RoleTeacher} {
		profile, err := svc.ProvisionForUser(context.Background(), &models.User{ID: "u", Role: role})
		require.NoError(t, err)
		assert.Nil(t, profile)
	}
	assert.Nil(t, profiles.created)
}

func TestSyncFromUserIgnoresNonStudents(t *testing.T) {
	profiles := &mockProfileRepo{}
	svc := newStudentService(profiles, &mockUserReader{}, &mockCatalogReader{})

	require.NoError(t, svc.SyncFromUser(context.Background(), &models.User{ID: "u", Role: models.RoleTeacher}))
	assert.Empty(t, profiles.synced)
}

func TestSyncFromUserPushesContact(t *testing.T) {
	existing := &models.StudentProfile{ID: "profile-1", UserID: "user-1"}
	profiles := &mockProfileRepo{byUserID: map[string]*models.StudentProfile{"user-1": existing}}
	svc := newStudentService(profiles, &mockUserReader{}, &mockCatalogReader{})

	user := &models.User{
		ID:        "user-1",
		Username:  "wanglei",
		FirstName: "Lei",
		LastName:  "Wang",
		Phone:     "13900000000",
		Email:     "new@example.com",
		Role:      models.RoleStudent,
	}
	require.NoError(t, svc.SyncFromUser(context.Background(), user))
	assert.Equal(t, []string{"user-1"}, profiles.synced)
	assert.Equal(t, "WangLei", existing.RealName)
	assert.Equal(t, "13900000000", existing.Phone)
	assert.Equal(t, "new@example.com", existing.Email)
}

func TestQuickProvisionRejectsNonStudentRole(t *testing.T) {
	users := &mockUserReader{users: map[string]*models.User{
		"user-1": {ID: "user-1", Role: models.RoleTeacher},
	}}
	svc := newStudentService(&mockProfileRepo{}, users, &mockCatalogReader{})

	_, err := svc.QuickProvision(context.Background(), "user-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestUpdateRejectsUnknownCatalogRefs(t *testing.T) {
	existing := &models.StudentProfile{ID: "profile-1", UserID: "user-1"}
	profiles := &mockProfileRepo{byUserID: map[string]*models.StudentProfile{"user-1": existing}}
	catalog := &mockCatalogReader{}
	svc := newStudentService(profiles, &mockUserReader{}, catalog)

	deptID := "11111111-1111-4111-8111-111111111111"
	_, err := svc.Update(context.Background(), "profile-1", StudentProfileUpdate{DepartmentID: &deptID})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUpdateClearsRefsWithEmptyString(t *testing.T) {
	deptID := "dept-1"
	existing := &models.StudentProfile{ID: "profile-1", UserID: "user-1", DepartmentID: &deptID}
	profiles := &mockProfileRepo{byUserID: map[string]*models.StudentProfile{"user-1": existing}}
	svc := newStudentService(profiles, &mockUserReader{}, &mockCatalogReader{})

	empty := ""
	updated, err := svc.Update(context.Background(), "profile-1", StudentProfileUpdate{DepartmentID: &empty})
	require.NoError(t, err)
	assert.Nil(t, updated.DepartmentID)
}

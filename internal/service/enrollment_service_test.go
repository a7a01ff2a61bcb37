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

type mockEnrollmentRepo struct {
	enrollments map[string]models.Enrollment
	taken       map[string]bool
	created     *models.Enrollment
	grades      map[string][2]interface{}
}

func (m *mockEnrollmentRepo) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	return nil, 0, nil
}

func (m *mockEnrollmentRepo) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if e, ok := m.enrollments[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	if e, ok := m.enrollments[id]; ok {
		return &models.EnrollmentDetail{Enrollment: e}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) Exists(ctx context.Context, studentID, courseID, semester, excludeID string) (bool, error) {
	return m.taken[studentID+"|"+courseID+"|"+semester], nil
}

func (m *mockEnrollmentRepo) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = "enr-new"
	}
	if m.enrollments == nil {
		m.enrollments = make(map[string]models.Enrollment)
	}
	m.enrollments[enrollment.ID] = *enrollment
	m.created = enrollment
	return nil
}

func (m *mockEnrollmentRepo) UpdateGrade(ctx context.Context, id string, grade *models.LetterGrade, score *float64) error {
	if m.grades == nil {
		m.grades = make(map[string][2]interface{})
	}
	m.grades[id] = [2]interface{}{grade, score}
	return nil
}

func (m *mockEnrollmentRepo) Delete(ctx context.Context, id string) error {
	delete(m.enrollments, id)
	return nil
}

type mockStudentReader struct {
	byID     map[string]*models.StudentProfile
	byUserID map[string]*models.StudentProfile
}

func (m *mockStudentReader) FindByID(ctx context.Context, id string) (*models.StudentProfile, error) {
	if p, ok := m.byID[id]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentReader) FindByUserID(ctx context.Context, userID string) (*models.StudentProfile, error) {
	if p, ok := m.byUserID[userID]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

type mockCourseReader struct {
	courses map[string]*models.Course
}

func (m *mockCourseReader) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

type mockAuditWriter struct {
	audits []models.AuditLog
}

func (m *mockAuditWriter) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.audits = append(m.audits, *log)
	return nil
}

const (
	studentUUID = "11111111-1111-4111-8111-111111111111"
	courseUUID  = "22222222-2222-4222-8222-222222222222"
	majorUUID   = "33333333-3333-4333-8333-333333333333"
)

func newEnrollmentFixture() (*EnrollmentService, *mockEnrollmentRepo, *mockAuditWriter) {
	majorID := majorUUID
	repo := &mockEnrollmentRepo{taken: map[string]bool{}}
	students := &mockStudentReader{
		byID: map[string]*models.StudentProfile{
			studentUUID: {ID: studentUUID, UserID: "user-1", MajorID: &majorID},
		},
		byUserID: map[string]*models.StudentProfile{
			"user-1": {ID: studentUUID, UserID: "user-1", MajorID: &majorID},
		},
	}
	courses := &mockCourseReader{courses: map[string]*models.Course{
		courseUUID: {ID: courseUUID, Name: "Data Structures"},
	}}
	audit := &mockAuditWriter{}
	return NewEnrollmentService(repo, students, courses, audit, nil, nil), repo, audit
}

func TestEnrollCreatesLedgerEntry(t *testing.T) {
	svc, repo, _ := newEnrollmentFixture()

	enrollment, err := svc.Enroll(context.Background(), EnrollRequest{
		StudentID:    studentUUID,
		CourseID:     courseUUID,
		Semester:     "spring",
		AcademicYear: "2026",
	})
	require.NoError(t, err)
	assert.Equal(t, majorUUID, enrollment.MajorID)
	assert.Equal(t, "spring", repo.created.Semester)
}

func TestEnrollRejectsDuplicateTuple(t *testing.T) {
	svc, repo, _ := newEnrollmentFixture()
	repo.taken[studentUUID+"|"+courseUUID+"|spring"] = true

	_, err := svc.Enroll(context.Background(), EnrollRequest{
		StudentID:    studentUUID,
		CourseID:     courseUUID,
		Semester:     "spring",
		AcademicYear: "2026",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestEnrollSameCourseDifferentSemester(t *testing.T) {
	svc, repo, _ := newEnrollmentFixture()
	repo.taken[studentUUID+"|"+courseUUID+"|spring"] = true

	_, err := svc.Enroll(context.Background(), EnrollRequest{
		StudentID:    studentUUID,
		CourseID:     courseUUID,
		Semester:     "fall",
		AcademicYear: "2026",
	})
	require.NoError(t, err)
}

func TestSelfEnrollRequiresMajor(t *testing.T) {
	svc, _, _ := newEnrollmentFixture()
	students := &mockStudentReader{byUserID: map[string]*models.StudentProfile{
		"user-2": {ID: "profile-2", UserID: "user-2"},
	}}
	svc.students = students

	_, err := svc.SelfEnroll(context.Background(), "user-2", SelfEnrollRequest{
		CourseID:     courseUUID,
		Semester:     "spring",
		AcademicYear: "2026",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestSetGradeValidatesIndependently(t *testing.T) {
	svc, repo, audit := newEnrollmentFixture()
	repo.enrollments = map[string]models.Enrollment{
		"enr-1": {ID: "enr-1", StudentID: studentUUID},
	}

	bad := models.LetterGrade("E")
	_, err := svc.SetGrade(context.Background(), "enr-1", SetGradeRequest{Grade: &bad}, "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	over := 101.0
	_, err = svc.SetGrade(context.Background(), "enr-1", SetGradeRequest{Score: &over}, "admin-1")
	require.Error(t, err)

	// A grade with no score is legal, so is a score with no grade; the
	// two are never checked against each other.
	gradeA := models.GradeA
	updated, err := svc.SetGrade(context.Background(), "enr-1", SetGradeRequest{Grade: &gradeA}, "admin-1")
	require.NoError(t, err)
	assert.Nil(t, updated.Score)

	lowScore := 12.0
	updated, err = svc.SetGrade(context.Background(), "enr-1", SetGradeRequest{Grade: &gradeA, Score: &lowScore}, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.GradeA, *updated.Grade)
	assert.Equal(t, 12.0, *updated.Score)

	require.NotEmpty(t, audit.audits)
	assert.Equal(t, models.AuditActionGradeUpdate, audit.audits[0].Action)
}

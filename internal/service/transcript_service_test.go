package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liyun-dev/campus-sis-api/internal/models"
)

type mockTranscriptRepo struct {
	enrollments []models.EnrollmentDetail
	termCounts  map[string]int
	lastTerm    [2]string
}

func (m *mockTranscriptRepo) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	return m.enrollments, nil
}

func (m *mockTranscriptRepo) CountByTerm(ctx context.Context, studentID, semester, academicYear string) (int, error) {
	m.lastTerm = [2]string{semester, academicYear}
	return m.termCounts[semester+"|"+academicYear], nil
}

func graded(grade models.LetterGrade) models.EnrollmentDetail {
	return models.EnrollmentDetail{Enrollment: models.Enrollment{Grade: &grade}}
}

func scored(score float64) models.EnrollmentDetail {
	return models.EnrollmentDetail{Enrollment: models.Enrollment{Score: &score}}
}

func newTranscriptFixture(repo *mockTranscriptRepo, at time.Time) *TranscriptService {
	students := &mockStudentReader{byID: map[string]*models.StudentProfile{
		studentUUID: {ID: studentUUID, StudentNo: "STU260007"},
	}}
	svc := NewTranscriptService(repo, students, nil, 0, nil)
	svc.now = func() time.Time { return at }
	return svc
}

func TestSummaryComputesGPAOverGradedOnly(t *testing.T) {
	repo := &mockTranscriptRepo{
		enrollments: []models.EnrollmentDetail{
			graded(models.GradeA),
			graded(models.GradeB),
			graded(models.GradeB),
			graded(models.GradeF),
			{}, // ungraded, excluded from the GPA denominator
		},
	}
	svc := newTranscriptFixture(repo, time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC))

	summary, err := svc.Summary(context.Background(), studentUUID)
	require.NoError(t, err)

	assert.Equal(t, 5, summary.TotalEnrollments)
	assert.Equal(t, 4, summary.GradedCount)
	assert.InDelta(t, 2.5, summary.GPA, 1e-9)
	assert.Equal(t, models.GradeC, summary.GPALetter)
}

func TestSummaryScoreAverageHasIndependentDenominator(t *testing.T) {
	// Two graded records without scores, two scored records without grades.
	repo := &mockTranscriptRepo{
		enrollments: []models.EnrollmentDetail{
			graded(models.GradeA),
			graded(models.GradeB),
			scored(90),
			scored(70),
		},
	}
	svc := newTranscriptFixture(repo, time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC))

	summary, err := svc.Summary(context.Background(), studentUUID)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.GradedCount)
	assert.InDelta(t, 3.5, summary.GPA, 1e-9)
	assert.Equal(t, 2, summary.ScoredCount)
	assert.InDelta(t, 80, summary.AverageScore, 1e-9)
}

func TestSummaryWithNoGrades(t *testing.T) {
	repo := &mockTranscriptRepo{}
	svc := newTranscriptFixture(repo, time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC))

	summary, err := svc.Summary(context.Background(), studentUUID)
	require.NoError(t, err)
	assert.Zero(t, summary.GPA)
	assert.Equal(t, models.GradeF, summary.GPALetter)
	assert.Zero(t, summary.AverageScore)
}

func TestGPALetterThresholds(t *testing.T) {
	cases := []struct {
		gpa  float64
		want models.LetterGrade
	}{
		{4.0, models.GradeA},
		{3.7, models.GradeA},
		{3.69, models.GradeB},
		{2.7, models.GradeB},
		{2.69, models.GradeC},
		{1.7, models.GradeC},
		{1.69, models.GradeD},
		{1.0, models.GradeD},
		{0.99, models.GradeF},
		{0, models.GradeF},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, GPALetter(tc.gpa), "gpa %.2f", tc.gpa)
	}
}

func TestCurrentTermHeuristic(t *testing.T) {
	cases := []struct {
		at       time.Time
		semester string
		year     string
	}{
		{time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), "spring", "2026"},
		{time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC), "spring", "2026"},
		{time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), "fall", "2026"},
		{time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC), "fall", "2026"},
		// January belongs to the previous year's winter term.
		{time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), "winter", "2025"},
	}
	for _, tc := range cases {
		term := CurrentTerm(tc.at)
		assert.Equal(t, tc.semester, term.Semester, "%s", tc.at)
		assert.Equal(t, tc.year, term.AcademicYear, "%s", tc.at)
	}
}

func TestSummaryCountsCurrentTermByExactMatch(t *testing.T) {
	repo := &mockTranscriptRepo{
		termCounts: map[string]int{"spring|2026": 3},
	}
	svc := newTranscriptFixture(repo, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))

	summary, err := svc.Summary(context.Background(), studentUUID)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.CurrentTermCourses)
	assert.Equal(t, [2]string{"spring", "2026"}, repo.lastTerm)
}

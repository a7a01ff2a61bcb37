package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liyun-dev/campus-sis-api/internal/models"
	"github.com/liyun-dev/campus-sis-api/pkg/storage"
)

type mockRosterSource struct {
	pages map[int][]models.StudentProfileDetail
	total int
}

func (m *mockRosterSource) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentProfileDetail, int, error) {
	return m.pages[filter.Page], m.total, nil
}

type mockTranscriptSource struct {
	summary models.TranscriptSummary
	history []models.EnrollmentDetail
}

func (m *mockTranscriptSource) Summary(ctx context.Context, studentID string) (*models.TranscriptSummary, error) {
	s := m.summary
	return &s, nil
}

func (m *mockTranscriptSource) History(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	return m.history, nil
}

func newExportFixture(t *testing.T, roster *mockRosterSource, transcripts *mockTranscriptSource) *ExportService {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	svc := NewExportService(roster, transcripts, store, signer, nil, ExportConfig{Workers: 1})
	svc.Start(context.Background())
	t.Cleanup(svc.Stop)
	return svc
}

func waitForExport(t *testing.T, svc *ExportService, id string) *models.ExportJob {
	t.Helper()
	var job *models.ExportJob
	require.Eventually(t, func() bool {
		record, err := svc.Status(id)
		if err != nil {
			return false
		}
		job = record
		return record.Status == models.ExportCompleted || record.Status == models.ExportFailed
	}, 5*time.Second, 10*time.Millisecond)
	return job
}

func TestExportRosterCSVPagesThroughFullSet(t *testing.T) {
	cs := "Computer Science"
	roster := &mockRosterSource{
		pages: map[int][]models.StudentProfileDetail{
			1: pageOfStudents(100, 0, &cs),
			2: pageOfStudents(30, 100, &cs),
		},
		total: 130,
	}
	svc := newExportFixture(t, roster, &mockTranscriptSource{})

	job, err := svc.RequestRosterCSV(context.Background(), "admin-1", models.StudentFilter{})
	require.NoError(t, err)

	done := waitForExport(t, svc, job.ID)
	require.Equal(t, models.ExportCompleted, done.Status, done.Error)
	assert.NotEmpty(t, done.Token)
	require.NotNil(t, done.ExpiresAt)

	file, name, err := svc.Open(done.Token)
	require.NoError(t, err)
	defer file.Close()
	assert.Equal(t, done.FileName, name)

	buf := make([]byte, 1<<20)
	n, _ := file.Read(buf)
	body := string(buf[:n])
	// Header plus one line per student across both pages.
	assert.Equal(t, 131, strings.Count(body, "\n"))
	assert.Contains(t, body, "STU260001")
	assert.Contains(t, body, "STU260130")
}

func TestExportTranscriptPDFProducesSignedDownload(t *testing.T) {
	gradeA := models.GradeA
	score := 92.5
	transcripts := &mockTranscriptSource{
		summary: models.TranscriptSummary{
			StudentID:          "profile-1",
			StudentNo:          "STU260001",
			GPA:                3.5,
			GPALetter:          models.GradeB,
			GradedCount:        2,
			AverageScore:       88.0,
			ScoredCount:        1,
			CurrentTerm:        models.TermLabel{Semester: "spring", AcademicYear: "2026"},
			CurrentTermCourses: 1,
		},
		history: []models.EnrollmentDetail{
			{
				Enrollment: models.Enrollment{Semester: "spring", AcademicYear: "2026", Grade: &gradeA, Score: &score},
				CourseName: "Databases",
				CourseCode: "CS301",
			},
		},
	}
	svc := newExportFixture(t, &mockRosterSource{}, transcripts)

	job, err := svc.RequestTranscriptPDF(context.Background(), "admin-1", "profile-1")
	require.NoError(t, err)

	done := waitForExport(t, svc, job.ID)
	require.Equal(t, models.ExportCompleted, done.Status, done.Error)
	assert.True(t, strings.HasSuffix(done.FileName, ".pdf"))

	file, _, err := svc.Open(done.Token)
	require.NoError(t, err)
	file.Close()
}

func TestExportTranscriptPDFRequiresStudentID(t *testing.T) {
	svc := newExportFixture(t, &mockRosterSource{}, &mockTranscriptSource{})

	_, err := svc.RequestTranscriptPDF(context.Background(), "admin-1", "")
	require.Error(t, err)
}

func TestExportOpenRejectsForgedToken(t *testing.T) {
	svc := newExportFixture(t, &mockRosterSource{}, &mockTranscriptSource{})

	_, _, err := svc.Open("not-a-real-token")
	require.Error(t, err)
}

func pageOfStudents(count, offset int, department *string) []models.StudentProfileDetail {
	out := make([]models.StudentProfileDetail, 0, count)
	for i := 0; i < count; i++ {
		seq := offset + i + 1
		out = append(out, models.StudentProfileDetail{
			StudentProfile: models.StudentProfile{
				StudentNo:        StudentNumber(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), int64(seq)),
				RealName:         "Student",
				Gender:           "M",
				EnrollmentStatus: models.StatusEnrolled,
			},
			Username:       "student",
			DepartmentName: department,
		})
	}
	return out
}

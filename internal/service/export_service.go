package service

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/liyun-dev/campus-sis-api/internal/models"
	appErrors "github.com/liyun-dev/campus-sis-api/pkg/errors"
	"github.com/liyun-dev/campus-sis-api/pkg/export"
	"github.com/liyun-dev/campus-sis-api/pkg/jobs"
	"github.com/liyun-dev/campus-sis-api/pkg/storage"
)

type rosterSource interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentProfileDetail, int, error)
}

type transcriptSource interface {
	Summary(ctx context.Context, studentID string) (*models.TranscriptSummary, error)
	History(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
}

type exportPayload struct {
	JobID  string
	Filter models.StudentFilter
}

// ExportService produces roster CSV and transcript PDF files on a background
// queue. Job state lives in memory; a restart forgets unfinished jobs, which
// is acceptable because exports are cheap to re-request.
type ExportService struct {
	roster      rosterSource
	transcripts transcriptSource
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
	store       *storage.LocalStorage
	signer      *storage.SignedURLSigner
	queue       *jobs.Queue
	logger      *zap.Logger
	now         func() time.Time

	mu      sync.RWMutex
	records map[string]*models.ExportJob
}

// ExportConfig tunes the export worker pool.
type ExportConfig struct {
	Workers    int
	BufferSize int
}

// NewExportService constructs the export pipeline.
func NewExportService(roster rosterSource, transcripts transcriptSource, store *storage.LocalStorage, signer *storage.SignedURLSigner, logger *zap.Logger, cfg ExportConfig) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ExportService{
		roster:      roster,
		transcripts: transcripts,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		store:       store,
		signer:      signer,
		logger:      logger,
		now:         time.Now,
		records:     make(map[string]*models.ExportJob),
	}
	s.queue = jobs.NewQueue("exports", s.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		Logger:     logger,
	})
	return s
}

// Start launches the export workers.
func (s *ExportService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the export workers.
func (s *ExportService) Stop() {
	s.queue.Stop()
}

// RequestRosterCSV queues a roster export for the given filter.
func (s *ExportService) RequestRosterCSV(ctx context.Context, requestedBy string, filter models.StudentFilter) (*models.ExportJob, error) {
	// Export the full filtered set, not one page.
	filter.Page = 1
	filter.PageSize = 100
	return s.request(ctx, models.ExportJob{
		Kind:        models.ExportRosterCSV,
		RequestedBy: requestedBy,
	}, filter)
}

// RequestTranscriptPDF queues a transcript export for one student.
func (s *ExportService) RequestTranscriptPDF(ctx context.Context, requestedBy, studentID string) (*models.ExportJob, error) {
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student_id is required")
	}
	return s.request(ctx, models.ExportJob{
		Kind:        models.ExportTranscriptPDF,
		StudentID:   studentID,
		RequestedBy: requestedBy,
	}, models.StudentFilter{})
}

func (s *ExportService) request(ctx context.Context, record models.ExportJob, filter models.StudentFilter) (*models.ExportJob, error) {
	record.ID = uuid.NewString()
	record.Status = models.ExportPending
	record.CreatedAt = s.now().UTC()
	record.UpdatedAt = record.CreatedAt

	s.mu.Lock()
	s.records[record.ID] = &record
	s.mu.Unlock()

	if err := s.queue.Enqueue(jobs.Job{
		ID:      record.ID,
		Type:    string(record.Kind),
		Payload: exportPayload{JobID: record.ID, Filter: filter},
	}); err != nil {
		s.setFailed(record.ID, err)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue export")
	}

	s.logger.Info("export queued",
		zap.String("export_id", record.ID),
		zap.String("kind", string(record.Kind)))

	snapshot := record
	return &snapshot, nil
}

// Status returns the current state of an export job.
func (s *ExportService) Status(id string) (*models.ExportJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}
	snapshot := *record
	return &snapshot, nil
}

// Open resolves a signed download token to the export file.
func (s *ExportService) Open(token string) (*os.File, string, error) {
	exportID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid or expired download token")
	}

	s.mu.RLock()
	record, ok := s.records[exportID]
	s.mu.RUnlock()
	if !ok || record.Status != models.ExportCompleted {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export is not available")
	}

	file, err := s.store.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	return file, record.FileName, nil
}

func (s *ExportService) handle(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(exportPayload)
	if !ok {
		return fmt.Errorf("unexpected payload for job %s", job.ID)
	}

	s.setStatus(payload.JobID, models.ExportRunning)

	s.mu.RLock()
	record, exists := s.records[payload.JobID]
	s.mu.RUnlock()
	if !exists {
		return fmt.Errorf("export job %s vanished", payload.JobID)
	}

	var data []byte
	var filename string
	var err error
	switch record.Kind {
	case models.ExportRosterCSV:
		data, err = s.renderRoster(ctx, payload.Filter)
		filename = fmt.Sprintf("roster-%s.csv", s.now().UTC().Format("20060102-150405"))
	case models.ExportTranscriptPDF:
		data, err = s.renderTranscript(ctx, record.StudentID)
		filename = fmt.Sprintf("transcript-%s.pdf", record.StudentID)
	default:
		err = fmt.Errorf("unknown export kind %s", record.Kind)
	}
	if err != nil {
		s.setFailed(payload.JobID, err)
		return err
	}

	relPath, err := s.store.Save(filename, data)
	if err != nil {
		s.setFailed(payload.JobID, err)
		return err
	}

	token, expiresAt, err := s.signer.Generate(payload.JobID, relPath)
	if err != nil {
		s.setFailed(payload.JobID, err)
		return err
	}

	s.mu.Lock()
	record.Status = models.ExportCompleted
	record.FileName = filename
	record.Token = token
	record.ExpiresAt = &expiresAt
	record.UpdatedAt = s.now().UTC()
	s.mu.Unlock()

	s.logger.Info("export completed",
		zap.String("export_id", payload.JobID),
		zap.String("file", filename))
	return nil
}

func (s *ExportService) renderRoster(ctx context.Context, filter models.StudentFilter) ([]byte, error) {
	headers := []string{"student_no", "real_name", "username", "gender", "status", "department", "major", "phone", "email"}
	var rows []map[string]string
	for {
		students, total, err := s.roster.List(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("load roster page %d: %w", filter.Page, err)
		}
		for _, st := range students {
			row := map[string]string{
				"student_no": st.StudentNo,
				"real_name":  st.RealName,
				"username":   st.Username,
				"gender":     st.Gender,
				"status":     string(st.EnrollmentStatus),
				"phone":      st.Phone,
				"email":      st.Email,
			}
			if st.DepartmentName != nil {
				row["department"] = *st.DepartmentName
			}
			if st.MajorName != nil {
				row["major"] = *st.MajorName
			}
			rows = append(rows, row)
		}
		if filter.Page*filter.PageSize >= total || len(students) == 0 {
			break
		}
		filter.Page++
	}
	return s.csv.Render(export.Dataset{Headers: headers, Rows: rows})
}

func (s *ExportService) renderTranscript(ctx context.Context, studentID string) ([]byte, error) {
	summary, err := s.transcripts.Summary(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("load transcript summary: %w", err)
	}
	history, err := s.transcripts.History(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("load transcript history: %w", err)
	}

	headers := []string{"course", "code", "semester", "academic_year", "grade", "score"}
	rows := make([]map[string]string, 0, len(history))
	for _, e := range history {
		row := map[string]string{
			"course":        e.CourseName,
			"code":          e.CourseCode,
			"semester":      e.Semester,
			"academic_year": e.AcademicYear,
		}
		if e.Grade != nil {
			row["grade"] = string(*e.Grade)
		}
		if e.Score != nil {
			row["score"] = fmt.Sprintf("%.1f", *e.Score)
		}
		rows = append(rows, row)
	}

	dataset := export.Dataset{
		Headers: headers,
		Rows:    rows,
		Summary: []string{
			fmt.Sprintf("GPA: %.2f (%s) over %d graded courses", summary.GPA, summary.GPALetter, summary.GradedCount),
			fmt.Sprintf("Average score: %.1f over %d scored courses", summary.AverageScore, summary.ScoredCount),
			fmt.Sprintf("Current term (%s %s): %d courses", summary.CurrentTerm.Semester, summary.CurrentTerm.AcademicYear, summary.CurrentTermCourses),
		},
	}
	title := fmt.Sprintf("Transcript %s", summary.StudentNo)
	return s.pdf.Render(dataset, title)
}

func (s *ExportService) setStatus(id string, status models.ExportStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.records[id]; ok {
		record.Status = status
		record.UpdatedAt = s.now().UTC()
	}
}

func (s *ExportService) setFailed(id string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.records[id]; ok {
		record.Status = models.ExportFailed
		record.Error = err.Error()
		record.UpdatedAt = s.now().UTC()
	}
}

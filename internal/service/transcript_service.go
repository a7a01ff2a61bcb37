package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/liyun-dev/campus-sis-api/internal/models"
	appErrors "github.com/liyun-dev/campus-sis-api/pkg/errors"
)

type transcriptEnrollmentRepository interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
	CountByTerm(ctx context.Context, studentID, semester, academicYear string) (int, error)
}

type transcriptCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// gradePoints maps letter grades onto the 4.0 scale.
var gradePoints = map[models.LetterGrade]float64{
	models.GradeA: 4,
	models.GradeB: 3,
	models.GradeC: 2,
	models.GradeD: 1,
	models.GradeF: 0,
}

// GPALetter maps a GPA back onto a letter. The thresholds are looser than
// the forward mapping on purpose: a 3.7 earned by mixed grades still reads
// as an A. Changing them would change every published transcript.
func GPALetter(gpa float64) models.LetterGrade {
	switch {
	case gpa >= 3.7:
		return models.GradeA
	case gpa >= 2.7:
		return models.GradeB
	case gpa >= 1.7:
		return models.GradeC
	case gpa >= 1.0:
		return models.GradeD
	default:
		return models.GradeF
	}
}

// CurrentTerm derives the (semester, academic_year) label pair for a point in
// time. February through July is spring, August through December is fall, and
// January is the winter term of the previous calendar year.
func CurrentTerm(at time.Time) models.TermLabel {
	year := at.Year()
	month := int(at.Month())

	var semester string
	switch {
	case month >= 2 && month <= 7:
		semester = "spring"
	case month >= 8:
		semester = "fall"
	default:
		semester = "winter"
		year--
	}

	return models.TermLabel{
		Semester:     semester,
		AcademicYear: strconv.Itoa(year),
	}
}

// TranscriptService computes GPA and score aggregates for students.
type TranscriptService struct {
	enrollments transcriptEnrollmentRepository
	students    enrollmentStudentRepository
	cache       transcriptCache
	cacheTTL    time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

// NewTranscriptService constructs a TranscriptService instance.
func NewTranscriptService(enrollments transcriptEnrollmentRepository, students enrollmentStudentRepository, cache transcriptCache, cacheTTL time.Duration, logger *zap.Logger) *TranscriptService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &TranscriptService{
		enrollments: enrollments,
		students:    students,
		cache:       cache,
		cacheTTL:    cacheTTL,
		logger:      logger,
		now:         time.Now,
	}
}

// Summary aggregates a student's transcript. GPA runs over graded
// enrollments only and the score average runs over scored enrollments only;
// the two denominators are independent.
func (s *TranscriptService) Summary(ctx context.Context, studentID string) (*models.TranscriptSummary, error) {
	cacheKey := fmt.Sprintf("transcript:%s", studentID)
	if s.cache != nil {
		var cached models.TranscriptSummary
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	profile, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
	}

	enrollments, err := s.enrollments.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}

	var gradedCount int
	var pointsTotal float64
	var scoredCount int
	var scoreTotal float64
	for _, e := range enrollments {
		if e.Grade != nil {
			if points, ok := gradePoints[*e.Grade]; ok {
				gradedCount++
				pointsTotal += points
			}
		}
		if e.Score != nil {
			scoredCount++
			scoreTotal += *e.Score
		}
	}

	var gpa float64
	if gradedCount > 0 {
		gpa = pointsTotal / float64(gradedCount)
	}
	var averageScore float64
	if scoredCount > 0 {
		averageScore = scoreTotal / float64(scoredCount)
	}

	term := CurrentTerm(s.now())
	currentCourses, err := s.enrollments.CountByTerm(ctx, studentID, term.Semester, term.AcademicYear)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count current term enrollments")
	}

	summary := &models.TranscriptSummary{
		StudentID:          studentID,
		StudentNo:          profile.StudentNo,
		TotalEnrollments:   len(enrollments),
		GradedCount:        gradedCount,
		GPA:                gpa,
		GPALetter:          GPALetter(gpa),
		ScoredCount:        scoredCount,
		AverageScore:       averageScore,
		CurrentTerm:        term,
		CurrentTermCourses: currentCourses,
		GeneratedAt:        s.now().UTC(),
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, summary, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache transcript summary", zap.Error(err))
		}
	}

	return summary, nil
}

// History returns a student's full enrollment history, newest term first.
func (s *TranscriptService) History(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
	}
	enrollments, err := s.enrollments.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}
	return enrollments, nil
}

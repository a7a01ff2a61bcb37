package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/liyun-dev/campus-sis-api/internal/models"
	apperrors "github.com/liyun-dev/campus-sis-api/pkg/errors"
)

// EnrollmentRepository handles persistence of course enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

const enrollmentColumns = `id, student_id, course_id, major_id, semester, academic_year, grade, score, enrollment_date, created_at, updated_at`

func enrollmentDetailColumns() string {
	return prefixColumns("e", enrollmentColumns) +
		`, s.real_name AS student_name, s.student_no, c.name AS course_name, c.code AS course_code, m.name AS major_name`
}

const enrollmentDetailJoins = ` FROM enrollments e
    JOIN student_profiles s ON s.id = e.student_id
    JOIN courses c ON c.id = e.course_id
    JOIN majors m ON m.id = e.major_id`

// List returns enrollments enriched with student, course and major info.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	base := enrollmentDetailJoins + ` WHERE 1=1`
	var args []interface{}
	if filter.StudentID != "" {
		base += fmt.Sprintf(" AND e.student_id = $%d", len(args)+1)
		args = append(args, filter.StudentID)
	}
	if filter.CourseID != "" {
		base += fmt.Sprintf(" AND e.course_id = $%d", len(args)+1)
		args = append(args, filter.CourseID)
	}
	if filter.MajorID != "" {
		base += fmt.Sprintf(" AND e.major_id = $%d", len(args)+1)
		args = append(args, filter.MajorID)
	}
	if filter.Semester != "" {
		base += fmt.Sprintf(" AND e.semester = $%d", len(args)+1)
		args = append(args, filter.Semester)
	}
	if filter.AcademicYear != "" {
		base += fmt.Sprintf(" AND e.academic_year = $%d", len(args)+1)
		args = append(args, filter.AcademicYear)
	}
	if filter.GradedOnly {
		base += " AND e.grade IS NOT NULL"
	}

	allowedSorts := map[string]string{
		"semester":        "e.semester",
		"enrollment_date": "e.enrollment_date",
		"created_at":      "e.created_at",
		"score":           "e.score",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "e.enrollment_date"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s%s ORDER BY %s %s LIMIT %d OFFSET %d", enrollmentDetailColumns(), base, column, order, size, offset)
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := "SELECT COUNT(*)" + base
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	query := fmt.Sprintf(`SELECT %s FROM enrollments WHERE id = $1`, enrollmentColumns)
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindDetailByID returns an enrollment with joined context.
func (r *EnrollmentRepository) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	query := fmt.Sprintf("SELECT %s%s WHERE e.id = $1", enrollmentDetailColumns(), enrollmentDetailJoins)
	var enrollment models.EnrollmentDetail
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// Exists reports whether the (student, course, semester) tuple is taken.
func (r *EnrollmentRepository) Exists(ctx context.Context, studentID, courseID, semester, excludeID string) (bool, error) {
	query := "SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2 AND semester = $3"
	args := []interface{}{studentID, courseID, semester}
	if excludeID != "" {
		query += fmt.Sprintf(" AND id <> $%d", len(args)+1)
		args = append(args, excludeID)
	}
	query += " LIMIT 1"
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return true, nil
}

// Create persists a new enrollment. A unique-constraint violation on the
// (student, course, semester) tuple surfaces as ErrConflict so concurrent
// registrations cannot slip past the pre-check.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if enrollment.EnrollmentDate.IsZero() {
		enrollment.EnrollmentDate = now
	}
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = now
	}
	enrollment.UpdatedAt = now

	const query = `INSERT INTO enrollments (id, student_id, course_id, major_id, semester, academic_year, grade, score, enrollment_date, created_at, updated_at)
        VALUES (:id, :student_id, :course_id, :major_id, :semester, :academic_year, :grade, :score, :enrollment_date, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return apperrors.Clone(apperrors.ErrConflict, "student is already enrolled in this course for the semester")
		}
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// UpdateGrade records the grade and score for an enrollment.
func (r *EnrollmentRepository) UpdateGrade(ctx context.Context, id string, grade *models.LetterGrade, score *float64) error {
	const query = `UPDATE enrollments SET grade = $1, score = $2, updated_at = $3 WHERE id = $4`
	if _, err := r.db.ExecContext(ctx, query, grade, score, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update grade: %w", err)
	}
	return nil
}

// Delete removes an enrollment.
func (r *EnrollmentRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM enrollments WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	return nil
}

// ListByStudent returns every enrollment for one student, newest term first.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	query := fmt.Sprintf("SELECT %s%s WHERE e.student_id = $1 ORDER BY e.academic_year DESC, e.semester DESC, c.name ASC",
		enrollmentDetailColumns(), enrollmentDetailJoins)
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, studentID); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}
	return enrollments, nil
}

// CountByTerm counts one student's enrollments matching the exact term labels.
func (r *EnrollmentRepository) CountByTerm(ctx context.Context, studentID, semester, academicYear string) (int, error) {
	var total int
	const query = `SELECT COUNT(*) FROM enrollments WHERE student_id = $1 AND semester = $2 AND academic_year = $3`
	if err := r.db.GetContext(ctx, &total, query, studentID, semester, academicYear); err != nil {
		return 0, fmt.Errorf("count term enrollments: %w", err)
	}
	return total, nil
}

// Count returns the total number of enrollments.
func (r *EnrollmentRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM enrollments`); err != nil {
		return 0, fmt.Errorf("count enrollments: %w", err)
	}
	return total, nil
}

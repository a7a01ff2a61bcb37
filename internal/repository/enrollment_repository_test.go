package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/liyun-dev/campus-sis-api/internal/models"
	apperrors "github.com/liyun-dev/campus-sis-api/pkg/errors"
)

var (
	pqUniqueViolation = pq.Error{Code: "23505", Constraint: "enrollments_student_course_semester_key"}
	errBoom           = errors.New("boom")
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestEnrollmentRepositoryExists(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(`SELECT 1 FROM enrollments WHERE student_id = \$1 AND course_id = \$2 AND semester = \$3 LIMIT 1`).
		WithArgs("stu-1", "course-1", "spring").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.Exists(context.Background(), "stu-1", "course-1", "spring", "")
	require.NoError(t, err)
	require.True(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryExistsExcludesSelf(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(`SELECT 1 FROM enrollments WHERE student_id = \$1 AND course_id = \$2 AND semester = \$3 AND id <> \$4 LIMIT 1`).
		WithArgs("stu-1", "course-1", "spring", "enr-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	exists, err := repo.Exists(context.Background(), "stu-1", "course-1", "spring", "enr-1")
	require.NoError(t, err)
	require.False(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreateMapsUniqueViolation(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(`INSERT INTO enrollments`).
		WillReturnError(&pqUniqueViolation)

	err := repo.Create(context.Background(), &models.Enrollment{
		StudentID:    "stu-1",
		CourseID:     "course-1",
		MajorID:      "major-1",
		Semester:     "spring",
		AcademicYear: "2026",
	})
	require.Error(t, err)
	appErr := apperrors.FromError(err)
	require.Equal(t, apperrors.ErrConflict.Code, appErr.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryUpdateGrade(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	grade := models.GradeB
	score := 85.5
	mock.ExpectExec(`UPDATE enrollments SET grade = \$1, score = \$2, updated_at = \$3 WHERE id = \$4`).
		WithArgs(&grade, &score, sqlmock.AnyArg(), "enr-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateGrade(context.Background(), "enr-1", &grade, &score))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCountByTerm(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM enrollments WHERE student_id = \$1 AND semester = \$2 AND academic_year = \$3`).
		WithArgs("stu-1", "spring", "2026").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	total, err := repo.CountByTerm(context.Background(), "stu-1", "spring", "2026")
	require.NoError(t, err)
	require.Equal(t, 4, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryListByStudent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	grade := models.GradeA
	score := 95.0
	rows := sqlmock.NewRows([]string{
		"id", "student_id", "course_id", "major_id", "semester", "academic_year",
		"grade", "score", "enrollment_date", "created_at", "updated_at",
		"student_name", "student_no", "course_name", "course_code", "major_name",
	}).AddRow(
		"enr-1", "stu-1", "course-1", "major-1", "spring", "2026",
		&grade, &score, time.Now(), time.Now(), time.Now(),
		"Wang Lei", "STU260001", "Data Structures", "CS201", "Computer Science",
	)
	mock.ExpectQuery(`SELECT .+ FROM enrollments e\s+JOIN student_profiles s`).
		WithArgs("stu-1").
		WillReturnRows(rows)

	enrollments, err := repo.ListByStudent(context.Background(), "stu-1")
	require.NoError(t, err)
	require.Len(t, enrollments, 1)
	require.Equal(t, "Data Structures", enrollments[0].CourseName)
	require.True(t, enrollments[0].Graded())
	require.NoError(t, mock.ExpectationsWereMet())
}

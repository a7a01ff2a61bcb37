package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/liyun-dev/campus-sis-api/internal/models"
)

func TestStudentRepositoryCreateIfAbsentInserts(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec(`INSERT INTO student_profiles`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	profile := &models.StudentProfile{
		UserID:           "user-1",
		StudentNo:        "STU260001",
		RealName:         "Wang Lei",
		Gender:           models.GenderMale,
		EnrollmentStatus: models.StatusEnrolled,
	}
	created, inserted, err := repo.CreateIfAbsent(context.Background(), profile)
	require.NoError(t, err)
	require.True(t, inserted)
	require.NotEmpty(t, created.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreateIfAbsentReturnsExisting(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	// ON CONFLICT DO NOTHING reports zero rows; the existing row is re-read.
	mock.ExpectExec(`INSERT INTO student_profiles`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	rows := sqlmock.NewRows([]string{
		"id", "user_id", "student_no", "real_name", "gender", "birth_date", "phone", "email", "address",
		"enrollment_date", "enrollment_status", "political_status",
		"emergency_contact", "emergency_phone", "emergency_relation",
		"emergency_contact2", "emergency_phone2", "emergency_relation2",
		"department_id", "major_id", "created_at", "updated_at",
	}).AddRow(
		"profile-1", "user-1", "STU260001", "Wang Lei", "M", nil, "", "", "",
		nil, models.StatusEnrolled, "",
		"", "", "", "", "", "",
		nil, nil, time.Now(), time.Now(),
	)
	mock.ExpectQuery(`SELECT .+ FROM student_profiles WHERE user_id = \$1`).
		WithArgs("user-1").
		WillReturnRows(rows)

	profile := &models.StudentProfile{
		UserID:           "user-1",
		StudentNo:        "STU260002",
		RealName:         "Wang Lei",
		Gender:           models.GenderMale,
		EnrollmentStatus: models.StatusEnrolled,
	}
	existing, inserted, err := repo.CreateIfAbsent(context.Background(), profile)
	require.NoError(t, err)
	require.False(t, inserted)
	require.Equal(t, "profile-1", existing.ID)
	require.Equal(t, "STU260001", existing.StudentNo)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryUpdateContact(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec(`UPDATE student_profiles SET real_name = \$1, phone = \$2, email = \$3, updated_at = \$4 WHERE user_id = \$5`).
		WithArgs("Wang Lei", "13800000000", "wang@example.com", sqlmock.AnyArg(), "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateContact(context.Background(), "user-1", "Wang Lei", "13800000000", "wang@example.com"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryExistsByStudentNo(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(`SELECT 1 FROM student_profiles WHERE student_no = \$1 LIMIT 1`).
		WithArgs("STU260001").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.ExistsByStudentNo(context.Background(), "STU260001")
	require.NoError(t, err)
	require.True(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

package repository

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestDepartmentRepositoryDeleteCascades(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDepartmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM enrollments WHERE major_id IN \(SELECT id FROM majors WHERE department_id = \$1\)`).
		WithArgs("dept-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`UPDATE student_profiles SET major_id = NULL WHERE major_id IN \(SELECT id FROM majors WHERE department_id = \$1\)`).
		WithArgs("dept-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`UPDATE student_profiles SET department_id = NULL WHERE department_id = \$1`).
		WithArgs("dept-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM majors WHERE department_id = \$1`).
		WithArgs("dept-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM departments WHERE id = \$1`).
		WithArgs("dept-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "dept-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDepartmentRepositoryDeleteRollsBackOnFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDepartmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM enrollments WHERE major_id IN`).
		WithArgs("dept-1").
		WillReturnError(errBoom)
	mock.ExpectRollback()

	require.Error(t, repo.Delete(context.Background(), "dept-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDepartmentRepositoryExistsByCodeOrName(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDepartmentRepository(db)

	mock.ExpectQuery(`SELECT 1 FROM departments WHERE \(code = \$1 OR name = \$2\) LIMIT 1`).
		WithArgs("CS", "Computer Science").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.ExistsByCodeOrName(context.Background(), "CS", "Computer Science", "")
	require.NoError(t, err)
	require.True(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/liyun-dev/campus-sis-api/internal/models"
)

func userRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "user_no", "username", "email", "password_hash", "first_name", "last_name",
		"phone", "role", "active", "created_at", "updated_at",
	})
}

func TestUserRepositoryFindByUsername(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	rows := userRows().AddRow(
		"user-1", int64(42), "wanglei", "wang@example.com", "hash", "Lei", "Wang",
		"", models.RoleStudent, true, time.Now(), time.Now(),
	)
	mock.ExpectQuery(`SELECT .+ FROM users WHERE username = \$1 LIMIT 1`).
		WithArgs("wanglei").
		WillReturnRows(rows)

	user, err := repo.FindByUsername(context.Background(), "wanglei")
	require.NoError(t, err)
	require.Equal(t, "user-1", user.ID)
	require.Equal(t, int64(42), user.Seq)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryCreateReturnsSequence(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(`INSERT INTO users .+ RETURNING user_no`).
		WillReturnRows(sqlmock.NewRows([]string{"user_no"}).AddRow(int64(128)))

	user := &models.User{
		Username: "wanglei",
		Email:    "wang@example.com",
		Role:     models.RoleStudent,
		Active:   true,
	}
	require.NoError(t, repo.Create(context.Background(), user))
	require.NotEmpty(t, user.ID)
	require.Equal(t, int64(128), user.Seq)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryListStudentsWithoutProfile(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	rows := userRows().AddRow(
		"user-2", int64(7), "orphan", "orphan@example.com", "hash", "", "",
		"", models.RoleStudent, true, time.Now(), time.Now(),
	)
	mock.ExpectQuery(`SELECT .+ FROM users u\s+WHERE u\.role = \$1 AND NOT EXISTS \(SELECT 1 FROM student_profiles p WHERE p\.user_id = u\.id\)`).
		WithArgs(models.RoleStudent).
		WillReturnRows(rows)

	users, err := repo.ListStudentsWithoutProfile(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.Equal(t, "orphan", users[0].Username)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryDeleteIsSoft(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec(`UPDATE users SET active = FALSE, updated_at = \$2 WHERE id = \$1`).
		WithArgs("user-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "user-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

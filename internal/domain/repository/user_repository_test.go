package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"hackastrophe/internal/common"
	"hackastrophe/internal/domain/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserRepoFixture(t *testing.T) (UserRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPgUserRepository(db), mock
}

func TestDeductBalance_SufficientFunds(t *testing.T) {
	repo, mock := newUserRepoFixture(t)

	mock.ExpectExec("UPDATE users SET balance = balance -").
		WithArgs(300.0, "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.DeductBalance(context.Background(), nil, "user-1", 300)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeductBalance_InsufficientFunds(t *testing.T) {
	repo, mock := newUserRepoFixture(t)

	// The WHERE balance >= amount guard matches no row.
	mock.ExpectExec("UPDATE users SET balance = balance -").
		WithArgs(300.0, "user-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.DeductBalance(context.Background(), nil, "user-1", 300)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCreate_DuplicateMapsToConflict(t *testing.T) {
	repo, mock := newUserRepoFixture(t)

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.Create(context.Background(), &model.User{
		ID: "user-1", Username: "neo", Email: "neo@example.com",
	})
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestFindByID_NotFound(t *testing.T) {
	repo, mock := newUserRepoFixture(t)

	mock.ExpectQuery("FROM users WHERE id").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestFindByID_ScansRow(t *testing.T) {
	repo, mock := newUserRepoFixture(t)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "username", "email", "hashed_password", "role", "balance", "score",
		"bio", "skill_level", "profile_picture", "is_active", "created_at", "updated_at",
	}).AddRow("user-1", "neo", "neo@example.com", "hash", "user", 1000.0, 25,
		"", "junior", nil, true, now, now)

	mock.ExpectQuery("FROM users WHERE id").
		WithArgs("user-1").
		WillReturnRows(rows)

	user, err := repo.FindByID(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "neo", user.Username)
	assert.Equal(t, 1000.0, user.Balance)
	assert.Equal(t, 25, user.Score)
	assert.Nil(t, user.ProfilePicture)
}

package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Dan9191/book-search-service/internal/models"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUserID = "5b3f8a0e-6a3c-4c2e-9f41-0d1c2b3a4e5f"

var (
	userColumns      = []string{"id", "username", "email", "password_hash", "created_at"}
	savedBookColumns = []string{"book_id", "title", "authors", "description", "image", "link"}
)

func setupPostgresMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepository(db), mock
}

func expectUserByID(mock sqlmock.Sqlmock, createdAt time.Time, books ...[]driver.Value) {
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, username, email, password_hash, created_at FROM users WHERE id = $1`)).
		WithArgs(testUserID).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(testUserID, "alice", "alice@example.com", "hash", createdAt))
	rows := sqlmock.NewRows(savedBookColumns)
	for _, b := range books {
		rows.AddRow(b...)
	}
	mock.ExpectQuery(regexp.QuoteMeta(`FROM saved_books WHERE user_id = $1 ORDER BY position`)).
		WithArgs(testUserID).
		WillReturnRows(rows)
}

func TestPostgresCreateUser_Success(t *testing.T) {
	repo, mock := setupPostgresMock(t)
	createdAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users (username, email, password_hash)`)).
		WithArgs("alice", "alice@example.com", "hash").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(testUserID, createdAt))

	user := &models.User{Username: "alice", Email: "alice@example.com", PasswordHash: "hash"}
	require.NoError(t, repo.CreateUser(context.Background(), user))

	assert.Equal(t, testUserID, user.ID)
	assert.Equal(t, createdAt, user.CreatedAt)
	assert.Empty(t, user.SavedBooks)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreateUser_UniqueViolations(t *testing.T) {
	tests := []struct {
		name       string
		constraint string
		want       error
	}{
		{name: "username", constraint: usernameConstraint, want: models.ErrDuplicateUsername},
		{name: "email", constraint: emailConstraint, want: models.ErrDuplicateEmail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := setupPostgresMock(t)
			mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
				WillReturnError(&pq.Error{Code: pqUniqueViolation, Constraint: tt.constraint})

			err := repo.CreateUser(context.Background(), &models.User{Username: "alice", Email: "alice@example.com"})
			assert.ErrorIs(t, err, tt.want)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresCreateUser_Error(t *testing.T) {
	repo, mock := setupPostgresMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
		WillReturnError(errors.New("connection reset"))

	err := repo.CreateUser(context.Background(), &models.User{Username: "alice", Email: "alice@example.com"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, models.ErrDuplicateEmail)
	assert.Contains(t, err.Error(), "failed to create user")
}

func TestPostgresFindUserByID(t *testing.T) {
	repo, mock := setupPostgresMock(t)
	createdAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	expectUserByID(mock, createdAt,
		[]driver.Value{"gb-1", "Dune", "{\"Frank Herbert\"}", "desert planet", "http://img", "http://link"})

	user, err := repo.FindUserByID(context.Background(), testUserID)
	require.NoError(t, err)

	assert.Equal(t, "alice", user.Username)
	require.Len(t, user.SavedBooks, 1)
	assert.Equal(t, models.Book{
		BookID:      "gb-1",
		Title:       "Dune",
		Authors:     []string{"Frank Herbert"},
		Description: "desert planet",
		Image:       "http://img",
		Link:        "http://link",
	}, user.SavedBooks[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFindUserByID_NotFound(t *testing.T) {
	repo, mock := setupPostgresMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE id = $1`)).
		WithArgs(testUserID).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindUserByID(context.Background(), testUserID)
	assert.ErrorIs(t, err, models.ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFindUserByID_MalformedID(t *testing.T) {
	repo, mock := setupPostgresMock(t)

	_, err := repo.FindUserByID(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, models.ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFindUserByEmail(t *testing.T) {
	repo, mock := setupPostgresMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE email = $1`)).
		WithArgs("alice@example.com").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(testUserID, "alice", "alice@example.com", "hash", time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM saved_books`)).
		WithArgs(testUserID).
		WillReturnRows(sqlmock.NewRows(savedBookColumns))

	user, err := repo.FindUserByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "hash", user.PasswordHash)
	assert.NotNil(t, user.SavedBooks)
	assert.Empty(t, user.SavedBooks)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListUsers(t *testing.T) {
	repo, mock := setupPostgresMock(t)
	otherID := "0a1b2c3d-0000-4000-8000-000000000002"

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users ORDER BY created_at, id`)).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(testUserID, "alice", "alice@example.com", "h1", time.Now()).
			AddRow(otherID, "bob", "bob@example.com", "h2", time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM saved_books ORDER BY user_id, position`)).
		WillReturnRows(sqlmock.NewRows(append([]string{"user_id"}, savedBookColumns...)).
			AddRow(otherID, "gb-1", "Dune", "{}", "", "", ""))

	users, err := repo.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Empty(t, users[0].SavedBooks)
	require.Len(t, users[1].SavedBooks, 1)
	assert.Equal(t, "gb-1", users[1].SavedBooks[0].BookID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAddSavedBook(t *testing.T) {
	repo, mock := setupPostgresMock(t)
	book := models.Book{BookID: "gb-1", Title: "Dune"}

	mock.ExpectExec(regexp.QuoteMeta(`ON CONFLICT (user_id, book_id) DO NOTHING`)).
		WithArgs(testUserID, "gb-1", "Dune", sqlmock.AnyArg(), "", "", "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectUserByID(mock, time.Now(), []driver.Value{"gb-1", "Dune", "{}", "", "", ""})

	user, err := repo.AddSavedBook(context.Background(), testUserID, book)
	require.NoError(t, err)
	require.Len(t, user.SavedBooks, 1)
	assert.Equal(t, "gb-1", user.SavedBooks[0].BookID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAddSavedBook_AlreadySaved(t *testing.T) {
	repo, mock := setupPostgresMock(t)

	// conflict: nothing inserted, still a success
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO saved_books`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	expectUserByID(mock, time.Now(), []driver.Value{"gb-1", "Dune", "{}", "", "", ""})

	user, err := repo.AddSavedBook(context.Background(), testUserID, models.Book{BookID: "gb-1", Title: "Dune"})
	require.NoError(t, err)
	assert.Len(t, user.SavedBooks, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAddSavedBook_UnknownUser(t *testing.T) {
	repo, mock := setupPostgresMock(t)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO saved_books`)).
		WillReturnError(&pq.Error{Code: pqForeignKeyViolation})

	_, err := repo.AddSavedBook(context.Background(), testUserID, models.Book{BookID: "gb-1", Title: "Dune"})
	assert.ErrorIs(t, err, models.ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRemoveSavedBook(t *testing.T) {
	repo, mock := setupPostgresMock(t)
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM saved_books WHERE user_id = $1 AND book_id = $2`)).
		WithArgs(testUserID, "gb-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectUserByID(mock, time.Now())

	user, err := repo.RemoveSavedBook(context.Background(), testUserID, "gb-1")
	require.NoError(t, err)
	assert.Empty(t, user.SavedBooks)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRemoveSavedBook_UnknownUser(t *testing.T) {
	repo, mock := setupPostgresMock(t)
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM saved_books`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE id = $1`)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.RemoveSavedBook(context.Background(), testUserID, "gb-1")
	assert.ErrorIs(t, err, models.ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdatePasswordHash(t *testing.T) {
	repo, mock := setupPostgresMock(t)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET password_hash = $2 WHERE id = $1`)).
		WithArgs(testUserID, "new-hash").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET password_hash`)).
		WithArgs(testUserID, "new-hash").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, repo.UpdatePasswordHash(context.Background(), testUserID, "new-hash"))
	assert.ErrorIs(t, repo.UpdatePasswordHash(context.Background(), testUserID, "new-hash"), models.ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMigrate(t *testing.T) {
	repo, _ := setupPostgresMock(t)

	orig := gooseUp
	t.Cleanup(func() { gooseUp = orig })

	var called bool
	gooseUp = func(ctx context.Context, db *sql.DB, dir string) error {
		called = true
		assert.Equal(t, ".", dir)
		return nil
	}
	require.NoError(t, repo.Migrate(context.Background()))
	assert.True(t, called)

	gooseUp = func(ctx context.Context, db *sql.DB, dir string) error {
		return errors.New("boom")
	}
	assert.ErrorContains(t, repo.Migrate(context.Background()), "failed to run migrations")
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dan9191/book-search-service/internal/models"
	"github.com/Dan9191/book-search-service/internal/repository/migrations"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

// Postgres error codes and constraint names this repository maps to domain errors
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"

	usernameConstraint = "users_username_key"
	emailConstraint    = "users_email_key"
)

// PostgresRepository provides user storage on PostgreSQL
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository initializes a new repository
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// gooseUp is a seam for testing migrations without a database
var gooseUp = func(ctx context.Context, db *sql.DB, dir string) error {
	return goose.UpContext(ctx, db, dir)
}

// Migrate applies the embedded schema migrations
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := gooseUp(ctx, r.db, "."); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// CreateUser creates a new user in the database
func (r *PostgresRepository) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (username, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, user.Username, user.Email, user.PasswordHash).
		Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			switch pqErr.Constraint {
			case usernameConstraint:
				return models.ErrDuplicateUsername
			case emailConstraint:
				return models.ErrDuplicateEmail
			}
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	if user.SavedBooks == nil {
		user.SavedBooks = []models.Book{}
	}
	return nil
}

// FindUserByID retrieves a user and their saved books by id
func (r *PostgresRepository) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, models.ErrUserNotFound
	}
	return r.findUser(ctx, "id", id)
}

// FindUserByEmail retrieves a user by email
func (r *PostgresRepository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findUser(ctx, "email", email)
}

// FindUserByUsername retrieves a user by username
func (r *PostgresRepository) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findUser(ctx, "username", username)
}

func (r *PostgresRepository) findUser(ctx context.Context, column, value string) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, username, email, password_hash, created_at
		FROM users
		WHERE ` + column + ` = $1`
	err := r.db.QueryRowContext(ctx, query, value).
		Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	books, err := r.savedBooks(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	user.SavedBooks = books
	return user, nil
}

func (r *PostgresRepository) savedBooks(ctx context.Context, userID string) ([]models.Book, error) {
	query := `
		SELECT book_id, title, authors, description, image, link
		FROM saved_books
		WHERE user_id = $1
		ORDER BY position`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load saved books: %w", err)
	}
	defer rows.Close()

	books := []models.Book{}
	for rows.Next() {
		var b models.Book
		if err := rows.Scan(&b.BookID, &b.Title, pq.Array(&b.Authors), &b.Description, &b.Image, &b.Link); err != nil {
			return nil, fmt.Errorf("failed to scan saved book: %w", err)
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load saved books: %w", err)
	}
	return books, nil
}

// ListUsers retrieves every user with their saved books
func (r *PostgresRepository) ListUsers(ctx context.Context) ([]*models.User, error) {
	query := `
		SELECT id, username, email, password_hash, created_at
		FROM users
		ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []*models.User{}
	byID := make(map[string]*models.User)
	for rows.Next() {
		u := &models.User{SavedBooks: []models.Book{}}
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
		byID[u.ID] = u
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	bookRows, err := r.db.QueryContext(ctx, `
		SELECT user_id, book_id, title, authors, description, image, link
		FROM saved_books
		ORDER BY user_id, position`)
	if err != nil {
		return nil, fmt.Errorf("failed to load saved books: %w", err)
	}
	defer bookRows.Close()

	for bookRows.Next() {
		var userID string
		var b models.Book
		if err := bookRows.Scan(&userID, &b.BookID, &b.Title, pq.Array(&b.Authors), &b.Description, &b.Image, &b.Link); err != nil {
			return nil, fmt.Errorf("failed to scan saved book: %w", err)
		}
		if u, ok := byID[userID]; ok {
			u.SavedBooks = append(u.SavedBooks, b)
		}
	}
	if err := bookRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load saved books: %w", err)
	}
	return users, nil
}

// UpdatePasswordHash replaces the stored password hash
func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	if _, err := uuid.Parse(id); err != nil {
		return models.ErrUserNotFound
	}
	res, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, hash)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if n == 0 {
		return models.ErrUserNotFound
	}
	return nil
}

// AddSavedBook inserts a book unless the user already saved one with the same bookId
func (r *PostgresRepository) AddSavedBook(ctx context.Context, userID string, book models.Book) (*models.User, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, models.ErrUserNotFound
	}
	authors := book.Authors
	if authors == nil {
		authors = []string{}
	}
	query := `
		INSERT INTO saved_books (user_id, book_id, title, authors, description, image, link)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, book_id) DO NOTHING`
	_, err := r.db.ExecContext(ctx, query,
		userID, book.BookID, book.Title, pq.Array(authors), book.Description, book.Image, book.Link)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqForeignKeyViolation {
			return nil, models.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to save book: %w", err)
	}
	return r.FindUserByID(ctx, userID)
}

// RemoveSavedBook deletes every saved entry with the given bookId
func (r *PostgresRepository) RemoveSavedBook(ctx context.Context, userID, bookID string) (*models.User, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, models.ErrUserNotFound
	}
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM saved_books WHERE user_id = $1 AND book_id = $2`, userID, bookID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete book: %w", err)
	}
	return r.FindUserByID(ctx, userID)
}

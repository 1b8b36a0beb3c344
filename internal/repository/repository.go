package repository

import (
	"context"

	"github.com/Dan9191/book-search-service/internal/models"
)

// UserRepository persists users and their saved books.
//
// Implementations enforce username and email uniqueness themselves,
// so a racing pair of registrations cannot both succeed.
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	AddSavedBook(ctx context.Context, userID string, book models.Book) (*models.User, error)
	RemoveSavedBook(ctx context.Context, userID, bookID string) (*models.User, error)
}

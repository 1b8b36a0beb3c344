package repository

import (
	"context"
	"sync"
	"time"

	"github.com/Dan9191/book-search-service/internal/models"
	"github.com/google/uuid"
)

// MemoryRepository keeps users in process memory
type MemoryRepository struct {
	mu    sync.RWMutex
	users map[string]*models.User
	order []string
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{users: make(map[string]*models.User)}
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.SavedBooks = make([]models.Book, len(u.SavedBooks))
	for i, b := range u.SavedBooks {
		b.Authors = append([]string{}, b.Authors...)
		c.SavedBooks[i] = b
	}
	return &c
}

func (r *MemoryRepository) CreateUser(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Username == user.Username {
			return models.ErrDuplicateUsername
		}
		if u.Email == user.Email {
			return models.ErrDuplicateEmail
		}
	}

	user.ID = uuid.NewString()
	user.CreatedAt = time.Now().UTC()
	user.SavedBooks = []models.Book{}
	r.users[user.ID] = cloneUser(user)
	r.order = append(r.order, user.ID)
	return nil
}

func (r *MemoryRepository) FindUserByID(_ context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *MemoryRepository) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Email == email })
}

func (r *MemoryRepository) FindUserByUsername(_ context.Context, username string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Username == username })
}

func (r *MemoryRepository) find(match func(*models.User) bool) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if match(u) {
			return cloneUser(u), nil
		}
	}
	return nil, models.ErrUserNotFound
}

func (r *MemoryRepository) ListUsers(_ context.Context) ([]*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]*models.User, 0, len(r.order))
	for _, id := range r.order {
		users = append(users, cloneUser(r.users[id]))
	}
	return users, nil
}

func (r *MemoryRepository) UpdatePasswordHash(_ context.Context, id, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return models.ErrUserNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (r *MemoryRepository) AddSavedBook(_ context.Context, userID string, book models.Book) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	if !u.HasSavedBook(book.BookID) {
		if book.Authors == nil {
			book.Authors = []string{}
		}
		book.Authors = append([]string{}, book.Authors...)
		u.SavedBooks = append(u.SavedBooks, book)
	}
	return cloneUser(u), nil
}

func (r *MemoryRepository) RemoveSavedBook(_ context.Context, userID, bookID string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	kept := u.SavedBooks[:0]
	for _, b := range u.SavedBooks {
		if b.BookID != bookID {
			kept = append(kept, b)
		}
	}
	u.SavedBooks = kept
	return cloneUser(u), nil
}

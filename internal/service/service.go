package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Dan9191/book-search-service/internal/auth"
	"github.com/Dan9191/book-search-service/internal/models"
	"github.com/Dan9191/book-search-service/internal/repository"
	"github.com/sirupsen/logrus"
)

// BookSearcher queries the external book catalog
type BookSearcher interface {
	Search(ctx context.Context, query string) ([]models.SearchResult, error)
}

// Notifier delivers account notifications
type Notifier interface {
	SendWelcome(to, username string) error
}

// AuthPayload is returned by register and login
type AuthPayload struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Service handles business logic
type Service struct {
	repo   repository.UserRepository
	creds  *auth.Credentials
	books  BookSearcher
	mailer Notifier
	log    *logrus.Logger
}

// NewService initializes a new service. mailer may be nil.
func NewService(repo repository.UserRepository, creds *auth.Credentials, books BookSearcher, mailer Notifier, log *logrus.Logger) *Service {
	return &Service{repo: repo, creds: creds, books: books, mailer: mailer, log: log}
}

// Register creates a new user with hashed password and signs them in
func (s *Service) Register(ctx context.Context, username, email, password string) (*AuthPayload, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if err := models.ValidateRegistration(username, email, password); err != nil {
		return nil, err
	}

	// The storage layer enforces uniqueness; these lookups only give an early answer.
	if err := s.ensureAvailable(ctx, s.repo.FindUserByEmail, email, models.ErrDuplicateEmail); err != nil {
		return nil, err
	}
	if err := s.ensureAvailable(ctx, s.repo.FindUserByUsername, username, models.ErrDuplicateUsername); err != nil {
		return nil, err
	}

	hash, err := s.creds.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if !errors.Is(err, models.ErrDuplicateEmail) && !errors.Is(err, models.ErrDuplicateUsername) {
			s.log.WithError(err).Error("Failed to create user")
		}
		return nil, err
	}

	token, err := s.creds.IssueToken(user.Username, user.Email, user.ID)
	if err != nil {
		return nil, err
	}

	if s.mailer != nil {
		if err := s.mailer.SendWelcome(user.Email, user.Username); err != nil {
			s.log.WithError(err).Warnf("Welcome email to %s not delivered", user.Email)
		}
	}

	s.log.Infof("User registered: %s", user.Email)
	return &AuthPayload{Token: token, User: user}, nil
}

func (s *Service) ensureAvailable(ctx context.Context, find func(context.Context, string) (*models.User, error), value string, taken error) error {
	_, err := find(ctx, value)
	switch {
	case err == nil:
		return taken
	case errors.Is(err, models.ErrUserNotFound):
		return nil
	default:
		return err
	}
}

// Authenticate checks an email and password pair.
// Unknown email and wrong password both yield models.ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.repo.FindUserByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, models.ErrUserNotFound) {
		return nil, models.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !s.creds.VerifyPassword(password, user.PasswordHash) {
		return nil, models.ErrInvalidCredentials
	}
	return user, nil
}

// Login authenticates a user and returns a signed token
func (s *Service) Login(ctx context.Context, email, password string) (*AuthPayload, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}

	token, err := s.creds.IssueToken(user.Username, user.Email, user.ID)
	if err != nil {
		return nil, err
	}

	s.log.Infof("User logged in: %s", user.Email)
	return &AuthPayload{Token: token, User: user}, nil
}

// CurrentUser returns the viewer attached to the request
func (s *Service) CurrentUser(viewer *models.User) (*models.User, error) {
	if viewer == nil {
		return nil, models.ErrUnauthenticated
	}
	return viewer, nil
}

// UserByID looks up a user by id
func (s *Service) UserByID(ctx context.Context, id string) (*models.User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: id is required", models.ErrValidation)
	}
	return s.repo.FindUserByID(ctx, id)
}

// Users lists every user
func (s *Service) Users(ctx context.Context) ([]*models.User, error) {
	return s.repo.ListUsers(ctx)
}

// SearchBooks forwards a free-text query to the catalog provider
func (s *Service) SearchBooks(ctx context.Context, query string) ([]models.SearchResult, error) {
	return s.books.Search(ctx, query)
}

// ownerID resolves which user a mutation targets; only the viewer's own list may change
func ownerID(viewer *models.User, userID string) (string, error) {
	if viewer == nil {
		return "", models.ErrUnauthenticated
	}
	if userID == "" {
		return viewer.ID, nil
	}
	if userID != viewer.ID {
		return "", models.ErrForbidden
	}
	return userID, nil
}

// SaveBook adds book to the user's saved books. Saving it again is a no-op.
func (s *Service) SaveBook(ctx context.Context, viewer *models.User, userID string, book models.Book) (*models.User, error) {
	id, err := ownerID(viewer, userID)
	if err != nil {
		return nil, err
	}
	if err := book.Validate(); err != nil {
		return nil, err
	}

	user, err := s.repo.AddSavedBook(ctx, id, book)
	if err != nil {
		return nil, err
	}

	s.log.Infof("Book %s saved for user %s", book.BookID, id)
	return user, nil
}

// DeleteBook removes the book from the user's saved books. Removing an unsaved book is a no-op.
func (s *Service) DeleteBook(ctx context.Context, viewer *models.User, userID, bookID string) (*models.User, error) {
	id, err := ownerID(viewer, userID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(bookID) == "" {
		return nil, fmt.Errorf("%w: bookId is required", models.ErrValidation)
	}

	user, err := s.repo.RemoveSavedBook(ctx, id, bookID)
	if err != nil {
		return nil, err
	}

	s.log.Infof("Book %s removed for user %s", bookID, id)
	return user, nil
}

// ChangePassword replaces the viewer's password, hashing only when it actually changes
func (s *Service) ChangePassword(ctx context.Context, viewer *models.User, current, next string) (*models.User, error) {
	if viewer == nil {
		return nil, models.ErrUnauthenticated
	}
	if err := models.ValidatePassword(next); err != nil {
		return nil, err
	}

	user, err := s.repo.FindUserByID(ctx, viewer.ID)
	if err != nil {
		return nil, err
	}
	if !s.creds.VerifyPassword(current, user.PasswordHash) {
		return nil, models.ErrInvalidCredentials
	}
	if s.creds.VerifyPassword(next, user.PasswordHash) {
		return user, nil
	}

	hash, err := s.creds.HashPassword(next)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return nil, err
	}
	user.PasswordHash = hash

	s.log.Infof("Password changed for user %s", user.Email)
	return user, nil
}

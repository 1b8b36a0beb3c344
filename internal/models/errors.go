package models

import "errors"

var (
	// registration
	ErrDuplicateUsername = errors.New("username already exists")
	ErrDuplicateEmail    = errors.New("email already exists")
	ErrValidation        = errors.New("validation error")

	// authentication
	ErrInvalidCredentials = errors.New("incorrect credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrUnauthenticated    = errors.New("not authenticated")
	ErrForbidden          = errors.New("not allowed to modify another user's books")

	ErrUserNotFound = errors.New("user not found")

	// book search provider
	ErrProvider = errors.New("failed to fetch books")
)

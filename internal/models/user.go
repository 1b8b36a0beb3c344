package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var emailPattern = regexp.MustCompile(`.+@.+\..+`)

// User represents a registered user and the books they saved
type User struct {
	ID           string    `json:"_id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Not serialized
	SavedBooks   []Book    `json:"savedBooks"`
	CreatedAt    time.Time `json:"createdAt"`
}

// HasSavedBook reports whether bookID is already in the user's saved books
func (u *User) HasSavedBook(bookID string) bool {
	for _, b := range u.SavedBooks {
		if b.BookID == bookID {
			return true
		}
	}
	return false
}

// ValidateRegistration checks the fields required to create an account
func ValidateRegistration(username, email, password string) error {
	switch {
	case strings.TrimSpace(username) == "":
		return fmt.Errorf("%w: username is required", ErrValidation)
	case strings.TrimSpace(email) == "":
		return fmt.Errorf("%w: email is required", ErrValidation)
	case !emailPattern.MatchString(email):
		return fmt.Errorf("%w: must use a valid email address", ErrValidation)
	}
	return ValidatePassword(password)
}

// MaxPasswordBytes is the longest password bcrypt accepts
const MaxPasswordBytes = 72

// ValidatePassword checks a password before it is hashed
func ValidatePassword(password string) error {
	switch {
	case password == "":
		return fmt.Errorf("%w: password is required", ErrValidation)
	case len(password) > MaxPasswordBytes:
		return fmt.Errorf("%w: password must be at most %d bytes", ErrValidation, MaxPasswordBytes)
	}
	return nil
}

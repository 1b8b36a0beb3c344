// Package auth hashes passwords and issues/verifies bearer tokens.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/Dan9191/book-search-service/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Claims is the token payload embedded in every bearer token
type Claims struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	ID       string `json:"_id"`
	jwt.RegisteredClaims
}

// Credentials hashes passwords and signs tokens with a server-held secret
type Credentials struct {
	secret []byte
	ttl    time.Duration
	cost   int
	now    func() time.Time
}

// Option customizes Credentials
type Option func(*Credentials)

// WithBcryptCost overrides the password hashing cost
func WithBcryptCost(cost int) Option {
	return func(c *Credentials) {
		c.cost = cost
	}
}

// WithClock overrides the time source used for token expiry
func WithClock(now func() time.Time) Option {
	return func(c *Credentials) {
		c.now = now
	}
}

// NewCredentials initializes the credential service
func NewCredentials(secret string, ttl time.Duration, opts ...Option) *Credentials {
	c := &Credentials{
		secret: []byte(secret),
		ttl:    ttl,
		cost:   bcrypt.DefaultCost,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HashPassword returns a salted bcrypt hash of the password
func (c *Credentials) HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), c.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", fmt.Errorf("%w: password must be at most %d bytes", models.ErrValidation, models.MaxPasswordBytes)
	}
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// VerifyPassword reports whether password matches hash
func (c *Credentials) VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// IssueToken signs a token carrying the user's identity and an expiry
func (c *Credentials) IssueToken(username, email, id string) (string, error) {
	now := c.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Username: username,
		Email:    email,
		ID:       id,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	})
	tokenString, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

// VerifyToken checks the signature and expiry and returns the payload.
// Every failure is reported as models.ErrInvalidToken.
func (c *Credentials) VerifyToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrInvalidToken, err)
	}
	if !token.Valid || claims.ID == "" {
		return nil, models.ErrInvalidToken
	}
	return claims, nil
}

// IsExpired reports whether err came from an expired token
func IsExpired(err error) bool {
	return errors.Is(err, jwt.ErrTokenExpired)
}

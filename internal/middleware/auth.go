package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/Dan9191/book-search-service/internal/auth"
	"github.com/Dan9191/book-search-service/internal/models"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// TokenVerifier checks bearer tokens
type TokenVerifier interface {
	VerifyToken(token string) (*auth.Claims, error)
}

// UserFinder resolves the user encoded in a token
type UserFinder interface {
	FindUserByID(ctx context.Context, id string) (*models.User, error)
}

type userContextKey struct{}

// WithUser stores the authenticated user in ctx
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext returns the authenticated user, or nil for anonymous requests
func UserFromContext(ctx context.Context) *models.User {
	user, _ := ctx.Value(userContextKey{}).(*models.User)
	return user
}

// bearerToken extracts the token from an "Authorization: Bearer <token>" header
func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Authenticate attaches the bearer token's user to the request context.
// It never rejects a request: a missing, invalid or expired token, or an
// unknown user, leaves the request anonymous and operations that need a
// user fail on their own.
func Authenticate(tokens TokenVerifier, users UserFinder, log *logrus.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			entry := log.WithField("request_id", RequestIDFromContext(r.Context()))
			token, ok := bearerToken(header)
			if !ok {
				entry.Debug("Ignoring malformed Authorization header")
				next.ServeHTTP(w, r)
				return
			}

			claims, err := tokens.VerifyToken(token)
			if err != nil {
				if auth.IsExpired(err) {
					entry.Debug("Bearer token expired")
				} else {
					entry.WithError(err).Debug("Bearer token rejected")
				}
				next.ServeHTTP(w, r)
				return
			}

			user, err := users.FindUserByID(r.Context(), claims.ID)
			if err != nil {
				entry.WithError(err).Debugf("Token user %s could not be loaded", claims.ID)
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

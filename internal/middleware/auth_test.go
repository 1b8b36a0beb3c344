package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Dan9191/book-search-service/internal/auth"
	"github.com/Dan9191/book-search-service/internal/models"
	"github.com/Dan9191/book-search-service/internal/repository"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func seedUser(t *testing.T, repo *repository.MemoryRepository) *models.User {
	t.Helper()
	user := &models.User{Username: "alice", Email: "alice@example.com", PasswordHash: "hash"}
	require.NoError(t, repo.CreateUser(context.Background(), user))
	return user
}

// serve runs the middleware and reports the user seen by the next handler
func serve(t *testing.T, mw func(http.Handler) http.Handler, header string) (*models.User, int) {
	t.Helper()
	var seen *models.User
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return seen, rec.Code
}

func TestAuthenticate(t *testing.T) {
	now := time.Now()
	repo := repository.NewMemoryRepository()
	alice := seedUser(t, repo)

	creds := auth.NewCredentials("secret", 2*time.Hour)
	valid, err := creds.IssueToken(alice.Username, alice.Email, alice.ID)
	require.NoError(t, err)

	past := auth.NewCredentials("secret", time.Hour, auth.WithClock(func() time.Time { return now.Add(-3 * time.Hour) }))
	expired, err := past.IssueToken(alice.Username, alice.Email, alice.ID)
	require.NoError(t, err)

	forged, err := auth.NewCredentials("other-secret", time.Hour).IssueToken(alice.Username, alice.Email, alice.ID)
	require.NoError(t, err)

	ghost, err := creds.IssueToken("ghost", "ghost@example.com", "missing-id")
	require.NoError(t, err)

	mw := Authenticate(creds, repo, quietLogger())

	tests := []struct {
		name     string
		header   string
		wantUser bool
	}{
		{name: "valid token", header: "Bearer " + valid, wantUser: true},
		{name: "lowercase scheme", header: "bearer " + valid, wantUser: true},
		{name: "no header"},
		{name: "missing scheme", header: valid},
		{name: "wrong scheme", header: "Basic " + valid},
		{name: "empty token", header: "Bearer "},
		{name: "malformed token", header: "Bearer not.a.jwt"},
		{name: "expired token", header: "Bearer " + expired},
		{name: "wrong secret", header: "Bearer " + forged},
		{name: "unknown user", header: "Bearer " + ghost},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, code := serve(t, mw, tt.header)
			assert.Equal(t, http.StatusNoContent, code, "request must never be rejected")
			if tt.wantUser {
				require.NotNil(t, user)
				assert.Equal(t, alice.ID, user.ID)
				return
			}
			assert.Nil(t, user)
		})
	}
}

func TestUserFromContext_Empty(t *testing.T) {
	assert.Nil(t, UserFromContext(context.Background()))

	u := &models.User{ID: "u-1"}
	assert.Same(t, u, UserFromContext(WithUser(context.Background(), u)))
}

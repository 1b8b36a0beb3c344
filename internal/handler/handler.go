package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/Dan9191/book-search-service/internal/middleware"
	"github.com/Dan9191/book-search-service/internal/models"
	"github.com/Dan9191/book-search-service/internal/service"
	"github.com/sirupsen/logrus"
)

// maxBodySize bounds request bodies
const maxBodySize = 1 << 20

type Handler struct {
	svc *service.Service
	log *logrus.Logger
}

func NewHandler(svc *service.Service, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var errorStatus = []struct {
	err    error
	code   string
	status int
}{
	{models.ErrValidation, "VALIDATION_ERROR", http.StatusBadRequest},
	{models.ErrDuplicateUsername, "DUPLICATE_USERNAME", http.StatusConflict},
	{models.ErrDuplicateEmail, "DUPLICATE_EMAIL", http.StatusConflict},
	{models.ErrInvalidCredentials, "INVALID_CREDENTIALS", http.StatusUnauthorized},
	{models.ErrInvalidToken, "INVALID_TOKEN", http.StatusUnauthorized},
	{models.ErrUnauthenticated, "UNAUTHENTICATED", http.StatusUnauthorized},
	{models.ErrForbidden, "FORBIDDEN", http.StatusForbidden},
	{models.ErrUserNotFound, "USER_NOT_FOUND", http.StatusNotFound},
	{models.ErrProvider, "PROVIDER_ERROR", http.StatusBadGateway},
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.WithError(err).Warn("Failed to write response")
	}
}

// writeError maps domain errors to a status and a client-facing message
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			msg := e.err.Error()
			if e.err == models.ErrValidation {
				msg = err.Error()
			}
			h.writeJSON(w, e.status, map[string]errorBody{"error": {Code: e.code, Message: msg}})
			return
		}
	}

	h.log.WithError(err).
		WithField("request_id", middleware.RequestIDFromContext(r.Context())).
		Error("Request failed")
	h.writeJSON(w, http.StatusInternalServerError,
		map[string]errorBody{"error": {Code: "INTERNAL", Message: "internal error"}})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body", models.ErrValidation)
	}
	return nil
}

// Health reports liveness
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

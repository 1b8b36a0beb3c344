package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Dan9191/book-search-service/internal/middleware"
	"github.com/Dan9191/book-search-service/internal/models"
)

// operationRequest is the body accepted by the single API endpoint
type operationRequest struct {
	Operation string          `json:"operation"`
	Variables json.RawMessage `json:"variables"`
}

type operationVariables struct {
	ID              string       `json:"id"`
	Username        string       `json:"username"`
	Email           string       `json:"email"`
	Password        string       `json:"password"`
	Query           string       `json:"query"`
	UserID          string       `json:"userId"`
	BookID          string       `json:"bookId"`
	Book            *models.Book `json:"book"`
	CurrentPassword string       `json:"currentPassword"`
	NewPassword     string       `json:"newPassword"`
}

type operationFunc func(h *Handler, ctx context.Context, viewer *models.User, v operationVariables) (any, error)

var operations = map[string]operationFunc{
	"register": func(h *Handler, ctx context.Context, _ *models.User, v operationVariables) (any, error) {
		return h.svc.Register(ctx, v.Username, v.Email, v.Password)
	},
	"login": func(h *Handler, ctx context.Context, _ *models.User, v operationVariables) (any, error) {
		return h.svc.Login(ctx, v.Email, v.Password)
	},
	"me": func(h *Handler, _ context.Context, viewer *models.User, _ operationVariables) (any, error) {
		return h.svc.CurrentUser(viewer)
	},
	"user": func(h *Handler, ctx context.Context, _ *models.User, v operationVariables) (any, error) {
		return h.svc.UserByID(ctx, v.ID)
	},
	"users": func(h *Handler, ctx context.Context, _ *models.User, _ operationVariables) (any, error) {
		return h.svc.Users(ctx)
	},
	"searchBooks": func(h *Handler, ctx context.Context, _ *models.User, v operationVariables) (any, error) {
		return h.svc.SearchBooks(ctx, v.Query)
	},
	"saveBook": func(h *Handler, ctx context.Context, viewer *models.User, v operationVariables) (any, error) {
		if v.Book == nil {
			return nil, fmt.Errorf("%w: book is required", models.ErrValidation)
		}
		return h.svc.SaveBook(ctx, viewer, v.UserID, *v.Book)
	},
	"deleteBook": func(h *Handler, ctx context.Context, viewer *models.User, v operationVariables) (any, error) {
		return h.svc.DeleteBook(ctx, viewer, v.UserID, v.BookID)
	},
	"changePassword": func(h *Handler, ctx context.Context, viewer *models.User, v operationVariables) (any, error) {
		return h.svc.ChangePassword(ctx, viewer, v.CurrentPassword, v.NewPassword)
	},
}

// Execute dispatches one named operation posted to the single API endpoint
func (h *Handler) Execute(w http.ResponseWriter, r *http.Request) {
	var req operationRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	op, ok := operations[req.Operation]
	if !ok {
		h.writeError(w, r, fmt.Errorf("%w: unknown operation %q", models.ErrValidation, req.Operation))
		return
	}

	var vars operationVariables
	if len(req.Variables) > 0 && string(req.Variables) != "null" {
		if err := json.Unmarshal(req.Variables, &vars); err != nil {
			h.writeError(w, r, fmt.Errorf("%w: invalid variables", models.ErrValidation))
			return
		}
	}

	result, err := op(h, r.Context(), middleware.UserFromContext(r.Context()), vars)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{req.Operation: result}})
}

package handler

import (
	"net/http"

	"github.com/Dan9191/book-search-service/internal/middleware"
	"github.com/Dan9191/book-search-service/internal/models"
	"github.com/gorilla/mux"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// Register handles user registration
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	payload, err := h.svc.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, payload)
}

// Login handles user authentication
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	payload, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, payload)
}

// Me returns the authenticated user
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.CurrentUser(middleware.UserFromContext(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, user)
}

// UserByID returns any user by id
func (h *Handler) UserByID(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.UserByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, user)
}

// Users lists all users
func (h *Handler) Users(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.Users(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, users)
}

// SaveBook adds the posted book to the authenticated user's list
func (h *Handler) SaveBook(w http.ResponseWriter, r *http.Request) {
	var book models.Book
	if err := decodeBody(w, r, &book); err != nil {
		h.writeError(w, r, err)
		return
	}
	user, err := h.svc.SaveBook(r.Context(), middleware.UserFromContext(r.Context()), "", book)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, user)
}

// DeleteBook removes a book from the authenticated user's list
func (h *Handler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.DeleteBook(r.Context(), middleware.UserFromContext(r.Context()), "", mux.Vars(r)["bookId"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, user)
}

// ChangePassword replaces the authenticated user's password
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	user, err := h.svc.ChangePassword(r.Context(), middleware.UserFromContext(r.Context()), req.CurrentPassword, req.NewPassword)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, user)
}

// SearchBooks queries the book catalog
func (h *Handler) SearchBooks(w http.ResponseWriter, r *http.Request) {
	results, err := h.svc.SearchBooks(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, results)
}

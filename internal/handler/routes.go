package handler

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter registers every API route. Middlewares run in the order given.
func NewRouter(h *Handler, mws ...mux.MiddlewareFunc) *mux.Router {
	r := mux.NewRouter()
	for _, mw := range mws {
		r.Use(mw)
	}

	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)

	// Single operation endpoint
	r.HandleFunc("/api", h.Execute).Methods(http.MethodPost)

	// REST routes
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/users", h.Register).Methods(http.MethodPost)
	api.HandleFunc("/users", h.Users).Methods(http.MethodGet)
	api.HandleFunc("/users", h.SaveBook).Methods(http.MethodPut)
	api.HandleFunc("/users/login", h.Login).Methods(http.MethodPost)
	api.HandleFunc("/users/password", h.ChangePassword).Methods(http.MethodPut)
	api.HandleFunc("/users/me", h.Me).Methods(http.MethodGet)
	api.HandleFunc("/users/books/{bookId}", h.DeleteBook).Methods(http.MethodDelete)
	api.HandleFunc("/users/{id}", h.UserByID).Methods(http.MethodGet)
	api.HandleFunc("/books", h.SearchBooks).Methods(http.MethodGet)

	return r
}

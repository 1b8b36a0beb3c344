package models

import (
	"fmt"
	"strings"
)

// Book is a saved-book entry embedded in a user's collection
type Book struct {
	BookID      string   `json:"bookId"`
	Title       string   `json:"title"`
	Authors     []string `json:"authors"`
	Description string   `json:"description,omitempty"`
	Image       string   `json:"image,omitempty"`
	Link        string   `json:"link,omitempty"`
}

// Validate checks the fields required to save a book
func (b Book) Validate() error {
	if strings.TrimSpace(b.BookID) == "" {
		return fmt.Errorf("%w: bookId is required", ErrValidation)
	}
	if strings.TrimSpace(b.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	return nil
}

// SearchResult is a catalog item returned by the book search provider
type SearchResult struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Authors     []string `json:"authors"`
	Description string   `json:"description"`
	Image       string   `json:"image,omitempty"`
	Link        string   `json:"link,omitempty"`
}

// ToBook converts a search result into the saved-book shape
func (r SearchResult) ToBook() Book {
	return Book{
		BookID:      r.ID,
		Title:       r.Title,
		Authors:     r.Authors,
		Description: r.Description,
		Image:       r.Image,
		Link:        r.Link,
	}
}

package api

import (
	"github.com/starford/notex/internal/noteservice"
)

// NoteDetail is the full file response type (aliased from the domain layer).
type NoteDetail = noteservice.NoteDetail

// NoteListItem is a lightweight item in a list response (aliased from the domain layer).
type NoteListItem = noteservice.NoteListItem

// LinkSet is the link neighbourhood response (aliased from the domain layer).
type LinkSet = noteservice.LinkSet

// FileListResponse wraps paginated file listings.
type FileListResponse struct {
	Files []NoteListItem `json:"files" validate:"required"`
	Total int            `json:"total" example:"42" validate:"required"`
}

// Category is one row of the category overview.
type Category struct {
	Name  string `json:"name" example:"mathematics" validate:"required"`
	Files int    `json:"files" example:"3" validate:"required"`
}

// CategoryListResponse wraps the category overview.
type CategoryListResponse struct {
	Categories []Category `json:"categories" validate:"required"`
}

// SearchResult is a single search hit in the API response.
type SearchResult struct {
	Path     string `json:"path" example:"mathematics/linear_algebra.md" validate:"required"`
	Title    string `json:"title" example:"Eigenvalues" validate:"required"`
	Category string `json:"category" example:"mathematics"`
	Snippet  string `json:"snippet" example:"...matched text..." validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

// Package noteservice is the read side of a generated knowledge base: it
// joins file content from storage with the SQLite catalog.
package noteservice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/starford/notex/internal/apperr"
	"github.com/starford/notex/internal/checksum"
	"github.com/starford/notex/internal/index"
	"github.com/starford/notex/internal/models"
	"github.com/starford/notex/internal/parser"
	"github.com/starford/notex/internal/storage"
)

// NoteDetail is the full representation of an output file.
type NoteDetail struct {
	Path        string         `json:"path"`
	Title       string         `json:"title"`
	Category    string         `json:"category"`
	Content     string         `json:"content"`
	Checksum    string         `json:"checksum"`
	Tags        []string       `json:"tags"`
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
	Links       []models.Link  `json:"links"`
	Backlinks   []string       `json:"backlinks"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// NoteListItem is a lightweight item in a list response.
type NoteListItem struct {
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	Category  string    `json:"category"`
	Checksum  string    `json:"checksum"`
	Tags      []string  `json:"tags"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LinkSet is the neighbourhood of one file in the link graph.
type LinkSet struct {
	Path      string        `json:"path"`
	Outgoing  []models.Link `json:"outgoing"`
	Backlinks []string      `json:"backlinks"`
}

// Service coordinates storage and index reads.
type Service struct {
	store storage.Provider
	db    *index.DB
}

// NewService creates a new note service.
func NewService(store storage.Provider, db *index.DB) *Service {
	return &Service{store: store, db: db}
}

// GetNote reads a file from storage and enriches it with catalog data.
// Files on disk that the catalog has not seen yet are still served.
func (s *Service) GetNote(ctx context.Context, path string) (*NoteDetail, error) {
	clean, ok := models.CleanRelPath(path)
	if !ok {
		return nil, fmt.Errorf("noteservice: %q: %w", path, apperr.ErrInvalidPath)
	}
	data, err := s.store.Read(clean)
	if err != nil {
		return nil, err
	}
	res, err := parser.Parse(data)
	if err != nil {
		return nil, err
	}

	detail := &NoteDetail{
		Path:        clean,
		Title:       res.Title,
		Category:    index.CategoryOf(clean),
		Content:     string(data),
		Checksum:    checksum.Sum(data),
		Tags:        nonNilSlice(res.Tags),
		Frontmatter: res.Frontmatter,
	}
	row, err := s.db.GetNote(clean)
	switch {
	case err == nil:
		detail.Title = row.Title
		detail.UpdatedAt = row.UpdatedAt
	case !errors.Is(err, apperr.ErrNotFound):
		return nil, err
	}

	links, err := s.Links(ctx, clean)
	if err != nil {
		return nil, err
	}
	detail.Links = links.Outgoing
	detail.Backlinks = links.Backlinks
	return detail, nil
}

// ListNotes returns paginated catalog rows, optionally for one category.
func (s *Service) ListNotes(_ context.Context, limit, offset int, category string) ([]NoteListItem, int, error) {
	rows, total, err := s.db.ListNotes(limit, offset, category)
	if err != nil {
		return nil, 0, err
	}
	items := make([]NoteListItem, len(rows))
	for i, r := range rows {
		items[i] = NoteListItem{
			Path:      r.Path,
			Title:     r.Title,
			Category:  r.Category,
			Checksum:  r.Checksum,
			Tags:      nonNilSlice(r.Tags),
			UpdatedAt: r.UpdatedAt,
		}
	}
	return items, total, nil
}

// Categories returns per-category file counts.
func (s *Service) Categories(_ context.Context) ([]index.CategoryCount, error) {
	return s.db.Categories()
}

// Search runs a full-text query, optionally restricted to one top-level
// category folder.
func (s *Service) Search(_ context.Context, q index.SearchQuery) ([]index.SearchResult, error) {
	q.Category = strings.Trim(q.Category, "/")
	return s.db.Search(q)
}

// Links returns the outgoing links and backlinks of path.
func (s *Service) Links(_ context.Context, path string) (*LinkSet, error) {
	out, err := s.db.Links(path)
	if err != nil {
		return nil, err
	}
	bl, err := s.db.Backlinks(path)
	if err != nil {
		return nil, err
	}
	return &LinkSet{Path: path, Outgoing: nonNilSlice(out), Backlinks: nonNilSlice(bl)}, nil
}

// Backlinks returns all file paths that link to the given target.
func (s *Service) Backlinks(_ context.Context, target string) ([]string, error) {
	bl, err := s.db.Backlinks(target)
	return nonNilSlice(bl), err
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

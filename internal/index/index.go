package index

import "github.com/starford/notex/internal/models"

// NoteIndex defines the catalog operations consumers depend on.
type NoteIndex interface {
	UpsertNote(n NoteRow, body string, links []models.Link) error
	DeleteNote(path string) error
	GetNote(path string) (*NoteRow, error)
	ListNotes(limit, offset int, category string) ([]NoteRow, int, error)
	Categories() ([]CategoryCount, error)
	Search(q SearchQuery) ([]SearchResult, error)
	Links(source string) ([]models.Link, error)
	Backlinks(target string) ([]string, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies NoteIndex at compile time.
var _ NoteIndex = (*DB)(nil)

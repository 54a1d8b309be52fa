//go:build sqlite_fts5

package index

import (
	"testing"
)

func TestFTS5_TableExists(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM notes_fts`).Scan(&count); err != nil {
		t.Fatalf("notes_fts table missing: %v", err)
	}
}

func TestFTS5_SearchWithSnippet(t *testing.T) {
	db := testDB(t)
	row := NoteRow{
		Path:     "fts.md",
		Title:    "FTS Note",
		Checksum: "f1",
		Tags:     []string{"search"},
	}
	if err := db.UpsertNote(row, "Notex provides powerful full-text search capabilities.", nil); err != nil {
		t.Fatalf("UpsertNote: %v", err)
	}

	results, err := db.Search(SearchQuery{Text: "powerful", Limit: 10})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Path != "fts.md" {
		t.Errorf("path = %q", results[0].Path)
	}
	// FTS5 snippet should contain bold markers.
	if results[0].Snippet == "" {
		t.Error("expected non-empty snippet")
	}
}

func TestFTS5_DeleteRemovesFromFTS(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(NoteRow{Path: "gone.md", Checksum: "g"}, "vanishing content", nil)
	_ = db.DeleteNote("gone.md")

	results, _ := db.Search(SearchQuery{Text: "vanishing"})
	for _, r := range results {
		if r.Path == "gone.md" {
			t.Error("deleted note still in FTS index")
		}
	}
}

func TestFTS5_UpsertReplacesContent(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(NoteRow{Path: "evo.md", Title: "Old", Checksum: "1"}, "original text", nil)
	_ = db.UpsertNote(NoteRow{Path: "evo.md", Title: "New", Checksum: "2"}, "replacement text", nil)

	results, _ := db.Search(SearchQuery{Text: "original"})
	if len(results) != 0 {
		t.Error("old FTS content should be gone")
	}
	results, _ = db.Search(SearchQuery{Text: "replacement"})
	if len(results) != 1 || results[0].Title != "New" {
		t.Errorf("FTS not updated: %+v", results)
	}
}

func TestFTS5_PunctuationIsLiteral(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(NoteRow{Path: "lang/cpp.md", Category: "lang", Checksum: "c"}, "notes on c++ templates", nil)

	results, err := db.Search(SearchQuery{Text: `c++ "templates`})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Category != "lang" {
		t.Errorf("results = %+v", results)
	}
}

package index

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/notex/internal/apperr"
	"github.com/starford/notex/internal/models"
	"github.com/starford/notex/internal/storage"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), ".notex", "index.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func link(target string) models.Link {
	return models.Link{Target: target, Type: "markdown"}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM notes`).Scan(&count); err != nil {
		t.Fatalf("notes table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM links`).Scan(&count); err != nil {
		t.Fatalf("links table missing: %v", err)
	}
}

func TestUpsertAndGetNote(t *testing.T) {
	db := testDB(t)
	row := NoteRow{
		Path:      "mathematics/linear_algebra.md",
		Title:     "Eigenvalues",
		Category:  "mathematics",
		Checksum:  "abc123",
		Tags:      []string{"math"},
		UpdatedAt: time.Now(),
	}
	if err := db.UpsertNote(row, "body", []models.Link{link("physics/quantum.md")}); err != nil {
		t.Fatalf("UpsertNote: %v", err)
	}
	got, err := db.GetNote(row.Path)
	if err != nil {
		t.Fatalf("GetNote: %v", err)
	}
	if got.Title != "Eigenvalues" || got.Category != "mathematics" || got.Checksum != "abc123" {
		t.Errorf("row = %+v", got)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "math" {
		t.Errorf("tags = %v", got.Tags)
	}
	links, err := db.Links(row.Path)
	if err != nil || len(links) != 1 || links[0].Target != "physics/quantum.md" || links[0].Type != "markdown" {
		t.Errorf("links = %+v, err = %v", links, err)
	}
}

func TestGetNote_NotFound(t *testing.T) {
	db := testDB(t)
	_, err := db.GetNote("missing.md")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestBacklinks(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(NoteRow{Path: "a.md", Checksum: "1"}, "body", []models.Link{link("b.md")})
	_ = db.UpsertNote(NoteRow{Path: "c.md", Checksum: "2"}, "body", []models.Link{link("b.md"), {Target: "b.md", Type: "wikilink"}})

	bl, err := db.Backlinks("b.md")
	if err != nil {
		t.Fatalf("Backlinks: %v", err)
	}
	if len(bl) != 2 || bl[0] != "a.md" || bl[1] != "c.md" {
		t.Fatalf("backlinks = %v", bl)
	}
}

func TestDeleteNote(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(NoteRow{Path: "del.md", Checksum: "x"}, "body", []models.Link{link("target.md")})

	if err := db.DeleteNote("del.md"); err != nil {
		t.Fatalf("DeleteNote: %v", err)
	}
	if _, err := db.GetNote("del.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("deleted note still present: %v", err)
	}
	bl, _ := db.Backlinks("target.md")
	if len(bl) != 0 {
		t.Errorf("expected 0 backlinks after delete, got %d", len(bl))
	}
}

func TestUpsertUpdatesExisting(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(NoteRow{Path: "up.md", Title: "Old", Checksum: "1"}, "old body", []models.Link{link("x.md")})
	_ = db.UpsertNote(NoteRow{Path: "up.md", Title: "New", Checksum: "2"}, "new body", []models.Link{link("y.md")})

	cs, _ := db.AllChecksums()
	if cs["up.md"] != "2" {
		t.Errorf("checksum = %q, want %q", cs["up.md"], "2")
	}
	if bl, _ := db.Backlinks("x.md"); len(bl) != 0 {
		t.Error("old link should be removed on upsert")
	}
	if bl, _ := db.Backlinks("y.md"); len(bl) != 1 {
		t.Error("new link should exist")
	}
}

func TestListNotesAndCategories(t *testing.T) {
	db := testDB(t)
	for _, p := range []string{"ideas/a.md", "ideas/b.md", "todo/list.md", "readme.md"} {
		_ = db.UpsertNote(NoteRow{Path: p, Category: CategoryOf(p), Checksum: p}, "", nil)
	}

	rows, total, err := db.ListNotes(1, 1, "ideas")
	if err != nil {
		t.Fatalf("ListNotes: %v", err)
	}
	if total != 2 || len(rows) != 1 || rows[0].Path != "ideas/b.md" {
		t.Errorf("rows = %+v total = %d", rows, total)
	}
	_, total, _ = db.ListNotes(0, 0, "")
	if total != 4 {
		t.Errorf("total = %d, want 4", total)
	}

	cats, err := db.Categories()
	if err != nil {
		t.Fatalf("Categories: %v", err)
	}
	want := []CategoryCount{{"", 1}, {"ideas", 2}, {"todo", 1}}
	if len(cats) != len(want) {
		t.Fatalf("categories = %+v", cats)
	}
	for i := range want {
		if cats[i] != want[i] {
			t.Errorf("categories[%d] = %+v, want %+v", i, cats[i], want[i])
		}
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(NoteRow{Path: "s.md", Title: "Search Me", Checksum: "1"}, "uniqueword appears here", nil)

	results, err := db.Search(SearchQuery{Text: "uniqueword", Limit: 10})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Path != "s.md" {
		t.Errorf("search results = %+v, want 1 hit for s.md", results)
	}
}

func TestSearch_CategoryAndTerms(t *testing.T) {
	db := testDB(t)
	rows := []struct {
		path, category, body string
	}{
		{"mathematics/eigen.md", "mathematics", "eigenvalue decomposition of a matrix"},
		{"physics/modes.md", "physics", "eigenvalue of the vibration matrix"},
		{"mathematics/other.md", "mathematics", "eigenvalue only"},
	}
	for _, r := range rows {
		if err := db.UpsertNote(NoteRow{Path: r.path, Category: r.category, Checksum: r.path}, r.body, nil); err != nil {
			t.Fatal(err)
		}
	}

	results, err := db.Search(SearchQuery{Text: "eigenvalue matrix", Category: "mathematics"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Path != "mathematics/eigen.md" || results[0].Category != "mathematics" {
		t.Errorf("results = %+v", results)
	}

	all, _ := db.Search(SearchQuery{Text: "eigenvalue"})
	if len(all) != 3 {
		t.Errorf("unfiltered hits = %d, want 3", len(all))
	}
	if none, _ := db.Search(SearchQuery{Text: "   "}); len(none) != 0 {
		t.Errorf("blank query hits = %+v", none)
	}
}

func TestSync_ResolvesLinksAndRemovesStale(t *testing.T) {
	root := t.TempDir()
	store, err := storage.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	db := testDB(t)

	_ = store.Write("machine_learning/backprop.md", []byte("## Backprop\n\n---\n\n**See also:** [mathematics/chain_rule.md](./../mathematics/chain_rule.md) - calculus\n"))
	_ = store.Write("mathematics/chain_rule.md", []byte("## Chain rule\n"))
	_ = store.Write("todo/list.txt", []byte("buy milk"))

	if err := Sync(db, store, quiet); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	n, err := db.GetNote("machine_learning/backprop.md")
	if err != nil {
		t.Fatal(err)
	}
	if n.Title != "Backprop" || n.Category != "machine_learning" {
		t.Errorf("row = %+v", n)
	}
	if txt, _ := db.GetNote("todo/list.txt"); txt == nil || txt.Title != "list" {
		t.Errorf("plain file row = %+v", txt)
	}
	bl, _ := db.Backlinks("mathematics/chain_rule.md")
	if len(bl) != 1 || bl[0] != "machine_learning/backprop.md" {
		t.Errorf("backlinks = %v", bl)
	}

	if err := os.Remove(filepath.Join(root, "todo", "list.txt")); err != nil {
		t.Fatal(err)
	}
	if err := (Syncer{DB: db, Logger: quiet}).Sync(store); err != nil {
		t.Fatalf("Syncer.Sync: %v", err)
	}
	if _, err := db.GetNote("todo/list.txt"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("stale entry not removed: %v", err)
	}
}

func TestIndexable(t *testing.T) {
	cases := map[string]bool{
		"a.md":            true,
		"dir/b.TXT":       true,
		".notex-tmp-123":  false,
		"dir/.hidden.md":  false,
		"image.png":       false,
		".notex/index.db": false,
	}
	for name, want := range cases {
		if got := Indexable(name); got != want {
			t.Errorf("Indexable(%q) = %v, want %v", name, got, want)
		}
	}
}

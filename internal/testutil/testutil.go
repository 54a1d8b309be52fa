// Package testutil provides shared test helpers: temporary output trees,
// catalogs and a scripted model gateway.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/starford/notex/internal/index"
	"github.com/starford/notex/internal/storage"
)

// TestDB creates a temporary SQLite catalog that is closed on cleanup.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	db, err := index.Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault creates a temporary output root with a storage.Provider.
func TestVault(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// WriteFiles writes files (slash path → content) through store.
func WriteFiles(t *testing.T, store storage.Provider, files map[string]string) {
	t.Helper()
	for p, content := range files {
		if err := store.Write(p, []byte(content)); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
}

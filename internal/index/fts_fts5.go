//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS notes_fts USING fts5(
			path UNINDEXED,
			title,
			body,
			tags,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, path, title, body string, tags []string) error {
	ftsDelete(tx, path)
	if _, err := tx.Exec(`INSERT INTO notes_fts (path, title, body, tags) VALUES (?, ?, ?, ?)`,
		path, title, body, strings.Join(tags, " ")); err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, path string) {
	_, _ = tx.Exec(`DELETE FROM notes_fts WHERE path = ?`, path)
}

// matchExpr turns free text into an FTS5 expression: every whitespace
// separated term is quoted, so punctuation like "c++" or "a-b" is literal,
// and the terms are ANDed.
func matchExpr(text string) string {
	terms := strings.Fields(text)
	for i, t := range terms {
		terms[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return strings.Join(terms, " ")
}

// Search ranks hits by bm25 and highlights the matched body text. The
// category filter applies to the catalog row joined on path.
func (db *DB) Search(q SearchQuery) ([]SearchResult, error) {
	expr := matchExpr(q.Text)
	if expr == "" {
		return nil, nil
	}
	rows, err := db.conn.Query(`
		SELECT notes_fts.path,
		       notes_fts.title,
		       n.category,
		       snippet(notes_fts, 2, '<b>', '</b>', '...', 64)
		FROM notes_fts
		JOIN notes n ON n.path = notes_fts.path
		WHERE notes_fts MATCH ?
		  AND (? = '' OR n.category = ?)
		ORDER BY rank
		LIMIT ?
	`, expr, q.Category, q.Category, q.limit())
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	return scanResults(rows)
}

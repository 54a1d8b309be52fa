//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
)

// Without FTS5 compiled in there is no shadow table; Search scans notes.
func initFTS(_ *sql.DB) error { return nil }

func ftsUpsert(_ *sql.Tx, _, _, _ string, _ []string) error { return nil }

func ftsDelete(_ *sql.Tx, _ string) {}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search returns files whose title, body or tags contain every term of the
// query, case-insensitively. Title matches sort first, then by path.
func (db *DB) Search(q SearchQuery) ([]SearchResult, error) {
	terms := strings.Fields(q.Text)
	if len(terms) == 0 {
		return nil, nil
	}

	var (
		where []string
		args  []any
	)
	for _, t := range terms {
		like := "%" + likeEscaper.Replace(t) + "%"
		where = append(where, `(title LIKE ? ESCAPE '\' OR body LIKE ? ESCAPE '\' OR tags LIKE ? ESCAPE '\')`)
		args = append(args, like, like, like)
	}
	first := "%" + likeEscaper.Replace(terms[0]) + "%"
	args = append(args, q.Category, q.Category, first, q.limit())

	rows, err := db.conn.Query(`
		SELECT path, title, category, substr(body, 1, 200)
		FROM notes
		WHERE `+strings.Join(where, " AND ")+`
		  AND (? = '' OR category = ?)
		ORDER BY (title LIKE ? ESCAPE '\') DESC, path
		LIMIT ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	return scanResults(rows)
}

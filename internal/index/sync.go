package index

import (
	"log/slog"
	"path"
	"strings"

	"github.com/starford/notex/internal/checksum"
	"github.com/starford/notex/internal/models"
	"github.com/starford/notex/internal/parser"
	"github.com/starford/notex/internal/storage"
)

// Sync walks the output tree and brings the index up to date:
//   - new/changed files are parsed and upserted
//   - files removed from disk are deleted from the index
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	indexed := 0
	for _, m := range metas {
		if !Indexable(m.Path) {
			continue
		}
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := indexFile(db, m, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		indexed++
		logger.Debug("sync: indexed", slog.String("path", m.Path))
	}

	removed := 0
	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		if err := db.DeleteNote(p); err != nil {
			logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		removed++
		logger.Debug("sync: removed stale", slog.String("path", p))
	}

	logger.Info("sync: index refreshed",
		slog.Int("files", len(disk)),
		slog.Int("indexed", indexed),
		slog.Int("removed", removed))
	return nil
}

// Syncer refreshes DB from whatever store it is handed.
type Syncer struct {
	DB     *DB
	Logger *slog.Logger
}

// Sync implements the pipeline's post-write indexing hook.
func (s Syncer) Sync(store storage.Provider) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return Sync(s.DB, store, logger)
}

// CategoryOf returns the top-level directory of an output path, or "" for
// files at the root.
func CategoryOf(p string) string {
	dir, _, found := strings.Cut(p, "/")
	if !found {
		return ""
	}
	return dir
}

func indexFile(db *DB, meta models.FileMeta, data []byte) error {
	res, err := parser.Parse(data)
	if err != nil {
		return err
	}
	title := res.Title
	if title == "" {
		title = strings.TrimSuffix(path.Base(meta.Path), path.Ext(meta.Path))
	}

	var links []models.Link
	for _, l := range res.Links {
		target, ok := parser.Resolve(meta.Path, l)
		if !ok || target == meta.Path {
			continue
		}
		links = append(links, models.Link{Source: meta.Path, Target: target, Type: l.Kind})
	}

	row := NoteRow{
		Path:      meta.Path,
		Title:     title,
		Category:  CategoryOf(meta.Path),
		Checksum:  checksum.Sum(data),
		Tags:      res.Tags,
		UpdatedAt: meta.UpdatedAt,
	}
	return db.UpsertNote(row, res.Body, links)
}

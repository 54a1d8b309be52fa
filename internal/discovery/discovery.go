// Package discovery walks an input directory and loads the notes to process.
package discovery

import (
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/starford/notex/internal/models"
)

// Matcher reports whether a path is excluded.
type Matcher struct {
	patterns []string
}

// NewMatcher compiles exclude globs. Invalid patterns are dropped with a warning.
func NewMatcher(patterns []string, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Matcher{}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !doublestar.ValidatePattern(p) {
			logger.Warn("discovery: invalid exclude pattern", slog.String("pattern", p))
			continue
		}
		m.patterns = append(m.patterns, filepath.ToSlash(p))
	}
	return m
}

// Patterns returns the accepted patterns.
func (m *Matcher) Patterns() []string { return m.patterns }

// flatSep stands in for "/" so that a single * may span directories.
const flatSep = "\u2215"

// Excluded reports whether any pattern matches the full path or its base name.
// A * matches across "/" as well, so "*archive*" excludes everything under an
// archive directory; "**" keeps its usual any-depth meaning.
func (m *Matcher) Excluded(p string) bool {
	if m == nil {
		return false
	}
	full := filepath.ToSlash(p)
	candidates := []string{full, path.Base(full)}
	for _, pat := range m.patterns {
		flatPat := strings.ReplaceAll(pat, "/", flatSep)
		for _, name := range candidates {
			if ok, _ := doublestar.Match(pat, name); ok {
				return true
			}
			if ok, _ := doublestar.Match(flatPat, strings.ReplaceAll(name, "/", flatSep)); ok {
				return true
			}
		}
	}
	return false
}

// Options configures Discover.
type Options struct {
	Matcher *Matcher
	// SkipDirs are directories never descended into, typically the output
	// root when it lives inside the input tree.
	SkipDirs []string
	Logger   *slog.Logger
}

type walker struct {
	opts    Options
	logger  *slog.Logger
	skip    map[string]struct{}
	visited map[string]struct{}
	notes   []models.Note
}

// Discover returns every non-hidden, non-excluded, non-blank text file under
// root, sorted by path. Symlinks are followed; each real directory is visited
// at most once. Unreadable files are skipped with a warning.
func Discover(root string, opts Options) ([]models.Note, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("discovery: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("discovery: %s is not a directory", root)
	}
	w := &walker{
		opts:    opts,
		logger:  opts.Logger,
		skip:    make(map[string]struct{}),
		visited: make(map[string]struct{}),
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	for _, d := range opts.SkipDirs {
		if real, err := realPath(d); err == nil {
			w.skip[real] = struct{}{}
		}
	}
	if err := w.walkDir(root); err != nil {
		return nil, err
	}
	sort.Slice(w.notes, func(i, j int) bool { return w.notes[i].Path < w.notes[j].Path })
	return w.notes, nil
}

func (w *walker) walkDir(dir string) error {
	real, err := realPath(dir)
	if err != nil {
		w.logger.Warn("discovery: cannot resolve directory", slog.String("path", dir), slog.String("error", err.Error()))
		return nil
	}
	if _, ok := w.skip[real]; ok {
		w.logger.Debug("discovery: skipping directory", slog.String("path", dir))
		return nil
	}
	if _, seen := w.visited[real]; seen {
		w.logger.Debug("discovery: symlink cycle", slog.String("path", dir))
		return nil
	}
	w.visited[real] = struct{}{}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if len(w.visited) == 1 {
			return fmt.Errorf("discovery: read %s: %w", dir, err)
		}
		w.logger.Warn("discovery: cannot read directory", slog.String("path", dir), slog.String("error", err.Error()))
		return nil
	}
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		p := filepath.Join(dir, name)
		info, err := os.Stat(p) // follows symlinks
		if err != nil {
			w.logger.Warn("discovery: cannot stat", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		if info.IsDir() {
			if err := w.walkDir(p); err != nil {
				return err
			}
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}
		w.visitFile(p)
	}
	return nil
}

func (w *walker) visitFile(p string) {
	if w.opts.Matcher.Excluded(p) {
		w.logger.Debug("discovery: excluded", slog.String("path", p))
		return
	}
	data, err := os.ReadFile(p)
	if err != nil {
		w.logger.Warn("discovery: cannot read", slog.String("path", p), slog.String("error", err.Error()))
		return
	}
	if !utf8.Valid(data) {
		w.logger.Warn("discovery: not a text file", slog.String("path", p))
		return
	}
	content := string(data)
	if strings.TrimSpace(content) == "" {
		return
	}
	w.logger.Debug("discovery: found", slog.String("path", p))
	w.notes = append(w.notes, models.Note{Path: filepath.ToSlash(p), Content: content})
}

func realPath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

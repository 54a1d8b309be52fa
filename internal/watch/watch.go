// Package watch re-runs a callback whenever the input notes change.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the tree must stay quiet before a re-run.
const DefaultDebounce = 500 * time.Millisecond

// Options configures Run.
type Options struct {
	Root     string
	SkipDirs []string
	Debounce time.Duration
	Logger   *slog.Logger
	// Initial runs fn once before waiting for the first change.
	Initial bool
}

// Run watches opts.Root recursively and calls fn after each burst of
// create/write/remove/rename events on visible files, until ctx is
// cancelled. Runs never overlap: events arriving during a run schedule
// exactly one follow-up run. An error from fn is logged, not returned.
func Run(ctx context.Context, opts Options, fn func(context.Context) error) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return fmt.Errorf("watch: resolve root: %w", err)
	}
	skip := make(map[string]struct{}, len(opts.SkipDirs))
	for _, d := range opts.SkipDirs {
		if abs, err := filepath.Abs(d); err == nil {
			skip[abs] = struct{}{}
		}
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: new watcher: %w", err)
	}
	defer w.Close()

	t := &tree{w: w, root: root, skip: skip, logger: logger}
	if err := t.add(root); err != nil {
		return fmt.Errorf("watch: add %s: %w", root, err)
	}
	logger.Info("watch: started", slog.String("root", root), slog.Duration("debounce", debounce))

	run := func() {
		logger.Info("watch: change detected, re-running")
		if err := fn(ctx); err != nil {
			logger.Error("watch: run failed", slog.String("error", err.Error()))
		}
	}
	if opts.Initial {
		run()
	}

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("watch: stopped")
			return nil

		case <-timer.C:
			run()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !t.relevant(ev) {
				continue
			}
			logger.Debug("watch: event", slog.String("path", ev.Name), slog.String("op", ev.Op.String()))
			timer.Reset(debounce)

		case werr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watch: error", slog.String("error", werr.Error()))
		}
	}
}

type tree struct {
	w      *fsnotify.Watcher
	root   string
	skip   map[string]struct{}
	logger *slog.Logger
}

func (t *tree) skipped(p string) bool {
	if _, ok := t.skip[p]; ok {
		return true
	}
	for d := range t.skip {
		if strings.HasPrefix(p, d+string(os.PathSeparator)) {
			return true
		}
	}
	return false
}

// hidden reports whether any component of p below the root starts with ".".
func (t *tree) hidden(p string) bool {
	rel, err := filepath.Rel(t.root, p)
	if err != nil || rel == "." {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}

// add watches dir and its visible subdirectories, skipping SkipDirs.
func (t *tree) add(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != t.root && (t.hidden(p) || t.skipped(p)) {
			return filepath.SkipDir
		}
		return t.w.Add(p)
	})
}

func (t *tree) relevant(ev fsnotify.Event) bool {
	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	if t.hidden(ev.Name) || t.skipped(ev.Name) {
		return false
	}
	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := t.add(ev.Name); err != nil {
				t.logger.Warn("watch: add new dir failed",
					slog.String("path", ev.Name),
					slog.String("error", err.Error()))
			}
		}
	}
	return true
}

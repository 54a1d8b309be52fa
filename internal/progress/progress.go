// Package progress reports per-item completion of a pipeline phase.
package progress

import (
	"io"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// Tracker counts finished items. Implementations are safe for concurrent use.
type Tracker interface {
	Add(n int)
	Finish()
}

// Factory creates a tracker for a phase of total items.
type Factory func(description string, total int) Tracker

// Nop discards progress.
type Nop struct{}

func (Nop) Add(int) {}
func (Nop) Finish() {}

// NopFactory returns Nop trackers.
func NopFactory(string, int) Tracker { return Nop{} }

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// NewFactory returns a factory drawing bars on w when it is a terminal, and
// logging progress through logger otherwise.
func NewFactory(w io.Writer, logger *slog.Logger) Factory {
	if IsTerminal(w) {
		return func(description string, total int) Tracker {
			return newBar(w, description, total)
		}
	}
	return func(description string, total int) Tracker {
		return NewLog(logger, description, total)
	}
}

type bar struct {
	pb *progressbar.ProgressBar
}

func newBar(w io.Writer, description string, total int) *bar {
	return &bar{pb: progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionOnCompletion(func() { _, _ = io.WriteString(w, "\n") }),
	)}
}

func (b *bar) Add(n int) { _ = b.pb.Add(n) }
func (b *bar) Finish()   { _ = b.pb.Finish() }

// Log emits a debug record per finished item and an info record at Finish.
type Log struct {
	logger      *slog.Logger
	description string
	total       int
	done        atomic.Int64
}

// NewLog returns a log-backed tracker.
func NewLog(logger *slog.Logger, description string, total int) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger, description: description, total: total}
}

func (l *Log) Add(n int) {
	done := l.done.Add(int64(n))
	l.logger.Debug("progress: item done",
		slog.String("phase", l.description),
		slog.Int64("done", done),
		slog.Int("total", l.total))
}

func (l *Log) Finish() {
	l.logger.Info("progress: phase complete",
		slog.String("phase", l.description),
		slog.Int64("done", l.done.Load()),
		slog.Int("total", l.total))
}

// Done returns the number of items reported so far.
func (l *Log) Done() int64 { return l.done.Load() }

// Package pipeline orchestrates a notex run: discover, categorize, enhance,
// write, then the optional reorganization and cross-reference passes.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/starford/notex/internal/categorize"
	"github.com/starford/notex/internal/crossref"
	"github.com/starford/notex/internal/discovery"
	"github.com/starford/notex/internal/enhance"
	"github.com/starford/notex/internal/llm"
	"github.com/starford/notex/internal/models"
	"github.com/starford/notex/internal/progress"
	"github.com/starford/notex/internal/reorganize"
	"github.com/starford/notex/internal/scheduler"
	"github.com/starford/notex/internal/storage"
	"github.com/starford/notex/internal/writer"
)

// Phase names used in PhaseError and log records.
const (
	PhaseDiscover   = "discover"
	PhaseCategorize = "categorize"
	PhaseEnhance    = "enhance"
	PhaseWrite      = "write"
	PhaseReorganize = "reorganize"
	PhaseCrossRef   = "crossref"
)

// Settings selects what a run does.
type Settings struct {
	Input      string
	Output     string
	Format     models.OutputFormat
	Parallel   int
	Exclude    []string
	DryRun     bool
	Reorganize bool
	CrossRef   bool
}

// PhaseError is a failure that aborts the run.
type PhaseError struct {
	Phase string
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s phase failed: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error { return e.Err }

// Indexer refreshes a catalog of the output tree after files are written.
type Indexer interface {
	Sync(store storage.Provider) error
}

// PlanEntry is the categorization of one note.
type PlanEntry struct {
	Path     string
	Segments []models.Segment
}

// Summary describes a finished run.
type Summary struct {
	Notes            int
	CategorizeFailed int
	Segments         int
	Enhanced         int
	EnhanceFailed    int
	Plan             []PlanEntry
	// Written lists output files relative to the output root, sorted, after
	// any reorganization moves.
	Written   []string
	CrossRefs []models.CrossReference
	DryRun    bool
}

// Pipeline runs the fixed phase sequence against one gateway.
type Pipeline struct {
	gateway  llm.Gateway
	settings Settings
	stdout   io.Writer
	logger   *slog.Logger
	progress progress.Factory
	indexer  Indexer
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithStdout sets where the plan and pass reports are printed.
func WithStdout(w io.Writer) Option {
	return func(p *Pipeline) { p.stdout = w }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithProgress sets the per-phase progress tracker factory.
func WithProgress(f progress.Factory) Option {
	return func(p *Pipeline) { p.progress = f }
}

// WithIndexer refreshes idx after every non-dry run.
func WithIndexer(idx Indexer) Option {
	return func(p *Pipeline) { p.indexer = idx }
}

// New returns a Pipeline.
func New(gw llm.Gateway, settings Settings, opts ...Option) *Pipeline {
	p := &Pipeline{
		gateway:  gw,
		settings: settings,
		stdout:   io.Discard,
		logger:   slog.Default(),
		progress: progress.NopFactory,
	}
	for _, o := range opts {
		o(p)
	}
	if p.settings.Format == "" {
		p.settings.Format = models.FormatMarkdown
	}
	return p
}

type enhanceTask struct {
	source string
	seg    models.Segment
}

// Run executes one full pass over the input directory. Per-item model
// failures are logged and counted in the Summary; only phase-level failures
// are returned, as *PhaseError.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	s := p.settings
	sum := &Summary{DryRun: s.DryRun}

	matcher := discovery.NewMatcher(s.Exclude, p.logger)
	p.logger.Info("pipeline: discovering notes",
		slog.String("input", s.Input),
		slog.Any("exclude", matcher.Patterns()))
	notes, err := discovery.Discover(s.Input, discovery.Options{
		Matcher:  matcher,
		SkipDirs: []string{s.Output},
		Logger:   p.logger,
	})
	if err != nil {
		return nil, &PhaseError{Phase: PhaseDiscover, Err: err}
	}
	sum.Notes = len(notes)
	p.logger.Info("pipeline: found notes", slog.Int("count", len(notes)))
	if len(notes) == 0 {
		p.logger.Warn("pipeline: no notes found to process")
		return sum, nil
	}

	// Categorization.
	cat := categorize.New(p.gateway)
	tracker := p.progress("Categorizing", len(notes))
	catReport := scheduler.Run(ctx, notes, cat.Categorize, scheduler.Options{
		Parallel: s.Parallel,
		Phase:    PhaseCategorize,
		Tracker:  tracker,
		Logger:   p.logger,
		Label:    func(i int) string { return notes[i].Path },
	})
	tracker.Finish()
	sum.CategorizeFailed = len(catReport.Failures)

	var tasks []enhanceTask
	for _, r := range catReport.Results {
		path := notes[r.Index].Path
		sum.Plan = append(sum.Plan, PlanEntry{Path: path, Segments: r.Value})
		for _, seg := range r.Value {
			tasks = append(tasks, enhanceTask{source: path, seg: seg})
		}
	}
	sum.Segments = len(tasks)
	p.logger.Info("pipeline: categorized",
		slog.Int("notes", len(catReport.Results)),
		slog.Int("failed", sum.CategorizeFailed),
		slog.Int("segments", sum.Segments))

	if s.DryRun {
		printPlan(p.stdout, sum.Plan)
		return sum, nil
	}

	// Enhancement.
	enh := enhance.New(p.gateway)
	tracker = p.progress("Enhancing", len(tasks))
	enhReport := scheduler.Run(ctx, tasks, func(ctx context.Context, t enhanceTask) (models.EnhancedSegment, error) {
		return enh.Enhance(ctx, t.seg, t.source, s.Format)
	}, scheduler.Options{
		Parallel: s.Parallel,
		Phase:    PhaseEnhance,
		Tracker:  tracker,
		Logger:   p.logger,
		Label:    func(i int) string { return fmt.Sprintf("%s (%s)", tasks[i].source, tasks[i].seg.Category) },
	})
	tracker.Finish()
	enhanced := enhReport.Values()
	sum.Enhanced = len(enhanced)
	sum.EnhanceFailed = len(enhReport.Failures)
	p.logger.Info("pipeline: enhanced",
		slog.Int("segments", sum.Enhanced),
		slog.Int("failed", sum.EnhanceFailed))

	// Output.
	if err := os.MkdirAll(s.Output, 0o755); err != nil {
		return nil, &PhaseError{Phase: PhaseWrite, Err: err}
	}
	store, err := storage.NewFS(s.Output)
	if err != nil {
		return nil, &PhaseError{Phase: PhaseWrite, Err: err}
	}
	written, err := writer.Write(store, writer.Group(enhanced, s.Format), s.Format)
	if err != nil {
		return nil, &PhaseError{Phase: PhaseWrite, Err: err}
	}
	p.logger.Info("pipeline: wrote files", slog.Int("count", len(written)), slog.String("output", store.Root()))
	sum.Written = written

	if s.Reorganize {
		p.logger.Info("pipeline: running reorganization pass")
		files, err := reorganize.New(p.gateway, store, p.stdout, p.logger).Run(ctx, sum.Written)
		if err != nil {
			return nil, &PhaseError{Phase: PhaseReorganize, Err: err}
		}
		sum.Written = files
	}

	if s.CrossRef {
		p.logger.Info("pipeline: adding cross-references")
		refs, err := crossref.New(p.gateway, store, p.stdout, p.logger).Run(ctx, sum.Written)
		if err != nil {
			return nil, &PhaseError{Phase: PhaseCrossRef, Err: err}
		}
		sum.CrossRefs = refs
	}

	if p.indexer != nil {
		if err := p.indexer.Sync(store); err != nil {
			p.logger.Warn("pipeline: index refresh failed", slog.String("error", err.Error()))
		}
	}
	return sum, nil
}

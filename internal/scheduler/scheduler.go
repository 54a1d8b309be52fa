// Package scheduler runs independent work items with a global concurrency cap.
//
// A failing or panicking item is logged and dropped; it never cancels or
// blocks the other items. Progress is reported exactly once per item.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/starford/notex/internal/progress"
)

// Result is one successful item, tagged with its submission index.
type Result[R any] struct {
	Index int
	Value R
}

// Failure is one dropped item.
type Failure struct {
	Index int
	Label string
	Err   error
}

// Report is the outcome of a Run. len(Results)+len(Failures) == Total.
type Report[R any] struct {
	Results  []Result[R]
	Failures []Failure
	Total    int
}

// Values returns the successful values in submission order.
func (r Report[R]) Values() []R {
	out := make([]R, len(r.Results))
	for i, res := range r.Results {
		out[i] = res.Value
	}
	return out
}

// Options tunes a Run.
type Options struct {
	// Parallel caps the number of items in flight. Values below 1 mean 1.
	Parallel int
	// Phase names the run in log records.
	Phase   string
	Tracker progress.Tracker
	Logger  *slog.Logger
	// Label identifies item i in failure logs.
	Label func(i int) string
}

type outcome[R any] struct {
	index int
	value R
	err   error
}

// Run executes work for every item with at most opts.Parallel in flight and
// returns once all items have finished. Results and failures are sorted by
// submission index, so callers never observe completion order.
func Run[T, R any](ctx context.Context, items []T, work func(context.Context, T) (R, error), opts Options) Report[R] {
	parallel := opts.Parallel
	if parallel < 1 {
		parallel = 1
	}
	tracker := opts.Tracker
	if tracker == nil {
		tracker = progress.Nop{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	label := opts.Label
	if label == nil {
		label = func(i int) string { return fmt.Sprintf("#%d", i) }
	}

	results := make(chan outcome[R], len(items))
	var g errgroup.Group
	g.SetLimit(parallel)
	for i, item := range items {
		g.Go(func() error {
			out := outcome[R]{index: i}
			defer func() {
				if r := recover(); r != nil {
					out.err = fmt.Errorf("panic: %v", r)
				}
				results <- out
				tracker.Add(1)
			}()
			out.value, out.err = work(ctx, item)
			return nil
		})
	}
	_ = g.Wait()
	close(results)

	report := Report[R]{Total: len(items)}
	for out := range results {
		if out.err != nil {
			f := Failure{Index: out.index, Label: label(out.index), Err: out.err}
			logger.Warn("scheduler: item failed",
				slog.String("phase", opts.Phase),
				slog.String("item", f.Label),
				slog.String("error", out.err.Error()))
			report.Failures = append(report.Failures, f)
			continue
		}
		report.Results = append(report.Results, Result[R]{Index: out.index, Value: out.value})
	}
	sort.Slice(report.Results, func(a, b int) bool { return report.Results[a].Index < report.Results[b].Index })
	sort.Slice(report.Failures, func(a, b int) bool { return report.Failures[a].Index < report.Failures[b].Index })
	return report
}

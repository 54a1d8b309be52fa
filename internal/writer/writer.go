// Package writer aggregates enhanced segments by output path and persists them.
package writer

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/starford/notex/internal/models"
	"github.com/starford/notex/internal/storage"
)

// Groups maps an output path to the segments written there, in input order.
type Groups map[string][]models.EnhancedSegment

// Paths returns the group keys in sorted order.
func (g Groups) Paths() []string {
	keys := make([]string, 0, len(g))
	for k := range g {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Group builds the inverted index path -> segments. Target paths are first
// mapped to their on-disk form for format, so a segment lands at most once in
// each output file; within a group, segments keep the order of segs.
func Group(segs []models.EnhancedSegment, format models.OutputFormat) Groups {
	groups := make(Groups)
	for _, seg := range segs {
		seen := make(map[string]struct{}, len(seg.TargetPaths))
		for _, p := range seg.TargetPaths {
			out := format.OutputPath(p)
			if _, dup := seen[out]; dup {
				continue
			}
			seen[out] = struct{}{}
			groups[out] = append(groups[out], seg)
		}
	}
	return groups
}

// Render joins the segment contents with the format separator and terminates
// the result with exactly one newline.
func Render(segs []models.EnhancedSegment, format models.OutputFormat) string {
	parts := make([]string, len(segs))
	for i, s := range segs {
		parts[i] = s.Content
	}
	body := strings.TrimRightFunc(strings.Join(parts, format.Separator()), unicode.IsSpace)
	return body + "\n"
}

// Write renders every group of Group(segs, format) into store and returns the
// written paths, sorted.
func Write(store storage.Provider, groups Groups, format models.OutputFormat) ([]string, error) {
	written := make([]string, 0, len(groups))
	for _, p := range groups.Paths() {
		if err := store.Write(p, []byte(Render(groups[p], format))); err != nil {
			return written, fmt.Errorf("writer: write %s: %w", p, err)
		}
		written = append(written, p)
	}
	return written, nil
}

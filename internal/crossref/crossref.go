// Package crossref asks the model for relationships between written files and
// appends "see also" links to them.
package crossref

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/starford/notex/internal/apperr"
	"github.com/starford/notex/internal/llm"
	"github.com/starford/notex/internal/models"
	"github.com/starford/notex/internal/storage"
)

// SummaryRunes is how much of each file the model sees.
const SummaryRunes = 500

// SystemPrompt asks for links between notes.
const SystemPrompt = `You are a knowledge linking expert. Given a set of notes with their content summaries, identify meaningful connections between them.

Look for:
1. Notes that reference concepts explained in other notes
2. Notes that build upon knowledge from other notes
3. Related topics that would benefit from cross-linking

Return JSON:
{
  "references": [
    {"from_file": "machine_learning/backprop.md", "to_file": "mathematics/calculus/chain_rule.md", "context": "Backpropagation uses the chain rule"}
  ]
}`

// Summary is the leading text of one file.
type Summary struct {
	Path string
	Text string
}

// Pass runs one cross-referencing over an output store.
type Pass struct {
	gateway llm.Gateway
	store   storage.Provider
	out     io.Writer
	logger  *slog.Logger
}

// New returns a Pass that prints added links to out.
func New(gw llm.Gateway, store storage.Provider, out io.Writer, logger *slog.Logger) *Pass {
	if out == nil {
		out = io.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pass{gateway: gw, store: store, out: out, logger: logger}
}

// Summaries reads the first SummaryRunes runes of every readable file, in
// path order.
func (p *Pass) Summaries(files []string) []Summary {
	sorted := append([]string(nil), files...)
	sort.Strings(sorted)
	out := make([]Summary, 0, len(sorted))
	for _, f := range sorted {
		data, err := p.store.Read(f)
		if err != nil {
			p.logger.Debug("crossref: skip unreadable", slog.String("path", f), slog.String("error", err.Error()))
			continue
		}
		out = append(out, Summary{Path: f, Text: truncateRunes(string(data), SummaryRunes)})
	}
	return out
}

// UserPrompt renders the summaries for the model.
func UserPrompt(summaries []Summary) string {
	blocks := make([]string, len(summaries))
	for i, s := range summaries {
		blocks[i] = fmt.Sprintf("=== %s ===\n%s\n", s.Path, s.Text)
	}
	return "Notes to analyze:\n\n" + strings.Join(blocks, "\n")
}

// LinkBlock is the text appended to the source file of ref.
func LinkBlock(ref models.CrossReference) string {
	return fmt.Sprintf("\n\n---\n\n**See also:** [%s](./%s) - %s\n",
		ref.ToFile, RelativePath(ref.FromFile, ref.ToFile), ref.Context)
}

// Run proposes links between files and appends them to their source files.
// It returns the references that were applied. Model or parse failures only
// log a warning; a failed append is returned as an error.
func (p *Pass) Run(ctx context.Context, files []string) ([]models.CrossReference, error) {
	raw, err := p.gateway.SendJSON(ctx, SystemPrompt, UserPrompt(p.Summaries(files)))
	if err != nil {
		p.logger.Warn("crossref: pass failed", slog.String("error", err.Error()))
		return nil, nil
	}
	var resp models.CrossRefResponse
	if err := llm.DecodeJSON(raw, &resp); err != nil {
		p.logger.Warn("crossref: cannot parse response", slog.String("error", err.Error()))
		return nil, nil
	}
	if len(resp.References) == 0 {
		p.logger.Info("crossref: no cross-references found")
		return nil, nil
	}

	fmt.Fprint(p.out, "\n=== Cross-References Added ===\n\n")
	var applied []models.CrossReference
	for _, ref := range resp.References {
		from, ok := models.CleanRelPath(ref.FromFile)
		if !ok || !p.store.Exists(from) {
			p.logger.Debug("crossref: source missing", slog.String("path", ref.FromFile))
			continue
		}
		ref.FromFile = from
		if to, ok := models.CleanRelPath(ref.ToFile); ok {
			ref.ToFile = to
		}
		if err := p.store.Append(from, []byte(LinkBlock(ref))); err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				continue
			}
			return applied, fmt.Errorf("crossref: append %s: %w", from, err)
		}
		fmt.Fprintf(p.out, "   %s → %s (%s)\n", ref.FromFile, ref.ToFile, ref.Context)
		applied = append(applied, ref)
	}
	return applied, nil
}

// RelativePath returns the path of to relative to the directory holding from.
// Both are slash-separated paths under the same root.
func RelativePath(from, to string) string {
	fromParts := strings.Split(from, "/")
	toParts := strings.Split(to, "/")
	fromDir := fromParts[:len(fromParts)-1]
	toDir := toParts[:len(toParts)-1]

	common := 0
	for common < len(fromDir) && common < len(toDir) && fromDir[common] == toDir[common] {
		common++
	}
	parts := make([]string, 0, len(fromDir)-common+len(toParts)-common)
	for range len(fromDir) - common {
		parts = append(parts, "..")
	}
	parts = append(parts, toParts[common:]...)
	return strings.Join(parts, "/")
}

func truncateRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

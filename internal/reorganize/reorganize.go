// Package reorganize asks the model to restructure a written output tree and
// applies the file moves it proposes.
package reorganize

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/starford/notex/internal/apperr"
	"github.com/starford/notex/internal/llm"
	"github.com/starford/notex/internal/models"
	"github.com/starford/notex/internal/storage"
)

// SystemPrompt asks for file moves and category splits.
const SystemPrompt = `You are a file organization expert. Given a list of note files, analyze the structure and suggest improvements.

Consider:
1. Are there files that would be better under a different category?
2. Should any categories be split into subcategories?
3. Are there files that fit better under a new category (e.g., "statistics" as its own category vs under "mathematics")?
4. Are there redundant or overlapping categories?

Return JSON:
{
  "file_moves": [
    {"current_path": "machine_learning/tsne.md", "suggested_path": "statistics/dimensionality_reduction/tsne.md", "reason": "t-SNE is a general statistical technique"}
  ],
  "new_categories": [
    {"category": "statistics", "subcategory": "dimensionality_reduction", "affected_files": ["machine_learning/tsne.md", "machine_learning/pca.md"], "reason": "These are general statistical methods applicable beyond ML"}
  ]
}`

// Pass runs one reorganization over an output store.
type Pass struct {
	gateway llm.Gateway
	store   storage.Provider
	out     io.Writer
	logger  *slog.Logger
}

// New returns a Pass that prints its report to out.
func New(gw llm.Gateway, store storage.Provider, out io.Writer, logger *slog.Logger) *Pass {
	if out == nil {
		out = io.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pass{gateway: gw, store: store, out: out, logger: logger}
}

// UserPrompt lists the current tree.
func UserPrompt(files []string) string {
	return "Current file structure:\n" + strings.Join(files, "\n")
}

// Run proposes and applies moves for files (paths relative to the store root)
// and returns the updated, sorted file list. Model or parse failures only log
// a warning. Moves whose source is gone, or whose destination is invalid or
// taken, are skipped. A failed rename is returned as an error.
func (p *Pass) Run(ctx context.Context, files []string) ([]string, error) {
	raw, err := p.gateway.SendJSON(ctx, SystemPrompt, UserPrompt(files))
	if err != nil {
		p.logger.Warn("reorganize: pass failed", slog.String("error", err.Error()))
		return files, nil
	}
	var resp models.ReorgResponse
	if err := llm.DecodeJSON(raw, &resp); err != nil {
		p.logger.Warn("reorganize: cannot parse response", slog.String("error", err.Error()))
		return files, nil
	}
	if len(resp.FileMoves) == 0 && len(resp.NewCategories) == 0 {
		p.logger.Info("reorganize: no reorganization needed")
		return files, nil
	}

	p.report(resp)

	current := make(map[string]struct{}, len(files))
	for _, f := range files {
		current[f] = struct{}{}
	}
	for _, mv := range resp.FileMoves {
		src, okSrc := models.CleanRelPath(mv.CurrentPath)
		dst, okDst := models.CleanRelPath(mv.SuggestedPath)
		if !okSrc || !p.store.Exists(src) {
			p.logger.Debug("reorganize: source missing", slog.String("path", mv.CurrentPath))
			continue
		}
		if !okDst {
			p.logger.Warn("reorganize: invalid destination", slog.String("path", mv.SuggestedPath))
			continue
		}
		if src == dst {
			continue
		}
		if err := p.store.Move(src, dst); err != nil {
			switch {
			case errors.Is(err, apperr.ErrAlreadyExists):
				p.logger.Warn("reorganize: destination exists",
					slog.String("from", src), slog.String("to", dst))
				continue
			case errors.Is(err, apperr.ErrInvalidPath):
				p.logger.Warn("reorganize: invalid path", slog.String("error", err.Error()))
				continue
			}
			return sortedKeys(current), fmt.Errorf("reorganize: move %s: %w", src, err)
		}
		delete(current, src)
		current[dst] = struct{}{}
		p.logger.Info("reorganize: moved", slog.String("from", src), slog.String("to", dst))
	}
	return sortedKeys(current), nil
}

func (p *Pass) report(resp models.ReorgResponse) {
	fmt.Fprint(p.out, "\n=== Reorganization Suggestions ===\n\n")
	if len(resp.FileMoves) > 0 {
		fmt.Fprintln(p.out, "File moves:")
		for _, mv := range resp.FileMoves {
			fmt.Fprintf(p.out, "   %s → %s\n      Reason: %s\n", mv.CurrentPath, mv.SuggestedPath, mv.Reason)
		}
	}
	if len(resp.NewCategories) > 0 {
		fmt.Fprintln(p.out, "\nNew categories:")
		for _, c := range resp.NewCategories {
			name := c.Category
			if c.Subcategory != "" {
				name += "/" + c.Subcategory
			}
			fmt.Fprintf(p.out, "   %s\n      Files: %s\n      Reason: %s\n", name, quoteList(c.AffectedFiles), c.Reason)
		}
	}
}

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = strconv.Quote(s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

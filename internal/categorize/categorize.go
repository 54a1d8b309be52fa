// Package categorize splits a note into categorized segments via the model gateway.
package categorize

import (
	"context"
	"fmt"
	"strings"

	"github.com/starford/notex/internal/apperr"
	"github.com/starford/notex/internal/llm"
	"github.com/starford/notex/internal/models"
)

// SystemPrompt instructs the model how to segment and label a note.
var SystemPrompt = `You are a note categorization assistant. Given a note, extract distinct segments and categorize each.

Available categories (use these exact values):
` + categoryList() + `

For each segment you identify:
1. Extract the relevant content
2. Assign a category from the list above
3. Optionally add a subcategory for more specific organization (e.g., "topology" for mathematics)
4. Suggest output path(s) using format: category/subcategory.md or category/topic.md
5. If content fits multiple subjects, add cross_file_to paths

Return JSON in this exact format:
{
  "segments": [
    {
      "content": "the extracted content here",
      "category": "mathematics",
      "subcategory": "topology",
      "paths": ["mathematics/topology.md"],
      "cross_file_to": []
    }
  ]
}

Rules:
- Keep segment content meaningful and complete
- Preserve important information, links, and references
- If a note has multiple distinct topics, create multiple segments
- If a note is a single coherent piece, create one segment
- Use lowercase for categories and paths
- Preserve any "?" markers as they indicate questions the user had`

// categoryList renders the canonical categories grouped the way the prompt
// presents them.
func categoryList() string {
	groups := [][]models.Category{
		models.KnownCategories[0:6],
		models.KnownCategories[6:9],
		models.KnownCategories[9:13],
		models.KnownCategories[13:16],
		models.KnownCategories[16:20],
		models.KnownCategories[20:],
	}
	lines := make([]string, 0, len(groups))
	for _, g := range groups {
		names := make([]string, len(g))
		for i, c := range g {
			names[i] = c.String()
		}
		lines = append(lines, "- "+strings.Join(names, ", "))
	}
	return strings.Join(lines, "\n")
}

// Error reports a failed categorization of one note.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("categorize %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Categorizer asks the gateway to split notes into segments.
type Categorizer struct {
	gateway llm.Gateway
}

// New returns a Categorizer using gw.
func New(gw llm.Gateway) *Categorizer {
	return &Categorizer{gateway: gw}
}

// UserPrompt builds the per-note user message.
func UserPrompt(note models.Note) string {
	return fmt.Sprintf("Original file path: %s\n\nNote content:\n%s", note.Path, note.Content)
}

// Categorize returns the segments the model extracted from note. A note may
// legitimately yield zero segments.
func (c *Categorizer) Categorize(ctx context.Context, note models.Note) ([]models.Segment, error) {
	raw, err := c.gateway.SendJSON(ctx, SystemPrompt, UserPrompt(note))
	if err != nil {
		return nil, &Error{Path: note.Path, Err: err}
	}
	var resp models.CategorizationResponse
	if err := llm.DecodeJSON(raw, &resp); err != nil {
		return nil, &Error{Path: note.Path, Err: err}
	}
	for i := range resp.Segments {
		resp.Segments[i].Normalize()
	}
	// Normalization can drop every path of a segment; re-check.
	if err := resp.Validate(); err != nil {
		return nil, &Error{Path: note.Path, Err: fmt.Errorf("%w: %v", apperr.ErrParse, err)}
	}
	return resp.Segments, nil
}

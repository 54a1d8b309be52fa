// Package enhance rewrites categorized segments through the model gateway.
package enhance

import (
	"context"
	"fmt"

	"github.com/starford/notex/internal/llm"
	"github.com/starford/notex/internal/models"
)

const markdownInstructions = `Format: Markdown
- Use proper markdown headers (##, ###) for sections
- Use LaTeX for equations: inline $equation$ or block $$equation$$
- Use bullet points and numbered lists appropriately
- Use code blocks with language hints when showing code
- Use **bold** and *italic* for emphasis`

const plainInstructions = `Format: Plain text
- Use simple text headers with underlines or caps
- Use ASCII for equations (e.g., x^2 + y^2 = r^2)
- Use simple - or * for bullet points
- Keep formatting minimal but readable`

const systemPromptTemplate = `You are a note enhancement assistant. Your job is to improve and enrich notes while preserving their meaning.

%s

Enhancement tasks:
1. Fix typos, spelling errors, and grammatical issues
2. For any "?" markers (indicating questions the user had):
   - Provide helpful direction or answer
   - Preserve that it was originally a question using format: "[Q: original question] Your answer/guidance here"
3. Add missing equations where relevant to the topic
4. Suggest 1-2 relevant resources (books, papers, links) if applicable
5. Restructure for clarity while preserving all original information
6. Compress verbose sections while keeping essential details

Rules:
- Do NOT add unrelated information
- Do NOT remove important details
- Do NOT use emojis
- Preserve all links and references from the original
- Keep the same general structure/organization
- Be concise but complete
- Output ONLY the enhanced note content, no meta-commentary`

// SystemPrompt returns the enhancement instructions for format.
func SystemPrompt(format models.OutputFormat) string {
	instructions := markdownInstructions
	if format == models.FormatPlain {
		instructions = plainInstructions
	}
	return fmt.Sprintf(systemPromptTemplate, instructions)
}

// UserPrompt builds the per-segment user message.
func UserPrompt(seg models.Segment) string {
	return fmt.Sprintf("Category: %s (%s)\n\nOriginal note segment:\n%s",
		seg.Category, seg.SubcategoryOr("general"), seg.Content)
}

// Error reports a failed enhancement of one segment.
type Error struct {
	SourcePath string
	Category   models.Category
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("enhance %s (%s): %v", e.SourcePath, e.Category, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Enhancer asks the gateway to rewrite segments.
type Enhancer struct {
	gateway llm.Gateway
}

// New returns an Enhancer using gw.
func New(gw llm.Gateway) *Enhancer {
	return &Enhancer{gateway: gw}
}

// Enhance rewrites seg for format. The result targets every primary and
// cross-file path of seg.
func (e *Enhancer) Enhance(ctx context.Context, seg models.Segment, sourcePath string, format models.OutputFormat) (models.EnhancedSegment, error) {
	content, err := e.gateway.Send(ctx, SystemPrompt(format), UserPrompt(seg))
	if err != nil {
		return models.EnhancedSegment{}, &Error{SourcePath: sourcePath, Category: seg.Category, Err: err}
	}
	return models.EnhancedSegment{
		SourcePath:  sourcePath,
		Content:     content,
		Category:    seg.Category,
		Subcategory: seg.Subcategory,
		TargetPaths: seg.TargetPaths(),
	}, nil
}

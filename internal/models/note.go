// Package models defines the domain types for notex.
package models

import (
	"path"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Note is one discovered input file.
type Note struct {
	Path    string
	Content string
}

// Segment is a categorized unit of content extracted from a note by the model.
type Segment struct {
	Content     string   `json:"content"`
	Category    Category `json:"category"`
	Subcategory string   `json:"subcategory,omitempty"`
	Paths       []string `json:"paths"`
	CrossFileTo []string `json:"cross_file_to,omitempty"`
}

// Normalize cleans every output path and drops those that cannot live under
// an output root (absolute, escaping, or empty).
func (s *Segment) Normalize() {
	s.Subcategory = strings.TrimSpace(s.Subcategory)
	s.Paths = cleanPaths(s.Paths)
	s.CrossFileTo = cleanPaths(s.CrossFileTo)
}

// Validate checks the segment against the categorization schema.
func (s Segment) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Category),
		validation.Field(&s.Paths, validation.Required, validation.Each(validation.Required)),
	)
}

// SubcategoryOr returns the subcategory or fallback when none was given.
func (s Segment) SubcategoryOr(fallback string) string {
	if s.Subcategory == "" {
		return fallback
	}
	return s.Subcategory
}

// TargetPaths returns Paths followed by CrossFileTo, without duplicates.
func (s Segment) TargetPaths() []string {
	seen := make(map[string]struct{}, len(s.Paths)+len(s.CrossFileTo))
	out := make([]string, 0, len(s.Paths)+len(s.CrossFileTo))
	for _, list := range [][]string{s.Paths, s.CrossFileTo} {
		for _, p := range list {
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

// CategorizationResponse is the JSON document returned by the categorization call.
type CategorizationResponse struct {
	Segments []Segment `json:"segments"`
}

// Validate requires the segments array to be present and every segment to be valid.
func (r CategorizationResponse) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Segments, validation.NotNil),
	)
}

// EnhancedSegment is a segment whose content has been rewritten by the model.
type EnhancedSegment struct {
	SourcePath  string
	Content     string
	Category    Category
	Subcategory string
	TargetPaths []string
}

// FileMeta is a lightweight description of a file in the output tree.
type FileMeta struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Link is a directed edge between two output files.
type Link struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"` // "wikilink" or "markdown"
}

// CleanRelPath normalises p into a slash-separated path relative to an output
// root. ok is false when p is empty or would escape the root.
func CleanRelPath(p string) (clean string, ok bool) {
	p = strings.TrimSpace(strings.ReplaceAll(p, "\\", "/"))
	p = strings.TrimLeft(p, "/")
	if p == "" {
		return "", false
	}
	clean = path.Clean(p)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", false
	}
	return clean, true
}

func cleanPaths(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, p := range in {
		if c, ok := CleanRelPath(p); ok {
			out = append(out, c)
		}
	}
	return out
}

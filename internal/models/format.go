package models

import (
	"fmt"
	"strings"
)

// OutputFormat selects how enhanced content is rendered and joined.
type OutputFormat string

// Supported output formats.
const (
	FormatMarkdown OutputFormat = "markdown"
	FormatPlain    OutputFormat = "plain"
)

// ParseOutputFormat accepts "markdown" or "plain" (case-insensitive).
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case FormatMarkdown, "md", "":
		return FormatMarkdown, nil
	case FormatPlain, "text", "txt":
		return FormatPlain, nil
	}
	return "", fmt.Errorf("unknown output format %q (want markdown or plain)", s)
}

// Separator is placed between segments that share an output file.
func (f OutputFormat) Separator() string {
	if f == FormatPlain {
		return "\n\n" + strings.Repeat("=", 80) + "\n\n"
	}
	return "\n\n---\n\n"
}

// OutputPath maps a model-proposed path onto the on-disk name for this format.
// Plain output swaps a trailing .md for .txt.
func (f OutputFormat) OutputPath(p string) string {
	if f == FormatPlain && strings.HasSuffix(p, ".md") {
		return strings.TrimSuffix(p, ".md") + ".txt"
	}
	return p
}

// String implements fmt.Stringer.
func (f OutputFormat) String() string { return string(f) }

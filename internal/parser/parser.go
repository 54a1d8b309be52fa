// Package parser extracts titles, tags and links from generated notes.
package parser

import (
	"bytes"
	"net/url"
	"path"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Link kinds.
const (
	KindWikilink = "wikilink"
	KindMarkdown = "markdown"
)

var (
	wikilinkRe = regexp.MustCompile(`\[\[(.*?)\]\]`)
	mdLinkRe   = regexp.MustCompile(`\[[^\]]*\]\(([^)\s]+)(?:\s+"[^"]*")?\)`)
	tagRe      = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)
	headingRe  = regexp.MustCompile(`^(#{1,6})\s+(.+?)\s*#*$`)
)

// Link is an outgoing reference as written in the note, before resolution.
type Link struct {
	Target string
	Kind   string
}

// Result holds the output of parsing a note.
type Result struct {
	Frontmatter map[string]any
	Body        string
	Links       []Link
	Tags        []string
	Title       string
}

// Parse extracts frontmatter, body, links and tags from raw note bytes.
// Plain-text notes parse fine; they simply carry fewer signals.
func Parse(data []byte) (*Result, error) {
	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}
	return &Result{
		Frontmatter: fm,
		Body:        body,
		Links:       extractLinks(body),
		Tags:        extractTags(body, fm),
		Title:       deriveTitle(fm, body),
	}, nil
}

// Resolve maps a link found in the note at source onto an output-root path.
// ok is false for external URLs, in-page anchors and paths escaping the root.
func Resolve(source string, l Link) (target string, ok bool) {
	t := l.Target
	if i := strings.IndexAny(t, "#?"); i >= 0 {
		t = t[:i]
	}
	if t == "" {
		return "", false
	}
	switch l.Kind {
	case KindWikilink:
		if path.Ext(t) == "" {
			t += ".md"
		}
	case KindMarkdown:
		if u, err := url.Parse(t); err != nil || u.Scheme != "" || strings.HasPrefix(t, "/") {
			return "", false
		}
		if un, err := url.PathUnescape(t); err == nil {
			t = un
		}
		t = path.Join(path.Dir(source), t)
	}
	t = path.Clean(t)
	if t == "." || t == ".." || strings.HasPrefix(t, "../") {
		return "", false
	}
	return t, true
}

func splitFrontmatter(data []byte) (map[string]any, string, error) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim+"\n")) {
		return nil, string(data), nil
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data), nil
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]any
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil || fm == nil {
		// Not YAML: most likely a leading horizontal rule.
		return nil, string(data), nil
	}
	return fm, body, nil
}

// extractLinks returns deduplicated wikilink and markdown link targets in
// order of appearance. Aliases ([[Target|Alias]]) are dropped.
func extractLinks(body string) []Link {
	seen := make(map[Link]struct{})
	var out []Link
	add := func(l Link) {
		if l.Target == "" {
			return
		}
		if _, ok := seen[l]; ok {
			return
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	for _, m := range wikilinkRe.FindAllStringSubmatch(body, -1) {
		target, _, _ := strings.Cut(m[1], "|")
		add(Link{Target: strings.TrimSpace(target), Kind: KindWikilink})
	}
	for _, m := range mdLinkRe.FindAllStringSubmatch(body, -1) {
		add(Link{Target: strings.TrimSpace(m[1]), Kind: KindMarkdown})
	}
	return out
}

// extractTags collects #tags from the body and the frontmatter "tags" list.
func extractTags(body string, fm map[string]any) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	if list, ok := fm["tags"].([]any); ok {
		for _, item := range list {
			if s, ok := item.(string); ok {
				add(s)
			}
		}
	}
	inCode := false
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inCode = !inCode
			continue
		}
		if inCode || headingRe.MatchString(strings.TrimSpace(line)) {
			continue
		}
		for _, m := range tagRe.FindAllStringSubmatch(line, -1) {
			add(m[1])
		}
	}
	return out
}

// deriveTitle prefers frontmatter "title", then the highest-level heading
// (first one wins on ties), then "".
func deriveTitle(fm map[string]any, body string) string {
	if s, ok := fm["title"].(string); ok && s != "" {
		return s
	}
	best, bestLevel := "", 7
	for _, line := range strings.Split(body, "\n") {
		m := headingRe.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		if level := len(m[1]); level < bestLevel {
			best, bestLevel = m[2], level
			if level == 1 {
				break
			}
		}
	}
	return best
}

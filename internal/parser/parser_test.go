package parser

import (
	"testing"
)

func TestParse_FrontmatterAndBody(t *testing.T) {
	input := []byte("---\ntitle: Hello\ntags:\n  - go\n  - notes\n---\n# Hello\nBody text.\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Title != "Hello" {
		t.Errorf("title = %q, want %q", r.Title, "Hello")
	}
	if len(r.Tags) < 2 || r.Tags[0] != "go" || r.Tags[1] != "notes" {
		t.Errorf("tags = %v, want [go notes]", r.Tags)
	}
	if r.Body != "# Hello\nBody text.\n" {
		t.Errorf("body = %q", r.Body)
	}
}

func TestParse_LeadingRuleIsNotFrontmatter(t *testing.T) {
	input := []byte("---\n\nplain paragraph\n\n---\n\nmore\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("frontmatter = %v", r.Frontmatter)
	}
	if r.Body != string(input) {
		t.Errorf("body = %q", r.Body)
	}
}

func TestParse_SeeAlsoBlock(t *testing.T) {
	input := []byte("## Backpropagation\n\nGradients flow backwards.\n\n---\n\n**See also:** [mathematics/calculus/chain_rule.md](./../mathematics/calculus/chain_rule.md) - uses the chain rule\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Title != "Backpropagation" {
		t.Errorf("title = %q", r.Title)
	}
	if len(r.Links) != 1 || r.Links[0].Kind != KindMarkdown {
		t.Fatalf("links = %+v", r.Links)
	}
	target, ok := Resolve("machine_learning/backprop.md", r.Links[0])
	if !ok || target != "mathematics/calculus/chain_rule.md" {
		t.Errorf("resolved = %q, %v", target, ok)
	}
}

func TestExtractLinks_Mixed(t *testing.T) {
	body := "See [[Note A]] and [[Note B|alias]].\nAlso [[Note A]] again, [docs](https://example.com) and [b](b.md \"title\")."
	links := extractLinks(body)
	if len(links) != 4 {
		t.Fatalf("links = %+v", links)
	}
	if links[0].Target != "Note A" || links[1].Target != "Note B" {
		t.Errorf("wikilinks = %+v", links[:2])
	}
	if links[3].Target != "b.md" || links[3].Kind != KindMarkdown {
		t.Errorf("markdown link = %+v", links[3])
	}
}

func TestExtractLinks_EmptyTarget(t *testing.T) {
	links := extractLinks("see [[ ]] and [[|alias]]")
	if len(links) != 0 {
		t.Errorf("expected no links, got %v", links)
	}
}

func TestResolve(t *testing.T) {
	cases := []struct {
		source string
		link   Link
		want   string
		ok     bool
	}{
		{"a/b.md", Link{"c.md", KindMarkdown}, "a/c.md", true},
		{"a/b.md", Link{"../x/y.md#sec", KindMarkdown}, "x/y.md", true},
		{"a/b.md", Link{"https://example.com", KindMarkdown}, "", false},
		{"a/b.md", Link{"#local", KindMarkdown}, "", false},
		{"a/b.md", Link{"../../escape.md", KindMarkdown}, "", false},
		{"a/b.md", Link{"ideas/Plan", KindWikilink}, "ideas/Plan.md", true},
		{"a/b.md", Link{"notes/x.txt", KindWikilink}, "notes/x.txt", true},
	}
	for _, tc := range cases {
		got, ok := Resolve(tc.source, tc.link)
		if got != tc.want || ok != tc.ok {
			t.Errorf("Resolve(%q, %+v) = %q, %v; want %q, %v", tc.source, tc.link, got, ok, tc.want, tc.ok)
		}
	}
}

func TestExtractTags_InlineAndFrontmatter(t *testing.T) {
	fm := map[string]any{
		"tags": []any{"alpha"},
	}
	body := "Some text #beta and #alpha again.\n```\n#notatag\n```\n"
	tags := extractTags(body, fm)
	if len(tags) != 2 || tags[0] != "alpha" || tags[1] != "beta" {
		t.Errorf("tags = %v, want [alpha beta]", tags)
	}
}

func TestDeriveTitle_FrontmatterOverHeading(t *testing.T) {
	fm := map[string]any{"title": "FM Title"}
	title := deriveTitle(fm, "# H1 Title\ntext")
	if title != "FM Title" {
		t.Errorf("title = %q, want %q", title, "FM Title")
	}
}

func TestDeriveTitle_HighestLevelHeading(t *testing.T) {
	title := deriveTitle(nil, "some text\n### Minor\n## Major\n## Later\nmore")
	if title != "Major" {
		t.Errorf("title = %q, want %q", title, "Major")
	}
}

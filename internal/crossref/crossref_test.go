package crossref

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/starford/notex/internal/models"
	"github.com/starford/notex/internal/testutil"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestRelativePath(t *testing.T) {
	cases := []struct{ from, to, want string }{
		{"machine_learning/backprop.md", "mathematics/calculus/chain_rule.md", "../mathematics/calculus/chain_rule.md"},
		{"mathematics/a.md", "mathematics/b.md", "b.md"},
		{"mathematics/calculus/a.md", "mathematics/b.md", "../b.md"},
		{"a.md", "physics/optics.md", "physics/optics.md"},
		{"a/b/c.md", "x.md", "../../x.md"},
		{"a/x.md", "a/x.md", "x.md"},
		{"a/b.md", "a/b/c.md", "b/c.md"},
	}
	for _, tc := range cases {
		if got := RelativePath(tc.from, tc.to); got != tc.want {
			t.Errorf("RelativePath(%q, %q) = %q, want %q", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestRunAppendsLinkBlock(t *testing.T) {
	_, store := testutil.TestVault(t)
	_ = store.Write("machine_learning/backprop.md", []byte("Backprop notes\n"))
	_ = store.Write("mathematics/calculus/chain_rule.md", []byte("Chain rule\n"))
	gw := &testutil.Gateway{Respond: func(system, user string) (string, error) {
		return "```json\n" + `{"references":[
			{"from_file":"machine_learning/backprop.md","to_file":"mathematics/calculus/chain_rule.md","context":"Backpropagation uses the chain rule"},
			{"from_file":"ghost.md","to_file":"mathematics/calculus/chain_rule.md","context":"stale"}
		]}` + "\n```", nil
	}}
	var out bytes.Buffer

	applied, err := New(gw, store, &out, quiet).Run(context.Background(),
		[]string{"mathematics/calculus/chain_rule.md", "machine_learning/backprop.md"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(applied) != 1 {
		t.Fatalf("applied = %+v", applied)
	}
	got, _ := store.Read("machine_learning/backprop.md")
	want := "Backprop notes\n\n\n---\n\n**See also:** [mathematics/calculus/chain_rule.md](./../mathematics/calculus/chain_rule.md) - Backpropagation uses the chain rule\n"
	if string(got) != want {
		t.Errorf("content = %q", got)
	}
	if store.Exists("ghost.md") {
		t.Error("missing source was created")
	}
	if !strings.Contains(out.String(), "=== Cross-References Added ===") {
		t.Errorf("report = %q", out.String())
	}

	user := gw.Calls()[0].User
	if !strings.HasPrefix(user, "Notes to analyze:\n\n=== machine_learning/backprop.md ===\nBackprop notes\n") {
		t.Errorf("user prompt = %q", user)
	}
}

func TestSummariesTruncateByRune(t *testing.T) {
	_, store := testutil.TestVault(t)
	_ = store.Write("long.md", []byte(strings.Repeat("é", SummaryRunes+20)))
	p := New(&testutil.Gateway{}, store, nil, quiet)
	sums := p.Summaries([]string{"long.md", "missing.md"})
	if len(sums) != 1 {
		t.Fatalf("summaries = %d", len(sums))
	}
	if n := len([]rune(sums[0].Text)); n != SummaryRunes {
		t.Errorf("runes = %d", n)
	}
}

func TestRunDegradesOnMalformedReply(t *testing.T) {
	_, store := testutil.TestVault(t)
	_ = store.Write("a.md", []byte("a\n"))
	gw := &testutil.Gateway{Respond: func(string, string) (string, error) { return `{"refs":`, nil }}
	applied, err := New(gw, store, io.Discard, quiet).Run(context.Background(), []string{"a.md"})
	if err != nil || applied != nil {
		t.Fatalf("applied=%v err=%v", applied, err)
	}
	got, _ := store.Read("a.md")
	if string(got) != "a\n" {
		t.Errorf("file modified: %q", got)
	}
}

func TestLinkBlockSameDirectory(t *testing.T) {
	got := LinkBlock(models.CrossReference{FromFile: "m/a.md", ToFile: "m/b.md", Context: "related"})
	if got != "\n\n---\n\n**See also:** [m/b.md](./b.md) - related\n" {
		t.Errorf("LinkBlock = %q", got)
	}
}

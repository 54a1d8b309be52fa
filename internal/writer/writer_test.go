package writer

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/starford/notex/internal/models"
	"github.com/starford/notex/internal/testutil"
)

func seg(content string, paths ...string) models.EnhancedSegment {
	return models.EnhancedSegment{Content: content, Category: models.Ideas, TargetPaths: paths}
}

func TestGroupFansOut(t *testing.T) {
	groups := Group([]models.EnhancedSegment{
		seg("one", "a.md", "b.md"),
		seg("two", "b.md"),
	}, models.FormatMarkdown)
	if len(groups["a.md"]) != 1 || groups["a.md"][0].Content != "one" {
		t.Errorf("a.md = %+v", groups["a.md"])
	}
	if len(groups["b.md"]) != 2 || groups["b.md"][0].Content != "one" || groups["b.md"][1].Content != "two" {
		t.Errorf("b.md = %+v", groups["b.md"])
	}
}

func TestRenderSeparatorsAndNewline(t *testing.T) {
	segs := []models.EnhancedSegment{seg("first\n\n"), seg("second\n\n\n")}
	if got := Render(segs, models.FormatMarkdown); got != "first\n\n\n\n---\n\nsecond\n" {
		t.Errorf("markdown = %q", got)
	}
	plain := Render(segs, models.FormatPlain)
	if !strings.Contains(plain, "\n\n"+strings.Repeat("=", 80)+"\n\n") || !strings.HasSuffix(plain, "second\n") {
		t.Errorf("plain = %q", plain)
	}
	if got := Render([]models.EnhancedSegment{seg("solo")}, models.FormatMarkdown); got != "solo\n" {
		t.Errorf("single = %q", got)
	}
}

func TestWriteConcatenatesSharedPaths(t *testing.T) {
	_, store := testutil.TestVault(t)
	groups := Group([]models.EnhancedSegment{
		seg("alpha", "math/a.md", "shared.md"),
		seg("beta", "shared.md"),
	}, models.FormatMarkdown)
	written, err := Write(store, groups, models.FormatMarkdown)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if len(written) != 2 || written[0] != "math/a.md" || written[1] != "shared.md" {
		t.Fatalf("written = %v", written)
	}
	got, _ := store.Read("shared.md")
	if string(got) != "alpha\n\n---\n\nbeta\n" {
		t.Errorf("shared.md = %q", got)
	}
}

func TestWritePlainMapsExtension(t *testing.T) {
	_, store := testutil.TestVault(t)
	groups := Group([]models.EnhancedSegment{
		seg("x", "notes/a.md"),
		seg("y", "notes/a.txt"),
	}, models.FormatPlain)
	written, err := Write(store, groups, models.FormatPlain)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if len(written) != 1 || written[0] != "notes/a.txt" {
		t.Fatalf("written = %v", written)
	}
	got, _ := store.Read("notes/a.txt")
	if !strings.HasPrefix(string(got), "x\n\n===") || !strings.HasSuffix(string(got), "y\n") {
		t.Errorf("content = %q", got)
	}
}

func TestWriteOrderStable(t *testing.T) {
	ordered := []models.EnhancedSegment{
		seg("s0", "a.md", "b.md"),
		seg("s1", "b.md"),
		seg("s2", "a.md"),
		seg("s3", "c.md", "a.md"),
	}
	render := func(segs []models.EnhancedSegment) map[string]string {
		_, store := testutil.TestVault(t)
		written, err := Write(store, Group(segs, models.FormatMarkdown), models.FormatMarkdown)
		if err != nil {
			t.Fatalf("Write: %v", err)
		}
		out := make(map[string]string)
		for _, p := range written {
			b, _ := store.Read(p)
			out[p] = string(b)
		}
		return out
	}
	want := render(ordered)

	// Simulate arbitrary completion order followed by the index sort the
	// pipeline performs before grouping.
	type tagged struct {
		idx int
		seg models.EnhancedSegment
	}
	for range 5 {
		shuffled := make([]tagged, len(ordered))
		for i, s := range ordered {
			shuffled[i] = tagged{i, s}
		}
		rand.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		restored := make([]models.EnhancedSegment, len(ordered))
		for _, ts := range shuffled {
			restored[ts.idx] = ts.seg
		}
		got := render(restored)
		for p, w := range want {
			if got[p] != w {
				t.Fatalf("%s differs:\n%q\n%q", p, got[p], w)
			}
		}
	}
}

func TestGroupPlainDedupesCollidingTargets(t *testing.T) {
	_, store := testutil.TestVault(t)
	groups := Group([]models.EnhancedSegment{
		seg("first", "b.txt"),
		seg("only once", "a.md", "a.txt"),
		seg("last", "a.txt", "b.md"),
	}, models.FormatPlain)
	if _, ok := groups["a.md"]; ok {
		t.Fatalf("plain groups kept a .md key: %v", groups.Paths())
	}
	if _, err := Write(store, groups, models.FormatPlain); err != nil {
		t.Fatalf("Write: %v", err)
	}
	sep := "\n\n" + strings.Repeat("=", 80) + "\n\n"
	a, _ := store.Read("a.txt")
	if string(a) != "only once"+sep+"last\n" {
		t.Errorf("a.txt = %q", a)
	}
	b, _ := store.Read("b.txt")
	if string(b) != "first"+sep+"last\n" {
		t.Errorf("b.txt = %q", b)
	}
}

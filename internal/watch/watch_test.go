package watch

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type counter struct{ n atomic.Int32 }

func (c *counter) run(context.Context) error {
	c.n.Add(1)
	return nil
}

func start(t *testing.T, opts Options, fn func(context.Context) error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, opts, fn) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Run: %v", err)
		}
	})
	time.Sleep(100 * time.Millisecond)
}

func eventually(t *testing.T, timeout time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Error(msg)
}

func TestBurstCoalescesIntoOneRun(t *testing.T) {
	root := t.TempDir()
	c := &counter{}
	start(t, Options{Root: root, Debounce: 150 * time.Millisecond, Logger: quiet}, c.run)

	for i := 0; i < 5; i++ {
		_ = os.WriteFile(filepath.Join(root, "note.md"), []byte{byte('a' + i)}, 0o644)
	}
	eventually(t, 3*time.Second, func() bool { return c.n.Load() >= 1 }, "no run after change")
	time.Sleep(400 * time.Millisecond)
	if got := c.n.Load(); got != 1 {
		t.Errorf("runs = %d, want 1", got)
	}
}

func TestIgnoresHiddenAndSkippedDirs(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "compressed")
	if err := os.MkdirAll(out, 0o755); err != nil {
		t.Fatal(err)
	}
	c := &counter{}
	start(t, Options{Root: root, SkipDirs: []string{out}, Debounce: 50 * time.Millisecond, Logger: quiet}, c.run)

	_ = os.WriteFile(filepath.Join(root, ".hidden"), []byte("x"), 0o644)
	_ = os.WriteFile(filepath.Join(out, "ideas.md"), []byte("x"), 0o644)
	time.Sleep(300 * time.Millisecond)
	if got := c.n.Load(); got != 0 {
		t.Fatalf("runs = %d, want 0", got)
	}

	_ = os.WriteFile(filepath.Join(root, "visible.md"), []byte("x"), 0o644)
	eventually(t, 3*time.Second, func() bool { return c.n.Load() == 1 }, "visible change did not trigger a run")
}

func TestNewDirectoryIsWatched(t *testing.T) {
	root := t.TempDir()
	c := &counter{}
	start(t, Options{Root: root, Debounce: 50 * time.Millisecond, Logger: quiet}, c.run)

	sub := filepath.Join(root, "journal")
	_ = os.MkdirAll(sub, 0o755)
	eventually(t, 3*time.Second, func() bool { return c.n.Load() == 1 }, "mkdir did not trigger a run")

	time.Sleep(100 * time.Millisecond)
	_ = os.WriteFile(filepath.Join(sub, "day.md"), []byte("x"), 0o644)
	eventually(t, 3*time.Second, func() bool { return c.n.Load() == 2 }, "file in new dir did not trigger a run")
}

func TestInitialRun(t *testing.T) {
	c := &counter{}
	start(t, Options{Root: t.TempDir(), Initial: true, Logger: quiet}, c.run)
	if got := c.n.Load(); got != 1 {
		t.Errorf("runs = %d, want 1", got)
	}
}

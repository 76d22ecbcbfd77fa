package advconfig

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestWatcherReportsWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	writeFile(t, path, "a: 1\n")

	watcher, err := NewWatcher(path,
		WithDebounceDelay(10*time.Millisecond),
		WithReloadLimit(0, 0),
		WithWatcherLogger(zaptest.NewLogger(t)),
	)
	if err != nil {
		t.Fatalf("NewWatcher returned error: %v", err)
	}
	t.Cleanup(func() {
		_ = watcher.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 8)
	done := make(chan error, 1)
	go func() {
		done <- watcher.Watch(ctx, func() {
			changed <- struct{}{}
		})
	}()

	writeFile(t, filepath.Join(filepath.Dir(path), "other.yml"), "b: 2\n")
	writeFile(t, path, "a: 2\n")

	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected change notification")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Watch returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Watch did not return after cancel")
	}
}

func TestWatcherDrivesStoreReload(t *testing.T) {
	players := 20
	registry := NewRegistry()
	registry.Register(NewGroup("limits", Bind("limits.players", &players)))
	store := newTestStore(t, registry)
	if _, err := store.Load(); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	watcher, err := NewWatcher(store.Path(), WithDebounceDelay(10*time.Millisecond), WithReloadLimit(0, 0))
	if err != nil {
		t.Fatalf("NewWatcher returned error: %v", err)
	}
	t.Cleanup(func() {
		_ = watcher.Close()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	reloaded := make(chan int, 8)
	go func() {
		_ = watcher.Watch(ctx, func() {
			if _, err := store.Reload(); err == nil {
				reloaded <- players
			}
		})
	}()

	if err := os.WriteFile(store.Path(), []byte("limits:\n  players: 42\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	for {
		select {
		case got := <-reloaded:
			if got == 42 {
				return
			}
		case <-ctx.Done():
			t.Fatalf("store was not reloaded with the external edit")
		}
	}
}

func TestWatcherClose(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	path := filepath.Join(t.TempDir(), "config.yml")
	writeFile(t, path, "")

	watcher, err := NewWatcher(path)
	if err != nil {
		t.Fatalf("NewWatcher returned error: %v", err)
	}
	if err := watcher.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if err := watcher.Close(); !errors.Is(err, ErrWatcherClosed) {
		t.Fatalf("expected ErrWatcherClosed, got %v", err)
	}
	if err := watcher.Watch(context.Background(), func() {}); !errors.Is(err, ErrWatcherClosed) {
		t.Fatalf("expected ErrWatcherClosed from Watch, got %v", err)
	}
}

func TestWatcherDelaysRateLimitedChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	writeFile(t, path, "a: 1\n")

	watcher, err := NewWatcher(path,
		WithDebounceDelay(20*time.Millisecond),
		WithReloadLimit(1, 1),
		WithWatcherLogger(zaptest.NewLogger(t)),
	)
	if err != nil {
		t.Fatalf("NewWatcher returned error: %v", err)
	}
	t.Cleanup(func() {
		_ = watcher.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	contents := make(chan string, 8)
	go func() {
		_ = watcher.Watch(ctx, func() {
			data, err := os.ReadFile(path)
			if err == nil {
				contents <- string(data)
			}
		})
	}()

	writeFile(t, path, "a: 2\n")
	select {
	case got := <-contents:
		if got != "a: 2\n" {
			t.Fatalf("expected first change, got %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("expected first change notification")
	}

	// The limiter has no token left for the second edit.
	writeFile(t, path, "a: 3\n")
	deadline := time.After(3 * time.Second)
	for {
		select {
		case got := <-contents:
			if got == "a: 3\n" {
				return
			}
		case <-deadline:
			t.Fatalf("expected the rate limited edit to be delivered")
		}
	}
}

package storage

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/eugenenazirov/advconfig/advconfig"
)

func newLoadedStore(t *testing.T, players *int) *LockedStore {
	t.Helper()

	registry := advconfig.NewRegistry()
	registry.Register(advconfig.NewGroup("limits", advconfig.Bind("limits.players", players)))
	store := advconfig.New(t.TempDir(), "", "config", registry)
	if _, err := store.Load(); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	return NewLockedStore(store)
}

func TestValuesReturnsFlattenedDocument(t *testing.T) {
	t.Parallel()

	players := 20
	store := newLoadedStore(t, &players)

	values, err := store.Values()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := values["limits.players"]; got != 20 {
		t.Fatalf("expected limits.players 20, got %v", got)
	}

	got, ok, err := store.Value("limits.players")
	if err != nil || !ok || got != 20 {
		t.Fatalf("unexpected Value result %v %v %v", got, ok, err)
	}
	if _, ok, err := store.Value("limits.missing"); err != nil || ok {
		t.Fatalf("expected missing value, got ok=%v err=%v", ok, err)
	}
}

func TestSetValueUpdatesFileAndBindings(t *testing.T) {
	t.Parallel()

	players := 20
	store := newLoadedStore(t, &players)

	if err := store.SetValue("limits.players", 64); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if players != 64 {
		t.Fatalf("expected bound value to follow the update, got %d", players)
	}

	data, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "limits:\n  players: 64\n" {
		t.Fatalf("unexpected file content %q", data)
	}
}

func TestSetValueRejectsInvalidPath(t *testing.T) {
	t.Parallel()

	players := 20
	store := newLoadedStore(t, &players)
	if err := store.SetValue("limits..players", 1); !errors.Is(err, ErrInvalidPath) {
		t.Fatalf("expected ErrInvalidPath, got %v", err)
	}
}

func TestUnloadedStoreReportsError(t *testing.T) {
	t.Parallel()

	store := NewLockedStore(advconfig.New(t.TempDir(), "", "config", nil))
	if _, err := store.Values(); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("expected ErrNotLoaded, got %v", err)
	}
	if _, err := os.Stat(store.Path()); !os.IsNotExist(err) {
		t.Fatalf("reads must not create the file, stat err: %v", err)
	}
}

func TestLockedStoreConcurrentAccess(t *testing.T) {
	players := 20
	store := newLoadedStore(t, &players)
	var wg sync.WaitGroup

	for i := 0; i < 16; i++ {
		wg.Add(2)

		go func(offset int) {
			defer wg.Done()
			if err := store.SetValue(fmt.Sprintf("extra.key%d", offset), offset); err != nil {
				t.Errorf("SetValue failed: %v", err)
			}
		}(i)

		go func() {
			defer wg.Done()
			if _, err := store.Values(); err != nil {
				t.Errorf("Values failed: %v", err)
			}
		}()
	}

	wg.Wait()

	values, err := store.Values()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := values["extra.key15"]; got != 15 {
		t.Fatalf("expected extra.key15 = 15, got %v", got)
	}
}

func TestValueRejectsInvalidPath(t *testing.T) {
	t.Parallel()

	players := 20
	store := newLoadedStore(t, &players)

	if _, _, err := store.Value("limits..players"); !errors.Is(err, ErrInvalidPath) {
		t.Fatalf("expected ErrInvalidPath, got %v", err)
	}
}

func TestUnboundStoreStaysLoadedAfterWrites(t *testing.T) {
	t.Parallel()

	raw := advconfig.New(t.TempDir(), "", "config", advconfig.NewRegistry())
	if _, err := raw.Document(); err != nil {
		t.Fatalf("Document returned error: %v", err)
	}
	store := NewLockedStore(raw)

	if err := store.SetValue("motd", "hi"); err != nil {
		t.Fatalf("SetValue returned error: %v", err)
	}
	got, ok, err := store.Value("motd")
	if err != nil || !ok || got != "hi" {
		t.Fatalf("expected motd=hi after write, got %v %v %v", got, ok, err)
	}

	if _, err := store.Reload(); err != nil {
		t.Fatalf("Reload returned error: %v", err)
	}
	values, err := store.Values()
	if err != nil {
		t.Fatalf("Values after reload returned error: %v", err)
	}
	if values["motd"] != "hi" {
		t.Fatalf("expected motd to survive reload, got %v", values)
	}
}

func TestReloadOfUnboundMalformedFileFails(t *testing.T) {
	t.Parallel()

	raw := advconfig.New(t.TempDir(), "", "config", advconfig.NewRegistry())
	if _, err := raw.Document(); err != nil {
		t.Fatalf("Document returned error: %v", err)
	}
	store := NewLockedStore(raw)
	if err := os.WriteFile(store.Path(), []byte("key: [unterminated\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := store.Reload(); err == nil {
		t.Fatalf("expected reload of a malformed file to fail")
	}
	if _, err := store.Values(); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("expected ErrNotLoaded after failed reload, got %v", err)
	}
}

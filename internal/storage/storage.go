package storage

import (
	"errors"
	"fmt"
	"sync"

	"github.com/eugenenazirov/advconfig/advconfig"
	"github.com/eugenenazirov/advconfig/document"
)

var (
	// ErrNotLoaded indicates the config file has not been loaded successfully yet.
	ErrNotLoaded = errors.New("config file is not loaded")
	// ErrInvalidPath indicates the requested path is malformed.
	ErrInvalidPath = document.ErrInvalidPath
)

// Storage provides concurrent access to one managed config file.
type Storage interface {
	Values() (map[string]any, error)
	Value(path string) (any, bool, error)
	SetValue(path string, value any) error
	Reload() (advconfig.Report, error)
	Path() string
}

// LockedStore serializes access to an advconfig.Store, which is not safe for
// concurrent use, behind a RWMutex.
type LockedStore struct {
	mu    sync.RWMutex
	store *advconfig.Store
}

// NewLockedStore wraps store. The store should have been loaded already.
func NewLockedStore(store *advconfig.Store) *LockedStore {
	return &LockedStore{store: store}
}

// Path returns the location of the managed file.
func (s *LockedStore) Path() string {
	return s.store.Path()
}

// Values returns every leaf value keyed by dotted path.
func (s *LockedStore) Values() (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, err := s.document()
	if err != nil {
		return nil, err
	}
	return doc.Values(true), nil
}

// Value returns the value at path and whether it exists.
func (s *LockedStore) Value(path string) (any, bool, error) {
	if err := document.ValidatePath(path); err != nil {
		return nil, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, err := s.document()
	if err != nil {
		return nil, false, err
	}
	if !doc.Contains(path) {
		return nil, false, nil
	}
	return doc.Get(path, nil), true, nil
}

// SetValue stores value at path, saves the file and reloads the bindings so
// bound targets observe the new value.
func (s *LockedStore) SetValue(path string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.document()
	if err != nil {
		return err
	}
	if err := doc.Set(path, value); err != nil {
		return err
	}
	if err := s.store.Save(); err != nil {
		return err
	}
	if _, err := s.reload(); err != nil {
		return fmt.Errorf("reload after update: %w", err)
	}
	return nil
}

// Reload re-reads the file and re-runs the binding pass. The document stays
// open afterwards even when no field is bound.
func (s *LockedStore) Reload() (advconfig.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.reload()
}

// reload must be called with the write lock held. Store.Reload only reopens
// the document for bound fields, so it is opened explicitly here.
func (s *LockedStore) reload() (advconfig.Report, error) {
	report, err := s.store.Reload()
	if err != nil {
		return report, err
	}
	if _, err := s.store.Document(); err != nil {
		return report, err
	}
	return report, nil
}

// document must be called with the lock held. It never triggers the lazy
// creation of the store document, which would mutate the store under a read lock.
func (s *LockedStore) document() (*document.Document, error) {
	if !s.store.Loaded() {
		return nil, ErrNotLoaded
	}
	return s.store.Document()
}

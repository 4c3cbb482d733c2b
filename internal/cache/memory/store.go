// Package memory contains an in-memory report cache for tests and local
// development.
package memory

import (
	"context"
	"sync"

	"github.com/sitegrade/sitegrade/internal/cache"
	"github.com/sitegrade/sitegrade/internal/grade"
)

// Store keeps entries in a map guarded by a mutex.
type Store struct {
	mu      sync.RWMutex
	entries map[string]grade.Entry
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{entries: make(map[string]grade.Entry)}
}

// Lookup returns the stored entry or cache.ErrNotFound.
func (s *Store) Lookup(_ context.Context, url string) (grade.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[url]
	if !ok {
		return grade.Entry{}, cache.ErrNotFound
	}
	return entry, nil
}

// Write replaces any existing entry for the URL.
func (s *Store) Write(_ context.Context, entry grade.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.URL] = entry
	return nil
}

// Close does nothing.
func (s *Store) Close() {}

// Len reports the number of stored entries, for test assertions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

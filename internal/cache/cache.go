// Package cache defines the report cache interface keyed by normalized URL.
// A write replaces any existing entry for the key; there are no update or
// merge semantics.
package cache

import (
	"context"
	"errors"

	"github.com/sitegrade/sitegrade/internal/grade"
)

// ErrNotFound is returned by Lookup when no entry exists for the URL.
var ErrNotFound = errors.New("cache: entry not found")

// Store persists completed grading runs. Lookup failures degrade to a miss
// at the call site; write failures are logged and never fail the run.
type Store interface {
	// Lookup returns the entry for the normalized URL or ErrNotFound.
	Lookup(ctx context.Context, url string) (grade.Entry, error)
	// Write stores the entry, replacing any previous one (last-write-wins).
	Write(ctx context.Context, entry grade.Entry) error
	// Close releases underlying resources.
	Close()
}

// NoOpStore discards writes and never hits. Useful for local runs without a
// backing store.
type NoOpStore struct{}

// Lookup always reports a miss.
func (NoOpStore) Lookup(_ context.Context, _ string) (grade.Entry, error) {
	return grade.Entry{}, ErrNotFound
}

// Write discards the entry.
func (NoOpStore) Write(_ context.Context, _ grade.Entry) error { return nil }

// Close does nothing.
func (NoOpStore) Close() {}

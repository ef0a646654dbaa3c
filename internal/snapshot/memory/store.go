// Package memory provides an in-memory snapshot store.
package memory

import (
	"context"
	"sync"

	"darkroom/internal/snapshot"
)

// Store is an in-memory snapshot store. Intended for testing and for running
// without any durable backing target; the snapshot is not persisted across
// restarts.
type Store struct {
	mu   sync.RWMutex
	data []byte

	// FailPush, when set, makes every Push return the given error.
	// Tests use this to simulate an unavailable backing store.
	FailPush error

	// FailFetch, when set, makes every Fetch return the given error.
	FailFetch error
}

var _ snapshot.Store = (*Store)(nil)

// NewStore creates a new in-memory snapshot store.
func NewStore() *Store {
	return &Store{}
}

// Fetch returns a copy of the stored snapshot.
// Returns snapshot.ErrNotExist if nothing has been pushed.
func (s *Store) Fetch(ctx context.Context) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.FailFetch != nil {
		return nil, s.FailFetch
	}
	if s.data == nil {
		return nil, snapshot.ErrNotExist
	}

	out := make([]byte, len(s.data))
	copy(out, s.data)
	return out, nil
}

// Push stores a copy of the snapshot in memory.
func (s *Store) Push(ctx context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailPush != nil {
		return s.FailPush
	}

	s.data = make([]byte, len(data))
	copy(s.data, data)
	return nil
}

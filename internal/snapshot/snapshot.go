// Package snapshot defines the capability interface for whole-collection
// snapshot persistence.
//
// A Store reads and writes the gallery collection as a single opaque byte
// blob. The collection store treats one Store as its local cache and another
// as its remote durable backing target; the two are interchangeable behind
// this interface.
//
// A Store does not:
//   - Inspect or validate snapshot contents
//   - Retry failed operations
//   - Coordinate between multiple stores
package snapshot

import (
	"context"
	"errors"
)

// ErrNotExist is returned by Fetch when no snapshot has ever been pushed.
// Callers treat this as a bootstrap signal, not a failure.
var ErrNotExist = errors.New("snapshot does not exist")

// Store persists and loads a single snapshot blob.
//
// Implementations may be slow and may fail; they must not be assumed to be
// transactional with each other. Each call is a single attempt; retry
// policy belongs to the caller.
type Store interface {
	// Fetch reads the current snapshot. Returns ErrNotExist if no snapshot
	// has ever been pushed.
	Fetch(ctx context.Context) ([]byte, error)

	// Push replaces the current snapshot.
	Push(ctx context.Context, data []byte) error
}

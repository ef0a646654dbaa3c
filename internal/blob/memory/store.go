// Package memory provides an in-memory blob store fake for tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"darkroom/internal/blob"
)

// Dims holds probed dimensions for a stored object.
type Dims struct {
	Width  int
	Height int
}

// Store is an in-memory blob store fake. It tracks which keys exist and
// which have been deleted, and serves canned dimension probes.
type Store struct {
	mu      sync.Mutex
	objects map[string]Dims
	deleted []string

	// FailDelete, when set, makes every Delete return the given error.
	FailDelete error

	// FailProbe, when set, makes every Dimensions call return the given error.
	FailProbe error
}

var _ blob.Store = (*Store)(nil)

// NewStore creates an empty in-memory blob store.
func NewStore() *Store {
	return &Store{objects: make(map[string]Dims)}
}

// Put registers an object with canned dimensions.
func (s *Store) Put(key string, width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = Dims{Width: width, Height: height}
}

// Deleted returns the keys deleted so far, in order.
func (s *Store) Deleted() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.deleted))
	copy(out, s.deleted)
	return out
}

func (s *Store) SignUpload(ctx context.Context, key string) (blob.SignedUpload, error) {
	return blob.SignedUpload{
		URL:       "https://blobs.invalid/upload/" + key,
		Key:       key,
		Method:    "PUT",
		ExpiresAt: time.Now().UTC().Add(15 * time.Minute),
	}, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailDelete != nil {
		return s.FailDelete
	}
	delete(s.objects, key)
	s.deleted = append(s.deleted, key)
	return nil
}

func (s *Store) Dimensions(ctx context.Context, key string) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailProbe != nil {
		return 0, 0, s.FailProbe
	}
	d, ok := s.objects[key]
	if !ok {
		return 0, 0, fmt.Errorf("object %q does not exist", key)
	}
	return d.Width, d.Height, nil
}

func (s *Store) ImageURL(key string) string {
	return "https://blobs.invalid/" + key
}

func (s *Store) ThumbURL(key string) string {
	return s.ImageURL(key) + "?width=320"
}

// Package file provides a file-based snapshot store.
//
// The snapshot is persisted as a single JSON document on local disk. Writes
// are atomic via temp file + rename with round-trip validation, so a crash
// mid-write never leaves a truncated snapshot behind.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"darkroom/internal/snapshot"
)

// Store is a file-based snapshot store. It serves both as the local cache
// in front of a remote backing store and as a disk-only backing target.
type Store struct {
	path string
}

var _ snapshot.Store = (*Store)(nil)

// NewStore creates a file-based snapshot store at the given path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the on-disk location of the snapshot.
func (s *Store) Path() string {
	return s.path
}

// Fetch reads the snapshot from disk.
// Returns snapshot.ErrNotExist if the file does not exist.
func (s *Store) Fetch(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, snapshot.ErrNotExist
		}
		return nil, fmt.Errorf("read snapshot file: %w", err)
	}
	return data, nil
}

// Push atomically writes the snapshot to disk with round-trip validation.
func (s *Store) Push(ctx context.Context, data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	// Round-trip validation: re-read and verify valid JSON.
	check, err := os.ReadFile(tmpPath)
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("read-back temp file: %w", err)
	}
	if !json.Valid(check) {
		os.Remove(tmpPath)
		return fmt.Errorf("round-trip validation failed: snapshot is not valid JSON")
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename snapshot file: %w", err)
	}

	return nil
}

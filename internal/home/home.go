// Package home manages the darkroom home directory layout.
//
// The home directory holds the local cache copy of the collection snapshot.
// It is allowed to be ephemeral: on a wiped disk the collection self-heals
// from the durable backing store.
//
// Layout:
//
//	<root>/
//	  photos.json   (local cache snapshot)
package home

import (
	"fmt"
	"os"
	"path/filepath"
)

// Dir represents a darkroom home directory.
type Dir struct {
	root string
}

// New creates a Dir with an explicit root path.
func New(root string) Dir {
	return Dir{root: root}
}

// Default returns a Dir using the platform-appropriate default location:
//   - Linux:   ~/.config/darkroom
//   - macOS:   ~/Library/Application Support/darkroom
//   - Windows: %APPDATA%/darkroom
func Default() (Dir, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return Dir{}, fmt.Errorf("determine config directory: %w", err)
	}
	return Dir{root: filepath.Join(base, "darkroom")}, nil
}

// Root returns the home directory path.
func (d Dir) Root() string {
	return d.root
}

// SnapshotPath returns the path to the local cache snapshot file.
func (d Dir) SnapshotPath() string {
	return filepath.Join(d.root, "photos.json")
}

// EnsureExists creates the home directory if it does not exist.
func (d Dir) EnsureExists() error {
	if err := os.MkdirAll(d.root, 0755); err != nil {
		return fmt.Errorf("create home directory: %w", err)
	}
	return nil
}

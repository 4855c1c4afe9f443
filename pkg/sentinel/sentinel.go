// Package sentinel tracks whether this node has already been configured.
// The marker is a small file whose presence short-circuits reruns; its
// contents record when configuration completed, for operators only.
package sentinel

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
)

// DefaultPath is where the marker lives unless configured otherwise.
const DefaultPath = "/var/lib/credential-provider-installer/.installed"

// Store reads and writes the configured marker file.
type Store struct {
	fs   afero.Fs
	path string
}

func NewStore(fs afero.Fs, path string) *Store {
	if path == "" {
		path = DefaultPath
	}
	return &Store{fs: fs, path: path}
}

// Path returns the marker location.
func (s *Store) Path() string { return s.path }

// Exists reports whether the marker is present.
func (s *Store) Exists() (bool, error) {
	exists, err := afero.Exists(s.fs, s.path)
	if err != nil {
		return false, fmt.Errorf("checking sentinel %s: %w", s.path, err)
	}
	return exists, nil
}

// Set writes the marker. It is only called once configuration has fully
// succeeded, so a present marker always means a completed rollout.
func (s *Store) Set() error {
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating sentinel directory: %w", err)
	}
	stamp := time.Now().UTC().Format(time.RFC3339) + "\n"
	if err := afero.WriteFile(s.fs, s.path, []byte(stamp), 0o644); err != nil {
		return fmt.Errorf("writing sentinel %s: %w", s.path, err)
	}
	return nil
}

// Clear removes the marker so the next run reconfigures the node. A
// missing marker is not an error.
func (s *Store) Clear() error {
	if err := s.fs.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing sentinel %s: %w", s.path, err)
	}
	return nil
}

// Package filestore provides filesystem adapters for the application data
// directory: uploaded sample files and analysis cache directories.
package filestore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	filesSubdir  = "files"
	cachesSubdir = "caches"
)

// Store resolves upload files and cache directories under a single data root.
type Store struct {
	root string
}

// NewStore creates a Store rooted at the given data directory, creating the
// expected subdirectories if they are missing.
func NewStore(root string) (*Store, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("data root is required")
	}
	for _, sub := range []string{filesSubdir, cachesSubdir} {
		if err := os.MkdirAll(filepath.Join(root, sub), 0o750); err != nil {
			return nil, fmt.Errorf("create %s dir: %w", sub, err)
		}
	}
	return &Store{root: root}, nil
}

// FilePath returns the absolute path for an upload's on-disk name.
func (s *Store) FilePath(nameOnDisk string) string {
	return filepath.Join(s.root, filesSubdir, filepath.Base(nameOnDisk))
}

// Remove deletes an upload's backing file. A missing file is not an error;
// the reaper may race a manual cleanup.
func (s *Store) Remove(nameOnDisk string) error {
	if strings.TrimSpace(nameOnDisk) == "" {
		return errors.New("name on disk is required")
	}
	err := os.Remove(s.FilePath(nameOnDisk))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove upload file: %w", err)
	}
	return nil
}

// Exists reports whether a cache's directory is present under the caches
// root. Paths are confined to the root; anything escaping it is absent.
func (s *Store) Exists(path string) bool {
	clean := filepath.Clean(path)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || filepath.IsAbs(clean) {
		return false
	}
	info, err := os.Stat(filepath.Join(s.root, cachesSubdir, clean))
	return err == nil && info.IsDir()
}

// Package store implements the persistent asset store on the local
// filesystem.
package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/halcyon-wx/frameline/internal/catalog"
)

// FS is the filesystem-backed asset store. It satisfies catalog.Lister
// and pipeline.Store.
type FS struct{}

// NewFS creates a filesystem store.
func NewFS() *FS { return &FS{} }

// List returns the directory entries under path.
func (s *FS) List(path string) ([]catalog.Entry, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	out := make([]catalog.Entry, 0, len(entries))
	for _, e := range entries {
		out = append(out, catalog.Entry{Name: e.Name(), Dir: e.IsDir()})
	}
	return out, nil
}

// Exists reports whether a file exists at path.
func (s *FS) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Read returns the file contents at path.
func (s *FS) Read(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Write persists data at path atomically: a temp file in the same
// directory is renamed into place, so a crashed run never leaves a
// partially written output for the resume check to trip over.
func (s *FS) Write(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Delete removes the file at path.
func (s *FS) Delete(path string) error {
	return os.Remove(path)
}

// EnsureDir creates path and any missing parents.
func (s *FS) EnsureDir(path string) error {
	return os.MkdirAll(path, 0o755)
}

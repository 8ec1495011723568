package downloader

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Storage persists downloaded documents under relative names.
type Storage interface {
	// Exists tells whether the name is taken.
	Exists(name string) bool
	// Save writes the content under the name. It never overwrites an existing file.
	Save(name string, r io.Reader) (int64, error)
	// Remove deletes the file.
	Remove(name string) error
	// Path returns the location of the file.
	Path(name string) string
}

var _ Storage = (*FileStorage)(nil)

// FileStorage stores documents in a directory.
type FileStorage struct {
	root string
}

// NewFileStorage creates a storage rooted at the directory. The directory is created on the first save.
func NewFileStorage(root string) *FileStorage {
	return &FileStorage{root: root}
}

// Exists tells whether the name is taken.
func (s *FileStorage) Exists(name string) bool {
	_, err := os.Stat(s.Path(name))

	return !errors.Is(err, fs.ErrNotExist)
}

// Save writes the content under the name.
func (s *FileStorage) Save(name string, r io.Reader) (int64, error) {
	p := s.Path(name)

	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil { // nolint: gosec,gomnd
		return 0, fmt.Errorf("could not create directory: %w", err)
	}

	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644) // nolint: gosec,gomnd
	if err != nil {
		return 0, fmt.Errorf("could not create file: %w", err)
	}

	n, err := io.Copy(f, r)
	if err != nil {
		_ = f.Close()    // nolint: errcheck
		_ = os.Remove(p) // nolint: errcheck

		return 0, fmt.Errorf("could not write file: %w", err)
	}

	if err := f.Close(); err != nil {
		return n, fmt.Errorf("could not close file: %w", err)
	}

	return n, nil
}

// Remove deletes the file.
func (s *FileStorage) Remove(name string) error {
	return os.Remove(s.Path(name)) // nolint: wrapcheck
}

// Path returns the location of the file.
func (s *FileStorage) Path(name string) string {
	return filepath.Join(s.root, filepath.Clean(string(filepath.Separator)+name))
}

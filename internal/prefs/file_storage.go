package prefs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStorage keeps one JSON file per preference name inside a directory.
type FileStorage struct {
	dir string
}

// NewFileStorage - creates the directory if needed and returns the storage.
func NewFileStorage(dir string) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create preferences directory: %w", err)
	}

	return &FileStorage{dir: dir}, nil
}

func (that *FileStorage) Get(name string) ([]byte, bool, error) {
	raw, err := os.ReadFile(that.filePath(name))
	if os.IsNotExist(err) {
		return nil, false, nil
	}

	if err != nil {
		return nil, false, fmt.Errorf("failed to read preference file: %w", err)
	}

	return raw, true, nil
}

func (that *FileStorage) Set(name string, value []byte) error {
	if err := os.WriteFile(that.filePath(name), value, 0o644); err != nil {
		return fmt.Errorf("failed to write preference file: %w", err)
	}

	return nil
}

func (that *FileStorage) filePath(name string) string {
	return filepath.Join(that.dir, sanitizeName(name)+".json")
}

// sanitizeName keeps preference names from escaping the storage directory.
func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}

package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	KindMemory = "memory"
	KindFile   = "file"
	KindSQLite = "sqlite"
)

// NewStore builds the backend named by kind; path is the state file or
// database location for the persistent kinds.
func NewStore(kind, path string) (Store, error) {
	switch kind {
	case "", KindMemory:
		return NewMemoryStore(), nil
	case KindFile:
		if path == "" {
			return nil, fmt.Errorf("file store path is required")
		}
		return NewFileStore(path), nil
	case KindSQLite:
		return newSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", kind)
	}
}

// DefaultPath is where persistent stores live when no path is configured.
func DefaultPath(kind string) string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	name := "state.json"
	if kind == KindSQLite {
		name = "studydex.db"
	}
	return filepath.Join(dir, "studydex", name)
}

func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"studydex/internal/model"
)

// FileStore keeps the encoded state in one JSON file, replaced atomically on
// every save.
type FileStore struct {
	path string

	mu          sync.RWMutex
	initialized bool
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("file store path is required")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	s.initialized = true
	return nil
}

func (s *FileStore) Load(ctx context.Context) (model.State, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.ready(ctx); err != nil {
		return model.State{}, false, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return model.State{}, false, nil
		}
		return model.State{}, false, fmt.Errorf("read state %s: %w", s.path, err)
	}
	state, err := DecodeState(data)
	if err != nil {
		return model.State{}, false, fmt.Errorf("decode state %s: %w", s.path, err)
	}
	return state, true, nil
}

func (s *FileStore) Save(ctx context.Context, state model.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(ctx); err != nil {
		return err
	}
	payload, err := EncodeState(state)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close state: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace state %s: %w", s.path, err)
	}
	return nil
}

func (s *FileStore) ready(ctx context.Context) error {
	if !s.initialized {
		return errors.New("store is not initialized")
	}
	return ctx.Err()
}

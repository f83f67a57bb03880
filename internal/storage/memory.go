package storage

import (
	"context"
	"errors"
	"sync"

	"studydex/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	state       model.State
	saved       bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	return nil
}

func (s *MemoryStore) Load(_ context.Context) (model.State, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return model.State{}, false, errors.New("store is not initialized")
	}
	if !s.saved {
		return model.State{}, false, nil
	}
	return s.state.Clone(), true, nil
}

func (s *MemoryStore) Save(_ context.Context, state model.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errors.New("store is not initialized")
	}
	s.state = state.Clone()
	s.saved = true
	return nil
}

// Reset forgets the saved state.
func (s *MemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = model.State{}
	s.saved = false
}

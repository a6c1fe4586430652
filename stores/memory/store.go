package memory

import (
	"context"
	"fmt"
	"sync"

	"memeverse/core"
)

// memStore keeps preferences in a plain map. It is the default backend and
// the one the tests run against.
type memStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewStore creates a new in-memory preference store.
func NewStore() core.PreferenceStore {
	return &memStore{values: make(map[string]string)}
}

func (s *memStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[key]
	if !ok {
		return "", fmt.Errorf("preference %s not found", key)
	}
	return value, nil
}

func (s *memStore) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return fmt.Errorf("preference key is required")
	}

	s.mu.Lock()
	s.values[key] = value
	s.mu.Unlock()
	return nil
}

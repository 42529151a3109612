package vault

import (
	"context"
	"sync"
)

// InMemoryStore keeps secrets in a mutex-guarded map. Suitable for tests and
// single-instance deployments; use RedisStore when instances share the cache.
type InMemoryStore struct {
	mu      sync.RWMutex
	secrets map[string]string
}

// NewInMemoryStore creates an empty in-memory secret store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{secrets: make(map[string]string)}
}

func (s *InMemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.secrets[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (s *InMemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secrets[key] = value
	return nil
}

func (s *InMemoryStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.secrets[key]
	return ok, nil
}

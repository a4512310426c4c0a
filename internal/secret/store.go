package secret

import (
	"fmt"
	"os"
	"sync"
)

// Store provides a pluggable interface for sensitive values such as backend
// passwords. EnvStore reads them from the process environment; MapStore
// keeps them in memory.
type Store interface {
	// Set stores a secret value under the given key.
	Set(key string, value []byte) error

	// Get retrieves the secret value for the given key.
	// Returns empty slice and nil error if key does not exist.
	Get(key string) ([]byte, error)

	// Delete removes the secret for the given key.
	Delete(key string) error
}

// EnvStore maps keys to environment variables.
type EnvStore struct{}

func NewEnvStore() *EnvStore { return &EnvStore{} }

func (EnvStore) Set(key string, value []byte) error {
	if key == "" {
		return fmt.Errorf("env secret: empty key")
	}
	return os.Setenv(key, string(value))
}

func (EnvStore) Get(key string) ([]byte, error) {
	if key == "" {
		return nil, nil
	}
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}
	return []byte(v), nil
}

func (EnvStore) Delete(key string) error {
	return os.Unsetenv(key)
}

// MapStore is an in-memory Store.
type MapStore struct {
	mu sync.RWMutex
	m  map[string][]byte
}

func NewMapStore() *MapStore { return &MapStore{m: make(map[string][]byte)} }

func (s *MapStore) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = append([]byte(nil), value...)
	return nil
}

func (s *MapStore) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (s *MapStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}

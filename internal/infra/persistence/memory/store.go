// Package memory provides a process-local byte store used for tests and
// ephemeral sessions.
package memory

import (
	"context"
	"sync"

	"grantcrm/pkg/domain"
)

var _ domain.ByteStore = (*Store)(nil)

// Store keeps values in a map guarded by a mutex. Values are copied on the way
// in and out so callers cannot alias stored bytes.
type Store struct {
	mu     sync.RWMutex
	values map[string][]byte
	saves  int
}

// NewStore returns an empty in-memory byte store.
func NewStore() *Store {
	return &Store{values: make(map[string][]byte)}
}

// Load returns a copy of the value at key.
func (s *Store) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	if !ok {
		return nil, domain.ErrKeyNotFound
	}
	return append([]byte(nil), v...), nil
}

// Save replaces the value at key.
func (s *Store) Save(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = append([]byte(nil), value...)
	s.saves++
	return nil
}

// Remove deletes key if present.
func (s *Store) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

// Saves reports how many writes the store has accepted.
func (s *Store) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

// Package memory is a process-local store.Store backed by a map.
package memory

import (
	"bytes"
	"context"
	"sync"
)

// Store holds entries in memory for the life of the process.
type Store struct {
	mutex   sync.RWMutex
	entries map[string][]byte
}

// New returns an empty store.
func New() *Store {
	return &Store{entries: map[string][]byte{}}
}

// Get implements store.Store.
func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mutex.RLock()
	value, ok := s.entries[key]
	s.mutex.RUnlock()
	if !ok {
		return nil, false, nil
	}
	return bytes.Clone(value), true, nil
}

// Put implements store.Store.
func (s *Store) Put(_ context.Context, key string, value []byte) error {
	value = bytes.Clone(value)
	s.mutex.Lock()
	s.entries[key] = value
	s.mutex.Unlock()
	return nil
}

// Count implements store.Counter.
func (s *Store) Count(_ context.Context) (int64, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return int64(len(s.entries)), nil
}

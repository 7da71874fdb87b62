// Package memory provides an in-process SnapshotStore.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/statecraft/pkg/domain"
)

// Store implements ports.SnapshotStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.Record
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.Record),
	}
}

// Save keeps a private copy of rec.
func (s *Store) Save(ctx context.Context, key string, rec *domain.Record) error {
	copied := rec.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = copied
	return nil
}

// Load returns a copy so callers cannot mutate the stored record.
func (s *Store) Load(ctx context.Context, key string) (*domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.data[key]
	if !ok {
		return nil, domain.ErrSnapshotNotFound
	}
	return rec.Clone(), nil
}

// Delete removes the record.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// List returns the stored keys in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for key := range s.data {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

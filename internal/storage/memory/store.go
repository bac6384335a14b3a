package memory

import (
	"context"
	"sort"
	"sync"

	"azfinsim/internal/storage"
)

// Store is an in-memory implementation of storage.Store.
// It is used for dry runs and tests and is safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	data  map[string][]byte
	execs int
}

// NewStore creates a new empty in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string][]byte),
	}
}

// Compile-time interface check.
var _ storage.Store = (*Store)(nil)

// Get returns a copy of the value under key, or nil if absent.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

// Set stores a copy of value under key.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	if key == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = append([]byte(nil), value...)
	return nil
}

// Pipeline returns a new staging buffer.
func (s *Store) Pipeline() storage.Pipeline {
	return &pipeline{owner: s}
}

// ConcurrentPipelines is always true: Exec applies a batch under the store lock.
func (s *Store) ConcurrentPipelines() bool {
	return true
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

// Len returns the number of stored keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Keys returns all keys in lexical order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ExecCount returns how many pipeline batches have been applied.
func (s *Store) ExecCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.execs
}

type pipeline struct {
	owner   *Store
	entries []storage.Entry
}

func (p *pipeline) Set(key string, value []byte) {
	p.entries = append(p.entries, storage.Entry{Key: key, Value: append([]byte(nil), value...)})
}

func (p *pipeline) Len() int {
	return len(p.entries)
}

func (p *pipeline) Exec(_ context.Context) error {
	p.owner.mu.Lock()
	defer p.owner.mu.Unlock()

	for _, e := range p.entries {
		p.owner.data[e.Key] = e.Value
	}
	p.owner.execs++
	p.entries = nil
	return nil
}

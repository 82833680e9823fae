package memory

import (
	"context"
	"sync"

	"github.com/yndnr/pedis-go/internal/core/domain"
)

// Store provides in-memory typed storage.
type Store struct {
	mu    sync.RWMutex
	items map[string]domain.Value
}

// Option configures the Store.
type Option func(*Store)

// WithCapacity presizes the underlying map.
func WithCapacity(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.items = make(map[string]domain.Value, n)
		}
	}
}

// New creates a new in-memory store.
func New(opts ...Option) *Store {
	s := &Store{
		items: make(map[string]domain.Value),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Set stores v at key, replacing any previous value.
func (s *Store) Set(_ context.Context, key string, v domain.Value) error {
	if err := v.Validate(); err != nil {
		return err
	}

	// Store a clone to prevent external modification
	clone := v.Clone()

	s.mu.Lock()
	s.items[key] = clone
	s.mu.Unlock()
	return nil
}

// Get retrieves the value at key if it is of the requested kind.
func (s *Store) Get(_ context.Context, key string, kind domain.ValueKind) (domain.Value, error) {
	s.mu.RLock()
	v, ok := s.items[key]
	s.mu.RUnlock()

	if !ok {
		return domain.Value{}, domain.ErrKeyNotFound
	}
	if err := v.Expect(key, kind); err != nil {
		return domain.Value{}, err
	}

	// Stored values are never mutated in place, so cloning outside the
	// lock is safe.
	return v.Clone(), nil
}

// Delete removes key.
func (s *Store) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.items[key]
	delete(s.items, key)
	return ok, nil
}

// Kind returns the kind stored at key.
func (s *Store) Kind(_ context.Context, key string) (domain.ValueKind, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.items[key]
	return v.Kind, ok, nil
}

// Len returns the number of keys.
func (s *Store) Len(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items), nil
}

// Keys returns all keys.
func (s *Store) Keys(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.items))
	for k := range s.items {
		keys = append(keys, k)
	}
	return keys, nil
}

// Update applies fn to the value at key under the write lock.
func (s *Store) Update(_ context.Context, key string, kind domain.ValueKind, fn domain.UpdateFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var cur *domain.Value
	if existing, ok := s.items[key]; ok {
		if err := existing.Expect(key, kind); err != nil {
			return err
		}
		clone := existing.Clone()
		cur = &clone
	}

	next, err := fn(cur)
	if err != nil {
		return err
	}
	if err := domain.CheckUpdate(key, kind, next); err != nil {
		return err
	}

	s.items[key] = next.Clone()
	return nil
}

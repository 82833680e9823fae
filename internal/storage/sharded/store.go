// Package sharded provides an in-memory backend that spreads keys over
// independently locked shards.
package sharded

import (
	"context"

	"github.com/yndnr/pedis-go/internal/core/domain"
	"github.com/yndnr/pedis-go/pkg/cmap"
)

// Store is an in-memory backend over a murmur3-sharded map.
type Store struct {
	items *cmap.Map[string, domain.Value]
}

// New creates a sharded store. shards must be a power of two; other values
// fall back to cmap.DefaultShardCount.
func New(shards int) *Store {
	return &Store{items: cmap.NewWithShards[string, domain.Value](shards)}
}

// ShardCount returns the number of shards.
func (s *Store) ShardCount() int {
	return s.items.ShardCount()
}

// Set stores v at key.
func (s *Store) Set(_ context.Context, key string, v domain.Value) error {
	if err := v.Validate(); err != nil {
		return err
	}
	s.items.Set(key, v.Clone())
	return nil
}

// Get retrieves the value at key if it is of the requested kind.
func (s *Store) Get(_ context.Context, key string, kind domain.ValueKind) (domain.Value, error) {
	v, ok := s.items.Get(key)
	if !ok {
		return domain.Value{}, domain.ErrKeyNotFound
	}
	if err := v.Expect(key, kind); err != nil {
		return domain.Value{}, err
	}
	return v.Clone(), nil
}

// Delete removes key.
func (s *Store) Delete(_ context.Context, key string) (bool, error) {
	return s.items.Delete(key), nil
}

// Kind returns the kind stored at key.
func (s *Store) Kind(_ context.Context, key string) (domain.ValueKind, bool, error) {
	v, ok := s.items.Get(key)
	return v.Kind, ok, nil
}

// Len returns the number of keys.
func (s *Store) Len(_ context.Context) (int, error) {
	return s.items.Count(), nil
}

// Keys returns all keys.
func (s *Store) Keys(_ context.Context) ([]string, error) {
	return s.items.Keys(), nil
}

// Update applies fn to the value at key under the owning shard's lock.
func (s *Store) Update(_ context.Context, key string, kind domain.ValueKind, fn domain.UpdateFunc) error {
	_, err := s.items.Update(key, func(existing domain.Value, exists bool) (domain.Value, error) {
		var cur *domain.Value
		if exists {
			if err := existing.Expect(key, kind); err != nil {
				return domain.Value{}, err
			}
			clone := existing.Clone()
			cur = &clone
		}

		next, err := fn(cur)
		if err != nil {
			return domain.Value{}, err
		}
		if err := domain.CheckUpdate(key, kind, next); err != nil {
			return domain.Value{}, err
		}
		return next.Clone(), nil
	})
	return err
}

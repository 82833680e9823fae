package storage

import (
	"context"
	"errors"

	"github.com/yndnr/pedis-go/internal/core/domain"
)

// ErrUnsupported is returned when a backend lacks an optional capability.
var ErrUnsupported = errors.New("storage: operation not supported by backend")

// Store is the capability set every backend provides.
//
// Set replaces the value at key unconditionally. Get returns ErrKeyNotFound
// for an absent key and a key mismatch when the stored kind differs from
// kind. Values returned by Get are copies; changing them never changes the
// store.
type Store interface {
	Set(ctx context.Context, key string, v domain.Value) error
	Get(ctx context.Context, key string, kind domain.ValueKind) (domain.Value, error)
}

// Deleter removes keys.
type Deleter interface {
	// Delete removes key and reports whether it was present.
	Delete(ctx context.Context, key string) (bool, error)
}

// Inspector reads store metadata without a kind check.
type Inspector interface {
	// Kind returns the kind stored at key, and false if key is absent.
	Kind(ctx context.Context, key string) (domain.ValueKind, bool, error)
	// Len returns the number of keys.
	Len(ctx context.Context) (int, error)
	// Keys returns every key, in no particular order.
	Keys(ctx context.Context) ([]string, error)
}

// Updater performs atomic read-modify-write cycles.
type Updater interface {
	// Update applies fn to the value at key while holding exclusive access.
	// A present value of another kind fails with a key mismatch before fn
	// runs, and fn must return a value of kind.
	Update(ctx context.Context, key string, kind domain.ValueKind, fn domain.UpdateFunc) error
}

// Full is implemented by backends offering every capability.
type Full interface {
	Store
	Deleter
	Inspector
	Updater
}

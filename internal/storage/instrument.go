package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/yndnr/pedis-go/internal/core/domain"
	"github.com/yndnr/pedis-go/internal/telemetry/metric"
)

// Operation result labels.
const (
	resultOK       = "ok"
	resultNotFound = "not_found"
	resultMismatch = "mismatch"
	resultError    = "error"
)

func resultOf(err error) string {
	switch {
	case err == nil:
		return resultOK
	case errors.Is(err, domain.ErrKeyNotFound):
		return resultNotFound
	case errors.Is(err, domain.ErrKeyMismatch):
		return resultMismatch
	default:
		return resultError
	}
}

// Instrumented records the outcome and latency of every store call.
// Capabilities the wrapped store lacks fail with ErrUnsupported.
type Instrumented struct {
	next    Store
	metrics *metric.Registry
}

// Instrument wraps s with metrics recording. A nil registry disables
// recording but keeps the wrapper.
func Instrument(s Store, reg *metric.Registry) *Instrumented {
	return &Instrumented{next: s, metrics: reg}
}

// Unwrap returns the wrapped store.
func (i *Instrumented) Unwrap() Store {
	return i.next
}

func (i *Instrumented) observe(op string, start time.Time, err error) {
	i.metrics.ObserveStore(op, resultOf(err), time.Since(start))
}

// Set implements Store.
func (i *Instrumented) Set(ctx context.Context, key string, v domain.Value) error {
	start := time.Now()
	err := i.next.Set(ctx, key, v)
	i.observe("set", start, err)
	return err
}

// Get implements Store.
func (i *Instrumented) Get(ctx context.Context, key string, kind domain.ValueKind) (domain.Value, error) {
	start := time.Now()
	v, err := i.next.Get(ctx, key, kind)
	i.observe("get", start, err)
	return v, err
}

// Delete implements Deleter.
func (i *Instrumented) Delete(ctx context.Context, key string) (bool, error) {
	d, ok := i.next.(Deleter)
	if !ok {
		return false, ErrUnsupported
	}
	start := time.Now()
	existed, err := d.Delete(ctx, key)
	i.observe("delete", start, err)
	return existed, err
}

// Kind implements Inspector.
func (i *Instrumented) Kind(ctx context.Context, key string) (domain.ValueKind, bool, error) {
	in, ok := i.next.(Inspector)
	if !ok {
		return 0, false, ErrUnsupported
	}
	start := time.Now()
	kind, found, err := in.Kind(ctx, key)
	i.observe("kind", start, err)
	return kind, found, err
}

// Len implements Inspector.
func (i *Instrumented) Len(ctx context.Context) (int, error) {
	in, ok := i.next.(Inspector)
	if !ok {
		return 0, ErrUnsupported
	}
	start := time.Now()
	n, err := in.Len(ctx)
	i.observe("len", start, err)
	return n, err
}

// Keys implements Inspector.
func (i *Instrumented) Keys(ctx context.Context) ([]string, error) {
	in, ok := i.next.(Inspector)
	if !ok {
		return nil, ErrUnsupported
	}
	start := time.Now()
	keys, err := in.Keys(ctx)
	i.observe("keys", start, err)
	return keys, err
}

// Update implements Updater.
func (i *Instrumented) Update(ctx context.Context, key string, kind domain.ValueKind, fn domain.UpdateFunc) error {
	u, ok := i.next.(Updater)
	if !ok {
		return ErrUnsupported
	}
	start := time.Now()
	err := u.Update(ctx, key, kind, fn)
	i.observe("update", start, err)
	return err
}

// Close closes the wrapped store if it holds resources.
func (i *Instrumented) Close() error {
	if c, ok := i.next.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

var _ Full = (*Instrumented)(nil)

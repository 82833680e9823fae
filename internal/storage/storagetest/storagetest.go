// Package storagetest provides a behavioral test suite shared by every
// storage backend.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/yndnr/pedis-go/internal/core/domain"
	"github.com/yndnr/pedis-go/internal/storage"
)

// Factory returns an empty store for one subtest. Cleanup belongs to the
// factory (t.Cleanup).
type Factory func(t *testing.T) storage.Full

// Run executes the suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, s storage.Full)
	}{
		{"SetGetRoundTrip", testSetGetRoundTrip},
		{"PayloadWithCRLF", testPayloadWithCRLF},
		{"KeyNotFound", testKeyNotFound},
		{"UnusualKeys", testUnusualKeys},
		{"KeyMismatch", testKeyMismatch},
		{"OverwriteChangesKind", testOverwriteChangesKind},
		{"CopyOnRead", testCopyOnRead},
		{"CopyOnSet", testCopyOnSet},
		{"InvalidKind", testInvalidKind},
		{"Delete", testDelete},
		{"Inspect", testInspect},
		{"UpdateCreate", testUpdateCreate},
		{"UpdateModify", testUpdateModify},
		{"UpdateMismatch", testUpdateMismatch},
		{"UpdateAbort", testUpdateAbort},
		{"UpdateWrongResultKind", testUpdateWrongResultKind},
		{"ConcurrentAccess", testConcurrentAccess},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

func mustSet(t *testing.T, s storage.Store, key string, v domain.Value) {
	t.Helper()
	if err := s.Set(context.Background(), key, v); err != nil {
		t.Fatalf("Set(%q) error = %v", key, err)
	}
}

func testSetGetRoundTrip(t *testing.T, s storage.Full) {
	ctx := context.Background()
	values := map[string]domain.Value{
		"key:001": domain.NewString([]byte("hello pedis")),
		"key:map": domain.NewMap([]byte(`["Zg==","dg=="]`)),
		"key:doc": domain.NewJSON([]byte(`{"a":[1,2]}`)),
		"key:lst": domain.NewList([]byte(`["eA==","eQ=="]`)),
		"empty":   domain.NewString([]byte{}),
	}

	for key, v := range values {
		mustSet(t, s, key, v)
	}

	for key, want := range values {
		got, err := s.Get(ctx, key, want.Kind)
		if err != nil {
			t.Fatalf("Get(%q) error = %v", key, err)
		}
		if got.Kind != want.Kind || string(got.Data) != string(want.Data) {
			t.Errorf("Get(%q) = %v %q, want %v %q", key, got.Kind, got.Data, want.Kind, want.Data)
		}
	}
}

func testPayloadWithCRLF(t *testing.T, s storage.Full) {
	payload := []byte("line1\r\nline2\r\n")
	mustSet(t, s, "crlf", domain.NewString(payload))

	got, err := s.Get(context.Background(), "crlf", domain.KindString)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got.Data) != string(payload) {
		t.Errorf("Get() = %q, want %q", got.Data, payload)
	}
}

func testKeyNotFound(t *testing.T, s storage.Full) {
	_, err := s.Get(context.Background(), "key:013", domain.KindString)
	if !errors.Is(err, domain.ErrKeyNotFound) {
		t.Fatalf("Get(missing) error = %v, want ErrKeyNotFound", err)
	}
	if err.Error() != "key not found" {
		t.Errorf("Error() = %q, want %q", err.Error(), "key not found")
	}
}

// Every string is a legal key, including ones a backend might reserve.
func testUnusualKeys(t *testing.T, s storage.Full) {
	ctx := context.Background()
	keys := []string{"", "!badger!head", "!badger!x", "\x00bin\r\n"}

	for _, key := range keys {
		if _, err := s.Get(ctx, key, domain.KindString); !errors.Is(err, domain.ErrKeyNotFound) {
			t.Errorf("Get(%q) before Set error = %v, want ErrKeyNotFound", key, err)
		}
		if _, ok, err := s.Kind(ctx, key); ok || err != nil {
			t.Errorf("Kind(%q) before Set = (%v, %v), want absent", key, ok, err)
		}
	}

	for i, key := range keys {
		mustSet(t, s, key, domain.NewString([]byte(fmt.Sprint(i))))
	}

	for i, key := range keys {
		got, err := s.Get(ctx, key, domain.KindString)
		if err != nil {
			t.Fatalf("Get(%q) error = %v", key, err)
		}
		if string(got.Data) != fmt.Sprint(i) {
			t.Errorf("Get(%q) = %q, want %q", key, got.Data, fmt.Sprint(i))
		}
	}

	err := s.Update(ctx, "", domain.KindString, func(cur *domain.Value) (domain.Value, error) {
		if cur == nil {
			return domain.Value{}, errors.New("current value missing")
		}
		return domain.NewString(append(cur.Data, '!')), nil
	})
	if err != nil {
		t.Fatalf("Update(\"\") error = %v", err)
	}

	listed, err := s.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys() error = %v", err)
	}
	sort.Strings(listed)
	want := append([]string(nil), keys...)
	sort.Strings(want)
	if fmt.Sprintf("%q", listed) != fmt.Sprintf("%q", want) {
		t.Errorf("Keys() = %q, want %q", listed, want)
	}
	if n, _ := s.Len(ctx); n != len(keys) {
		t.Errorf("Len() = %d, want %d", n, len(keys))
	}

	existed, err := s.Delete(ctx, "")
	if err != nil || !existed {
		t.Errorf("Delete(\"\") = (%v, %v), want (true, nil)", existed, err)
	}
}

func testKeyMismatch(t *testing.T, s storage.Full) {
	ctx := context.Background()
	mustSet(t, s, "key:001", domain.NewString([]byte("hello pedis")))

	for _, kind := range []domain.ValueKind{domain.KindMap, domain.KindJSON, domain.KindList} {
		_, err := s.Get(ctx, "key:001", kind)
		if !errors.Is(err, domain.ErrKeyMismatch) {
			t.Fatalf("Get(%v) error = %v, want ErrKeyMismatch", kind, err)
		}
		if errors.Is(err, domain.ErrKeyNotFound) {
			t.Errorf("mismatch must not match ErrKeyNotFound")
		}
	}

	// A failed read leaves the value intact.
	got, err := s.Get(ctx, "key:001", domain.KindString)
	if err != nil || string(got.Data) != "hello pedis" {
		t.Errorf("Get() after mismatch = (%q, %v)", got.Data, err)
	}
}

func testOverwriteChangesKind(t *testing.T, s storage.Full) {
	ctx := context.Background()
	mustSet(t, s, "k", domain.NewString([]byte("v1")))
	mustSet(t, s, "k", domain.NewJSON([]byte(`{"v":2}`)))

	if _, err := s.Get(ctx, "k", domain.KindString); !errors.Is(err, domain.ErrKeyMismatch) {
		t.Errorf("Get(string) error = %v, want ErrKeyMismatch", err)
	}

	got, err := s.Get(ctx, "k", domain.KindJSON)
	if err != nil || string(got.Data) != `{"v":2}` {
		t.Errorf("Get(json) = (%q, %v)", got.Data, err)
	}
}

func testCopyOnRead(t *testing.T, s storage.Full) {
	ctx := context.Background()
	mustSet(t, s, "k", domain.NewString([]byte("abc")))

	got, err := s.Get(ctx, "k", domain.KindString)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	got.Data[0] = 'X'

	again, _ := s.Get(ctx, "k", domain.KindString)
	if string(again.Data) != "abc" {
		t.Errorf("stored value changed through returned copy: %q", again.Data)
	}
}

func testCopyOnSet(t *testing.T, s storage.Full) {
	data := []byte("abc")
	mustSet(t, s, "k", domain.NewString(data))
	data[0] = 'X'

	got, _ := s.Get(context.Background(), "k", domain.KindString)
	if string(got.Data) != "abc" {
		t.Errorf("stored value changed through caller buffer: %q", got.Data)
	}
}

func testInvalidKind(t *testing.T, s storage.Full) {
	err := s.Set(context.Background(), "k", domain.NewValue(domain.ValueKind(200), []byte("x")))
	if err == nil {
		t.Fatal("Set(invalid kind) should fail")
	}
	if _, ok, _ := s.Kind(context.Background(), "k"); ok {
		t.Error("invalid value must not be stored")
	}
}

func testDelete(t *testing.T, s storage.Full) {
	ctx := context.Background()
	mustSet(t, s, "k", domain.NewString([]byte("v")))

	ok, err := s.Delete(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("Delete(k) = (%v, %v), want (true, nil)", ok, err)
	}

	ok, err = s.Delete(ctx, "k")
	if err != nil || ok {
		t.Fatalf("Delete(k) again = (%v, %v), want (false, nil)", ok, err)
	}

	if _, err := s.Get(ctx, "k", domain.KindString); !errors.Is(err, domain.ErrKeyNotFound) {
		t.Errorf("Get() after Delete error = %v, want ErrKeyNotFound", err)
	}
}

func testInspect(t *testing.T, s storage.Full) {
	ctx := context.Background()

	n, err := s.Len(ctx)
	if err != nil || n != 0 {
		t.Fatalf("Len() on empty store = (%d, %v)", n, err)
	}

	mustSet(t, s, "a", domain.NewString([]byte("1")))
	mustSet(t, s, "b", domain.NewList([]byte(`[]`)))
	mustSet(t, s, "c", domain.NewMap([]byte(`[]`)))

	kind, ok, err := s.Kind(ctx, "b")
	if err != nil || !ok || kind != domain.KindList {
		t.Errorf("Kind(b) = (%v, %v, %v), want (list, true, nil)", kind, ok, err)
	}

	if _, ok, _ := s.Kind(ctx, "missing"); ok {
		t.Error("Kind(missing) reported present")
	}

	n, _ = s.Len(ctx)
	if n != 3 {
		t.Errorf("Len() = %d, want 3", n)
	}

	keys, err := s.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys() error = %v", err)
	}
	sort.Strings(keys)
	if fmt.Sprint(keys) != "[a b c]" {
		t.Errorf("Keys() = %v, want [a b c]", keys)
	}
}

func testUpdateCreate(t *testing.T, s storage.Full) {
	ctx := context.Background()

	err := s.Update(ctx, "list", domain.KindList, func(cur *domain.Value) (domain.Value, error) {
		if cur != nil {
			t.Errorf("cur = %v, want nil", cur)
		}
		return domain.NewList([]byte(`["YQ=="]`)), nil
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := s.Get(ctx, "list", domain.KindList)
	if err != nil || string(got.Data) != `["YQ=="]` {
		t.Errorf("Get() = (%q, %v)", got.Data, err)
	}
}

func testUpdateModify(t *testing.T, s storage.Full) {
	ctx := context.Background()
	mustSet(t, s, "s", domain.NewString([]byte("ab")))

	err := s.Update(ctx, "s", domain.KindString, func(cur *domain.Value) (domain.Value, error) {
		if cur == nil {
			t.Fatal("cur = nil, want current value")
		}
		return domain.NewString(append(cur.Data, 'c')), nil
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, _ := s.Get(ctx, "s", domain.KindString)
	if string(got.Data) != "abc" {
		t.Errorf("Get() = %q, want %q", got.Data, "abc")
	}
}

func testUpdateMismatch(t *testing.T, s storage.Full) {
	ctx := context.Background()
	mustSet(t, s, "s", domain.NewString([]byte("v")))

	called := false
	err := s.Update(ctx, "s", domain.KindMap, func(*domain.Value) (domain.Value, error) {
		called = true
		return domain.NewMap([]byte(`[]`)), nil
	})
	if !errors.Is(err, domain.ErrKeyMismatch) {
		t.Fatalf("Update() error = %v, want ErrKeyMismatch", err)
	}
	if called {
		t.Error("fn must not run on a kind mismatch")
	}
}

func testUpdateAbort(t *testing.T, s storage.Full) {
	ctx := context.Background()
	mustSet(t, s, "s", domain.NewString([]byte("v")))

	errAbort := errors.New("abort")
	err := s.Update(ctx, "s", domain.KindString, func(*domain.Value) (domain.Value, error) {
		return domain.NewString([]byte("changed")), errAbort
	})
	if !errors.Is(err, errAbort) {
		t.Fatalf("Update() error = %v, want %v", err, errAbort)
	}

	got, _ := s.Get(ctx, "s", domain.KindString)
	if string(got.Data) != "v" {
		t.Errorf("aborted update changed value to %q", got.Data)
	}
}

func testUpdateWrongResultKind(t *testing.T, s storage.Full) {
	ctx := context.Background()

	err := s.Update(ctx, "k", domain.KindList, func(*domain.Value) (domain.Value, error) {
		return domain.NewString([]byte("nope")), nil
	})
	if !errors.Is(err, domain.ErrKeyMismatch) {
		t.Fatalf("Update() error = %v, want ErrKeyMismatch", err)
	}
	if _, ok, _ := s.Kind(ctx, "k"); ok {
		t.Error("rejected update must not store a value")
	}
}

func testConcurrentAccess(t *testing.T, s storage.Full) {
	ctx := context.Background()
	const workers = 8
	const ops = 100

	var wg sync.WaitGroup
	errCh := make(chan error, workers*2)

	for w := 0; w < workers; w++ {
		wg.Add(2)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < ops; i++ {
				key := fmt.Sprintf("w%d:%d", w, i)
				if err := s.Set(ctx, key, domain.NewString([]byte(key))); err != nil {
					errCh <- err
					return
				}
			}
		}(w)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < ops; i++ {
				key := fmt.Sprintf("w%d:%d", w, i)
				v, err := s.Get(ctx, key, domain.KindString)
				if err != nil && !errors.Is(err, domain.ErrKeyNotFound) {
					errCh <- err
					return
				}
				if err == nil && string(v.Data) != key {
					errCh <- fmt.Errorf("Get(%q) = %q", key, v.Data)
					return
				}
			}
		}(w)
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		t.Error(err)
	}

	n, _ := s.Len(ctx)
	if n != workers*ops {
		t.Errorf("Len() = %d, want %d", n, workers*ops)
	}

	var counter sync.WaitGroup
	for i := 0; i < 50; i++ {
		counter.Add(1)
		go func() {
			defer counter.Done()
			_ = s.Update(ctx, "counter", domain.KindList, func(cur *domain.Value) (domain.Value, error) {
				var items []string
				if cur != nil {
					var err error
					if items, err = domain.DecodeList(cur.Data); err != nil {
						return domain.Value{}, err
					}
				}
				data, err := domain.EncodeList(append(items, "x"))
				if err != nil {
					return domain.Value{}, err
				}
				return domain.NewList(data), nil
			})
		}()
	}
	counter.Wait()

	v, err := s.Get(ctx, "counter", domain.KindList)
	if err != nil {
		t.Fatalf("Get(counter) error = %v", err)
	}
	items, _ := domain.DecodeList(v.Data)
	if len(items) != 50 {
		t.Errorf("concurrent updates lost writes: len = %d, want 50", len(items))
	}
}

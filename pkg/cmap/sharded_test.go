package cmap

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/spaolacci/murmur3"
)

func TestNew(t *testing.T) {
	m := New[string, int]()
	if m == nil {
		t.Fatal("New() returned nil")
	}
	if len(m.shards) != DefaultShardCount {
		t.Errorf("shard count = %d, want %d", len(m.shards), DefaultShardCount)
	}
}

func TestNewWithShards(t *testing.T) {
	tests := []struct {
		input    int
		expected int
	}{
		{0, DefaultShardCount},  // invalid → default
		{-1, DefaultShardCount}, // invalid → default
		{3, DefaultShardCount},  // not power of 2 → default
		{1, 1},
		{2, 2},
		{8, 8},
		{32, 32},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("shards=%d", tt.input), func(t *testing.T) {
			m := NewWithShards[string, int](tt.input)
			if len(m.shards) != tt.expected {
				t.Errorf("NewWithShards(%d) shard count = %d, want %d",
					tt.input, len(m.shards), tt.expected)
			}
		})
	}
}

func TestShardIndex_Murmur3(t *testing.T) {
	m := NewWithShards[string, int](8)

	for _, key := range []string{"", "a", "key:001", "user:42:profile"} {
		want := int(murmur3.Sum32([]byte(key)) & 7)
		if got := m.ShardIndex(key); got != want {
			t.Errorf("ShardIndex(%q) = %d, want %d", key, got, want)
		}
	}
}

func TestShardIndex_NamedStringKey(t *testing.T) {
	type key string
	m := NewWithShards[key, int](4)
	plain := NewWithShards[string, int](4)

	if m.ShardIndex("abc") != plain.ShardIndex("abc") {
		t.Error("named string key routed differently from string key")
	}
}

func TestSetAndGet(t *testing.T) {
	m := New[string, int]()

	m.Set("key1", 100)
	m.Set("key2", 200)

	val, ok := m.Get("key1")
	if !ok || val != 100 {
		t.Errorf("Get(key1) = (%d, %v), want (100, true)", val, ok)
	}

	val, ok = m.Get("key2")
	if !ok || val != 200 {
		t.Errorf("Get(key2) = (%d, %v), want (200, true)", val, ok)
	}

	val, ok = m.Get("nonexistent")
	if ok {
		t.Errorf("Get(nonexistent) = (%d, %v), want (0, false)", val, ok)
	}
}

func TestDelete(t *testing.T) {
	m := New[string, int]()

	m.Set("key1", 100)
	if !m.Delete("key1") {
		t.Error("Delete(key1) = false, want true")
	}

	if _, ok := m.Get("key1"); ok {
		t.Error("key1 should not exist after deletion")
	}

	if m.Delete("nonexistent") {
		t.Error("Delete(nonexistent) = true, want false")
	}
}

func TestHas(t *testing.T) {
	m := New[string, int]()

	m.Set("key1", 100)

	if !m.Has("key1") {
		t.Error("Has(key1) should return true")
	}

	if m.Has("nonexistent") {
		t.Error("Has(nonexistent) should return false")
	}
}

func TestUpdate(t *testing.T) {
	m := New[string, int]()

	got, err := m.Update("counter", func(v int, exists bool) (int, error) {
		if exists {
			t.Error("counter should not exist yet")
		}
		return v + 1, nil
	})
	if err != nil || got != 1 {
		t.Fatalf("Update() = (%d, %v), want (1, nil)", got, err)
	}

	got, err = m.Update("counter", func(v int, exists bool) (int, error) {
		if !exists {
			t.Error("counter should exist")
		}
		return v + 1, nil
	})
	if err != nil || got != 2 {
		t.Fatalf("Update() = (%d, %v), want (2, nil)", got, err)
	}
}

func TestUpdate_ErrorLeavesValue(t *testing.T) {
	m := New[string, int]()
	m.Set("k", 7)

	errBoom := errors.New("boom")
	_, err := m.Update("k", func(int, bool) (int, error) {
		return 99, errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("Update() error = %v, want %v", err, errBoom)
	}

	if v, _ := m.Get("k"); v != 7 {
		t.Errorf("Get(k) = %d, want 7", v)
	}

	_, _ = m.Update("absent", func(int, bool) (int, error) {
		return 1, errBoom
	})
	if m.Has("absent") {
		t.Error("failed Update() must not create the key")
	}
}

func TestCount(t *testing.T) {
	m := New[string, int]()

	if m.Count() != 0 {
		t.Errorf("Count() = %d, want 0", m.Count())
	}

	m.Set("key1", 1)
	m.Set("key2", 2)
	m.Set("key3", 3)

	if m.Count() != 3 {
		t.Errorf("Count() = %d, want 3", m.Count())
	}

	m.Delete("key2")
	if m.Count() != 2 {
		t.Errorf("Count() = %d, want 2", m.Count())
	}
}

func TestClear(t *testing.T) {
	m := New[string, int]()

	m.Set("key1", 1)
	m.Set("key2", 2)
	m.Clear()

	if m.Count() != 0 {
		t.Errorf("Count() after Clear() = %d, want 0", m.Count())
	}
}

func TestOverwrite(t *testing.T) {
	m := New[string, int]()

	m.Set("key1", 100)
	m.Set("key1", 200)

	val, ok := m.Get("key1")
	if !ok || val != 200 {
		t.Errorf("Get(key1) = (%d, %v), want (200, true)", val, ok)
	}
}

func TestConcurrentAccess(t *testing.T) {
	m := New[string, int]()
	var wg sync.WaitGroup
	numGoroutines := 50
	numOps := 500

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for j := 0; j < numOps; j++ {
				key := fmt.Sprintf("k%d-%d", base, j)
				m.Set(key, j)
				m.Get(key)
				m.Has(key)
			}
		}(i)
	}
	wg.Wait()

	if m.Count() != numGoroutines*numOps {
		t.Errorf("Count() = %d, want %d", m.Count(), numGoroutines*numOps)
	}
}

func TestConcurrentUpdate(t *testing.T) {
	m := New[string, int]()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.Update("counter", func(v int, _ bool) (int, error) {
				return v + 1, nil
			})
		}()
	}
	wg.Wait()

	if v, _ := m.Get("counter"); v != 100 {
		t.Errorf("counter = %d, want 100", v)
	}
}

func TestShardCount(t *testing.T) {
	m := NewWithShards[string, int](8)
	if m.ShardCount() != 8 {
		t.Errorf("ShardCount() = %d, want 8", m.ShardCount())
	}
}

func TestStats(t *testing.T) {
	m := NewWithShards[string, int](4)

	for i := 0; i < 100; i++ {
		m.Set(fmt.Sprintf("key-%d", i), i)
	}

	stats := m.Stats()
	if len(stats) != 4 {
		t.Errorf("Stats() length = %d, want 4", len(stats))
	}

	totalCount := 0
	for _, s := range stats {
		totalCount += s.Count
	}
	if totalCount != 100 {
		t.Errorf("Total count from stats = %d, want 100", totalCount)
	}
}

package benchmark

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"
	"testing"

	"github.com/yndnr/pedis-go/internal/core/domain"
	"github.com/yndnr/pedis-go/internal/storage"
	"github.com/yndnr/pedis-go/internal/storage/memory"
	"github.com/yndnr/pedis-go/internal/storage/sharded"
)

// KeyCounts for quick benchmarks.
var KeyCounts = []int{1000, 10000, 100000}

// backend builds a store under benchmark.
type backend struct {
	name string
	open func(b *testing.B) storage.Full
}

var backends = []backend{
	{"memory", func(*testing.B) storage.Full { return memory.New() }},
	{"sharded", func(*testing.B) storage.Full { return sharded.New(32) }},
	{"badger", func(b *testing.B) storage.Full {
		cfg := storage.DefaultBadgerConfig()
		cfg.InMemory = true
		s, err := storage.OpenBadger("", cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
		if err != nil {
			b.Fatalf("OpenBadger: %v", err)
		}
		b.Cleanup(func() { _ = s.Close() })
		return s
	}},
}

func benchKey(i int) string {
	return fmt.Sprintf("key:%08d", i)
}

// payload returns a string value of n bytes.
func payload(n int) domain.Value {
	return domain.NewString([]byte(strings.Repeat("x", n)))
}

// prefillStore writes count string keys.
func prefillStore(ctx context.Context, b *testing.B, s storage.Store, count int) {
	b.Helper()
	v := payload(64)
	for i := 0; i < count; i++ {
		if err := s.Set(ctx, benchKey(i), v); err != nil {
			b.Fatalf("prefill: %v", err)
		}
	}
}

// reportMemory reports memory usage.
func reportMemory(b *testing.B, prefix string) {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	b.ReportMetric(float64(m.Alloc)/(1024*1024), prefix+"_MB")
	b.ReportMetric(float64(m.NumGC), prefix+"_GC")
}

// runPerBackend runs benchFn for every backend and key count.
func runPerBackend(b *testing.B, counts []int, benchFn func(b *testing.B, s storage.Full, count int)) {
	for _, be := range backends {
		for _, count := range counts {
			b.Run(fmt.Sprintf("%s/keys_%d", be.name, count), func(b *testing.B) {
				benchFn(b, be.open(b), count)
			})
		}
	}
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/pedis-go/internal/core/domain"
)

// ErrClosed is returned by operations on a closed BadgerStore.
var ErrClosed = errors.New("badger: store closed")

// maxConflictRetries bounds optimistic retries of a conflicting transaction.
const maxConflictRetries = 100

// BadgerConfig configures the Badger backend.
type BadgerConfig struct {
	// GCInterval is the period of value log GC. Zero disables the loop.
	GCInterval time.Duration `koanf:"gc_interval"`
	// GCThreshold is the discard ratio passed to RunValueLogGC.
	GCThreshold float64 `koanf:"gc_threshold"`
	SyncWrites  bool    `koanf:"sync_writes"`
	// CacheSize is the block cache size in bytes.
	CacheSize int64 `koanf:"cache_size"`
	// InMemory runs Badger without touching disk.
	InMemory bool `koanf:"-"`
}

// DefaultBadgerConfig returns the Badger defaults.
func DefaultBadgerConfig() BadgerConfig {
	return BadgerConfig{
		GCInterval:  10 * time.Minute,
		GCThreshold: 0.5,
		SyncWrites:  false,
		CacheSize:   64 << 20,
	}
}

// BadgerStats holds storage statistics.
type BadgerStats struct {
	LSMSize      uint64
	ValueLogSize uint64
	TotalSize    uint64
	LastGCTime   int64 // Unix milliseconds
	GCRuns       uint64
}

// BadgerStore is a persistent backend on Badger v3.
//
// Each value is stored as one kind byte followed by the payload.
type BadgerStore struct {
	db     *badger.DB
	cfg    BadgerConfig
	logger *slog.Logger

	lastGCTime atomic.Int64
	gcRuns     atomic.Uint64
	closed     atomic.Bool

	metricsLSMSize      prometheus.Gauge
	metricsValueLogSize prometheus.Gauge
	metricsLastGCTime   prometheus.Gauge
	metricsGCRuns       prometheus.CounterFunc

	stopCh    chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// OpenBadger opens (or creates) a Badger store in dir.
func OpenBadger(dir string, cfg BadgerConfig, logger *slog.Logger) (*BadgerStore, error) {
	if dir == "" && !cfg.InMemory {
		return nil, fmt.Errorf("badger: data dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := badger.DefaultOptions(dir)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = &badgerLogger{logger: logger}
	opts.SyncWrites = cfg.SyncWrites
	if cfg.CacheSize > 0 {
		opts.BlockCacheSize = cfg.CacheSize
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open db: %w", err)
	}

	s := &BadgerStore{
		db:     db,
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
	}

	if cfg.GCInterval > 0 && !cfg.InMemory {
		s.wg.Add(1)
		go s.gcLoop()
	}

	logger.Info("badger store opened",
		"dir", dir,
		"in_memory", cfg.InMemory,
		"gc_interval", cfg.GCInterval)

	return s, nil
}

// keyPrefix namespaces every store key so that the empty key and keys
// starting with Badger's reserved "!badger!" prefix are legal.
const keyPrefix byte = 'k'

func dbKey(key string) []byte {
	b := make([]byte, 1+len(key))
	b[0] = keyPrefix
	copy(b[1:], key)
	return b
}

func encodeValue(v domain.Value) []byte {
	buf := make([]byte, 1+len(v.Data))
	buf[0] = byte(v.Kind)
	copy(buf[1:], v.Data)
	return buf
}

func decodeValue(key string, raw []byte) (domain.Value, error) {
	if len(raw) == 0 {
		return domain.Value{}, fmt.Errorf("badger: corrupt value at %q: empty record", key)
	}
	v := domain.NewValue(domain.ValueKind(raw[0]), append([]byte{}, raw[1:]...))
	if err := v.Validate(); err != nil {
		return domain.Value{}, fmt.Errorf("badger: corrupt value at %q: %w", key, err)
	}
	return v, nil
}

func (s *BadgerStore) readValue(txn *badger.Txn, key string) (domain.Value, bool, error) {
	item, err := txn.Get(dbKey(key))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return domain.Value{}, false, nil
		}
		return domain.Value{}, false, fmt.Errorf("badger: get: %w", err)
	}

	raw, err := item.ValueCopy(nil)
	if err != nil {
		return domain.Value{}, false, fmt.Errorf("badger: read value: %w", err)
	}

	v, err := decodeValue(key, raw)
	if err != nil {
		return domain.Value{}, false, err
	}
	return v, true, nil
}

// Set stores v at key.
func (s *BadgerStore) Set(_ context.Context, key string, v domain.Value) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if err := v.Validate(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(dbKey(key), encodeValue(v))
	})
	if err != nil {
		return fmt.Errorf("badger: set: %w", err)
	}
	return nil
}

// Get retrieves the value at key if it is of the requested kind.
func (s *BadgerStore) Get(_ context.Context, key string, kind domain.ValueKind) (domain.Value, error) {
	if s.closed.Load() {
		return domain.Value{}, ErrClosed
	}

	var (
		v  domain.Value
		ok bool
	)
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		v, ok, err = s.readValue(txn, key)
		return err
	})
	if err != nil {
		return domain.Value{}, err
	}
	if !ok {
		return domain.Value{}, domain.ErrKeyNotFound
	}
	if err := v.Expect(key, kind); err != nil {
		return domain.Value{}, err
	}
	return v, nil
}

// Delete removes key.
func (s *BadgerStore) Delete(_ context.Context, key string) (bool, error) {
	if s.closed.Load() {
		return false, ErrClosed
	}

	var existed bool
	err := s.retry(func(txn *badger.Txn) error {
		_, err := txn.Get(dbKey(key))
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			existed = false
			return nil
		case err != nil:
			return err
		}
		existed = true
		return txn.Delete(dbKey(key))
	})
	if err != nil {
		return false, fmt.Errorf("badger: delete: %w", err)
	}
	return existed, nil
}

// Kind returns the kind stored at key.
func (s *BadgerStore) Kind(_ context.Context, key string) (domain.ValueKind, bool, error) {
	if s.closed.Load() {
		return 0, false, ErrClosed
	}

	var (
		v  domain.Value
		ok bool
	)
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		v, ok, err = s.readValue(txn, key)
		return err
	})
	return v.Kind, ok, err
}

// Len returns the number of keys. It walks the key index.
func (s *BadgerStore) Len(ctx context.Context) (int, error) {
	n := 0
	err := s.scanKeys(ctx, func(string) { n++ })
	return n, err
}

// Keys returns all keys in byte order.
func (s *BadgerStore) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	err := s.scanKeys(ctx, func(k string) { keys = append(keys, k) })
	return keys, err
}

func (s *BadgerStore) scanKeys(ctx context.Context, fn func(key string)) error {
	if s.closed.Load() {
		return ErrClosed
	}

	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false // Only need keys
		opts.Prefix = []byte{keyPrefix}
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			fn(string(it.Item().Key()[1:]))
		}
		return nil
	})
}

// Update applies fn to the value at key inside one read-write transaction.
// Transactions that lose a write conflict are retried, so fn may run more
// than once.
func (s *BadgerStore) Update(_ context.Context, key string, kind domain.ValueKind, fn domain.UpdateFunc) error {
	if s.closed.Load() {
		return ErrClosed
	}

	return s.retry(func(txn *badger.Txn) error {
		existing, ok, err := s.readValue(txn, key)
		if err != nil {
			return err
		}

		var cur *domain.Value
		if ok {
			if err := existing.Expect(key, kind); err != nil {
				return err
			}
			cur = &existing
		}

		next, err := fn(cur)
		if err != nil {
			return err
		}
		if err := domain.CheckUpdate(key, kind, next); err != nil {
			return err
		}
		return txn.Set(dbKey(key), encodeValue(next))
	})
}

func (s *BadgerStore) retry(fn func(txn *badger.Txn) error) error {
	var err error
	for i := 0; i < maxConflictRetries; i++ {
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

// GC runs value log garbage collection until nothing is left to rewrite.
func (s *BadgerStore) GC(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	startTime := time.Now()

	runs := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.db.RunValueLogGC(s.cfg.GCThreshold)
		if err != nil {
			if errors.Is(err, badger.ErrNoRewrite) {
				break
			}
			return fmt.Errorf("badger: gc: %w", err)
		}
		runs++
	}

	s.lastGCTime.Store(time.Now().UnixMilli())
	s.gcRuns.Add(1)

	s.logger.Debug("gc completed",
		"rewrites", runs,
		"elapsed", time.Since(startTime))

	return nil
}

// Stats returns storage statistics.
func (s *BadgerStore) Stats() BadgerStats {
	lsm, vlog := s.db.Size()
	return BadgerStats{
		LSMSize:      uint64(lsm),
		ValueLogSize: uint64(vlog),
		TotalSize:    uint64(lsm + vlog),
		LastGCTime:   s.lastGCTime.Load(),
		GCRuns:       s.gcRuns.Load(),
	}
}

// Close stops background loops and closes the database.
func (s *BadgerStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.logger.Info("closing badger store")
		s.closed.Store(true)

		close(s.stopCh)
		s.wg.Wait()

		if cerr := s.db.Close(); cerr != nil {
			err = fmt.Errorf("badger: close db: %w", cerr)
		}
	})
	return err
}

// RegisterMetrics registers Badger gauges with reg and starts refreshing
// them. It should be called once.
func (s *BadgerStore) RegisterMetrics(reg prometheus.Registerer) error {
	s.metricsLSMSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "pedis",
		Subsystem: "badger",
		Name:      "lsm_size_bytes",
		Help:      "Badger LSM tree size in bytes",
	})

	s.metricsValueLogSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "pedis",
		Subsystem: "badger",
		Name:      "value_log_size_bytes",
		Help:      "Badger value log size in bytes",
	})

	s.metricsLastGCTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "pedis",
		Subsystem: "badger",
		Name:      "last_gc_timestamp_seconds",
		Help:      "Unix timestamp of the last Badger GC run",
	})

	s.metricsGCRuns = prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: "pedis",
		Subsystem: "badger",
		Name:      "gc_runs_total",
		Help:      "Completed Badger value log GC runs",
	}, func() float64 { return float64(s.gcRuns.Load()) })

	for _, c := range []prometheus.Collector{
		s.metricsLSMSize,
		s.metricsValueLogSize,
		s.metricsLastGCTime,
		s.metricsGCRuns,
	} {
		if err := reg.Register(c); err != nil {
			return fmt.Errorf("badger: register metrics: %w", err)
		}
	}

	s.refreshMetrics()
	s.wg.Add(1)
	go s.metricsUpdateLoop()
	return nil
}

func (s *BadgerStore) refreshMetrics() {
	stats := s.Stats()
	s.metricsLSMSize.Set(float64(stats.LSMSize))
	s.metricsValueLogSize.Set(float64(stats.ValueLogSize))
	if stats.LastGCTime > 0 {
		s.metricsLastGCTime.Set(float64(stats.LastGCTime) / 1000.0) // ms to seconds
	}
}

func (s *BadgerStore) metricsUpdateLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.refreshMetrics()
		case <-s.stopCh:
			return
		}
	}
}

func (s *BadgerStore) gcLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			if err := s.GC(ctx); err != nil {
				s.logger.Error("auto gc failed", "error", err)
			}
			cancel()

		case <-s.stopCh:
			return
		}
	}
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

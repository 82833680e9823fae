package config

import "time"

// ServerConfig is the root configuration for pedis-server.
type ServerConfig struct {
	Server  ServerSection  `koanf:"server"`
	Storage StorageSection `koanf:"storage"`
	Log     LogSection     `koanf:"log"`
}

// ServerSection configures server endpoints.
type ServerSection struct {
	HTTP  HTTPConfig  `koanf:"http"`
	Redis RedisConfig `koanf:"redis"`
}

// HTTPConfig configures the admin HTTP server (/metrics, /healthz).
type HTTPConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

// RedisConfig configures the RESP listener.
type RedisConfig struct {
	Addr         string        `koanf:"addr"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"`

	// RateLimit is the per-connection command budget per second.
	// Zero disables limiting.
	RateLimit int `koanf:"rate_limit"`
}

// StorageSection configures the store backend.
type StorageSection struct {
	// Backend is one of "memory", "sharded" or "badger".
	Backend string `koanf:"backend"`

	// Shards is the shard count of the sharded backend (power of two).
	Shards int `koanf:"shards"`

	// DataDir is the Badger directory. Unused by the in-memory backends.
	DataDir string `koanf:"data_dir"`

	Badger BadgerSection `koanf:"badger"`
}

// BadgerSection tunes the Badger backend.
type BadgerSection struct {
	GCInterval  time.Duration `koanf:"gc_interval"`
	GCThreshold float64       `koanf:"gc_threshold"`
	SyncWrites  bool          `koanf:"sync_writes"`
	CacheSize   int64         `koanf:"cache_size"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

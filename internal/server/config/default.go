package config

import "time"

// Default configuration values.
const (
	DefaultHTTPAddr  = "127.0.0.1:9121"
	DefaultRedisAddr = "127.0.0.1:6379"

	DefaultReadTimeout  = 30 * time.Second
	DefaultWriteTimeout = 30 * time.Second
	DefaultIdleTimeout  = 5 * time.Minute

	DefaultBackend = "memory"
	DefaultShards  = 32
	DefaultDataDir = "./data"

	DefaultGCInterval  = 10 * time.Minute
	DefaultGCThreshold = 0.5
	DefaultCacheSize   = 64 << 20

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			HTTP: HTTPConfig{
				Enabled: true,
				Addr:    DefaultHTTPAddr,
			},
			Redis: RedisConfig{
				Addr:         DefaultRedisAddr,
				ReadTimeout:  DefaultReadTimeout,
				WriteTimeout: DefaultWriteTimeout,
				IdleTimeout:  DefaultIdleTimeout,
			},
		},
		Storage: StorageSection{
			Backend: DefaultBackend,
			Shards:  DefaultShards,
			DataDir: DefaultDataDir,
			Badger: BadgerSection{
				GCInterval:  DefaultGCInterval,
				GCThreshold: DefaultGCThreshold,
				CacheSize:   DefaultCacheSize,
			},
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

package storage

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/yndnr/pedis-go/internal/storage/memory"
	"github.com/yndnr/pedis-go/internal/storage/sharded"
)

// Backend names accepted by Open.
const (
	BackendMemory  = "memory"
	BackendSharded = "sharded"
	BackendBadger  = "badger"
)

// Config selects and configures a backend.
type Config struct {
	Backend string       `koanf:"backend"`
	Shards  int          `koanf:"shards"`
	DataDir string       `koanf:"data_dir"`
	Badger  BadgerConfig `koanf:"badger"`
}

// DefaultConfig returns the default storage configuration.
func DefaultConfig() Config {
	return Config{
		Backend: BackendMemory,
		Shards:  32,
		DataDir: "./data",
		Badger:  DefaultBadgerConfig(),
	}
}

// Open builds the backend named by cfg.Backend. An empty name selects the
// memory backend.
func Open(cfg Config, logger *slog.Logger) (Full, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch strings.ToLower(cfg.Backend) {
	case "", BackendMemory:
		return memory.New(), nil
	case BackendSharded:
		return sharded.New(cfg.Shards), nil
	case BackendBadger:
		s, err := OpenBadger(cfg.DataDir, cfg.Badger, logger.With("component", "badger"))
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", cfg.Backend)
	}
}

var (
	_ Full = (*memory.Store)(nil)
	_ Full = (*sharded.Store)(nil)
	_ Full = (*BadgerStore)(nil)
)

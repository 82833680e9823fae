package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
)

// Verify validates the configuration.
func Verify(cfg *ServerConfig) error {
	if err := verifyServer(&cfg.Server); err != nil {
		return err
	}
	if err := verifyStorage(&cfg.Storage); err != nil {
		return err
	}
	if err := verifyLog(&cfg.Log); err != nil {
		return err
	}
	return nil
}

func verifyServer(cfg *ServerSection) error {
	if err := verifyAddr("server.redis.addr", cfg.Redis.Addr); err != nil {
		return err
	}
	if cfg.Redis.ReadTimeout < 0 || cfg.Redis.WriteTimeout < 0 || cfg.Redis.IdleTimeout < 0 {
		return errors.New("server.redis timeouts must not be negative")
	}
	if cfg.Redis.RateLimit < 0 {
		return errors.New("server.redis.rate_limit must not be negative")
	}

	if !cfg.HTTP.Enabled {
		return nil
	}
	if err := verifyAddr("server.http.addr", cfg.HTTP.Addr); err != nil {
		return err
	}
	if cfg.HTTP.Addr == cfg.Redis.Addr {
		return fmt.Errorf("server.http.addr and server.redis.addr both use %s", cfg.HTTP.Addr)
	}
	return nil
}

func verifyAddr(name, addr string) error {
	if addr == "" {
		return fmt.Errorf("%s is required", name)
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func verifyStorage(cfg *StorageSection) error {
	switch strings.ToLower(cfg.Backend) {
	case "memory":
		return nil
	case "sharded":
		if cfg.Shards <= 0 || cfg.Shards&(cfg.Shards-1) != 0 {
			return fmt.Errorf("storage.shards must be a positive power of two, got %d", cfg.Shards)
		}
		return nil
	case "badger":
	default:
		return fmt.Errorf("storage.backend %q is not one of memory, sharded, badger", cfg.Backend)
	}

	if cfg.DataDir == "" {
		return errors.New("storage.data_dir is required for the badger backend")
	}

	// Check if data directory exists or can be created
	if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
		return errors.New("cannot create data directory: " + err.Error())
	}

	if cfg.Badger.GCInterval < 0 {
		return errors.New("storage.badger.gc_interval must not be negative")
	}
	if cfg.Badger.GCThreshold <= 0 || cfg.Badger.GCThreshold >= 1 {
		return fmt.Errorf("storage.badger.gc_threshold must be in (0, 1), got %v", cfg.Badger.GCThreshold)
	}

	return nil
}

func verifyLog(cfg *LogSection) error {
	switch strings.ToLower(cfg.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", cfg.Level)
	}

	switch strings.ToLower(cfg.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("log.format %q is not one of json, text", cfg.Format)
	}
	return nil
}

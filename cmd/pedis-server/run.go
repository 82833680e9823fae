package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/yndnr/pedis-go/internal/infra/buildinfo"
	"github.com/yndnr/pedis-go/internal/infra/confloader"
	"github.com/yndnr/pedis-go/internal/infra/shutdown"
	"github.com/yndnr/pedis-go/internal/server/config"
	"github.com/yndnr/pedis-go/internal/server/httpserver"
	"github.com/yndnr/pedis-go/internal/server/redisserver"
	"github.com/yndnr/pedis-go/internal/storage"
	"github.com/yndnr/pedis-go/internal/telemetry/logger"
	"github.com/yndnr/pedis-go/internal/telemetry/metric"
)

const shutdownTimeout = 30 * time.Second

// options carries what the command line contributes to startup.
type options struct {
	configFile string
	overrides  map[string]any
}

func run(ctx context.Context, opts options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	info := buildinfo.Get()
	log.Info("starting pedis-server",
		"version", info.Version,
		"commit", info.Commit,
		"config", opts.configFile,
		"backend", cfg.Storage.Backend)

	reg := metric.NewRegistry()

	store, err := initStorage(cfg, reg, log)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	shutdownHandler := shutdown.NewHandler(shutdownTimeout, log)

	// Hooks run in reverse order: listeners first, storage last.
	shutdownHandler.OnShutdown("storage", func(context.Context) error {
		return store.Close()
	})

	srvCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	redisServer := redisserver.New(redisConfig(cfg), store, reg, log.With("component", "redis"))
	if err := redisServer.Start(srvCtx); err != nil {
		_ = store.Close()
		return fmt.Errorf("start redis server: %w", err)
	}
	shutdownHandler.OnShutdown("redis", redisServer.Shutdown)

	if cfg.Server.HTTP.Enabled {
		httpServer, err := startHTTP(cfg, reg, redisServer, log)
		if err != nil {
			_ = redisServer.Shutdown(context.Background())
			_ = store.Close()
			return fmt.Errorf("start http server: %w", err)
		}
		shutdownHandler.OnShutdown("http", httpServer.Shutdown)
	}

	if opts.configFile != "" {
		watcher, err := watchConfig(opts, log)
		if err != nil {
			log.Warn("config watcher disabled", "error", err)
		} else {
			shutdownHandler.OnShutdown("watcher", func(context.Context) error {
				return watcher.Stop()
			})
		}
	}

	log.Info("server started, press Ctrl+C to stop")
	if err := shutdownHandler.Wait(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}

// loadConfig layers defaults, file, environment and flags.
func loadConfig(opts options) (*config.ServerConfig, error) {
	cfg := config.Default()

	loaderOpts := []confloader.Option{}
	if opts.configFile != "" {
		loaderOpts = append(loaderOpts, confloader.WithConfigFile(opts.configFile))
	}
	if len(opts.overrides) > 0 {
		loaderOpts = append(loaderOpts, confloader.WithFlags(opts.overrides))
	}

	loader := confloader.NewLoader(loaderOpts...)
	if err := loader.Load(cfg); err != nil {
		return nil, err
	}

	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// initLogger initializes the structured logger and installs it as the
// process default.
func initLogger(cfg *config.ServerConfig) (*slog.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	if err != nil {
		return nil, err
	}

	slog.SetDefault(log)

	return log, nil
}

// initStorage opens the configured backend and wraps it with metrics.
func initStorage(cfg *config.ServerConfig, reg *metric.Registry, log *slog.Logger) (*storage.Instrumented, error) {
	store, err := storage.Open(storageConfig(cfg), log)
	if err != nil {
		return nil, err
	}

	if bs, ok := store.(*storage.BadgerStore); ok {
		if err := bs.RegisterMetrics(reg.Prometheus()); err != nil {
			_ = bs.Close()
			return nil, fmt.Errorf("register badger metrics: %w", err)
		}
	}

	if err := reg.Prometheus().Register(metric.NewCollector(func() (int, error) {
		return store.Len(context.Background())
	})); err != nil {
		if c, ok := store.(io.Closer); ok {
			_ = c.Close()
		}
		return nil, fmt.Errorf("register key collector: %w", err)
	}

	log.Info("storage opened", "backend", cfg.Storage.Backend)
	return storage.Instrument(store, reg), nil
}

func startHTTP(cfg *config.ServerConfig, reg *metric.Registry, redis *redisserver.Server, log *slog.Logger) (*httpserver.Server, error) {
	ln, err := net.Listen("tcp", cfg.Server.HTTP.Addr)
	if err != nil {
		return nil, err
	}

	router := httpserver.NewRouter(&httpserver.RouterConfig{
		Metrics: reg.Handler(),
		Checks: map[string]httpserver.HealthCheck{
			"redis": func(context.Context) error {
				if redis.Addr() == nil {
					return errors.New("listener not bound")
				}
				return nil
			},
		},
		Logger: log.With("component", "http"),
	})
	srv := httpserver.New(cfg.Server.HTTP.Addr, router)

	go func() {
		log.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	return srv, nil
}

// watchConfig reloads the log level whenever the configuration file is
// rewritten. Other settings need a restart.
func watchConfig(opts options, log *slog.Logger) (*confloader.Watcher, error) {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return nil, err
	}
	if err := w.Watch(opts.configFile); err != nil {
		_ = w.Stop()
		return nil, err
	}

	w.OnChange(func(string) {
		reloadLogLevel(opts, log)
	})
	w.StartAsync()
	return w, nil
}

func reloadLogLevel(opts options, log *slog.Logger) {
	cfg, err := loadConfig(opts)
	if err != nil {
		log.Warn("config reload rejected", "error", err)
		return
	}
	if cfg.Log.Level == logger.GetLevel() {
		return
	}
	if err := logger.SetLevel(cfg.Log.Level); err != nil {
		log.Warn("config reload rejected", "error", err)
		return
	}
	log.Info("log level changed", "level", cfg.Log.Level)
}

func storageConfig(cfg *config.ServerConfig) storage.Config {
	sc := storage.DefaultConfig()
	sc.Backend = cfg.Storage.Backend
	sc.Shards = cfg.Storage.Shards
	sc.DataDir = cfg.Storage.DataDir
	sc.Badger.GCInterval = cfg.Storage.Badger.GCInterval
	sc.Badger.GCThreshold = cfg.Storage.Badger.GCThreshold
	sc.Badger.SyncWrites = cfg.Storage.Badger.SyncWrites
	sc.Badger.CacheSize = cfg.Storage.Badger.CacheSize
	return sc
}

func redisConfig(cfg *config.ServerConfig) *redisserver.Config {
	return &redisserver.Config{
		Addr:         cfg.Server.Redis.Addr,
		ReadTimeout:  cfg.Server.Redis.ReadTimeout,
		WriteTimeout: cfg.Server.Redis.WriteTimeout,
		IdleTimeout:  cfg.Server.Redis.IdleTimeout,
		RateLimit:    cfg.Server.Redis.RateLimit,
	}
}

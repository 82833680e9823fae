package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/pedis-go/internal/server/config"
	"github.com/yndnr/pedis-go/internal/telemetry/logger"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestFlagOverrides(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want map[string]any
	}{
		{
			name: "none",
			args: nil,
			want: map[string]any{},
		},
		{
			name: "all",
			args: []string{"--log-level", "debug", "--redis-addr", "0.0.0.0:7000", "--backend", "sharded"},
			want: map[string]any{
				"log.level":         "debug",
				"server.redis.addr": "0.0.0.0:7000",
				"storage.backend":   "sharded",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got map[string]any
			app := &cli.App{
				Flags: serverFlags(),
				Action: func(c *cli.Context) error {
					got = flagOverrides(c)
					return nil
				},
			}

			if err := app.Run(append([]string{"pedis-server"}, tt.args...)); err != nil {
				t.Fatalf("Run() error = %v", err)
			}

			if len(got) != len(tt.want) {
				t.Fatalf("flagOverrides() = %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("flagOverrides()[%q] = %v, want %v", k, got[k], v)
				}
			}
		})
	}
}

func TestLoadConfig_Layers(t *testing.T) {
	path := writeConfig(t, "pedis.yaml", `
server:
  redis:
    addr: "127.0.0.1:7001"
    rate_limit: 100
storage:
  backend: "sharded"
  shards: 8
log:
  level: "warn"
`)
	t.Setenv("PEDIS_SERVER_REDIS_RATE_LIMIT", "250")

	cfg, err := loadConfig(options{
		configFile: path,
		overrides:  map[string]any{"log.level": "error"},
	})
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}

	if cfg.Server.Redis.Addr != "127.0.0.1:7001" {
		t.Errorf("Redis.Addr = %q", cfg.Server.Redis.Addr)
	}
	if cfg.Server.Redis.RateLimit != 250 {
		t.Errorf("Redis.RateLimit = %d, want env value 250", cfg.Server.Redis.RateLimit)
	}
	if cfg.Storage.Shards != 8 {
		t.Errorf("Storage.Shards = %d, want 8", cfg.Storage.Shards)
	}
	if cfg.Log.Level != "error" {
		t.Errorf("Log.Level = %q, want flag value error", cfg.Log.Level)
	}
	if cfg.Server.Redis.IdleTimeout != config.DefaultIdleTimeout {
		t.Errorf("Redis.IdleTimeout = %v, want default", cfg.Server.Redis.IdleTimeout)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	_, err := loadConfig(options{overrides: map[string]any{"storage.backend": "rocks"}})
	if err == nil || !strings.Contains(err.Error(), "invalid configuration") {
		t.Errorf("loadConfig() error = %v, want invalid configuration", err)
	}
}

func TestStorageConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Backend = "badger"
	cfg.Storage.DataDir = "/var/lib/pedis"
	cfg.Storage.Badger.SyncWrites = true
	cfg.Storage.Badger.GCInterval = time.Minute

	sc := storageConfig(cfg)
	if sc.Backend != "badger" || sc.DataDir != "/var/lib/pedis" || sc.Shards != cfg.Storage.Shards {
		t.Errorf("storageConfig() = %+v", sc)
	}
	if !sc.Badger.SyncWrites || sc.Badger.GCInterval != time.Minute {
		t.Errorf("storageConfig().Badger = %+v", sc.Badger)
	}
	if sc.Badger.InMemory {
		t.Error("InMemory must never be set from configuration")
	}
}

func TestRedisConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Redis.RateLimit = 10

	rc := redisConfig(cfg)
	if rc.Addr != cfg.Server.Redis.Addr || rc.RateLimit != 10 || rc.IdleTimeout != cfg.Server.Redis.IdleTimeout {
		t.Errorf("redisConfig() = %+v", rc)
	}
}

func TestReloadLogLevel(t *testing.T) {
	old := logger.GetLevel()
	t.Cleanup(func() { _ = logger.SetLevel(old) })

	path := writeConfig(t, "pedis.toml", "[log]\nlevel = \"debug\"\n")
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	_ = logger.SetLevel("info")
	reloadLogLevel(options{configFile: path}, quiet)
	if got := logger.GetLevel(); got != "debug" {
		t.Errorf("GetLevel() = %q, want debug", got)
	}

	// An invalid file keeps the current level.
	if err := os.WriteFile(path, []byte("[log]\nlevel = \"loud\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	reloadLogLevel(options{configFile: path}, quiet)
	if got := logger.GetLevel(); got != "debug" {
		t.Errorf("GetLevel() = %q after rejected reload, want debug", got)
	}
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	app := newApp()
	app.Writer = &buf

	if err := app.Run([]string{"pedis-server", "version", "--json"}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var info map[string]string
	if err := json.Unmarshal(buf.Bytes(), &info); err != nil {
		t.Fatalf("version output is not JSON: %v (%q)", err, buf.String())
	}
	for _, k := range []string{"version", "commit", "build_time", "go_version"} {
		if info[k] == "" {
			t.Errorf("version output missing %q", k)
		}
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	old := logger.GetLevel()
	t.Cleanup(func() { _ = logger.SetLevel(old) })

	path := writeConfig(t, "pedis.yaml", `
server:
  redis:
    addr: "127.0.0.1:0"
  http:
    enabled: false
log:
  level: "error"
`)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx, options{configFile: path})
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("run() error = %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("run() did not return after cancel")
	}
}

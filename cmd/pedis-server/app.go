package main

import (
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/pedis-go/internal/infra/buildinfo"
)

// newApp builds the pedis-server command line.
func newApp() *cli.App {
	return &cli.App{
		Name:    "pedis-server",
		Usage:   "Typed in-memory key-value server speaking RESP",
		Version: buildinfo.String(),
		Flags:   serverFlags(),
		Commands: []*cli.Command{
			versionCommand(),
		},
		Action: func(c *cli.Context) error {
			return run(c.Context, options{
				configFile: c.String("config"),
				overrides:  flagOverrides(c),
			})
		},
	}
}

func serverFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file (.yaml, .yml or .toml)",
			EnvVars: []string{"PEDIS_CONFIG"},
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error",
		},
		&cli.StringFlag{
			Name:  "redis-addr",
			Usage: "RESP listen address (e.g., 127.0.0.1:6379)",
		},
		&cli.StringFlag{
			Name:  "backend",
			Usage: "Store backend: memory, sharded, badger",
		},
	}
}

// flagKeys maps command line flags to configuration keys.
var flagKeys = map[string]string{
	"log-level":  "log.level",
	"redis-addr": "server.redis.addr",
	"backend":    "storage.backend",
}

// flagOverrides returns the configuration keys set explicitly on the
// command line. Flags left at their zero value do not mask lower layers.
func flagOverrides(c *cli.Context) map[string]any {
	out := make(map[string]any)
	for flag, key := range flagKeys {
		if c.IsSet(flag) {
			out[key] = c.String(flag)
		}
	}
	return out
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print build information",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print as JSON",
			},
		},
		Action: func(c *cli.Context) error {
			info := buildinfo.Get()
			if c.Bool("json") {
				enc := json.NewEncoder(c.App.Writer)
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}
			_, err := fmt.Fprintf(c.App.Writer, "pedis-server %s\n", buildinfo.String())
			return err
		},
	}
}

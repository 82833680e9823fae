// Package main provides the entry point for pedis-server.
//
// pedis-server is an in-memory key-value store speaking the Redis
// serialization protocol, with kind-checked string, map, JSON and list
// values.
package main

import (
	"fmt"
	"os"
)

func main() {
	app := newApp()

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

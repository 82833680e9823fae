// Package buildinfo exposes the version of the running pedis-server.
//
// Values come from ldflags when set:
//
//	go build -ldflags "-X github.com/yndnr/pedis-go/internal/infra/buildinfo.Version=v1.0.0"
//
// Commit and GoVersion fall back to the module build info embedded by the
// Go toolchain.
package buildinfo

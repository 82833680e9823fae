// Package config provides the pedis-server configuration schema.
//
//   - schema.go: ServerConfig struct definition
//   - default.go: Default configuration values
//   - verify.go: Validation (address conflicts, backend settings)
//
// Configuration is loaded via internal/infra/confloader and supports
// multiple sources: files, environment variables, and flags.
package config

// Package confloader loads layered configuration with koanf.
//
// Sources, from lowest to highest priority:
//
//  1. Default values (the target struct as passed to Load)
//  2. Configuration file (YAML, or TOML by extension)
//  3. Environment variables (PEDIS_ prefix)
//  4. Command-line flags (LoadMap)
//
// Environment names are resolved against the koanf tags of the target, so
// PEDIS_SERVER_REDIS_READ_TIMEOUT maps to server.redis.read_timeout even
// though the key itself contains an underscore.
//
// Watcher reports changes to watched files; the server uses it to reload
// its log level without a restart.
package confloader

// Package storage provides the typed store engine for Pedis.
//
// The engine maps string keys to kind-tagged values. Every read names the
// kind it expects and fails with a key mismatch when the stored value is of
// another kind.
//
// Backends:
//
//   - memory:  one map behind one reader/writer lock (default)
//   - sharded: murmur3-routed shards, one lock per shard
//   - badger:  persistent storage on Badger v3
//
// The Store interface carries only Get and Set. Further operations are
// optional capabilities (Deleter, Inspector, Updater) that callers
// discover with a type assertion, so adding one never breaks a backend.
package storage

// Package cmap provides a concurrent map sharded by key hash.
//
// Keys are routed to shards with murmur3, and each shard has its own
// RWMutex, so operations on keys in different shards never contend.
//
// Usage:
//
//	m := cmap.NewWithShards[string, []byte](32)
//	m.Set("key", data)
//	val, ok := m.Get("key")
//
// Thread Safety:
//
// All operations are thread-safe. Read operations (Get, Has) use RLock,
// write operations (Set, Delete, Update) use Lock.
package cmap

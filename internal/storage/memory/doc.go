// Package memory provides the default in-memory backend for Pedis.
//
// The store is a single map guarded by a single sync.RWMutex. Reads take
// the shared lock, writes the exclusive one, and neither lock outlives the
// call that took it. Growth is unbounded: there is no eviction and no
// capacity limit.
package memory

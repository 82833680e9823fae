// Package domain defines the core domain models for Pedis.
//
// Domain models are pure value objects without any IO dependencies.
// This package contains:
//
//   - Value: a kind-tagged unit of stored data
//   - ValueKind: the closed set of kind tags (string, map, json, list)
//   - Errors: the store error taxonomy and its client rendering
//
// The collection encodings used for map and list values live next to
// the Value type so every backend stores the same bytes.
package domain

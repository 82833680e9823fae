// Package domain defines the core domain models for Pedis.
package domain

import (
	"bytes"
	"fmt"
	"strings"
)

// ValueKind tags how the bytes of a Value are interpreted.
type ValueKind uint8

// Kind tags. New kinds are only ever appended.
const (
	KindString ValueKind = iota
	KindMap
	KindJSON
	KindList
)

var kindNames = [...]string{
	KindString: "string",
	KindMap:    "map",
	KindJSON:   "json",
	KindList:   "list",
}

// String returns the lowercase name of the kind.
func (k ValueKind) String() string {
	if k.Valid() {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Valid reports whether k is one of the known kind tags.
func (k ValueKind) Valid() bool {
	return int(k) < len(kindNames)
}

// ParseValueKind parses a kind name (case-insensitive).
func ParseValueKind(s string) (ValueKind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range kindNames {
		if n == name {
			return ValueKind(i), nil
		}
	}
	return 0, fmt.Errorf("domain: unknown value kind %q", s)
}

// Value is a stored unit of data. Kind never changes once the value is built;
// replacing a value means building a new one.
type Value struct {
	Kind ValueKind
	Data []byte
}

// NewValue creates a value of the given kind.
func NewValue(kind ValueKind, data []byte) Value {
	return Value{Kind: kind, Data: data}
}

// NewString creates a value of kind string.
func NewString(data []byte) Value {
	return Value{Kind: KindString, Data: data}
}

// NewMap creates a value of kind map from its encoded form.
func NewMap(data []byte) Value {
	return Value{Kind: KindMap, Data: data}
}

// NewJSON creates a value of kind json.
func NewJSON(data []byte) Value {
	return Value{Kind: KindJSON, Data: data}
}

// NewList creates a value of kind list from its encoded form.
func NewList(data []byte) Value {
	return Value{Kind: KindList, Data: data}
}

// Clone returns a deep copy of the value.
func (v Value) Clone() Value {
	out := Value{Kind: v.Kind}
	if v.Data != nil {
		out.Data = make([]byte, len(v.Data))
		copy(out.Data, v.Data)
	}
	return out
}

// Equal reports whether both values carry the same kind and bytes.
func (v Value) Equal(other Value) bool {
	return v.Kind == other.Kind && bytes.Equal(v.Data, other.Data)
}

// String describes the value without exposing its payload.
func (v Value) String() string {
	return fmt.Sprintf("k=%s len=%d", v.Kind, len(v.Data))
}

// Validate checks that the value carries a known kind tag.
func (v Value) Validate() error {
	if !v.Kind.Valid() {
		return fmt.Errorf("domain: invalid value kind %d", uint8(v.Kind))
	}
	return nil
}

// Expect returns the mismatch error for a read of key when v is not of the
// requested kind, and nil otherwise.
func (v Value) Expect(key string, requested ValueKind) error {
	if v.Kind != requested {
		return NewKeyMismatch(key, requested, v.Kind)
	}
	return nil
}

// UpdateFunc computes the next value from the current one. cur is nil when
// the key is absent. Returning an error aborts the update.
type UpdateFunc func(cur *Value) (Value, error)

// CheckUpdate validates a value produced by an UpdateFunc for a key of kind.
func CheckUpdate(key string, kind ValueKind, next Value) error {
	if next.Kind != kind {
		return NewKeyMismatch(key, kind, next.Kind)
	}
	return next.Validate()
}

// Package domain defines the core domain models for Pedis.
package domain

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Map and list payloads are JSON arrays of []byte, which encoding/json
// writes as base64, so fields and elements keep every byte. A map is
// stored flat as field, value, field, value, ordered by field.

// EncodeMap encodes a field map as the payload of a map value.
func EncodeMap(m map[string]string) ([]byte, error) {
	names := make([]string, 0, len(m))
	for f := range m {
		names = append(names, f)
	}
	sort.Strings(names)

	flat := make([][]byte, 0, len(names)*2)
	for _, f := range names {
		flat = append(flat, []byte(f), []byte(m[f]))
	}
	return json.Marshal(flat)
}

// DecodeMap decodes the payload of a map value.
func DecodeMap(data []byte) (map[string]string, error) {
	m := map[string]string{}
	if len(data) == 0 {
		return m, nil
	}

	var flat [][]byte
	if err := json.Unmarshal(data, &flat); err != nil {
		return nil, fmt.Errorf("domain: decode map: %w", err)
	}
	if len(flat)%2 != 0 {
		return nil, fmt.Errorf("domain: decode map: odd entry count %d", len(flat))
	}
	for i := 0; i < len(flat); i += 2 {
		m[string(flat[i])] = string(flat[i+1])
	}
	return m, nil
}

// EncodeList encodes list elements as the payload of a list value.
func EncodeList(items []string) ([]byte, error) {
	raw := make([][]byte, len(items))
	for i, it := range items {
		raw[i] = []byte(it)
	}
	return json.Marshal(raw)
}

// DecodeList decodes the payload of a list value.
func DecodeList(data []byte) ([]string, error) {
	var items []string
	if len(data) == 0 {
		return items, nil
	}

	var raw [][]byte
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("domain: decode list: %w", err)
	}
	items = make([]string, len(raw))
	for i, b := range raw {
		items[i] = string(b)
	}
	return items, nil
}

// ValidJSON reports whether data is a well-formed JSON document.
func ValidJSON(data []byte) bool {
	return json.Valid(data)
}

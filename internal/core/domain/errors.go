// Package domain defines the core domain models for Pedis.
package domain

import (
	"errors"
	"fmt"
)

// Store error codes.
const (
	CodeKeyNotFound = "KEY_NOT_FOUND"
	CodeKeyMismatch = "KEY_MISMATCH"
)

// StoreError is the failure of a store read or write.
//
// Errors compare by Code, so errors.Is(err, ErrKeyMismatch) matches every
// mismatch regardless of the key or kinds named in the message.
type StoreError struct {
	Code    string
	Message string
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return e.Message
}

// Is implements errors.Is() support for error comparison.
func (e *StoreError) Is(target error) bool {
	t, ok := target.(*StoreError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

var (
	// ErrKeyNotFound indicates a read of an absent key.
	ErrKeyNotFound = &StoreError{Code: CodeKeyNotFound, Message: "key not found"}

	// ErrKeyMismatch indicates a read whose requested kind differs from the stored one.
	ErrKeyMismatch = &StoreError{Code: CodeKeyMismatch, Message: "key kind mismatch"}
)

// NewKeyMismatch builds the mismatch error for a read of key.
func NewKeyMismatch(key string, requested, actual ValueKind) *StoreError {
	return &StoreError{
		Code:    CodeKeyMismatch,
		Message: fmt.Sprintf("key %q holds %s, requested %s", key, actual, requested),
	}
}

// IsStoreError checks if an error is a StoreError with the given code.
// If code is empty, it only checks if the error is a StoreError.
func IsStoreError(err error, code string) bool {
	var se *StoreError
	if errors.As(err, &se) {
		return code == "" || se.Code == code
	}
	return false
}

// Render converts an error to the text of a protocol error reply (without
// the leading '-'). Store errors render their message, so a missing key
// becomes "ERR key not found".
func Render(err error) string {
	var se *StoreError
	if errors.As(err, &se) {
		return "ERR " + se.Message
	}
	return "ERR " + err.Error()
}

package rag

import (
	"errors"
	"fmt"
)

// ErrInvalidSeed is returned when a seed file's root is not an array.
var ErrInvalidSeed = errors.New("rag: seed data must be an array")

// ValidationError reports a bad caller-supplied value.
type ValidationError struct {
	Field  string
	Reason string
	Err    error // optional sentinel, e.g. ErrInvalidSeed
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// StoreError reports a failure at the storage layer.
type StoreError struct {
	Op  string // "insert" | "search" | "count" | "open" | ...
	Err error
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *StoreError) Error() string {
	return fmt.Sprintf("vector store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

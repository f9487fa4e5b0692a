package domain

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationError carries every field-level failure found for a record.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return "validation failed"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// ErrNotFound is returned when an operation references an absent identifier.
type ErrNotFound struct {
	Entity EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// ErrForbidden is returned when an operation is not permitted in the record's current state.
type ErrForbidden struct {
	Entity EntityType
	ID     string
	Reason string
}

func (e ErrForbidden) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Entity, e.ID, e.Reason)
}

// PersistenceError wraps a failed read or write against the byte store.
type PersistenceError struct {
	Op  string
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ErrUnauthorized is returned when an asserted identity fails the access gate.
type ErrUnauthorized struct {
	Email  string
	Domain string
}

func (e ErrUnauthorized) Error() string {
	if e.Email == "" {
		return "not signed in"
	}
	return fmt.Sprintf("access restricted to @%s (signed in as %s)", e.Domain, e.Email)
}

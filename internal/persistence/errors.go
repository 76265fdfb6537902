// Package persistence defines the storage-level contracts and errors shared
// by slot store implementations.
package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrConflict is returned when a versioned write targets a record whose
	// stored version differs from the one the writer observed.
	ErrConflict = errors.New("persistence: version conflict")
	// ErrDuplicate is returned when a create collides with an existing id.
	ErrDuplicate = errors.New("persistence: duplicate id")
)

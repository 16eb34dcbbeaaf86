package storage

import "errors"

// Sentinel errors for journal operations.
var (
	// ErrNotFound is returned when no entry exists for the given ID.
	ErrNotFound = errors.New("journal entry not found")

	// ErrConflict is returned when an entry with the given ID already exists.
	ErrConflict = errors.New("journal entry already exists")
)

// Package storage declares the errors every storage backend reports.
package storage

import "errors"

var (
	// ErrNotFound is returned when no row matches.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists is returned on a unique key violation.
	ErrAlreadyExists = errors.New("record already exists")
	// ErrConflict is returned when a conditional update matched no row
	// because the record is no longer in the expected state.
	ErrConflict = errors.New("record state changed")
)

package models

import "errors"

var (
	// ErrNotFound is returned when a lookup matches no rows
	ErrNotFound = errors.New("not found")
	// ErrStorage is returned when the backing store rejects an operation
	ErrStorage = errors.New("storage error")
)

package repository

import "errors"

var (
	// ErrInsufficientCapacity is returned by DepartureRepository.Reserve when the
	// conditional decrement matched no row.
	ErrInsufficientCapacity = errors.New("insufficient capacity")

	// ErrNotFound is returned by write methods whose target row does not exist.
	// Lookups keep returning (nil, nil) on a miss.
	ErrNotFound = errors.New("record not found")

	// ErrTransient wraps a serialization failure, deadlock or lock timeout that
	// persisted after the configured retries.
	ErrTransient = errors.New("transient storage failure")
)

package domain

import "errors"

var (
	// ErrNotFound is returned by caches and stores when the requested entry
	// does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInsufficientData is returned when a series is too short for the
	// requested computation.
	ErrInsufficientData = errors.New("insufficient data")
)

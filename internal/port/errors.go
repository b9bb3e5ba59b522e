package port

import "errors"

// Sentinel errors used across ports.
var (
	// ErrNoData signals an informational early stop: no commits, no
	// tracked users, or nothing left after reconstruction. Not a failure.
	ErrNoData = errors.New("no data for the requested range")

	// ErrNotFound is returned when a record lookup matches nothing.
	ErrNotFound = errors.New("record not found")
)

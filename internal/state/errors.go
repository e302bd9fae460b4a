package state

import "errors"

// Validation errors. Callers check these with errors.Is.
var (
	// ErrInvalidLevel is returned when a level is missing, not a number,
	// or outside [0, 100].
	ErrInvalidLevel = errors.New("invalid level")

	// ErrInvalidStatus is returned when a reported status is not online or offline.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrInvalidColor is returned for a malformed color observation.
	ErrInvalidColor = errors.New("invalid color observation")

	// ErrInvalidProximity is returned for a malformed proximity observation.
	ErrInvalidProximity = errors.New("invalid proximity observation")
)

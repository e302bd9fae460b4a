package location

import "errors"

var (
	// ErrAreaNotFound is returned when neither an area ID nor slug matches.
	ErrAreaNotFound = errors.New("area not found")

	// ErrAreaExists is returned when an area with the same slug already exists.
	ErrAreaExists = errors.New("area already exists")

	// ErrInvalidName is returned when an area name is empty or too long.
	ErrInvalidName = errors.New("invalid area name")

	// ErrInvalidMeta is returned when area metadata exceeds size limits.
	ErrInvalidMeta = errors.New("invalid area metadata")
)

package telemetry

import "errors"

var (
	// ErrUnregistered is returned when telemetry references a correlation id
	// or bin that is not registered.
	ErrUnregistered = errors.New("unregistered hardware")

	// ErrInvalidPattern is returned when a route pattern does not have
	// exactly one "+" segment.
	ErrInvalidPattern = errors.New("invalid topic pattern")

	// ErrMalformedPayload is returned when a payload does not decode into
	// the shape its telemetry kind expects.
	ErrMalformedPayload = errors.New("malformed payload")
)

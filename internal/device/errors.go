package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // handle not found case
//	}
var (
	// ErrDeviceNotFound is returned when a device ID does not exist.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrDeviceExists is returned when creating a device with an ID that already exists.
	ErrDeviceExists = errors.New("device: already exists")

	// ErrBinNotFound is returned when a bin ID does not exist.
	ErrBinNotFound = errors.New("device: bin not found")

	// ErrBinExists is returned when creating a bin with an ID that already exists.
	ErrBinExists = errors.New("device: bin already exists")

	// ErrCorrelationIDInUse is returned when a client_id_mqtt is already
	// bound to another device.
	ErrCorrelationIDInUse = errors.New("device: client_id_mqtt already in use")

	// ErrInvalidName is returned when a device name is empty or too long.
	ErrInvalidName = errors.New("device: invalid name")

	// ErrInvalidBinType is returned when a compartment type is not in the
	// configured set.
	ErrInvalidBinType = errors.New("device: invalid bin type")

	// ErrInvalidMeta is returned when metadata exceeds size limits.
	ErrInvalidMeta = errors.New("device: invalid metadata")
)

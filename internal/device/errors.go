package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // handle not found case
//	}
var (
	// ErrDeviceNotFound is returned when a device id or token does not exist.
	// A malformed token is reported the same way.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrTokenExhausted is returned when every generated token collided with an existing one.
	ErrTokenExhausted = errors.New("device: could not generate a unique token")

	// ErrDeviceInactive is returned when telemetry arrives from an Inactive device
	// while inactive devices are refused.
	ErrDeviceInactive = errors.New("device: inactive")
)

package telemetry

import "errors"

var (
	// ErrReadingNotFound is returned when a reading id does not exist.
	ErrReadingNotFound = errors.New("telemetry: reading not found")

	// ErrAlertNotFound is returned when an alert id does not exist.
	ErrAlertNotFound = errors.New("telemetry: alert not found")

	// ErrInvalidPayload is returned when an MQTT payload is not a JSON object.
	ErrInvalidPayload = errors.New("telemetry: invalid payload")
)

package telemetry

import (
	"time"

	"github.com/nerrad567/telemetry-core/internal/device"
	"github.com/nerrad567/telemetry-core/internal/validate"
)

// AlertType is the closed set of quantities an alert can be raised for.
type AlertType string

const (
	AlertTemperature AlertType = "Temperature"
	AlertHumidity    AlertType = "Humidity"
	AlertSmokeLevel  AlertType = "SmokeLevel"
	AlertGasLevel    AlertType = "GasLevel"
)

// AllAlertTypes returns every alert type in display order.
func AllAlertTypes() []AlertType {
	return []AlertType{AlertTemperature, AlertHumidity, AlertSmokeLevel, AlertGasLevel}
}

// IsValid reports whether t is one of the known alert types.
func (t AlertType) IsValid() bool {
	for _, known := range AllAlertTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// DefaultAlertStatus is stored when an alert arrives without a status.
const DefaultAlertStatus = "Pending"

// Reading is one sample from a device's four sensors.
// DeviceID and Device are nil for orphan rows kept under the accept policy.
type Reading struct {
	ID          int64           `json:"id"`
	DeviceID    *int64          `json:"device_id"`
	Temperature float64         `json:"temperature"`
	Humidity    float64         `json:"humidity"`
	SmokeLevel  float64         `json:"smoke_level"`
	GasLevel    float64         `json:"gas_level"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Device      *device.Summary `json:"device"`
}

// Alert records a value that crossed its threshold.
// Status is free-form; devices and operators use values such as Pending and Executed.
type Alert struct {
	ID        int64           `json:"id"`
	DeviceID  *int64          `json:"device_id"`
	Type      AlertType       `json:"type"`
	Status    string          `json:"status"`
	Value     float64         `json:"value"`
	MaxValue  float64         `json:"max_value"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Device    *device.Summary `json:"device"`
}

// ReadingInput is the body of a reading create or update request.
// Pointers distinguish a missing field from an explicit zero. Sensor values
// accept JSON numbers and numeric strings.
type ReadingInput struct {
	DeviceToken *string          `json:"device_token"`
	Temperature *validate.Number `json:"temperature"`
	Humidity    *validate.Number `json:"humidity"`
	SmokeLevel  *validate.Number `json:"smoke_level"`
	GasLevel    *validate.Number `json:"gas_level"`
}

// AlertInput is the body of an alert create or update request.
type AlertInput struct {
	DeviceToken *string          `json:"device_token"`
	Type        *string          `json:"type"`
	Status      *string          `json:"status"`
	Value       *validate.Number `json:"value"`
	MaxValue    *validate.Number `json:"max_value"`
}

// Event types emitted after telemetry is stored.
const (
	EventReadingCreated = "reading.created"
	EventAlertCreated   = "alert.created"
)

// Live feed channels. They also name the MQTT event topics.
const (
	ChannelReadings = "readings"
	ChannelAlerts   = "alerts"
)

// Event announces stored telemetry to MQTT, InfluxDB and WebSocket subscribers.
type Event struct {
	Type      string    `json:"type"`
	DeviceID  *int64    `json:"device_id"`
	Reading   *Reading  `json:"reading,omitempty"`
	Alert     *Alert    `json:"alert,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Channel returns the live feed channel the event belongs to, or "" for an
// unknown event type.
func (e Event) Channel() string {
	switch e.Type {
	case EventReadingCreated:
		return ChannelReadings
	case EventAlertCreated:
		return ChannelAlerts
	default:
		return ""
	}
}

package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names written by the mirror.
const (
	MeasurementReading = "sensor_reading"
	MeasurementAlert   = "sensor_alert"
)

// orphanTag is the device_id tag value for telemetry stored without a device.
const orphanTag = "orphan"

// Reading is the set of values mirrored for one sensor reading.
type Reading struct {
	DeviceID    *int64
	Temperature float64
	Humidity    float64
	SmokeLevel  float64
	GasLevel    float64
	At          time.Time
}

// Alert is the set of values mirrored for one threshold alert.
type Alert struct {
	DeviceID *int64
	Type     string
	Value    float64
	MaxValue float64
	At       time.Time
}

// WriteReading queues a reading for the next batch. It is a no-op when
// the client is not connected.
func (c *Client) WriteReading(r Reading) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(readingPoint(r))
}

// WriteAlert queues an alert for the next batch.
func (c *Client) WriteAlert(a Alert) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(alertPoint(a))
}

func readingPoint(r Reading) *write.Point {
	return write.NewPoint(
		MeasurementReading,
		map[string]string{"device_id": deviceTag(r.DeviceID)},
		map[string]interface{}{
			"temperature": r.Temperature,
			"humidity":    r.Humidity,
			"smoke_level": r.SmokeLevel,
			"gas_level":   r.GasLevel,
		},
		pointTime(r.At),
	)
}

func alertPoint(a Alert) *write.Point {
	return write.NewPoint(
		MeasurementAlert,
		map[string]string{
			"device_id": deviceTag(a.DeviceID),
			"type":      a.Type,
		},
		map[string]interface{}{
			"value":     a.Value,
			"max_value": a.MaxValue,
		},
		pointTime(a.At),
	)
}

func deviceTag(id *int64) string {
	if id == nil {
		return orphanTag
	}
	return strconv.FormatInt(*id, 10)
}

func pointTime(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}

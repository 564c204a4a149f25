package mqtt

import (
	"fmt"
	"strings"
)

// Topic tree:
//
//	telemetry/devices/{token}/readings   device -> service
//	telemetry/devices/{token}/alerts     device -> service
//	telemetry/events/readings            service -> subscribers
//	telemetry/events/alerts              service -> subscribers
//	telemetry/system/status              retained online/offline
const (
	TopicPrefix        = "telemetry"
	TopicPrefixDevices = TopicPrefix + "/devices"
	TopicPrefixEvents  = TopicPrefix + "/events"
	TopicPrefixSystem  = TopicPrefix + "/system"
)

// Kinds of device telemetry carried on the device topics.
const (
	KindReadings = "readings"
	KindAlerts   = "alerts"
)

// Topics provides builders for the service's MQTT topics.
type Topics struct{}

// DeviceReadings is where a device publishes sensor readings.
func (Topics) DeviceReadings(token string) string {
	return fmt.Sprintf("%s/%s/%s", TopicPrefixDevices, token, KindReadings)
}

// DeviceAlerts is where a device publishes threshold alerts.
func (Topics) DeviceAlerts(token string) string {
	return fmt.Sprintf("%s/%s/%s", TopicPrefixDevices, token, KindAlerts)
}

// AllDeviceReadings matches every device's readings topic.
func (Topics) AllDeviceReadings() string {
	return fmt.Sprintf("%s/+/%s", TopicPrefixDevices, KindReadings)
}

// AllDeviceAlerts matches every device's alerts topic.
func (Topics) AllDeviceAlerts() string {
	return fmt.Sprintf("%s/+/%s", TopicPrefixDevices, KindAlerts)
}

// EventReadings carries a notification for each stored reading.
func (Topics) EventReadings() string {
	return TopicPrefixEvents + "/" + KindReadings
}

// EventAlerts carries a notification for each stored alert.
func (Topics) EventAlerts() string {
	return TopicPrefixEvents + "/" + KindAlerts
}

// SystemStatus is the retained online/offline topic (also the LWT topic).
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// ParseDeviceTopic splits telemetry/devices/{token}/{kind} into its token and kind.
func ParseDeviceTopic(topic string) (token, kind string, err error) {
	rest, ok := strings.CutPrefix(topic, TopicPrefixDevices+"/")
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrNotDeviceTopic, topic)
	}

	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" {
		return "", "", fmt.Errorf("%w: %q", ErrNotDeviceTopic, topic)
	}

	switch parts[1] {
	case KindReadings, KindAlerts:
		return parts[0], parts[1], nil
	default:
		return "", "", fmt.Errorf("%w: unknown kind %q", ErrNotDeviceTopic, parts[1])
	}
}

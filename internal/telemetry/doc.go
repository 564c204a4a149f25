// Package telemetry stores sensor readings and alerts and admits them from devices.
//
// Devices report over HTTP (POST /readings, POST /alerts) or MQTT
// (telemetry/devices/{token}/readings|alerts). Both paths go through the
// Ingestor, which:
//
//  1. validates the payload field by field
//  2. resolves the device token, applying the unknown-token policy
//  3. stores the row
//  4. hands an Event to each Sink (MQTT events, InfluxDB, WebSocket live feed)
//
// Under the reject policy an unknown token stores nothing. Under the accept
// policy the row is stored with a NULL device and rendered with "device": null.
//
// Reads use an explicit LEFT JOIN on devices and load only the id, name and
// location of the device.
package telemetry

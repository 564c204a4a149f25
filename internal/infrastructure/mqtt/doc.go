// Package mqtt connects Telemetry Core to an MQTT broker.
//
// Devices that cannot speak HTTP publish readings and alerts on
// telemetry/devices/{token}/readings|alerts; the service subscribes with
// wildcards and feeds them through the same ingest path as the HTTP API.
// Each stored record is announced on telemetry/events/readings|alerts.
//
// The client wraps paho.mqtt.golang, restores subscriptions after a
// reconnect and recovers panics in message handlers. A retained status
// message with a Last Will tells subscribers whether the service is up.
//
// Usage:
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//	client.SetLogger(logger)
package mqtt

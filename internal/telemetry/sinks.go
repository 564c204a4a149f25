package telemetry

import (
	"context"
	"fmt"

	"github.com/nerrad567/telemetry-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/telemetry-core/internal/infrastructure/mqtt"
)

// channelFor maps an event to the feed and topic kind it belongs to.
func channelFor(event Event) (string, error) {
	if channel := event.Channel(); channel != "" {
		return channel, nil
	}
	return "", fmt.Errorf("unknown event type %q", event.Type)
}

// JSONPublisher is the part of the MQTT client used for events.
type JSONPublisher interface {
	PublishJSON(topic string, v any) error
}

// MQTTSink publishes events on telemetry/events/readings and telemetry/events/alerts.
type MQTTSink struct {
	client JSONPublisher
}

// NewMQTTSink creates a sink publishing through client.
func NewMQTTSink(client JSONPublisher) *MQTTSink {
	return &MQTTSink{client: client}
}

// Name identifies the sink in logs.
func (*MQTTSink) Name() string { return "mqtt" }

// Publish sends the event to its topic.
func (s *MQTTSink) Publish(_ context.Context, event Event) error {
	channel, err := channelFor(event)
	if err != nil {
		return err
	}

	topic := mqtt.Topics{}.EventReadings()
	if channel == ChannelAlerts {
		topic = mqtt.Topics{}.EventAlerts()
	}
	return s.client.PublishJSON(topic, event)
}

// PointWriter is the part of the InfluxDB client used for mirroring.
type PointWriter interface {
	WriteReading(r influxdb.Reading)
	WriteAlert(a influxdb.Alert)
}

// InfluxSink mirrors stored readings and alerts as time-series points.
type InfluxSink struct {
	writer PointWriter
}

// NewInfluxSink creates a sink writing through writer.
func NewInfluxSink(writer PointWriter) *InfluxSink {
	return &InfluxSink{writer: writer}
}

// Name identifies the sink in logs.
func (*InfluxSink) Name() string { return "influxdb" }

// Publish queues a point. Writes are batched, so delivery errors surface
// through the client's error callback rather than here.
func (s *InfluxSink) Publish(_ context.Context, event Event) error {
	switch {
	case event.Reading != nil:
		r := event.Reading
		s.writer.WriteReading(influxdb.Reading{
			DeviceID:    r.DeviceID,
			Temperature: r.Temperature,
			Humidity:    r.Humidity,
			SmokeLevel:  r.SmokeLevel,
			GasLevel:    r.GasLevel,
			At:          r.CreatedAt,
		})
	case event.Alert != nil:
		a := event.Alert
		s.writer.WriteAlert(influxdb.Alert{
			DeviceID: a.DeviceID,
			Type:     string(a.Type),
			Value:    a.Value,
			MaxValue: a.MaxValue,
			At:       a.CreatedAt,
		})
	default:
		return fmt.Errorf("event %q carries no record", event.Type)
	}
	return nil
}

// LiveFeed receives every stored event for WebSocket subscribers.
// *api.Feed satisfies it.
type LiveFeed interface {
	Deliver(event Event)
}

// FeedSink hands events to the WebSocket live feed.
type FeedSink struct {
	feed LiveFeed
}

// NewFeedSink creates a sink delivering to feed.
func NewFeedSink(feed LiveFeed) *FeedSink {
	return &FeedSink{feed: feed}
}

// Name identifies the sink in logs.
func (*FeedSink) Name() string { return "websocket" }

// Publish delivers the event. Unknown event types are refused.
func (s *FeedSink) Publish(_ context.Context, event Event) error {
	if _, err := channelFor(event); err != nil {
		return err
	}
	s.feed.Deliver(event)
	return nil
}

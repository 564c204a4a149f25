package telemetry

import (
	"testing"
	"time"

	"github.com/nerrad567/telemetry-core/internal/infrastructure/influxdb"
)

type fakePublisher struct {
	topics   []string
	payloads []any
	err      error
}

func (f *fakePublisher) PublishJSON(topic string, v any) error {
	f.topics = append(f.topics, topic)
	f.payloads = append(f.payloads, v)
	return f.err
}

type fakeWriter struct {
	readings []influxdb.Reading
	alerts   []influxdb.Alert
}

func (f *fakeWriter) WriteReading(r influxdb.Reading) { f.readings = append(f.readings, r) }
func (f *fakeWriter) WriteAlert(a influxdb.Alert)     { f.alerts = append(f.alerts, a) }

type fakeFeed struct {
	events []Event
}

func (f *fakeFeed) Deliver(e Event) { f.events = append(f.events, e) }

func sampleEvents() (Event, Event) {
	id := int64(3)
	at := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)
	reading := Event{
		Type: EventReadingCreated, DeviceID: &id, Timestamp: at,
		Reading: &Reading{ID: 1, DeviceID: &id, Temperature: 20, Humidity: 30, SmokeLevel: 1, GasLevel: 2, CreatedAt: at},
	}
	alert := Event{
		Type: EventAlertCreated, Timestamp: at,
		Alert: &Alert{ID: 2, Type: AlertHumidity, Value: 95, MaxValue: 80, CreatedAt: at},
	}
	return reading, alert
}

func TestMQTTSink(t *testing.T) {
	pub := &fakePublisher{}
	sink := NewMQTTSink(pub)
	reading, alert := sampleEvents()

	for _, e := range []Event{reading, alert} {
		if err := sink.Publish(t.Context(), e); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
	}
	if len(pub.topics) != 2 || pub.topics[0] != "telemetry/events/readings" || pub.topics[1] != "telemetry/events/alerts" {
		t.Errorf("topics = %v", pub.topics)
	}
	if err := sink.Publish(t.Context(), Event{Type: "device.exploded"}); err == nil {
		t.Error("Publish() should reject an unknown event type")
	}
	if sink.Name() != "mqtt" {
		t.Errorf("Name() = %q", sink.Name())
	}
}

func TestInfluxSink(t *testing.T) {
	w := &fakeWriter{}
	sink := NewInfluxSink(w)
	reading, alert := sampleEvents()

	if err := sink.Publish(t.Context(), reading); err != nil {
		t.Fatalf("Publish(reading) error = %v", err)
	}
	if err := sink.Publish(t.Context(), alert); err != nil {
		t.Fatalf("Publish(alert) error = %v", err)
	}

	if len(w.readings) != 1 || *w.readings[0].DeviceID != 3 || w.readings[0].Temperature != 20 || !w.readings[0].At.Equal(reading.Timestamp) {
		t.Errorf("readings = %+v", w.readings)
	}
	if len(w.alerts) != 1 || w.alerts[0].DeviceID != nil || w.alerts[0].Type != "Humidity" {
		t.Errorf("alerts = %+v", w.alerts)
	}
	if err := sink.Publish(t.Context(), Event{Type: EventReadingCreated}); err == nil {
		t.Error("Publish() should reject an event without a record")
	}
}

func TestFeedSink(t *testing.T) {
	feed := &fakeFeed{}
	sink := NewFeedSink(feed)
	reading, alert := sampleEvents()

	for _, e := range []Event{reading, alert} {
		if err := sink.Publish(t.Context(), e); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
	}
	if err := sink.Publish(t.Context(), Event{Type: "device.deleted"}); err == nil {
		t.Error("Publish() accepted an unknown event type")
	}

	if len(feed.events) != 2 || feed.events[0].Channel() != ChannelReadings || feed.events[1].Channel() != ChannelAlerts {
		t.Errorf("events = %+v", feed.events)
	}
	if feed.events[0].Reading == nil || feed.events[1].Alert == nil {
		t.Error("events lost their records")
	}
}

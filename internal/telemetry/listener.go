package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nerrad567/telemetry-core/internal/device"
	"github.com/nerrad567/telemetry-core/internal/infrastructure/logging"
	"github.com/nerrad567/telemetry-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/telemetry-core/internal/validate"
)

// Subscriber is the part of the MQTT client used for device topics.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Listener feeds telemetry published on telemetry/devices/{token}/... into
// an Ingestor. Payloads are the HTTP bodies without device_token, which is
// taken from the topic.
type Listener struct {
	ingestor *Ingestor
	qos      byte
	logger   Logger
	ctx      context.Context //nolint:containedctx // paho callbacks carry no context
}

// NewListener creates a listener for ingestor. ctx bounds every ingest it
// triggers and should be the service's root context.
func NewListener(ctx context.Context, ingestor *Ingestor, qos byte) *Listener {
	return &Listener{ingestor: ingestor, qos: qos, logger: noopLogger{}, ctx: ctx}
}

// SetLogger sets the logger for the listener.
func (l *Listener) SetLogger(logger Logger) {
	l.logger = logger
}

// Start subscribes to the readings and alerts topics of every device.
func (l *Listener) Start(sub Subscriber) error {
	topics := mqtt.Topics{}
	for _, topic := range []string{topics.AllDeviceReadings(), topics.AllDeviceAlerts()} {
		if err := sub.Subscribe(topic, l.qos, l.HandleMessage); err != nil {
			return fmt.Errorf("subscribing to %s: %w", topic, err)
		}
	}
	return nil
}

// HandleMessage ingests one device message. Rejections are logged and
// returned; the MQTT client logs the returned error as well.
func (l *Listener) HandleMessage(topic string, payload []byte) error {
	token, kind, err := mqtt.ParseDeviceTopic(topic)
	if err != nil {
		return err
	}

	switch kind {
	case mqtt.KindReadings:
		var in ReadingInput
		if err := decodePayload(payload, &in); err != nil {
			return err
		}
		in.DeviceToken = &token
		_, err = l.ingestor.IngestReading(l.ctx, in)
	case mqtt.KindAlerts:
		var in AlertInput
		if err := decodePayload(payload, &in); err != nil {
			return err
		}
		in.DeviceToken = &token
		_, err = l.ingestor.IngestAlert(l.ctx, in)
	}

	if err != nil {
		l.logRejection(token, kind, err)
		return err
	}
	l.logger.Debug("mqtt telemetry stored", "kind", kind, "token", logging.TokenHint(token))
	return nil
}

func (l *Listener) logRejection(token, kind string, err error) {
	var verrs validate.Errors
	switch {
	case errors.As(err, &verrs):
		l.logger.Warn("mqtt telemetry failed validation", "kind", kind, "token", logging.TokenHint(token), "fields", map[string][]string(verrs))
	case errors.Is(err, device.ErrDeviceNotFound), errors.Is(err, device.ErrDeviceInactive):
		l.logger.Warn("mqtt telemetry refused", "kind", kind, "token", logging.TokenHint(token), "reason", err)
	default:
		l.logger.Error("mqtt telemetry not stored", "kind", kind, "token", logging.TokenHint(token), "error", err)
	}
}

func decodePayload(payload []byte, v any) error {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return ErrInvalidPayload
	}
	if err := json.Unmarshal(trimmed, v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	return nil
}

package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/telemetry-core/internal/device"
	"github.com/nerrad567/telemetry-core/internal/infrastructure/config"
	"github.com/nerrad567/telemetry-core/internal/infrastructure/logging"
)

// Logger defines the logging interface used by the ingest path.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// DeviceLookup resolves a device token to the device's id and status.
// *device.Registry satisfies it.
type DeviceLookup interface {
	Lookup(ctx context.Context, token string) (device.Identity, error)
}

// Sink receives an event for every stored reading and alert.
// A sink error is logged and never fails the ingest request.
type Sink interface {
	Name() string
	Publish(ctx context.Context, event Event) error
}

// Ingestor admits telemetry from devices. It validates the payload,
// resolves the token, stores the record and fans the result out to sinks.
type Ingestor struct {
	devices       DeviceLookup
	readings      ReadingRepository
	alerts        AlertRepository
	policy        string
	requireActive bool
	logger        Logger

	mu    sync.RWMutex
	sinks []Sink
}

// NewIngestor creates an ingestor applying the admission rules in cfg.
func NewIngestor(devices DeviceLookup, readings ReadingRepository, alerts AlertRepository, cfg config.IngestConfig) *Ingestor {
	policy := cfg.UnknownTokenPolicy
	if policy == "" {
		policy = config.PolicyReject
	}
	return &Ingestor{
		devices:       devices,
		readings:      readings,
		alerts:        alerts,
		policy:        policy,
		requireActive: cfg.RequireActive,
		logger:        noopLogger{},
	}
}

// SetLogger sets the logger for the ingestor.
func (i *Ingestor) SetLogger(logger Logger) {
	i.logger = logger
}

// AddSink registers a fan-out target. It is safe to call while ingest is
// running; events already being delivered do not see the new sink.
func (i *Ingestor) AddSink(s Sink) {
	if s == nil {
		return
	}
	i.mu.Lock()
	i.sinks = append(i.sinks, s)
	i.mu.Unlock()
}

// IngestReading validates and stores a reading reported by the device holding in.DeviceToken.
//
// Errors:
//   - validate.Errors when a field is missing or malformed
//   - device.ErrDeviceNotFound for an unknown token under the reject policy
//   - device.ErrDeviceInactive when inactive devices are refused
func (i *Ingestor) IngestReading(ctx context.Context, in ReadingInput) (*Reading, error) {
	if err := ValidateReadingCreate(in); err != nil {
		return nil, err
	}

	deviceID, err := i.admit(ctx, *in.DeviceToken)
	if err != nil {
		return nil, err
	}

	r := &Reading{
		DeviceID:    deviceID,
		Temperature: in.Temperature.Float64(),
		Humidity:    in.Humidity.Float64(),
		SmokeLevel:  in.SmokeLevel.Float64(),
		GasLevel:    in.GasLevel.Float64(),
	}
	if err := i.readings.Create(ctx, r); err != nil {
		return nil, err
	}

	i.fanOut(ctx, Event{Type: EventReadingCreated, DeviceID: r.DeviceID, Reading: r, Timestamp: r.CreatedAt})
	return r, nil
}

// IngestAlert validates and stores an alert. Errors match IngestReading.
func (i *Ingestor) IngestAlert(ctx context.Context, in AlertInput) (*Alert, error) {
	if err := ValidateAlertCreate(in); err != nil {
		return nil, err
	}

	deviceID, err := i.admit(ctx, *in.DeviceToken)
	if err != nil {
		return nil, err
	}

	a := &Alert{
		DeviceID: deviceID,
		Type:     AlertType(*in.Type),
		Status:   alertStatus(in),
		Value:    in.Value.Float64(),
		MaxValue: in.MaxValue.Float64(),
	}
	if err := i.alerts.Create(ctx, a); err != nil {
		return nil, err
	}

	i.fanOut(ctx, Event{Type: EventAlertCreated, DeviceID: a.DeviceID, Alert: a, Timestamp: a.CreatedAt})
	return a, nil
}

// admit resolves token to the device id to store. A nil id means the row is
// kept as an orphan under the accept policy.
func (i *Ingestor) admit(ctx context.Context, token string) (*int64, error) {
	identity, err := i.devices.Lookup(ctx, token)
	if err != nil {
		if !errors.Is(err, device.ErrDeviceNotFound) {
			return nil, fmt.Errorf("resolving device token: %w", err)
		}
		if i.policy != config.PolicyAccept {
			return nil, err
		}
		i.logger.Warn("storing telemetry for unknown device token",
			"token", logging.TokenHint(token),
			"policy", i.policy,
		)
		return nil, nil
	}

	if i.requireActive && identity.Status != device.StatusActive {
		return nil, device.ErrDeviceInactive
	}

	id := identity.ID
	return &id, nil
}

// fanOut delivers an event to every sink with a bounded deadline.
// The request context may already be finishing, so a detached one is used.
func (i *Ingestor) fanOut(ctx context.Context, event Event) {
	i.mu.RLock()
	sinks := i.sinks
	i.mu.RUnlock()
	if len(sinks) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sinkTimeout)
	defer cancel()

	for _, s := range sinks {
		if err := s.Publish(ctx, event); err != nil {
			i.logger.Warn("telemetry fan-out failed",
				"sink", s.Name(),
				"event", event.Type,
				"error", err,
			)
		}
	}
}

// sinkTimeout bounds the time spent delivering one event to all sinks.
const sinkTimeout = 2 * time.Second

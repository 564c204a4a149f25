package device

import (
	"context"
	"fmt"
	"sync"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Resolver maps a device token to the id of the device holding it.
type Resolver interface {
	Resolve(ctx context.Context, token string) (int64, error)
}

// Identity is what ingest needs to know about the device behind a token.
type Identity struct {
	ID     int64
	Status Status
}

// Registry wraps a Repository with an in-memory token cache so that ingest
// does not hit the database to resolve every reading.
//
// The cache holds only tokens that resolved, so a device created after
// startup is found on its first lookup. Status changes and deletes made
// through the Registry keep the cache in step; writes that bypass it
// (another process editing the database) are not seen until RefreshCache.
//
// All public methods are thread-safe.
type Registry struct {
	repo    Repository
	cache   map[string]Identity // by token
	cacheMu sync.RWMutex
	logger  Logger
}

// NewRegistry creates a new device registry.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:   repo,
		cache:  make(map[string]Identity),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// RefreshCache reloads every device token from the repository.
// This should be called on application startup.
func (r *Registry) RefreshCache(ctx context.Context) error {
	devices, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading devices: %w", err)
	}

	cache := make(map[string]Identity, len(devices))
	for _, d := range devices {
		cache[d.Token] = Identity{ID: d.ID, Status: d.Status}
	}

	r.cacheMu.Lock()
	r.cache = cache
	r.cacheMu.Unlock()

	r.logger.Info("device cache refreshed", "count", len(devices))
	return nil
}

// Resolve returns the id of the device holding token.
// Malformed and unknown tokens both yield ErrDeviceNotFound.
func (r *Registry) Resolve(ctx context.Context, token string) (int64, error) {
	id, err := r.Lookup(ctx, token)
	if err != nil {
		return 0, err
	}
	return id.ID, nil
}

// Lookup returns the id and status of the device holding token.
func (r *Registry) Lookup(ctx context.Context, token string) (Identity, error) {
	if !IsValidToken(token) {
		return Identity{}, ErrDeviceNotFound
	}

	r.cacheMu.RLock()
	cached, ok := r.cache[token]
	r.cacheMu.RUnlock()
	if ok {
		return cached, nil
	}

	d, err := r.repo.GetByToken(ctx, token)
	if err != nil {
		return Identity{}, err
	}

	id := Identity{ID: d.ID, Status: d.Status}
	r.cacheMu.Lock()
	r.cache[token] = id
	r.cacheMu.Unlock()
	return id, nil
}

// ListDevices retrieves all devices ordered by id.
func (r *Registry) ListDevices(ctx context.Context) ([]Device, error) {
	return r.repo.List(ctx)
}

// GetDevice retrieves a device by id.
func (r *Registry) GetDevice(ctx context.Context, id int64) (*Device, error) {
	return r.repo.GetByID(ctx, id)
}

// CreateDevice stores a new device and caches its token.
func (r *Registry) CreateDevice(ctx context.Context, d *Device) error {
	if err := r.repo.Create(ctx, d); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.cache[d.Token] = Identity{ID: d.ID, Status: d.Status}
	r.cacheMu.Unlock()

	r.logger.Info("device created", "device_id", d.ID, "name", d.Name)
	return nil
}

// UpdateDevice replaces a device's name and location.
func (r *Registry) UpdateDevice(ctx context.Context, d *Device) error {
	if err := r.repo.Update(ctx, d); err != nil {
		return err
	}
	r.logger.Info("device updated", "device_id", d.ID)
	return nil
}

// DeleteDevice removes a device with its readings and alerts and evicts its token.
func (r *Registry) DeleteDevice(ctx context.Context, id int64) error {
	if err := r.repo.Delete(ctx, id); err != nil {
		return err
	}

	r.cacheMu.Lock()
	for token, cached := range r.cache {
		if cached.ID == id {
			delete(r.cache, token)
		}
	}
	r.cacheMu.Unlock()

	r.logger.Info("device deleted", "device_id", id)
	return nil
}

// Activate marks the device holding token as Active. Repeating it is harmless.
func (r *Registry) Activate(ctx context.Context, token string) error {
	return r.setStatus(ctx, token, StatusActive)
}

// Deactivate marks the device holding token as Inactive. Repeating it is harmless.
func (r *Registry) Deactivate(ctx context.Context, token string) error {
	return r.setStatus(ctx, token, StatusInactive)
}

// Status returns the current status of the device holding token.
func (r *Registry) Status(ctx context.Context, token string) (Status, error) {
	id, err := r.Lookup(ctx, token)
	if err != nil {
		return "", err
	}
	return id.Status, nil
}

func (r *Registry) setStatus(ctx context.Context, token string, status Status) error {
	if !IsValidToken(token) {
		return ErrDeviceNotFound
	}
	if err := r.repo.SetStatus(ctx, token, status); err != nil {
		return err
	}

	r.cacheMu.Lock()
	if cached, ok := r.cache[token]; ok {
		cached.Status = status
		r.cache[token] = cached
	}
	r.cacheMu.Unlock()

	r.logger.Debug("device status changed", "status", string(status))
	return nil
}

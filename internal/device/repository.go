package device

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/telemetry-core/internal/infrastructure/database"
)

// maxTokenAttempts bounds token regeneration after unique-constraint collisions.
const maxTokenAttempts = 5

// Repository defines the interface for device persistence operations.
type Repository interface {
	// List retrieves all devices ordered by id.
	List(ctx context.Context) ([]Device, error)

	// GetByID retrieves a device by its identifier.
	// Returns ErrDeviceNotFound if the device does not exist.
	GetByID(ctx context.Context, id int64) (*Device, error)

	// GetByToken retrieves a device by its token.
	// Returns ErrDeviceNotFound if no device holds the token.
	GetByToken(ctx context.Context, token string) (*Device, error)

	// Create inserts a new Inactive device with a freshly generated token.
	Create(ctx context.Context, device *Device) error

	// Update replaces the name and location of an existing device.
	// Returns ErrDeviceNotFound if the device does not exist.
	Update(ctx context.Context, device *Device) error

	// Delete removes a device together with its readings and alerts.
	// Returns ErrDeviceNotFound if the device does not exist.
	Delete(ctx context.Context, id int64) error

	// SetStatus sets the status of the device holding token.
	// Returns ErrDeviceNotFound if no device holds the token.
	SetStatus(ctx context.Context, token string, status Status) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db       *sql.DB
	newToken func() (string, error)
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, newToken: GenerateToken}
}

const selectDevice = `
	SELECT id, name, location, token, status, created_at, updated_at
	FROM devices`

// List retrieves all devices ordered by id.
func (r *SQLiteRepository) List(ctx context.Context) ([]Device, error) {
	rows, err := r.db.QueryContext(ctx, selectDevice+" ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	devices := []Device{}
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		devices = append(devices, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}
	return devices, nil
}

// GetByID retrieves a device by its identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*Device, error) {
	return r.getOne(ctx, selectDevice+" WHERE id = ?", id)
}

// GetByToken retrieves a device by its token.
func (r *SQLiteRepository) GetByToken(ctx context.Context, token string) (*Device, error) {
	return r.getOne(ctx, selectDevice+" WHERE token = ?", token)
}

func (r *SQLiteRepository) getOne(ctx context.Context, query string, arg any) (*Device, error) {
	d, err := scanDevice(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying device: %w", err)
	}
	return d, nil
}

// Create inserts a new device. Token and status are always assigned here;
// any values already set on device are overwritten.
func (r *SQLiteRepository) Create(ctx context.Context, device *Device) error {
	now := time.Now().UTC().Truncate(time.Second)
	ts := now.Format(time.RFC3339)

	for attempt := 1; attempt <= maxTokenAttempts; attempt++ {
		token, err := r.newToken()
		if err != nil {
			return err
		}

		result, err := r.db.ExecContext(ctx,
			`INSERT INTO devices (name, location, token, status, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			device.Name, device.Location, token, string(StatusInactive), ts, ts,
		)
		if err != nil {
			if database.IsUniqueViolation(err) {
				continue
			}
			return fmt.Errorf("inserting device: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading device id: %w", err)
		}

		device.ID = id
		device.Token = token
		device.Status = StatusInactive
		device.CreatedAt = now
		device.UpdatedAt = now
		return nil
	}

	return ErrTokenExhausted
}

// Update replaces the name and location of an existing device.
func (r *SQLiteRepository) Update(ctx context.Context, device *Device) error {
	now := time.Now().UTC().Truncate(time.Second)

	result, err := r.db.ExecContext(ctx,
		`UPDATE devices SET name = ?, location = ?, updated_at = ? WHERE id = ?`,
		device.Name, device.Location, now.Format(time.RFC3339), device.ID,
	)
	if err != nil {
		return fmt.Errorf("updating device: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrDeviceNotFound
	}
	device.UpdatedAt = now
	return nil
}

// Delete removes a device and its dependent rows in one transaction.
// The schema has no ON DELETE CASCADE, so the dependents are removed here.
func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM sensor_readings WHERE device_id = ?", id); err != nil {
			return fmt.Errorf("deleting device readings: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM alerts WHERE device_id = ?", id); err != nil {
			return fmt.Errorf("deleting device alerts: %w", err)
		}

		result, err := tx.ExecContext(ctx, "DELETE FROM devices WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("deleting device: %w", err)
		}
		rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
		if rows == 0 {
			return ErrDeviceNotFound
		}
		return nil
	})
}

// SetStatus sets the status of the device holding token. Setting the
// current status again succeeds.
func (r *SQLiteRepository) SetStatus(ctx context.Context, token string, status Status) error {
	if !status.IsValid() {
		return fmt.Errorf("setting device status: unknown status %q", status)
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE devices SET status = ?, updated_at = ? WHERE token = ?`,
		string(status), time.Now().UTC().Format(time.RFC3339), token,
	)
	if err != nil {
		return fmt.Errorf("updating device status: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// scanner is an interface for sql.Row and sql.Rows Scan methods.
type scanner interface {
	Scan(dest ...any) error
}

func scanDevice(s scanner) (*Device, error) {
	var d Device
	var status, createdAt, updatedAt string

	if err := s.Scan(&d.ID, &d.Name, &d.Location, &d.Token, &status, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	d.Status = Status(status)
	d.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	d.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled
	return &d, nil
}

package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/telemetry-core/internal/device"
)

// ReadingRepository defines the interface for sensor reading persistence.
type ReadingRepository interface {
	// List returns every reading ordered by id, each with its device summary.
	List(ctx context.Context) ([]Reading, error)

	// GetByID returns one reading with its device summary.
	// Returns ErrReadingNotFound if the reading does not exist.
	GetByID(ctx context.Context, id int64) (*Reading, error)

	// Create stores a reading. A nil DeviceID stores an orphan row.
	Create(ctx context.Context, r *Reading) error

	// Update replaces the four sensor values. The device reference is kept.
	Update(ctx context.Context, r *Reading) error

	// Delete removes a reading.
	Delete(ctx context.Context, id int64) error
}

// SQLiteReadingRepository implements ReadingRepository using SQLite.
type SQLiteReadingRepository struct {
	db *sql.DB
}

// NewReadingRepository creates a new SQLite-backed reading repository.
func NewReadingRepository(db *sql.DB) *SQLiteReadingRepository {
	return &SQLiteReadingRepository{db: db}
}

// The device columns come from an explicit LEFT JOIN so orphan rows are kept
// and only the summary fields are loaded.
const selectReading = `
	SELECT r.id, r.device_id, r.temperature, r.humidity, r.smoke_level, r.gas_level,
		r.created_at, r.updated_at, d.id, d.name, d.location
	FROM sensor_readings r
	LEFT JOIN devices d ON d.id = r.device_id`

// List returns every reading ordered by id.
func (r *SQLiteReadingRepository) List(ctx context.Context) ([]Reading, error) {
	rows, err := r.db.QueryContext(ctx, selectReading+" ORDER BY r.id")
	if err != nil {
		return nil, fmt.Errorf("querying readings: %w", err)
	}
	defer rows.Close()

	readings := []Reading{}
	for rows.Next() {
		reading, err := scanReading(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning reading: %w", err)
		}
		readings = append(readings, *reading)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating readings: %w", err)
	}
	return readings, nil
}

// GetByID returns one reading.
func (r *SQLiteReadingRepository) GetByID(ctx context.Context, id int64) (*Reading, error) {
	reading, err := scanReading(r.db.QueryRowContext(ctx, selectReading+" WHERE r.id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReadingNotFound
		}
		return nil, fmt.Errorf("querying reading: %w", err)
	}
	return reading, nil
}

// Create stores a reading and fills in its id and timestamps.
func (r *SQLiteReadingRepository) Create(ctx context.Context, reading *Reading) error {
	now := time.Now().UTC().Truncate(time.Second)
	ts := now.Format(time.RFC3339)

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO sensor_readings (device_id, temperature, humidity, smoke_level, gas_level, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		nullInt64(reading.DeviceID), reading.Temperature, reading.Humidity,
		reading.SmokeLevel, reading.GasLevel, ts, ts,
	)
	if err != nil {
		return fmt.Errorf("inserting reading: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading reading id: %w", err)
	}
	reading.ID = id
	reading.CreatedAt = now
	reading.UpdatedAt = now
	return nil
}

// Update replaces the four sensor values of an existing reading.
func (r *SQLiteReadingRepository) Update(ctx context.Context, reading *Reading) error {
	now := time.Now().UTC().Truncate(time.Second)

	result, err := r.db.ExecContext(ctx,
		`UPDATE sensor_readings
		 SET temperature = ?, humidity = ?, smoke_level = ?, gas_level = ?, updated_at = ?
		 WHERE id = ?`,
		reading.Temperature, reading.Humidity, reading.SmokeLevel, reading.GasLevel,
		now.Format(time.RFC3339), reading.ID,
	)
	if err != nil {
		return fmt.Errorf("updating reading: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrReadingNotFound
	}
	reading.UpdatedAt = now
	return nil
}

// Delete removes a reading by id.
func (r *SQLiteReadingRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM sensor_readings WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting reading: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrReadingNotFound
	}
	return nil
}

// scanner is an interface for sql.Row and sql.Rows Scan methods.
type scanner interface {
	Scan(dest ...any) error
}

func scanReading(s scanner) (*Reading, error) {
	var r Reading
	var deviceID sql.NullInt64
	var createdAt, updatedAt string
	var summary joinedDevice

	err := s.Scan(&r.ID, &deviceID, &r.Temperature, &r.Humidity, &r.SmokeLevel, &r.GasLevel,
		&createdAt, &updatedAt, &summary.id, &summary.name, &summary.location)
	if err != nil {
		return nil, err
	}

	r.DeviceID = int64Ptr(deviceID)
	r.Device = summary.toSummary()
	r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	r.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled
	return &r, nil
}

// joinedDevice holds the nullable device columns of a LEFT JOIN.
type joinedDevice struct {
	id       sql.NullInt64
	name     sql.NullString
	location sql.NullString
}

func (j joinedDevice) toSummary() *device.Summary {
	if !j.id.Valid {
		return nil
	}
	return &device.Summary{ID: j.id.Int64, Name: j.name.String, Location: j.location.String}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	id := v.Int64
	return &id
}

package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// AlertRepository defines the interface for alert persistence.
type AlertRepository interface {
	List(ctx context.Context) ([]Alert, error)
	GetByID(ctx context.Context, id int64) (*Alert, error)
	Create(ctx context.Context, a *Alert) error
	Update(ctx context.Context, a *Alert) error
	Delete(ctx context.Context, id int64) error
}

// SQLiteAlertRepository implements AlertRepository using SQLite.
type SQLiteAlertRepository struct {
	db *sql.DB
}

// NewAlertRepository creates a new SQLite-backed alert repository.
func NewAlertRepository(db *sql.DB) *SQLiteAlertRepository {
	return &SQLiteAlertRepository{db: db}
}

const selectAlert = `
	SELECT a.id, a.device_id, a.type, a.status, a.value, a.max_value,
		a.created_at, a.updated_at, d.id, d.name, d.location
	FROM alerts a
	LEFT JOIN devices d ON d.id = a.device_id`

// List returns every alert ordered by id, each with its device summary.
func (r *SQLiteAlertRepository) List(ctx context.Context) ([]Alert, error) {
	rows, err := r.db.QueryContext(ctx, selectAlert+" ORDER BY a.id")
	if err != nil {
		return nil, fmt.Errorf("querying alerts: %w", err)
	}
	defer rows.Close()

	alerts := []Alert{}
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning alert: %w", err)
		}
		alerts = append(alerts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating alerts: %w", err)
	}
	return alerts, nil
}

// GetByID returns one alert. Returns ErrAlertNotFound if it does not exist.
func (r *SQLiteAlertRepository) GetByID(ctx context.Context, id int64) (*Alert, error) {
	a, err := scanAlert(r.db.QueryRowContext(ctx, selectAlert+" WHERE a.id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAlertNotFound
		}
		return nil, fmt.Errorf("querying alert: %w", err)
	}
	return a, nil
}

// Create stores an alert. An empty status is stored as Pending.
func (r *SQLiteAlertRepository) Create(ctx context.Context, a *Alert) error {
	if a.Status == "" {
		a.Status = DefaultAlertStatus
	}
	now := time.Now().UTC().Truncate(time.Second)
	ts := now.Format(time.RFC3339)

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO alerts (device_id, type, status, value, max_value, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		nullInt64(a.DeviceID), string(a.Type), a.Status, a.Value, a.MaxValue, ts, ts,
	)
	if err != nil {
		return fmt.Errorf("inserting alert: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading alert id: %w", err)
	}
	a.ID = id
	a.CreatedAt = now
	a.UpdatedAt = now
	return nil
}

// Update replaces type, value and max_value. An empty status keeps the stored
// one; otherwise status is replaced too. The device reference is kept.
// On return a.Status holds the stored status.
func (r *SQLiteAlertRepository) Update(ctx context.Context, a *Alert) error {
	now := time.Now().UTC().Truncate(time.Second)

	var status sql.NullString
	if a.Status != "" {
		status = sql.NullString{String: a.Status, Valid: true}
	}

	err := r.db.QueryRowContext(ctx,
		`UPDATE alerts SET type = ?, status = COALESCE(?, status), value = ?, max_value = ?, updated_at = ?
		 WHERE id = ? RETURNING status`,
		string(a.Type), status, a.Value, a.MaxValue, now.Format(time.RFC3339), a.ID,
	).Scan(&a.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrAlertNotFound
	}
	if err != nil {
		return fmt.Errorf("updating alert: %w", err)
	}

	a.UpdatedAt = now
	return nil
}

// Delete removes an alert by id.
func (r *SQLiteAlertRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM alerts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting alert: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrAlertNotFound
	}
	return nil
}

func scanAlert(s scanner) (*Alert, error) {
	var a Alert
	var deviceID sql.NullInt64
	var alertType, createdAt, updatedAt string
	var summary joinedDevice

	err := s.Scan(&a.ID, &deviceID, &alertType, &a.Status, &a.Value, &a.MaxValue,
		&createdAt, &updatedAt, &summary.id, &summary.name, &summary.location)
	if err != nil {
		return nil, err
	}

	a.Type = AlertType(alertType)
	a.DeviceID = int64Ptr(deviceID)
	a.Device = summary.toSummary()
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	a.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled
	return &a, nil
}

package stats

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"
)

// topDevicesLimit caps the TopDevices ranking.
const topDevicesLimit = 10

// Overview holds the row count of each main table.
type Overview struct {
	Devices  int64 `json:"devices"`
	Readings int64 `json:"readings"`
	Users    int64 `json:"users"`
	Alerts   int64 `json:"alerts"`
}

// TypeCount is the number of alerts of one type.
type TypeCount struct {
	Type  string `json:"type"`
	Count int64  `json:"count"`
}

// DayCount is the number of readings stored on one calendar day.
type DayCount struct {
	Day   string `json:"day"`
	Count int64  `json:"count"`
}

// MonthCount is the number of readings stored in one month (1-12).
type MonthCount struct {
	Month int   `json:"month"`
	Count int64 `json:"count"`
}

// DeviceCount ranks a device by the readings it has reported.
type DeviceCount struct {
	DeviceID int64  `json:"device_id"`
	Name     string `json:"name"`
	Readings int64  `json:"readings"`
}

// Repository runs the dashboard aggregations.
type Repository struct {
	db  *sql.DB
	loc *time.Location
	now func() time.Time
}

// NewRepository creates a repository bucketing by calendar in loc.
// A nil loc means UTC.
func NewRepository(db *sql.DB, loc *time.Location) *Repository {
	if loc == nil {
		loc = time.UTC
	}
	return &Repository{db: db, loc: loc, now: time.Now}
}

// Overview counts devices, readings, users and alerts.
func (r *Repository) Overview(ctx context.Context) (*Overview, error) {
	var o Overview
	err := r.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM devices),
			(SELECT COUNT(*) FROM sensor_readings),
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM alerts)`,
	).Scan(&o.Devices, &o.Readings, &o.Users, &o.Alerts)
	if err != nil {
		return nil, fmt.Errorf("counting overview: %w", err)
	}
	return &o, nil
}

// AlertsByType counts alerts per type. Types with no alerts are omitted.
func (r *Repository) AlertsByType(ctx context.Context) ([]TypeCount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT type, COUNT(*) FROM alerts GROUP BY type ORDER BY type`)
	if err != nil {
		return nil, fmt.Errorf("counting alerts by type: %w", err)
	}
	defer rows.Close()

	counts := []TypeCount{}
	for rows.Next() {
		var c TypeCount
		if err := rows.Scan(&c.Type, &c.Count); err != nil {
			return nil, fmt.Errorf("scanning alert count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating alert counts: %w", err)
	}
	return counts, nil
}

// ReadingsPerDay counts readings for each day of the current month that has any.
func (r *Repository) ReadingsPerDay(ctx context.Context) ([]DayCount, error) {
	now := r.now().In(r.loc)
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, r.loc)
	end := start.AddDate(0, 1, 0)

	buckets := map[string]int64{}
	err := r.eachReadingTime(ctx, start, end, func(t time.Time) {
		buckets[t.Format(time.DateOnly)]++
	})
	if err != nil {
		return nil, fmt.Errorf("counting readings per day: %w", err)
	}

	days := make([]DayCount, 0, len(buckets))
	for day, n := range buckets {
		days = append(days, DayCount{Day: day, Count: n})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Day < days[j].Day })
	return days, nil
}

// ReadingsPerMonth counts readings for each month of the current year.
// The result always has twelve entries, January first.
func (r *Repository) ReadingsPerMonth(ctx context.Context) ([]MonthCount, error) {
	now := r.now().In(r.loc)
	start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, r.loc)
	end := start.AddDate(1, 0, 0)

	months := make([]MonthCount, 12)
	for i := range months {
		months[i].Month = i + 1
	}
	err := r.eachReadingTime(ctx, start, end, func(t time.Time) {
		months[t.Month()-1].Count++
	})
	if err != nil {
		return nil, fmt.Errorf("counting readings per month: %w", err)
	}
	return months, nil
}

// TopDevices ranks devices by reading count, highest first, ties by id.
// Orphan readings and devices without readings are not ranked.
func (r *Repository) TopDevices(ctx context.Context) ([]DeviceCount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT d.id, d.name, COUNT(sr.id) AS readings
		FROM sensor_readings sr
		JOIN devices d ON d.id = sr.device_id
		GROUP BY d.id, d.name
		ORDER BY readings DESC, d.id ASC
		LIMIT ?`, topDevicesLimit)
	if err != nil {
		return nil, fmt.Errorf("ranking devices: %w", err)
	}
	defer rows.Close()

	ranked := []DeviceCount{}
	for rows.Next() {
		var c DeviceCount
		if err := rows.Scan(&c.DeviceID, &c.Name, &c.Readings); err != nil {
			return nil, fmt.Errorf("scanning device rank: %w", err)
		}
		ranked = append(ranked, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating device ranks: %w", err)
	}
	return ranked, nil
}

// eachReadingTime calls fn with the creation time, in the site timezone, of
// every reading stored in [start, end). Timestamps are RFC3339 UTC text, so
// the range filter compares strings.
func (r *Repository) eachReadingTime(ctx context.Context, start, end time.Time, fn func(time.Time)) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT created_at FROM sensor_readings WHERE created_at >= ? AND created_at < ?`,
		start.UTC().Format(time.RFC3339), end.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return err
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return fmt.Errorf("parsing reading timestamp %q: %w", raw, err)
		}
		fn(t.In(r.loc))
	}
	return rows.Err()
}

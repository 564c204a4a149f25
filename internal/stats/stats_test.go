package stats

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/telemetry-core/internal/infrastructure/database"
	_ "github.com/nerrad567/telemetry-core/migrations"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(t.Context(), database.Config{
		Path:        filepath.Join(t.TempDir(), "stats.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(t.Context()); err != nil {
		t.Fatalf("failed to apply migrations: %v", err)
	}
	return db.DB
}

func insertDevice(t *testing.T, db *sql.DB, id int64, name string) {
	t.Helper()
	ts := time.Now().UTC().Format(time.RFC3339)
	_, err := db.ExecContext(t.Context(),
		`INSERT INTO devices (id, name, location, token, status, created_at, updated_at)
		 VALUES (?, ?, 'Basement Plant Room', ?, 'Active', ?, ?)`,
		id, name, fmt.Sprintf("%032x", id), ts, ts)
	if err != nil {
		t.Fatalf("inserting device: %v", err)
	}
}

func insertReading(t *testing.T, db *sql.DB, deviceID any, at time.Time) {
	t.Helper()
	ts := at.UTC().Format(time.RFC3339)
	_, err := db.ExecContext(t.Context(),
		`INSERT INTO sensor_readings (device_id, temperature, humidity, smoke_level, gas_level, created_at, updated_at)
		 VALUES (?, 20, 40, 1, 2, ?, ?)`, deviceID, ts, ts)
	if err != nil {
		t.Fatalf("inserting reading: %v", err)
	}
}

func insertAlert(t *testing.T, db *sql.DB, typ string) {
	t.Helper()
	ts := time.Now().UTC().Format(time.RFC3339)
	_, err := db.ExecContext(t.Context(),
		`INSERT INTO alerts (device_id, type, value, max_value, created_at, updated_at)
		 VALUES (NULL, ?, 10, 5, ?, ?)`, typ, ts, ts)
	if err != nil {
		t.Fatalf("inserting alert: %v", err)
	}
}

func fixedRepo(db *sql.DB, loc *time.Location, now time.Time) *Repository {
	r := NewRepository(db, loc)
	r.now = func() time.Time { return now }
	return r
}

func TestOverview(t *testing.T) {
	db := setupTestDB(t)
	insertDevice(t, db, 1, "Cold Store Probe")
	insertReading(t, db, 1, time.Now())
	insertReading(t, db, nil, time.Now())
	insertAlert(t, db, "Humidity")

	o, err := NewRepository(db, nil).Overview(t.Context())
	if err != nil {
		t.Fatalf("Overview() error = %v", err)
	}
	want := Overview{Devices: 1, Readings: 2, Users: 0, Alerts: 1}
	if *o != want {
		t.Errorf("Overview() = %+v, want %+v", *o, want)
	}
}

func TestAlertsByType(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db, nil)

	got, err := repo.AlertsByType(t.Context())
	if err != nil {
		t.Fatalf("AlertsByType() error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("AlertsByType() on empty table = %v, want empty slice", got)
	}

	for _, typ := range []string{"SmokeLevel", "Temperature", "SmokeLevel", "GasLevel"} {
		insertAlert(t, db, typ)
	}
	got, err = repo.AlertsByType(t.Context())
	if err != nil {
		t.Fatalf("AlertsByType() error = %v", err)
	}
	want := []TypeCount{{"GasLevel", 1}, {"SmokeLevel", 2}, {"Temperature", 1}}
	if len(got) != len(want) {
		t.Fatalf("AlertsByType() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("AlertsByType()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestReadingsPerDay(t *testing.T) {
	db := setupTestDB(t)
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	insertReading(t, db, nil, time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC))
	insertReading(t, db, nil, time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC))
	insertReading(t, db, nil, time.Date(2026, 10, 17, 23, 30, 0, 0, time.UTC))
	insertReading(t, db, nil, time.Date(2026, 9, 30, 23, 59, 0, 0, time.UTC))
	insertReading(t, db, nil, time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC))

	got, err := fixedRepo(db, time.UTC, now).ReadingsPerDay(t.Context())
	if err != nil {
		t.Fatalf("ReadingsPerDay() error = %v", err)
	}
	want := []DayCount{{"2026-10-01", 2}, {"2026-10-17", 1}}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("ReadingsPerDay() = %v, want %v", got, want)
	}
}

func TestReadingsPerDay_SiteTimezone(t *testing.T) {
	db := setupTestDB(t)
	loc := time.FixedZone("UTC+2", 2*60*60)
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, loc)

	// 22:30 UTC on 30 September is already 1 October at the site.
	insertReading(t, db, nil, time.Date(2026, 9, 30, 22, 30, 0, 0, time.UTC))
	// 23:30 UTC on 17 October is 18 October at the site.
	insertReading(t, db, nil, time.Date(2026, 10, 17, 23, 30, 0, 0, time.UTC))

	got, err := fixedRepo(db, loc, now).ReadingsPerDay(t.Context())
	if err != nil {
		t.Fatalf("ReadingsPerDay() error = %v", err)
	}
	want := []DayCount{{"2026-10-01", 1}, {"2026-10-18", 1}}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("ReadingsPerDay() = %v, want %v", got, want)
	}
}

func TestReadingsPerMonth(t *testing.T) {
	db := setupTestDB(t)
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	repo := fixedRepo(db, time.UTC, now)

	empty, err := repo.ReadingsPerMonth(t.Context())
	if err != nil {
		t.Fatalf("ReadingsPerMonth() error = %v", err)
	}
	if len(empty) != 12 {
		t.Fatalf("ReadingsPerMonth() on empty table has %d entries, want 12", len(empty))
	}

	insertReading(t, db, nil, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	insertReading(t, db, nil, time.Date(2026, 10, 5, 0, 0, 0, 0, time.UTC))
	insertReading(t, db, nil, time.Date(2026, 10, 6, 0, 0, 0, 0, time.UTC))
	insertReading(t, db, nil, time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC))

	got, err := repo.ReadingsPerMonth(t.Context())
	if err != nil {
		t.Fatalf("ReadingsPerMonth() error = %v", err)
	}
	if len(got) != 12 {
		t.Fatalf("ReadingsPerMonth() has %d entries, want 12", len(got))
	}
	for i, m := range got {
		if m.Month != i+1 {
			t.Errorf("entry %d has month %d", i, m.Month)
		}
		var want int64
		switch m.Month {
		case 1:
			want = 1
		case 10:
			want = 2
		}
		if m.Count != want {
			t.Errorf("month %d count = %d, want %d", m.Month, m.Count, want)
		}
	}
}

func TestTopDevices(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db, nil)
	at := time.Now()

	// Twelve devices: device i reports (i % 4) readings, so ties are common.
	for i := int64(1); i <= 12; i++ {
		insertDevice(t, db, i, fmt.Sprintf("Sensor Unit %02d", i))
		for range i % 4 {
			insertReading(t, db, i, at)
		}
	}
	for range 5 {
		insertReading(t, db, nil, at)
	}

	got, err := repo.TopDevices(t.Context())
	if err != nil {
		t.Fatalf("TopDevices() error = %v", err)
	}

	wantIDs := []int64{3, 7, 11, 2, 6, 10, 1, 5, 9}
	if len(got) != len(wantIDs) {
		t.Fatalf("TopDevices() returned %d entries, want %d: %v", len(got), len(wantIDs), got)
	}
	for i, id := range wantIDs {
		if got[i].DeviceID != id {
			t.Errorf("rank %d = device %d, want %d", i+1, got[i].DeviceID, id)
		}
	}
	if got[0].Readings != 3 || got[0].Name != "Sensor Unit 03" {
		t.Errorf("top entry = %+v", got[0])
	}
}

func TestTopDevices_Limit(t *testing.T) {
	db := setupTestDB(t)
	at := time.Now()
	for i := int64(1); i <= 15; i++ {
		insertDevice(t, db, i, fmt.Sprintf("Sensor Unit %02d", i))
		insertReading(t, db, i, at)
	}

	got, err := NewRepository(db, time.UTC).TopDevices(t.Context())
	if err != nil {
		t.Fatalf("TopDevices() error = %v", err)
	}
	if len(got) != topDevicesLimit {
		t.Fatalf("TopDevices() returned %d entries, want %d", len(got), topDevicesLimit)
	}
	if got[0].DeviceID != 1 || got[9].DeviceID != 10 {
		t.Errorf("ties should order by id, got first %d last %d", got[0].DeviceID, got[9].DeviceID)
	}
}

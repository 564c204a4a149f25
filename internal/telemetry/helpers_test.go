package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/nerrad567/telemetry-core/internal/device"
	"github.com/nerrad567/telemetry-core/internal/infrastructure/database"
	"github.com/nerrad567/telemetry-core/internal/validate"
	_ "github.com/nerrad567/telemetry-core/migrations"
)

// setupTestDB opens a temporary SQLite database with the full schema applied.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(t.Context(), database.Config{
		Path:        filepath.Join(t.TempDir(), "telemetry.db"),
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

// createDevice stores a device and returns it with its generated token.
func createDevice(t *testing.T, db *sql.DB, name string) *device.Device {
	t.Helper()
	d := &device.Device{Name: name, Location: "North Wing Floor 2"}
	if err := device.NewSQLiteRepository(db).Create(t.Context(), d); err != nil {
		t.Fatalf("creating device: %v", err)
	}
	return d
}

func ptr[T any](v T) *T { return &v }

func validReading(token string) ReadingInput {
	return ReadingInput{
		DeviceToken: ptr(token),
		Temperature: validate.NewNumber(25.5),
		Humidity:    validate.NewNumber(60),
		SmokeLevel:  validate.NewNumber(10),
		GasLevel:    validate.NewNumber(15),
	}
}

func validAlert(token string) AlertInput {
	return AlertInput{
		DeviceToken: ptr(token),
		Type:        ptr("SmokeLevel"),
		Value:       validate.NewNumber(80),
		MaxValue:    validate.NewNumber(50),
	}
}

// recordingSink captures events and can be told to fail.
type recordingSink struct {
	mu     sync.Mutex
	name   string
	events []Event
	err    error
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Publish(_ context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// recordingLogger captures warnings.
type recordingLogger struct {
	mu    sync.Mutex
	warns []string
	errs  []string
}

func (l *recordingLogger) Debug(string, ...any) {}
func (l *recordingLogger) Info(string, ...any)  {}

func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func (l *recordingLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errs = append(l.errs, msg)
}

var errSinkDown = errors.New("sink down")

package device

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/nerrad567/telemetry-core/internal/infrastructure/database"
	_ "github.com/nerrad567/telemetry-core/migrations"
)

// setupTestDB opens a temporary SQLite database with the full schema applied.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(t.Context(), database.Config{
		Path:        filepath.Join(t.TempDir(), "devices.db"),
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

// createTestDevice inserts a device through the repository.
func createTestDevice(t *testing.T, repo *SQLiteRepository, name string) *Device {
	t.Helper()
	d := &Device{Name: name, Location: "Warehouse Bay 4"}
	if err := repo.Create(t.Context(), d); err != nil {
		t.Fatalf("Create(%q) error = %v", name, err)
	}
	return d
}

func strPtr(s string) *string { return &s }

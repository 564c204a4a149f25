// Package migrations carries the SQL schema for Telemetry Core.
//
// The files are compiled into the binary and registered with the database
// package on import, so a deployment needs nothing but the executable.
package migrations

import (
	"embed"

	"github.com/nerrad567/telemetry-core/internal/infrastructure/database"
)

//go:embed *.sql
var schemaFiles embed.FS

func init() {
	database.MigrationsFS = schemaFiles
	database.MigrationsDir = "."
}

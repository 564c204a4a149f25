// Package database provides SQLite connectivity for Telemetry Core.
//
// This package manages:
//   - Connection setup with WAL mode, busy timeout and foreign keys on
//   - Forward schema migrations embedded in the binary
//   - Transaction helpers and constraint error classification
//
// The pool is limited to one open connection because SQLite has a single
// writer. Device ingest and admin CRUD therefore serialise on that
// connection, and the busy timeout covers other processes touching the file.
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
package database

// Package device provides the device registry for Telemetry Core.
//
// A device is a sensor unit identified by an opaque 32-character hex token
// generated when an administrator creates it. The token is the only
// credential a device holds: it selects the device on ingest and on the
// activate, deactivate and status calls.
//
// # Key Types
//
//   - Device: the stored record (name, location, token, status)
//   - Summary: the id, name and location embedded in readings and alerts
//   - Repository: SQLite persistence with token regeneration on collision
//   - Registry: the repository plus a token cache, used by ingest and the API
//
// # Usage
//
//	repo := device.NewSQLiteRepository(db)
//	registry := device.NewRegistry(repo)
//	registry.SetLogger(log)
//
//	if err := registry.RefreshCache(ctx); err != nil {
//	    return err
//	}
//
//	id, err := registry.Resolve(ctx, token)
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // unknown or malformed token
//	}
//
// # Deletion
//
// The schema declares no cascade from devices to readings or alerts.
// Repository.Delete removes the dependents in the same transaction, so a
// delete issued directly against the database fails on the foreign key
// instead of leaving dangling rows.
package device

// Package api implements the HTTP REST API and WebSocket server for Telemetry Core.
//
// This package provides:
//   - device-facing endpoints: token-keyed activate/deactivate/status and
//     reading and alert ingest
//   - admin CRUD for devices, readings and alerts, plus dashboard stats,
//     the audit log and process metrics
//   - register/login/logout with server-side sessions behind HS256 tokens
//   - a WebSocket live feed that pushes newly ingested telemetry, filtered
//     per subscriber by channel and device
//
// # Access tiers
//
// Device routes need no session: the token in the path or body identifies
// the device. Session routes require "Authorization: Bearer <token>" for a
// live session. Admin routes additionally require the admin role and answer
// 403 otherwise.
//
// # Graceful Degradation
//
// The server operates without MQTT or InfluxDB. Ingest still stores to
// SQLite and fans out to whatever sinks are configured.
package api

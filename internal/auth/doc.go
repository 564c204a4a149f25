// Package auth provides operator authentication for Telemetry Core.
//
// It covers:
//   - Argon2id password hashing, with bcrypt verification for imported hashes
//   - HS256 access tokens whose sid claim names a server-side session
//   - SQLite repositories for users and sessions
//   - First-boot seeding of an admin account
//
// Two roles exist. Admins manage devices, readings and alerts; users may only
// hold a session. Access tokens are checked against the sessions table on every
// request so that logout takes effect immediately.
package auth

// Package simulator drives the device-facing API the way field hardware would.
//
// A Client wraps the public device endpoints (activate, status, reading and
// alert ingest) over resty. A Generator produces plausible readings and the
// alerts a device raises when a value crosses its limit. Run ties the two
// together for cmd/telemetry-sim.
package simulator

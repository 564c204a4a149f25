// Package logging provides structured logging for Telemetry Core.
//
// It wraps log/slog so every record carries the service name and build
// version, with JSON output for production and text output for local work.
//
// Configuration comes from the logging section of config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Device tokens and session JWTs are credentials. Log them through
// TokenHint, never verbatim:
//
//	logger.Warn("unknown device token", "token", logging.TokenHint(token))
package logging

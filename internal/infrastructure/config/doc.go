// Package config handles loading and validating Telemetry Core configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with TELEMETRY_* environment variables
//   - Validation of required fields
//   - Default value handling
//
// Secrets (JWT secret, MQTT and InfluxDB credentials, the seeded admin
// password) should come from the environment. The cmd package loads a .env
// file into the environment before calling Load, so local development can
// keep them out of config.yaml.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.API.Port)
package config

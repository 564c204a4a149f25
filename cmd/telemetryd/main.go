// Telemetry Core - IoT telemetry backend
//
// This is the main entry point for the Telemetry Core service. It serves:
//   - device admission and ingest of readings and alerts, keyed by device token
//   - an admin API for devices, readings, alerts, stats and the audit log
//   - a WebSocket live feed of newly stored telemetry
//
// MQTT (device topics plus event publishing) and the InfluxDB mirror are
// optional and enabled in configs/config.yaml.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	_ "github.com/nerrad567/telemetry-core/migrations"

	"github.com/nerrad567/telemetry-core/internal/api"
	"github.com/nerrad567/telemetry-core/internal/audit"
	"github.com/nerrad567/telemetry-core/internal/auth"
	"github.com/nerrad567/telemetry-core/internal/device"
	"github.com/nerrad567/telemetry-core/internal/infrastructure/config"
	"github.com/nerrad567/telemetry-core/internal/infrastructure/database"
	"github.com/nerrad567/telemetry-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/telemetry-core/internal/infrastructure/logging"
	"github.com/nerrad567/telemetry-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/telemetry-core/internal/stats"
	"github.com/nerrad567/telemetry-core/internal/telemetry"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// sessionCleanupInterval is how often expired session rows are deleted.
const sessionCleanupInterval = time.Hour

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// It returns nil on clean shutdown.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Telemetry Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	if err := loadDotEnv(".env"); err != nil {
		return fmt.Errorf("loading .env: %w", err)
	}

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Accounts
	users := auth.NewUserRepository(db.DB)
	sessions := auth.NewSessionRepository(db.DB)
	if _, seedErr := auth.SeedAdmin(ctx, users, cfg.Security.SeedAdmin, log.Logger); seedErr != nil {
		return fmt.Errorf("seeding admin: %w", seedErr)
	}

	// Device registry
	registry := device.NewRegistry(device.NewSQLiteRepository(db.DB))
	registry.SetLogger(log.With("component", "device"))
	if refreshErr := registry.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading device registry: %w", refreshErr)
	}

	// Ingest and its fan-out
	readings := telemetry.NewReadingRepository(db.DB)
	alerts := telemetry.NewAlertRepository(db.DB)
	ingestor := telemetry.NewIngestor(registry, readings, alerts, cfg.Ingest)
	ingestor.SetLogger(log.With("component", "ingest"))
	log.Info("ingest configured",
		"unknown_token_policy", cfg.Ingest.UnknownTokenPolicy,
		"require_active", cfg.Ingest.RequireActive,
	)

	feed := api.NewFeed(cfg.WebSocket, log.With("component", "feed"))
	go feed.Run(ctx)
	ingestor.AddSink(telemetry.NewFeedSink(feed))

	// The API takes these as interfaces, so they stay untyped nil when a
	// backend is disabled.
	var mqttStatus, influxStatus api.ConnectionStatus
	checks := []namedCheck{{name: "database", check: db}}

	// Sinks are registered before the MQTT listener subscribes, so the first
	// device message already fans out to every backend.
	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(ctx, cfg.InfluxDB)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		ingestor.AddSink(telemetry.NewInfluxSink(influxClient))
		influxStatus = influxClient
		checks = append(checks, namedCheck{name: "influxdb", check: influxClient})
	} else {
		log.Info("InfluxDB disabled")
	}

	if cfg.MQTT.Enabled {
		mqttClient, mqttErr := startMQTT(ctx, cfg, ingestor, log)
		if mqttErr != nil {
			return mqttErr
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttStatus = mqttClient
		checks = append(checks, namedCheck{name: "mqtt", check: mqttClient})
	} else {
		log.Info("MQTT disabled")
	}

	srv, err := api.New(api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Security: cfg.Security,
		Logger:   log,
		DB:       db,
		Registry: registry,
		Ingestor: ingestor,
		Readings: readings,
		Alerts:   alerts,
		Users:    users,
		Sessions: sessions,
		Stats:    stats.NewRepository(db.DB, cfg.Location()),
		Audit:    audit.NewSQLiteRepository(db.DB),
		MQTT:     mqttStatus,
		InfluxDB: influxStatus,
		Feed:     feed,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := srv.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := srv.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	go pruneSessions(ctx, sessions, sessionCleanupInterval, log)

	if err := healthCheck(ctx, checks); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// API server, MQTT, InfluxDB, then the database.
	return nil
}

// startMQTT connects to the broker, publishes events through it and
// subscribes the device topics.
func startMQTT(ctx context.Context, cfg *config.Config, ingestor *telemetry.Ingestor, log *logging.Logger) (*mqtt.Client, error) {
	client, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return nil, fmt.Errorf("connecting to MQTT: %w", err)
	}
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	client.SetLogger(log.With("component", "mqtt"))
	client.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	client.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	ingestor.AddSink(telemetry.NewMQTTSink(client))

	listener := telemetry.NewListener(ctx, ingestor, byte(cfg.MQTT.QoS)) //nolint:gosec // G115: Validate bounds qos to 0-2
	listener.SetLogger(log.With("component", "mqtt-ingest"))
	if err := listener.Start(client); err != nil {
		client.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("subscribing device topics: %w", err)
	}
	log.Info("MQTT device topics subscribed")

	return client, nil
}

// getConfigPath returns the configuration file path.
// Uses TELEMETRY_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("TELEMETRY_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// loadDotEnv reads KEY=value pairs from path into the environment.
// A missing file is not an error; variables already set are kept.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

type namedCheck struct {
	name  string
	check healthChecker
}

// healthCheck verifies every enabled backend, returning the first failure.
func healthCheck(ctx context.Context, checks []namedCheck) error {
	for _, c := range checks {
		if err := c.check.HealthCheck(ctx); err != nil {
			return fmt.Errorf("%s: %w", c.name, err)
		}
	}
	return nil
}

type sessionPruner interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// pruneSessions deletes expired sessions every interval until ctx is cancelled.
func pruneSessions(ctx context.Context, sessions sessionPruner, interval time.Duration, log *logging.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.DeleteExpired(ctx)
			if err != nil {
				log.Warn("session cleanup failed", "error", err)
				continue
			}
			if n > 0 {
				log.Debug("expired sessions removed", "count", n)
			}
		}
	}
}

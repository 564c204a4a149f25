package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/telemetry-core/internal/audit"
	"github.com/nerrad567/telemetry-core/internal/auth"
	"github.com/nerrad567/telemetry-core/internal/device"
	"github.com/nerrad567/telemetry-core/internal/infrastructure/config"
	"github.com/nerrad567/telemetry-core/internal/infrastructure/logging"
	"github.com/nerrad567/telemetry-core/internal/stats"
	"github.com/nerrad567/telemetry-core/internal/telemetry"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Database is the part of the database handle the API uses for health and metrics.
type Database interface {
	HealthCheck(ctx context.Context) error
	Stats() sql.DBStats
}

// ConnectionStatus reports whether an optional backend (MQTT, InfluxDB) is connected.
type ConnectionStatus interface {
	IsConnected() bool
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Security config.SecurityConfig
	Logger   *logging.Logger
	DB       Database
	Registry *device.Registry
	Ingestor *telemetry.Ingestor
	Readings telemetry.ReadingRepository
	Alerts   telemetry.AlertRepository
	Users    auth.UserRepository
	Sessions auth.SessionRepository
	Stats    *stats.Repository
	Audit    audit.Repository // optional: admin actions are not recorded without it
	MQTT     ConnectionStatus // optional
	InfluxDB ConnectionStatus // optional
	Feed     *Feed            // optional: created and run by the server when nil
	Version  string
}

// Server is the HTTP API server for Telemetry Core.
//
// It manages the HTTP listener, routes, middleware, and the live feed.
// The server is created with New() and started with Start().
type Server struct {
	cfg       config.APIConfig
	wsCfg     config.WebSocketConfig
	secCfg    config.SecurityConfig
	logger    *logging.Logger
	db        Database
	registry  *device.Registry
	ingestor  *telemetry.Ingestor
	readings  telemetry.ReadingRepository
	alerts    telemetry.AlertRepository
	users     auth.UserRepository
	sessions  auth.SessionRepository
	stats     *stats.Repository
	auditRepo audit.Repository
	auditCh   chan *audit.Entry
	mqtt      ConnectionStatus
	influx    ConnectionStatus
	version   string
	startTime time.Time

	server       *http.Server
	feed         *Feed
	externalFeed bool // true if feed was injected externally
	tickets      *ticketStore
	cancel       context.CancelFunc // cancels background goroutines on Close()
	done         chan struct{}      // closed when the audit writer has drained
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	switch {
	case deps.Logger == nil:
		return nil, errors.New("logger is required")
	case deps.Registry == nil:
		return nil, errors.New("device registry is required")
	case deps.Ingestor == nil:
		return nil, errors.New("ingestor is required")
	case deps.Readings == nil || deps.Alerts == nil:
		return nil, errors.New("reading and alert repositories are required")
	case deps.Users == nil || deps.Sessions == nil:
		return nil, errors.New("user and session repositories are required")
	case deps.Stats == nil:
		return nil, errors.New("stats repository is required")
	case deps.Security.JWT.Secret == "":
		return nil, errors.New("jwt secret is required")
	}

	s := &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		secCfg:    deps.Security,
		logger:    deps.Logger,
		db:        deps.DB,
		registry:  deps.Registry,
		ingestor:  deps.Ingestor,
		readings:  deps.Readings,
		alerts:    deps.Alerts,
		users:     deps.Users,
		sessions:  deps.Sessions,
		stats:     deps.Stats,
		auditRepo: deps.Audit,
		mqtt:      deps.MQTT,
		influx:    deps.InfluxDB,
		version:   deps.Version,
		startTime: time.Now(),
		tickets:   newTicketStore(),
	}

	if deps.Audit != nil {
		s.auditCh = make(chan *audit.Entry, auditChanSize)
	}

	// An injected feed is shared with the ingest fan-out, which needs it
	// before the server starts.
	if deps.Feed != nil {
		s.feed = deps.Feed
		s.externalFeed = true
	} else {
		s.feed = NewFeed(deps.WS, deps.Logger)
	}

	return s, nil
}

// Handler returns the router with all routes and middleware.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start begins listening for HTTP connections.
//
// It starts the live feed (unless injected), the ticket sweeper and the
// audit writer, then launches the HTTP listener in a background goroutine.
// The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if !s.externalFeed {
		go s.feed.Run(srvCtx)
	}

	go s.tickets.cleanLoop(srvCtx)

	s.done = make(chan struct{})
	if s.auditCh != nil {
		go func() {
			defer close(s.done)
			s.drainAuditLog(srvCtx)
		}()
	} else {
		close(s.done)
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete, then
// flushes queued audit entries.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	err := s.server.Shutdown(ctx)

	// Cancel background goroutines after requests have finished so their
	// audit entries are still written.
	if s.cancel != nil {
		s.cancel()
	}
	if s.done != nil {
		<-s.done
	}

	if err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return errors.New("api server not started")
	}
	return nil
}

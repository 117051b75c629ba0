// FilePath: internal/server/server.go
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/itsatony/flightwatch/api"
	"github.com/itsatony/flightwatch/api/middleware"
	"github.com/itsatony/flightwatch/internal/browser"
	"github.com/itsatony/flightwatch/internal/cleanup"
	"github.com/itsatony/flightwatch/internal/config"
	"github.com/itsatony/flightwatch/internal/database"
	"github.com/itsatony/flightwatch/internal/history"
	"github.com/itsatony/flightwatch/internal/httputil"
	"github.com/itsatony/flightwatch/internal/monitoring"
	"github.com/itsatony/flightwatch/internal/places"
	"github.com/itsatony/flightwatch/internal/repository/files"
	"github.com/itsatony/flightwatch/internal/repository/postgres"
	"github.com/itsatony/flightwatch/internal/repository/redis"
	"github.com/itsatony/flightwatch/internal/trackerservice"
	nuts "github.com/vaudience/go-nuts"
)

// Server represents our HTTP server
type Server struct {
	config     *config.Live
	srv        *http.Server
	tracker    *trackerservice.TrackerService
	monitoring *monitoring.Service
	closers    []func() error
}

// New creates a new server instance
func New(live *config.Live) *Server {
	cfg := live.Current()
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return &Server{
		config:     live,
		srv:        srv,
		monitoring: monitoring.NewService(),
	}
}

// Start builds the engine, begins scraping and serves requests until a
// shutdown signal arrives
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tracker, err := s.initializeTrackerService(ctx)
	if err != nil {
		s.closeBackends()
		return err
	}
	s.tracker = tracker

	// Set up cleanup event handlers
	s.setupCleanupHandlers()

	// Setup routes
	cfg := s.config.Current()
	s.srv.Handler = api.NewRouter(tracker, cfg.Server, authMiddleware(cfg.Keycloak))

	if err := tracker.Start(ctx); err != nil {
		s.closeBackends()
		return fmt.Errorf("error starting scrape driver: %w", err)
	}

	// Start server
	go func() {
		nuts.L.Infof("[Server] Starting server on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			nuts.L.Errorf("[Server] Error starting server: %v", err)
			os.Exit(1)
		}
	}()

	return s.waitForShutdown(cancel)
}

// waitForShutdown waits for interrupt signal and gracefully shuts down the
// server, the engine and the optional backends
func (s *Server) waitForShutdown(stopEngine context.CancelFunc) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	nuts.L.Infof("[Server] Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), s.config.Current().Server.ShutdownTimeout)
	defer cancel()

	err := s.srv.Shutdown(ctx)

	stopEngine()
	s.tracker.Stop()
	s.closeBackends()

	if err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	nuts.L.Infof("[Server] Server shut down successfully")
	return nil
}

func (s *Server) setupCleanupHandlers() {
	err := s.tracker.Cleanup.OnCleanup(cleanup.EventVehicleDeleted, func(hex string) {
		nuts.L.Infof("[Cleanup] Vehicle %s and all associated data deleted", hex)
	})
	if err != nil {
		nuts.L.Warnf("[Server] %v", err)
	}
}

func (s *Server) closeBackends() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			nuts.L.Warnf("[Server] Error closing backend: %v", err)
		}
	}
	s.closers = nil
}

// initializeTrackerService creates the repositories and collaborators and
// wires them into the tracker service
func (s *Server) initializeTrackerService(ctx context.Context) (*trackerservice.TrackerService, error) {
	cfg := s.config.Current()

	fc := files.FileConfig{BasePath: cfg.Storage.DataDir, LogCap: cfg.Storage.LogCap}
	snapshots, err := files.NewSnapshotRepository(fc)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize snapshot repository: %w", err)
	}
	logs, err := files.NewReadingLogRepository(fc)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize reading log repository: %w", err)
	}
	traces, err := files.NewTraceRepository(fc)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize trace repository: %w", err)
	}

	deps := trackerservice.Dependencies{
		Snapshots:  snapshots,
		ReadingLog: logs,
		Traces:     traces,
		Launcher: browser.NewChromeLauncher(browser.ChromeOptions{
			ExecPath:  cfg.Browser.ExecPath,
			Headless:  cfg.Browser.Headless,
			NoSandbox: cfg.Browser.NoSandbox,
			UserAgent: cfg.Browser.UserAgent,
		}),
		Archive: history.NewHTTPArchive(
			httputil.NewStandardClient(cfg.History.Timeout, archiveUserAgent(cfg)),
			func() string { return s.config.Current().History.URLTemplate },
		),
		Monitoring: s.monitoring,
		Pingers:    map[string]trackerservice.PingFunc{},
	}

	if cfg.Geocode.Enabled {
		client := httputil.NewStandardClient(cfg.Geocode.Timeout, cfg.Geocode.UserAgent)
		deps.Geocoder = places.NewNominatimGeocoder(client, cfg.Geocode.BaseURL, cfg.Geocode.Language)
	} else {
		nuts.L.Infof("[Server] Reverse geocoding disabled")
	}

	if cfg.Database.Enabled {
		db, err := initAppDB(ctx, cfg.Database.Postgres)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, db.Close)
		events := postgres.NewEventRepository(db)
		deps.Tx = events
		deps.EventMirror = events
		deps.ReadingMirror = postgres.NewReadingRepository(db)
		deps.Pingers["postgres"] = events.Ping
	}

	if cfg.Redis.Enabled {
		publisher := redis.NewPublisher(cfg.Redis)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := publisher.Ping(pingCtx); err != nil {
			nuts.L.Warnf("[Server] Redis not reachable yet, publishing will retry per message: %v", err)
		}
		cancel()
		s.closers = append(s.closers, publisher.Close)
		deps.Publisher = publisher
		deps.Pingers["redis"] = publisher.Ping
	}

	return trackerservice.New(ctx, s.config, deps)
}

func initAppDB(ctx context.Context, cfg config.PostgresConfig) (database.DB, error) {
	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		return nil, err
	}
	// Set up connection timeout
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.Ping(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := postgres.Migrate(pingCtx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func authMiddleware(cfg config.KeycloakConfig) api.Middleware {
	if !cfg.Enabled() {
		nuts.L.Warnf("[Server] Keycloak not configured, mutating routes are unauthenticated")
		return middleware.PassThrough
	}
	return middleware.NewKeycloakMiddleware(cfg).Authenticate
}

func archiveUserAgent(cfg *config.Config) string {
	if cfg.Browser.UserAgent != "" {
		return cfg.Browser.UserAgent
	}
	return cfg.Geocode.UserAgent
}

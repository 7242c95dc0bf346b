/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the payroll engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment, flags)
  2. Initialize logger
  3. Open the data source (SQLite store or read-only PostgreSQL)
  4. Load the stored payroll policy
  5. Configure HTTP router and the statement scheduler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS (override the environment):
  -port    HTTP server port
  -db      SQLite database path; ":memory:" for an in-memory database

ENVIRONMENT:
  See config/config.go. DB_DRIVER=postgres reads engine inputs from
  DATABASE_URL; write endpoints and the scheduler are then disabled.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler
  2. Stop accepting new connections
  3. Wait for active requests (SHUTDOWN_TIMEOUT)
  4. Close the database

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: SQLite store
  - store/postgres/postgres.go: PostgreSQL source
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/warp/payroll-engine/api"
	"github.com/warp/payroll-engine/config"
	"github.com/warp/payroll-engine/logger"
	"github.com/warp/payroll-engine/store/postgres"
	"github.com/warp/payroll-engine/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Flags
	port := flag.Int("port", 0, "HTTP server port (overrides PORT)")
	dbPath := flag.String("db", "", "SQLite database path (overrides SQLITE_PATH)")
	flag.Parse()
	if *port != 0 {
		cfg.Addr = fmt.Sprintf(":%d", *port)
	}
	if *dbPath != "" {
		cfg.DBDriver = "sqlite"
		cfg.SQLitePath = *dbPath
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Environment,
		ServiceName: "payroll-engine",
	})
	log.Info().
		Str("environment", cfg.Environment).
		Str("db_driver", cfg.DBDriver).
		Msg("Starting payroll engine")

	ctx := context.Background()

	// Initialize source
	handler, closeDB := openHandler(ctx, cfg, log)
	defer closeDB()
	handler.Concurrency = cfg.BatchConcurrency
	handler.DevMode = cfg.IsDevelopment()

	if err := handler.LoadPolicy(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to load stored policy, using defaults")
	}

	router := api.NewRouter(handler, cfg.CORSOrigins)

	scheduler := api.NewStatementScheduler(handler)
	scheduler.Enabled = cfg.SchedulerEnabled
	scheduler.CheckInterval = cfg.SchedulerInterval
	scheduler.Start()

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	log.Info().Msg("Server stopped")
}

// openHandler connects the configured database and returns a handler over
// it together with its close function.
func openHandler(ctx context.Context, cfg config.Config, log zerolog.Logger) (*api.Handler, func()) {
	switch cfg.DBDriver {
	case "postgres":
		src, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		log.Info().Interface("features", src.Features()).Msg("PostgreSQL source connected (read-only)")
		return api.NewHandler(src, nil, log), src.Close

	default:
		store, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize database")
		}
		log.Info().Str("path", cfg.SQLitePath).Interface("features", store.Features()).Msg("SQLite store opened")
		return api.NewHandler(store, store, log), func() { store.Close() }
	}
}

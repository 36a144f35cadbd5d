/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the attendance ledger HTTP server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, config.yaml, environment)
  2. Initialize SQLite store
  3. Load payroll rules and the default column mapping
  4. Create API handler with dependencies
  5. Configure HTTP router
  6. Start server with graceful shutdown

ENVIRONMENT:
  PORT, DB_PATH, LOG_LEVEL, LOG_JSON, RULES_FILE, MAPPING_FILE,
  CORS_ORIGINS, ANTHROPIC_API_KEY, NARRATIVE_MODEL, MAX_UPLOAD_MB,
  CONFIG_PATH. See config/config.go.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  DB_PATH=./data/ledger.db ./server

  # Run with in-memory database on another port
  DB_PATH=":memory:" PORT=3000 ./server

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/attendance-ledger/api"
	"github.com/warp/attendance-ledger/config"
	"github.com/warp/attendance-ledger/factory"
	"github.com/warp/attendance-ledger/narrative"
	"github.com/warp/attendance-ledger/store/sqlite"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	level, _ := cfg.SlogLevel()

	logger := newLogger(level, cfg.LogJSON)
	slog.SetDefault(logger)

	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer store.Close()

	// Initialize handler
	handler := api.NewHandler(store, logger)
	handler.MaxUploadBytes = int64(cfg.MaxUploadMB) << 20
	handler.Narrator = narrative.NewAnthropicGenerator(cfg.AnthropicAPIKey, cfg.NarrativeModel, logger)

	if cfg.RulesFile != "" {
		rules, err := factory.LoadRules(cfg.RulesFile)
		if err != nil {
			return err
		}
		handler.Rules = rules
		logger.Info("payroll rules loaded", "path", cfg.RulesFile)
	}
	if cfg.MappingFile != "" {
		mapping, err := factory.LoadMapping(cfg.MappingFile)
		if err != nil {
			return err
		}
		handler.Mapping = mapping
		logger.Info("column mapping loaded", "path", cfg.MappingFile)
	}

	// Create router
	router := api.NewRouter(handler, api.RouterOptions{
		AllowedOrigins: cfg.CORSOrigins,
		RequestLogger:  api.NewRequestLogger(level),
	})

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", fmt.Sprintf("http://localhost:%d", cfg.Port), "db", cfg.DBPath)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err, ok := <-serveErr:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func newLogger(level slog.Level, asJSON bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if asJSON {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/meagent/meagent_service/internal/api/routes"
	"github.com/meagent/meagent_service/internal/infrastructure/config"
	"github.com/meagent/meagent_service/internal/infrastructure/database"
	"github.com/meagent/meagent_service/internal/infrastructure/di"
	"github.com/meagent/meagent_service/internal/workers/session_janitor"
	"github.com/meagent/meagent_service/pkg/logger"
	"github.com/meagent/meagent_service/pkg/metrics"
	"github.com/meagent/meagent_service/pkg/tracing"
)

// Application represents the main application
type Application struct {
	cfg       *config.Config
	log       *logger.Logger
	server    *http.Server
	container *di.Container

	// Workers
	janitor     *session_janitor.Janitor
	stopMetrics context.CancelFunc

	// Tracing
	tracingShutdown func(context.Context) error
}

// NewApplication creates a new application instance
func NewApplication() *Application {
	return &Application{}
}

// Initialize initializes the application
func (app *Application) Initialize() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.cfg = cfg

	// Initialize logger
	log := logger.New(cfg.LogLevel, cfg.Environment)
	app.log = log

	// The ledger database is optional
	var db *sqlx.DB
	if cfg.Database.URL != "" {
		db, err = database.NewConnection(cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}

		if err := database.RunMigrations(cfg.Database.URL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	// Initialize tracing
	if err := app.initializeTracing(); err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	// Build dependency injection container
	container, err := di.NewContainer(cfg, db, log)
	if err != nil {
		return fmt.Errorf("failed to create DI container: %w", err)
	}
	app.container = container

	// Initialize workers
	if err := app.initializeWorkers(); err != nil {
		return fmt.Errorf("failed to initialize workers: %w", err)
	}

	// Initialize server
	app.initializeServer()

	return nil
}

// initializeTracing initializes OpenTelemetry tracing
func (app *Application) initializeTracing() error {
	tracingConfig := tracing.Config{
		Enabled:      app.cfg.Tracing.Enabled && app.cfg.Environment != "test",
		CollectorURL: app.cfg.Tracing.CollectorURL,
		Environment:  app.cfg.Environment,
		SampleRate:   tracing.SampleRate(app.cfg.Environment),
	}

	tracingShutdown, err := tracing.InitTracer(context.Background(), tracingConfig, app.log.Zap())
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	app.tracingShutdown = tracingShutdown
	app.log.Info("OpenTelemetry tracing initialized", "enabled", tracingConfig.Enabled, "collector_url", tracingConfig.CollectorURL)
	return nil
}

// initializeWorkers initializes all background workers
func (app *Application) initializeWorkers() error {
	janitor, err := session_janitor.NewJanitor(app.container.Registry, app.cfg.Session.JanitorSpec, app.log.Zap())
	if err != nil {
		return fmt.Errorf("failed to create session janitor: %w", err)
	}
	app.janitor = janitor
	return nil
}

// initializeServer initializes the HTTP server
func (app *Application) initializeServer() {
	// Set Gin mode
	if app.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := routes.SetupRoutes(app.container)

	// WriteTimeout stays zero unless configured: event streams are long lived
	app.server = &http.Server{
		Addr:           fmt.Sprintf(":%d", app.cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    time.Duration(app.cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(app.cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB
	}
}

// Start starts the application
func (app *Application) Start() error {
	if err := app.janitor.Start(context.Background()); err != nil {
		return fmt.Errorf("failed to start session janitor: %w", err)
	}

	// Start server in goroutine
	go func() {
		app.log.Info("Starting server",
			"port", app.cfg.Server.Port,
			"environment", app.cfg.Environment,
			"read_timeout", app.cfg.Server.ReadTimeout,
			"write_timeout", app.cfg.Server.WriteTimeout,
		)

		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.log.Fatal("Failed to start server", "error", err)
		}
	}()

	// Start metrics collection
	if app.container.DB != nil {
		ctx, cancel := context.WithCancel(context.Background())
		app.stopMetrics = cancel
		go app.startMetricsCollection(ctx)
	}

	return nil
}

// startMetricsCollection samples ledger pool stats
func (app *Application) startMetricsCollection(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := app.container.DB.Stats()
			metrics.DatabaseConnectionsGauge.WithLabelValues("open").Set(float64(stats.OpenConnections))
			metrics.DatabaseConnectionsGauge.WithLabelValues("idle").Set(float64(stats.Idle))
			metrics.DatabaseConnectionsGauge.WithLabelValues("in_use").Set(float64(stats.InUse))
		}
	}
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.log.Info("Shutting down server...")

	// Stop workers
	app.stopWorkers()

	timeout := app.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Closing sessions ends their event streams so the server can drain
	app.container.Registry.CloseAll()

	var shutdownErr error
	if err := app.server.Shutdown(ctx); err != nil {
		app.log.Error("Server forced to shutdown", "error", err)
		shutdownErr = fmt.Errorf("server shutdown: %w", err)
	}

	app.container.Close()

	// Shutdown tracing
	if app.tracingShutdown != nil {
		if err := app.tracingShutdown(context.Background()); err != nil {
			app.log.Warn("Error stopping tracer", "error", err)
		}
	}

	app.log.Info("Server exited gracefully")
	_ = app.log.Sync()
	return shutdownErr
}

// stopWorkers stops all background workers
func (app *Application) stopWorkers() {
	if app.janitor != nil {
		app.log.Info("Stopping session janitor...")
		if err := app.janitor.Shutdown(10 * time.Second); err != nil {
			app.log.Warn("Error stopping session janitor", "error", err)
		}
	}

	if app.stopMetrics != nil {
		app.stopMetrics()
	}
}

// WaitForShutdown waits for interrupt signal
func (app *Application) WaitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpAdapter "github.com/lorrc/donor-display-backend/internal/adapters/primary/http"
	mw "github.com/lorrc/donor-display-backend/internal/adapters/primary/http/middleware"
	"github.com/lorrc/donor-display-backend/internal/adapters/primary/websocket"
	"github.com/lorrc/donor-display-backend/internal/adapters/secondary/postgres"
	"github.com/lorrc/donor-display-backend/internal/config"
	"github.com/lorrc/donor-display-backend/internal/core/services"
	"github.com/lorrc/donor-display-backend/internal/infrastructure/logging"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Initialize Structured Logger
	logger := logging.NewLogger(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      os.Stdout,
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Environment,
	})

	logger.Info("starting service",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
		"config", cfg.String(),
	)

	// 3. Apply schema migrations
	if cfg.Database.AutoMigrate {
		if err := runMigrations(cfg.Database.MigrationsPath, cfg.Database.URL, logger); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
	}

	// 4. Initialize Database Pool
	ctx := context.Background()
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		logger.Error("failed to parse database URL", "error", err)
		os.Exit(1)
	}

	// Apply database configuration
	poolConfig.MaxConns = int32(cfg.Database.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.Database.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Error("database ping failed", "error", err)
		os.Exit(1)
	}
	logger.Info("database connection established")

	// 5. Initialize Real-time Components
	registry := websocket.NewRegistry(cfg.WebSocket.MaxViewers, logger)
	broadcaster := websocket.NewBroadcaster(registry, logger)

	// Error Handler
	errorHandler := httpAdapter.NewErrorHandler(logger)

	// 6. Initialize Rate Limiters
	var generalRateLimiter, bulkRateLimiter *mw.RateLimiter
	if cfg.RateLimit.Enabled {
		generalRateLimiter = mw.NewRateLimiter(mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			BurstSize:         cfg.RateLimit.BurstSize,
			CleanupInterval:   time.Minute,
			TTL:               3 * time.Minute,
			Reject:            errorHandler.Handle,
		})

		bulkConfig := mw.BulkRateLimiterConfig()
		bulkConfig.RequestsPerSecond = cfg.RateLimit.BulkRPS
		bulkConfig.BurstSize = cfg.RateLimit.BulkBurst
		bulkConfig.Reject = errorHandler.Handle
		bulkRateLimiter = mw.NewRateLimiter(bulkConfig)
	}

	// 7. Dependency Injection (Wiring the Hexagon)

	// Repositories (Secondary Adapters)
	donorRepo := postgres.NewDonorRepository(pool)

	// Services (Core)
	donorService := services.NewDonorService(donorRepo, broadcaster, logger)
	ingestionService := services.NewIngestionService(donorRepo, broadcaster, services.IngestionConfig{
		PacingInterval: cfg.Ingest.PacingInterval,
		Clock:          clockwork.NewRealClock(),
	}, logger)

	// Handlers (Primary Adapters)
	donorOpts := []httpAdapter.DonorHandlerOption{
		httpAdapter.WithMaxUploadBytes(cfg.Ingest.MaxUploadBytes),
	}
	if bulkRateLimiter != nil {
		donorOpts = append(donorOpts, httpAdapter.WithBulkMiddleware(bulkRateLimiter.Middleware))
	}
	donorHandler := httpAdapter.NewDonorHandler(donorService, ingestionService, errorHandler, logger, donorOpts...)
	wsHandler := httpAdapter.NewWebSocketHandler(registry, cfg, logger)
	healthHandler := httpAdapter.NewHealthHandler(pool, registry, ingestionService, cfg.App.Version)

	// 8. Setup Router
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.RequestLogger(logger))
	r.Use(mw.RecoveryLogger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", mw.RequestIDHeader},
		ExposedHeaders: []string{mw.RequestIDHeader},
		MaxAge:         300,
	}))

	// Health check and metrics endpoints stay outside rate limiting
	healthHandler.RegisterRoutes(r)
	r.Handle("/metrics", promhttp.Handler())

	// Display clients connect here
	r.Get("/ws/display", wsHandler.ServeHTTP)

	r.Group(func(r chi.Router) {
		if generalRateLimiter != nil {
			r.Use(generalRateLimiter.Middleware)
		}

		// API routes
		r.Route("/api/v1", func(r chi.Router) {
			r.Route("/donors", donorHandler.RegisterRoutes)
		})

		// Admin page assets
		if cfg.Static.Dir != "" {
			fileServer := http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.Static.Dir)))
			r.Handle("/static/*", fileServer)
		}
	})

	// 9. Start Server with Graceful Shutdown
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return baseCtx },
	}

	// Hijacked websocket connections are not tracked by Shutdown
	srv.RegisterOnShutdown(func() {
		for _, viewer := range registry.Snapshot() {
			registry.Unregister(viewer)
			_ = viewer.Close()
		}
	})

	// Start server in goroutine
	go func() {
		logger.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutdown signal received", "signal", sig.String())

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Graceful shutdown; a bulk run still pacing past the timeout is interrupted
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown timed out, interrupting in-flight requests", "error", err)
		cancelBase()
		_ = srv.Close()
	}

	logger.Info("server shutdown complete")
}

// runMigrations applies pending schema migrations from a directory
func runMigrations(path, databaseURL string, logger *slog.Logger) error {
	mig, err := migrate.New("file://"+path, databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if srcErr, dbErr := mig.Close(); srcErr != nil || dbErr != nil {
			logger.Warn("failed to close migrator", "source_error", srcErr, "database_error", dbErr)
		}
	}()

	if err := mig.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	version, dirty, err := mig.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return err
	}
	logger.Info("database migrations applied", "version", version, "dirty", dirty)
	return nil
}

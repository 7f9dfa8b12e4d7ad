package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/finagent/finagent/internal/adapters/aggregator"
	"github.com/finagent/finagent/internal/adapters/llm"
	"github.com/finagent/finagent/internal/core/services"
	"github.com/finagent/finagent/internal/handlers"
	"github.com/finagent/finagent/internal/metrics"
	"github.com/finagent/finagent/internal/middleware"
	"github.com/finagent/finagent/internal/repositories/database/pgsql"
	"github.com/finagent/finagent/pkg/cache"
	"github.com/finagent/finagent/pkg/config"
	"github.com/finagent/finagent/pkg/database"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"

	portssvc "github.com/finagent/finagent/internal/core/ports/services"
)

func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := database.NewPgxPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer dbPool.Close()
	logger.Info("Database connection pool established.")

	if err := runMigrations(cfg.DatabaseURL, logger); err != nil {
		logger.Error("Failed to apply migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	resultCache, err := cache.New(cfg.CacheDir, logger)
	if err != nil {
		logger.Error("Failed to initialize cache", slog.String("error", err.Error()))
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	repos := pgsql.NewRepositoryProvider(dbPool, logger)

	aggregatorClient := aggregator.NewClient(
		cfg.AggregatorBaseURL, cfg.AggregatorClientID, cfg.AggregatorSecret,
		cfg.AggregatorTimeout, logger,
	)
	llmClient, err := llm.NewGenAICategorizer(ctx, logger)
	if err != nil {
		logger.Error("Failed to initialize LLM client", slog.String("error", err.Error()))
		os.Exit(1)
	}

	svcs := services.NewServiceContainer(cfg, repos, aggregatorClient, llmClient, resultCache, m, logger)

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery())
	if err := r.SetTrustedProxies(nil); err != nil {
		logger.Error("Failed to set trusted proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}

	handlers.RegisterRoutes(r, cfg, svcs, repos, registry)

	srv := &http.Server{
		Addr:    ":" + cfg.AdminPort,
		Handler: r,
	}

	go runSyncScheduler(ctx, svcs.Sync, cfg.SyncInterval, logger)

	go func() {
		logger.Info("Admin server starting", slog.String("port", cfg.AdminPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed to run", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", slog.String("error", err.Error()))
	}
}

// runSyncScheduler runs a full sync on start and then on every tick until the
// context is cancelled.
func runSyncScheduler(ctx context.Context, syncer portssvc.SyncSvcFacade, interval time.Duration, logger *slog.Logger) {
	run := func() {
		summaries, err := syncer.SyncAll(ctx)
		if err != nil {
			logger.Error("Scheduled sync failed", slog.String("error", err.Error()))
			return
		}
		logger.Info("Scheduled sync finished", slog.Int("items", len(summaries)))
	}

	run()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}

// runMigrations applies all pending up migrations over a short-lived
// database/sql connection; the pgx pool stays untouched.
func runMigrations(databaseURL string, logger *slog.Logger) error {
	logger.Info("Running database migrations...")

	migrationDB, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := migrationDB.Close(); cerr != nil {
			logger.Error("Error closing migration DB connection", slog.String("error", cerr.Error()))
		}
	}()
	if err := migrationDB.Ping(); err != nil {
		return err
	}

	driver, err := postgres.WithInstance(migrationDB, &postgres.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithDatabaseInstance("file://migrations", "postgres", driver)
	if err != nil {
		return err
	}

	upErr := m.Up()
	if upErr != nil && upErr != migrate.ErrNoChange {
		return upErr
	}

	sourceErr, dbErr := m.Close()
	if sourceErr != nil {
		return sourceErr
	}
	if dbErr != nil {
		return dbErr
	}

	if upErr == migrate.ErrNoChange {
		logger.Info("No new migrations to apply.")
	} else {
		logger.Info("Database migrations applied successfully.")
	}
	return nil
}

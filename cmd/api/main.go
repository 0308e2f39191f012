package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/Isaac25-lgtm/navcore-platform/internal/infra/postgres"
	infraRedis "github.com/Isaac25-lgtm/navcore-platform/internal/infra/redis"
	"github.com/Isaac25-lgtm/navcore-platform/internal/nav"
	"github.com/Isaac25-lgtm/navcore-platform/internal/transport/httpapi"
	"github.com/Isaac25-lgtm/navcore-platform/internal/transport/httpapi/handler"
	"github.com/Isaac25-lgtm/navcore-platform/internal/transport/httpapi/middleware"
	"github.com/Isaac25-lgtm/navcore-platform/pkg/config"
	"github.com/Isaac25-lgtm/navcore-platform/pkg/logger"
)

const version = "1.0.0"

func main() {
	// Create context that listens for termination signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewDefault(cfg.Env)
	log.Info("Starting NAV API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"currency", cfg.Currency,
	)

	if err := run(ctx, cfg, log); err != nil {
		log.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	db, err := postgres.Open(ctx, postgres.Config{
		URL:     cfg.DatabaseURL,
		Migrate: cfg.MigrateOnStart,
	})
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()
	log.Info("Database connection established", "migrated", cfg.MigrateOnStart)

	deps := map[string]handler.Pinger{"database": db}
	sinks := nav.MultiSink{nav.NewLogSink(log)}
	opts := []nav.Option{nav.WithCurrency(cfg.Currency)}

	// Redis is optional outside production: without it snapshots are read from
	// Postgres and audit events only reach the log.
	if cfg.RedisURL != "" {
		redisClient, err := infraRedis.NewClient(ctx, cfg.RedisURL, cfg.RedisPassword)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer redisClient.Close()
		log.Info("Redis connection established")

		deps["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
		sinks = append(sinks, infraRedis.NewEventStream(redisClient, cfg.AuditStream))
		opts = append(opts, nav.WithSnapshotCache(infraRedis.NewSnapshotCache(redisClient, cfg.SnapshotCacheTTL, log)))
	} else {
		log.Warn("REDIS_URL not configured, snapshot cache and audit stream disabled")
	}

	opts = append(opts, nav.WithEventSink(sinks))
	svc := nav.NewService(postgres.NewNavRepository(db.Pool), log, opts...)

	limiter := middleware.NewRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitRPS*2)
	go limiter.Run(ctx.Done(), time.Minute)

	r := httpapi.NewRouter(httpapi.Config{
		Logger:         log,
		AllowedOrigins: cfg.AllowedOrigins,
		RateLimiter:    limiter,
		PeriodHandler:  handler.NewPeriodHandler(svc, log),
		EntryHandler:   handler.NewEntryHandler(svc, log),
		HealthHandler:  handler.NewHealthHandler(version, deps),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Info("Server stopped gracefully")
	return nil
}

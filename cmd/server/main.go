/**
 * @description
 * This is the main entry point for the goal-service. It initializes and wires
 * together all the components of the application: configuration, database
 * connection, repository, event producer, rate limiter, service, scheduler,
 * and the HTTP router. Finally, it starts the HTTP server to listen for
 * incoming requests.
 */

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/megabyte0x/accountable/internal/api"
	"github.com/megabyte0x/accountable/internal/app"
	"github.com/megabyte0x/accountable/internal/config"
	"github.com/megabyte0x/accountable/internal/store"
	"github.com/megabyte0x/accountable/pkg/neynarclient"
	"github.com/megabyte0x/accountable/pkg/rabbitmq"
)

func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// Load .env if present; environment variables win either way
	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, relying on environment variables")
	}

	// Load application configuration from environment variables
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up channel to listen for OS signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Establish connection to the hosted PostgreSQL database
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Error("unable to parse database URL", "error", err)
		os.Exit(1)
	}

	poolConfig.MaxConns = 20
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	// IMPORTANT: Disable prepared statements to work with PgBouncer transaction pooling
	// Use simple protocol to avoid statement cache errors (SQLSTATE 42P05)
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Error("unable to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbpool.Close()
	logger.Info("database connection established")

	// Database tables are managed via Supabase migrations; nothing to create here.

	// Goal lifecycle event producer, with a no-op fallback when the broker is
	// unreachable so the service still starts.
	var publisher rabbitmq.Publisher
	if cfg.RabbitMQURL != "" {
		producer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL)
		if err != nil {
			logger.Warn("rabbitmq unavailable, events will be dropped", "error", err)
			publisher = &rabbitmq.EventProducerFallback{Logger: logger}
		} else {
			publisher = producer
		}
	} else {
		publisher = &rabbitmq.EventProducerFallback{Logger: logger}
	}
	defer publisher.Close()

	// Redis-backed rate limiter for the Farcaster lookup endpoint (optional)
	var limiter *app.RedisRateLimiter
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Warn("invalid redis URL, lookup rate limiting disabled", "error", err)
		} else {
			limiter = app.NewRedisRateLimiter(redis.NewClient(opts), cfg.RedisRateLimitPrefix)
		}
	}

	// Farcaster social-graph client (optional; lookups degrade without it)
	var farcaster app.FarcasterClient
	if cfg.NeynarAPIKey != "" {
		farcaster = neynarclient.NewClient(cfg.NeynarAPIBaseURL, cfg.NeynarAPIKey)
	}

	// Initialize application layers
	repository := store.NewRepository(dbpool)
	service := app.NewService(repository, publisher, cfg.GoalEventsExchange, logger)
	lookup := app.NewLookup(farcaster, logger)
	handler := api.NewHandler(service, lookup, limiter, cfg, logger)
	router := api.NewRouter(handler, cfg.SessionJWTSecret)

	// Reconciliation sweep for intents the chain accepted but the database missed
	jobs := app.NewJobs(repository, publisher, cfg.GoalEventsExchange,
		time.Duration(cfg.IntentStaleAfterMinutes)*time.Minute, logger)
	scheduler := app.NewScheduler(jobs, cfg.IntentReconcileSchedule, logger)
	scheduler.Start()
	defer scheduler.Stop()

	// Configure and start the HTTP server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: router,
	}

	go func() {
		logger.Info("starting server", "port", cfg.ServerPort, "contract", cfg.ContractAddress())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for an OS signal
	<-sigCh
	logger.Info("shutdown signal received, gracefully shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}

	logger.Info("server stopped")
}

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

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/storyverse/internal/activity"
	"github.com/lalith-99/storyverse/internal/api"
	"github.com/lalith-99/storyverse/internal/config"
	"github.com/lalith-99/storyverse/internal/db"
	"github.com/lalith-99/storyverse/internal/live"
	"github.com/lalith-99/storyverse/internal/media"
	"github.com/lalith-99/storyverse/internal/observ"
	"github.com/lalith-99/storyverse/internal/repository"
	"github.com/lalith-99/storyverse/internal/repository/memory"
	"github.com/lalith-99/storyverse/internal/repository/postgres"
	"github.com/lalith-99/storyverse/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// ctx is cancelled on SIGINT/SIGTERM; background media jobs run
	// under it too.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---------------------------------------------------------------
	// Content store
	//
	// Everything below depends on repository.ContentStore, never on a
	// concrete store, so picking Postgres or memory is this one switch.
	// The memory store keeps the server runnable with no infrastructure
	// at all, which is what local development and the API tests use.
	// ---------------------------------------------------------------
	var (
		store  repository.ContentStore
		health func(context.Context) error
	)
	switch cfg.StoreDriver {
	case config.StorePostgres:
		database, err := db.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		// Acquire, then immediately defer the release: the pool drains
		// however run() returns.
		defer database.Close()

		if err := database.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
		store = postgres.NewStore(database.Pool())
		health = database.Health
	default:
		logger.Warn("using in-memory store; content is lost on restart")
		store = memory.New()
	}

	// ---------------------------------------------------------------
	// Daily check-in tracking
	//
	// With several server instances, "first check-in of the day" has to be
	// decided in one place, which is what the Redis SETNX gives us. A
	// single instance can keep it in memory.
	// ---------------------------------------------------------------
	var tracker activity.Tracker
	if cfg.RedisURL != "" {
		client, err := activity.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer func() {
			_ = client.Close()
		}()
		tracker = activity.NewRedisTracker(client)
	} else {
		tracker = activity.NewMemoryTracker()
	}

	// ---------------------------------------------------------------
	// Metrics
	//
	// A private registry instead of prometheus.DefaultRegisterer: /metrics
	// exposes exactly what is registered here, and tests can register the
	// same collectors into a registry of their own.
	// ---------------------------------------------------------------
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	observ.MustRegister(registry)

	// ---------------------------------------------------------------
	// Services
	// ---------------------------------------------------------------
	hub := live.NewHub(logger)
	svc := service.NewStoryService(store, tracker, hub, logger)

	var generator media.Generator
	if cfg.MediaAPIURL != "" {
		generator = media.NewHTTPGenerator(cfg.MediaAPIURL, cfg.MediaAPIKey, cfg.MediaTimeout)
	} else {
		logger.Info("no media provider configured; serving placeholder media")
		generator = media.NewPlaceholderGenerator(2*time.Second, 5*time.Second)
	}
	dispatcher := media.NewDispatcher(ctx, generator, store.Segments(), hub, logger, media.RetryPolicy{
		Attempts: uint(cfg.MediaRetryAttempts),
	})

	router := api.NewRouter(api.RouterConfig{
		Store:     store,
		Service:   svc,
		Media:     dispatcher,
		Live:      hub,
		Metrics:   observ.MetricsHandler(registry),
		Health:    health,
		JWTSecret: cfg.JWTSecret,
		TokenTTL:  cfg.TokenTTL,
		Logger:    logger,
	})

	// ---------------------------------------------------------------
	// HTTP server
	// ---------------------------------------------------------------
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	// Shutdown doesn't wait for hijacked websocket connections; closing
	// every subscription ends their streams.
	srv.RegisterOnShutdown(hub.Close)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting storyverse",
			zap.String("port", cfg.Port),
			zap.String("env", cfg.Env),
			zap.String("store", cfg.StoreDriver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve http: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http: %w", err)
	}

	// ctx is already cancelled, so in-flight jobs are unwinding.
	dispatcher.Wait()
	return nil
}

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

	"github.com/newomen/newomen-ai/internal/ai"
	"github.com/newomen/newomen-ai/internal/api"
	"github.com/newomen/newomen-ai/internal/assessment"
	"github.com/newomen/newomen-ai/internal/newme"
	"github.com/newomen/newomen-ai/internal/platform/cache"
	"github.com/newomen/newomen-ai/internal/platform/config"
	"github.com/newomen/newomen-ai/internal/platform/database"
	"github.com/newomen/newomen-ai/internal/platform/secrets"
	"github.com/newomen/newomen-ai/internal/usage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	db, err := database.Connect(ctx, database.Options{
		URL:      cfg.Database.URL,
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	box, err := secrets.NewBox(cfg.Secrets.Key)
	if err != nil {
		slog.Error("invalid secrets key", "error", err)
		os.Exit(1)
	}

	configStore, err := ai.NewPostgresConfigStore(db.Pool, box)
	if err != nil {
		slog.Error("failed to create config store", "error", err)
		os.Exit(1)
	}
	registry := ai.NewRegistry(configStore)
	if err := registry.Load(ctx); err != nil {
		slog.Error("failed to load AI configurations", "error", err)
		os.Exit(1)
	}

	cacheTTL := time.Duration(cfg.AI.CacheTTLSeconds) * time.Second
	var responseCache ai.ResponseCache
	checks := map[string]api.HealthCheck{"database": db.HealthCheck}
	if cfg.Cache.Enabled {
		redisCache, err := cache.Connect(ctx, cfg.Cache.URL)
		if err != nil {
			slog.Error("failed to connect to cache", "error", err)
			os.Exit(1)
		}
		defer redisCache.Close()
		responseCache = ai.NewRedisResponseCache(redisCache.Client, cacheTTL)
		checks["cache"] = redisCache.HealthCheck
	} else {
		responseCache = ai.NewMemoryResponseCache(cacheTTL)
	}

	usageLogger := usage.NewPostgresLogger(db.Pool)

	limiter := ai.NewRateLimiter(cfg.AI.RateLimitRequests, time.Duration(cfg.AI.RateLimitWindowS)*time.Second)
	gateway := ai.NewGateway(registry, ai.DefaultAdapters(http.DefaultClient), limiter, ai.GatewayOptions{
		Cache:            responseCache,
		Usage:            usageLogger,
		DefaultTimeoutMS: cfg.AI.DefaultTimeoutMS,
	})

	assessments := assessment.NewService(
		gateway,
		assessment.NewPostgresEntityStore(db.Pool),
		assessment.NewPostgresAttemptStore(db.Pool),
		assessment.NewPostgresProgressStore(db.Pool),
	)

	overrides, err := newme.LoadOverrides(cfg.OverridesPath)
	if err != nil {
		slog.Error("failed to load greeting overrides", "error", err)
		os.Exit(1)
	}
	agent := newme.NewService(
		gateway,
		registry,
		newme.NewPostgresContextStore(db.Pool),
		newme.NewPostgresConversationStore(db.Pool),
		overrides,
	)

	server := &api.Server{
		Assessments: assessments,
		Agent:       agent,
		Registry:    registry,
		Usage:       usageLogger,
		Checks:      checks,
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.NewMux(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

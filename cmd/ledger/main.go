package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/ledger-bfa-go/internal/app"
	"github.com/boddenberg/ledger-bfa-go/internal/config"
	"github.com/boddenberg/ledger-bfa-go/internal/handler"
	"github.com/boddenberg/ledger-bfa-go/internal/infra/observability"
	"github.com/boddenberg/ledger-bfa-go/internal/infra/token"
	"github.com/boddenberg/ledger-bfa-go/internal/jobs"
	"github.com/boddenberg/ledger-bfa-go/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Config ---
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel, "ledger-api")
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("data_backend", cfg.DataBackend),
		zap.String("lock_backend", cfg.LockBackend),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("jwt_access_ttl", cfg.JWTAccessTTL),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Tracing ---
	shutdownTracer, err := observability.InitTracer(ctx, "ledger-api", cfg.OTLPEndpoint)
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdownTracer(context.Background())

	// --- Stores, locker, provider ---
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to build app", zap.Error(err))
	}
	defer a.Close()

	// --- Background sync ---
	enqueuer := jobs.NewClient(app.RedisOpts(cfg))
	defer enqueuer.Close()

	// --- Services ---
	authSvc := service.NewAuthService(a.Deps.Users, token.NewJWTManager(cfg.JWTSecret, cfg.JWTAccessTTL), 0, logger)

	router := handler.NewRouter(handler.RouterDeps{
		Auth:         authSvc,
		Accounts:     service.NewAccountService(a.Deps, a.Catalog),
		Transactions: service.NewTransactionService(a.Deps),
		Sync:         service.NewSynchronizer(a.Deps, a.Provider(), a.Catalog),
		Catalog:      a.Catalog,
		Enqueuer:     enqueuer,
		Metrics:      a.Metrics,
		Logger:       logger,
		Checks:       a.Checks,
		RatePerMin:   cfg.RateLimitPerMinute,
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()

	logger.Info("server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

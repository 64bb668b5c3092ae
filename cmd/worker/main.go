package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/boddenberg/ledger-bfa-go/internal/app"
	"github.com/boddenberg/ledger-bfa-go/internal/config"
	"github.com/boddenberg/ledger-bfa-go/internal/infra/observability"
	"github.com/boddenberg/ledger-bfa-go/internal/jobs"
	"github.com/boddenberg/ledger-bfa-go/internal/service"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, "ledger-worker")
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, "ledger-worker", cfg.OTLPEndpoint)
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdownTracer(context.Background())

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to build app", zap.Error(err))
	}
	defer a.Close()

	redisOpts := app.RedisOpts(cfg)
	enqueuer := jobs.NewClient(redisOpts)
	defer enqueuer.Close()

	synchronizer := service.NewSynchronizer(a.Deps, a.Provider(), a.Catalog)
	syncJob := jobs.NewSyncJob(synchronizer, logger)
	syncAllJob := jobs.NewSyncAllJob(a.Deps.Accounts, enqueuer, cfg.SyncConcurrency, logger)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   redisOpts,
		Logger:      logger,
		Concurrency: cfg.SyncConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskAccountSync, Handler: syncJob.Handle},
			{Type: jobs.TaskSyncAll, Handler: syncAllJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.SyncCron, Task: jobs.NewSyncAllTask(), Options: []asynq.Option{asynq.MaxRetry(1)}},
		},
	})
	if err != nil {
		logger.Fatal("init worker", zap.Error(err))
	}

	logger.Info("worker starting", zap.String("sync_cron", cfg.SyncCron), zap.Int("concurrency", cfg.SyncConcurrency))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", zap.Error(err))
		os.Exit(1)
	}
}

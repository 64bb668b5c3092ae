package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/boddenberg/ledger-bfa-go/internal/domain"
	"github.com/boddenberg/ledger-bfa-go/internal/port"
	"github.com/boddenberg/ledger-bfa-go/internal/service"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// AccountSyncer is the part of service.Synchronizer the sync job needs.
type AccountSyncer interface {
	SyncAccount(ctx context.Context, accountID string) (*service.SyncResult, error)
}

// SyncJob handles TaskAccountSync.
type SyncJob struct {
	syncer AccountSyncer
	logger *zap.Logger
}

func NewSyncJob(syncer AccountSyncer, logger *zap.Logger) *SyncJob {
	return &SyncJob{syncer: syncer, logger: logger.With(zap.String("job", TaskAccountSync))}
}

// Handle runs one sync. Client errors (unknown or manual account) are not
// retried; provider failures are.
func (j *SyncJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload AccountSyncPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.AccountID == "" {
		return fmt.Errorf("bad payload: %w", asynq.SkipRetry)
	}

	logger := j.logger.With(zap.String("account_id", payload.AccountID))
	res, err := j.syncer.SyncAccount(ctx, payload.AccountID)
	if err != nil {
		if domain.IsClientError(err) {
			logger.Warn("sync rejected", zap.Error(err))
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		logger.Error("sync failed", zap.Error(err))
		return err
	}

	logger.Info("account synced",
		zap.Int("merged", res.TransactionsMerged),
		zap.Int64("balance", res.Balance),
	)
	return nil
}

// SyncAllJob handles TaskSyncAll by enqueueing a sync per automatic account.
type SyncAllJob struct {
	accounts    port.AccountRepository
	enqueuer    port.SyncEnqueuer
	concurrency int
	logger      *zap.Logger
}

func NewSyncAllJob(accounts port.AccountRepository, enqueuer port.SyncEnqueuer, concurrency int, logger *zap.Logger) *SyncAllJob {
	if concurrency < 1 {
		concurrency = 1
	}
	return &SyncAllJob{
		accounts:    accounts,
		enqueuer:    enqueuer,
		concurrency: concurrency,
		logger:      logger.With(zap.String("job", TaskSyncAll)),
	}
}

// Handle enqueues every account even when some fail, then reports the
// failures as one error so asynq retries the fan-out.
func (j *SyncAllJob) Handle(ctx context.Context, _ *asynq.Task) error {
	start := time.Now()
	accounts, err := j.accounts.ListAutomatic(ctx)
	if err != nil {
		return fmt.Errorf("list automatic accounts: %w", err)
	}

	var failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(j.concurrency)
	for _, a := range accounts {
		accountID := a.ID
		g.Go(func() error {
			if err := j.enqueuer.EnqueueSync(ctx, accountID); err != nil {
				failed.Add(1)
				j.logger.Error("enqueue sync", zap.String("account_id", accountID), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()

	j.logger.Info("sync fan-out done",
		zap.Int("accounts", len(accounts)),
		zap.Int64("failed", failed.Load()),
		zap.Duration("duration", time.Since(start)),
	)
	if n := failed.Load(); n > 0 {
		return fmt.Errorf("enqueue failed for %d of %d accounts", n, len(accounts))
	}
	return nil
}

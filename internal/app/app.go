// Package app wires configuration into the concrete stores, clients and
// services shared by the API and worker processes.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/boddenberg/ledger-bfa-go/internal/config"
	"github.com/boddenberg/ledger-bfa-go/internal/domain"
	"github.com/boddenberg/ledger-bfa-go/internal/handler"
	"github.com/boddenberg/ledger-bfa-go/internal/infra/cache"
	"github.com/boddenberg/ledger-bfa-go/internal/infra/lock"
	"github.com/boddenberg/ledger-bfa-go/internal/infra/memory"
	"github.com/boddenberg/ledger-bfa-go/internal/infra/observability"
	"github.com/boddenberg/ledger-bfa-go/internal/infra/postgres"
	"github.com/boddenberg/ledger-bfa-go/internal/infra/provider"
	"github.com/boddenberg/ledger-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/ledger-bfa-go/internal/port"
	"github.com/boddenberg/ledger-bfa-go/internal/service"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// App is the assembled dependency graph.
type App struct {
	Deps    service.Deps
	Catalog *service.Catalog
	Metrics *observability.Metrics
	Checks  []handler.HealthCheck

	provider port.FinancialDataProvider
	closers  []func()
}

// New opens the configured stores and builds the services' dependencies.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{Metrics: observability.NewMetrics()}

	if err := a.openStores(ctx, cfg, logger); err != nil {
		a.Close()
		return nil, err
	}

	locker, err := a.locker(ctx, cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Deps.Locker = locker
	a.Deps.Metrics = a.Metrics
	a.Deps.Logger = logger

	guard := resilience.NewGuard("data-provider", resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	})
	providerClient := provider.NewClient(
		&http.Client{Timeout: cfg.HTTPTimeout},
		provider.Config{
			BaseURL:      cfg.ProviderAPIURL,
			ClientID:     cfg.ProviderClientID,
			ClientSecret: cfg.ProviderClientSecret,
			PageSize:     cfg.ProviderPageSize,
		},
		guard,
		logger,
	)

	categoryCache := cache.New[[]domain.Category](cfg.CacheTTL, cache.WithObserver[[]domain.Category](a.observeCache("categories")))
	institutionCache := cache.New[[]domain.Institution](cfg.CacheTTL, cache.WithObserver[[]domain.Institution](a.observeCache("institutions")))
	a.closers = append(a.closers, categoryCache.Close, institutionCache.Close)

	a.Catalog = service.NewCatalog(a.Deps.Categories, providerClient, categoryCache, institutionCache)
	a.provider = providerClient
	return a, nil
}

// Provider returns the data provider client.
func (a *App) Provider() port.FinancialDataProvider { return a.provider }

// RedisOpts is the asynq connection for cfg.
func RedisOpts(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: cfg.RedisAddr}
}

// Close releases everything New opened, in reverse order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) openStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	switch cfg.DataBackend {
	case config.BackendMemory:
		logger.Warn("using in-memory storage; data is lost on restart")
		a.Deps.Accounts = memory.NewAccountRepository()
		a.Deps.Transactions = memory.NewTransactionRepository()
		a.Deps.Categories = memory.NewCategoryRepository(memory.DefaultCategories()...)
		a.Deps.Invoices = memory.NewInvoiceRepository()
		a.Deps.Users = memory.NewUserRepository()
		return nil
	default:
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, pool.Close)
		if err := postgres.Migrate(pool); err != nil {
			return err
		}
		logger.Info("postgres ready")

		store := postgres.NewStore(pool)
		a.Deps.Accounts = store.Accounts
		a.Deps.Transactions = store.Transactions
		a.Deps.Categories = store.Categories
		a.Deps.Invoices = store.Invoices
		a.Deps.Users = store.Users
		a.Checks = append(a.Checks, handler.HealthCheck{Name: "postgres", Check: store.Ping})
		return nil
	}
}

func (a *App) locker(ctx context.Context, cfg *config.Config, logger *zap.Logger) (port.AccountLocker, error) {
	if cfg.LockBackend != config.LockRedis {
		return lock.NewLocal(), nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	a.closers = append(a.closers, func() {
		if err := client.Close(); err != nil {
			logger.Warn("redis close", zap.Error(err))
		}
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	a.Checks = append(a.Checks, handler.HealthCheck{
		Name:  "redis",
		Check: func(ctx context.Context) error { return client.Ping(ctx).Err() },
	})
	return lock.NewRedis(client, cfg.LockTTL, logger), nil
}

func (a *App) observeCache(name string) func(hit bool) {
	return func(hit bool) {
		if hit {
			a.Metrics.IncrCacheHit(name)
			return
		}
		a.Metrics.IncrCacheMiss(name)
	}
}

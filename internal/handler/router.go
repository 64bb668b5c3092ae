package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/boddenberg/ledger-bfa-go/internal/domain"
	"github.com/boddenberg/ledger-bfa-go/internal/infra/observability"
	"github.com/boddenberg/ledger-bfa-go/internal/port"
	"github.com/boddenberg/ledger-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// HealthCheck is one dependency probed by /readyz.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// RouterDeps carries everything the HTTP surface talks to. Enqueuer may be
// nil, in which case connected accounts are not synced in the background.
type RouterDeps struct {
	Auth         *service.AuthService
	Accounts     *service.AccountService
	Transactions *service.TransactionService
	Sync         *service.Synchronizer
	Catalog      *service.Catalog
	Enqueuer     port.SyncEnqueuer
	Metrics      *observability.Metrics
	Logger       *zap.Logger
	Checks       []HealthCheck
	RatePerMin   int
	SSLRedirect  bool
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(d RouterDeps) http.Handler {
	logger := d.Logger
	if d.RatePerMin <= 0 {
		d.RatePerMin = 120
	}

	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(SecurityHeaders(d.SSLRedirect))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler())
	r.Get("/readyz", readyzHandler(d.Checks, logger))
	r.Handle("/metrics", promhttp.HandlerFor(d.Metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Use(httprate.LimitByIP(d.RatePerMin, time.Minute))

		r.Get("/metrics/sync", syncMetricsHandler(d.Metrics))

		r.Post("/auth/signup", signUpHandler(d.Auth, logger))
		r.Post("/auth/signin", signInHandler(d.Auth, logger))

		r.Group(func(r chi.Router) {
			r.Use(JWTAuthMiddleware(d.Auth, logger))

			r.Get("/categories", listCategoriesHandler(d.Catalog, logger))
			r.Get("/institutions", listInstitutionsHandler(d.Catalog, logger))

			r.Post("/accounts", createAccountHandler(d.Accounts, logger))
			r.Get("/accounts", listAccountsHandler(d.Accounts, logger))
			r.Get("/accounts/{accountId}", getAccountHandler(d.Accounts, logger))
			r.Get("/accounts/{accountId}/invoices", listInvoicesHandler(d.Accounts, logger))

			r.Get("/accounts/{accountId}/transactions", listTransactionsHandler(d.Accounts, logger))
			r.Post("/accounts/{accountId}/transactions", addTransactionHandler(d.Transactions, logger))
			r.Put("/accounts/{accountId}/transactions/{transactionId}", updateTransactionHandler(d.Transactions, logger))
			r.Delete("/accounts/{accountId}/transactions/{transactionId}", removeTransactionHandler(d.Transactions, logger))

			r.Post("/accounts/{accountId}/sync", syncAccountHandler(d.Accounts, d.Sync, logger))
			r.Post("/items/{itemId}/connect", connectItemHandler(d.Sync, d.Enqueuer, logger))
		})
	})

	return r
}

// ============================================================
// Operational endpoints
// ============================================================

func healthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, domain.HealthStatus{Status: "healthy", Services: []domain.ServiceHealth{}})
	}
}

// readyzHandler probes every dependency; any failure makes the process unready.
func readyzHandler(checks []HealthCheck, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := domain.HealthStatus{Status: "healthy", Services: make([]domain.ServiceHealth, 0, len(checks))}
		code := http.StatusOK

		for _, c := range checks {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			start := time.Now()
			err := c.Check(ctx)
			cancel()

			svc := domain.ServiceHealth{
				Name:        c.Name,
				Status:      "healthy",
				LatencyMs:   time.Since(start).Milliseconds(),
				LastChecked: time.Now().UTC().Format(time.RFC3339),
			}
			if err != nil {
				logger.Warn("readiness check failed", zap.String("dependency", c.Name), zap.Error(err))
				svc.Status = "unhealthy"
				svc.Error = err.Error()
				status.Status = "unhealthy"
				code = http.StatusServiceUnavailable
			}
			status.Services = append(status.Services, svc)
		}

		writeJSON(w, code, status)
	}
}

func syncMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.SyncSnapshot())
	}
}

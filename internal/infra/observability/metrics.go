package observability

import (
	"time"

	"github.com/boddenberg/ledger-bfa-go/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the ledger.
type Metrics struct {
	// Registry owns these metrics and backs the /metrics endpoint.
	Registry *prometheus.Registry

	operationDuration  *prometheus.HistogramVec
	transactionOps     *prometheus.CounterVec
	syncRuns           *prometheus.CounterVec
	transactionsMerged prometheus.Counter
	providerErrors     *prometheus.CounterVec
	cacheHits          *prometheus.CounterVec
	cacheMisses        *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// ledger metrics in it. A private registry lets tests call it repeatedly.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledger_operation_duration_seconds",
				Help:    "Duration of ledger use cases by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		transactionOps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_transaction_operations_total",
				Help: "Transaction mutations by account type, operation and outcome.",
			},
			[]string{"account_type", "operation", "status"},
		),
		syncRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_sync_runs_total",
				Help: "Account synchronisations by outcome.",
			},
			[]string{"status"},
		),
		transactionsMerged: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ledger_transactions_merged_total",
				Help: "Provider transactions inserted by sync.",
			},
		),
		providerErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_provider_errors_total",
				Help: "Errors returned by the financial data provider.",
			},
			[]string{"operation"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
	}
}

// RecordDuration records how long an operation took.
func (m *Metrics) RecordDuration(operation string, d time.Duration) {
	m.operationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrTransactionOp counts one transaction mutation.
func (m *Metrics) IncrTransactionOp(accountType domain.AccountType, operation string, err error) {
	m.transactionOps.WithLabelValues(string(accountType), operation, statusOf(err)).Inc()
}

// RecordSync counts one sync run and the transactions it inserted.
func (m *Metrics) RecordSync(merged int, err error) {
	m.syncRuns.WithLabelValues(statusOf(err)).Inc()
	if merged > 0 {
		m.transactionsMerged.Add(float64(merged))
	}
}

// IncrProviderError counts a failed provider call.
func (m *Metrics) IncrProviderError(operation string) {
	m.providerErrors.WithLabelValues(operation).Inc()
}

func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// SyncSnapshot returns the cumulative sync counters for GET /v1/metrics/sync.
func (m *Metrics) SyncSnapshot() *domain.SyncMetrics {
	hits := sumCounterVec(m.cacheHits)
	misses := sumCounterVec(m.cacheMisses)

	hitRate := float64(0)
	if hits+misses > 0 {
		hitRate = hits / (hits + misses)
	}

	return &domain.SyncMetrics{
		AccountsSynced:     int64(counterValue(m.syncRuns.WithLabelValues("success"))),
		SyncFailures:       int64(counterValue(m.syncRuns.WithLabelValues("error"))),
		TransactionsMerged: int64(counterValue(m.transactionsMerged)),
		ProviderErrors:     int64(sumCounterVec(m.providerErrors)),
		CacheHitRate:       hitRate,
		Period:             "all_time",
	}
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func counterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

// sumCounterVec adds up every label combination of cv.
func sumCounterVec(cv *prometheus.CounterVec) float64 {
	ch := make(chan prometheus.Metric, 16)
	go func() {
		cv.Collect(ch)
		close(ch)
	}()

	total := 0.0
	for metric := range ch {
		m := &dto.Metric{}
		if err := metric.Write(m); err == nil && m.Counter != nil {
			total += m.Counter.GetValue()
		}
	}
	return total
}

package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
	Error       string `json:"error,omitempty"`
}

// SyncMetrics is returned by GET /v1/metrics/sync.
type SyncMetrics struct {
	AccountsSynced     int64   `json:"accountsSynced"`
	SyncFailures       int64   `json:"syncFailures"`
	TransactionsMerged int64   `json:"transactionsMerged"`
	ProviderErrors     int64   `json:"providerErrors"`
	CacheHitRate       float64 `json:"cacheHitRate"`
	Period             string  `json:"period"`
}

// ============================================================
// Generic API Response wrappers
// ============================================================

// ListResponse wraps list results.
type ListResponse[T any] struct {
	Data  []T `json:"data"`
	Total int `json:"total"`
}

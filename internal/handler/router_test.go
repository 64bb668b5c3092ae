package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/boddenberg/ledger-bfa-go/internal/domain"
	"github.com/boddenberg/ledger-bfa-go/internal/handler"
	"github.com/boddenberg/ledger-bfa-go/internal/infra/cache"
	"github.com/boddenberg/ledger-bfa-go/internal/infra/lock"
	"github.com/boddenberg/ledger-bfa-go/internal/infra/memory"
	"github.com/boddenberg/ledger-bfa-go/internal/infra/observability"
	"github.com/boddenberg/ledger-bfa-go/internal/infra/token"
	"github.com/boddenberg/ledger-bfa-go/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type stubProvider struct {
	accounts map[string][]domain.ProviderAccount
	err      error
}

func (p *stubProvider) GetAvailableAutomaticInstitutions(context.Context) ([]domain.Institution, error) {
	if p.err != nil {
		return nil, p.err
	}
	return []domain.Institution{{ID: "nubank", Name: "Nubank"}}, nil
}

func (p *stubProvider) GetAccountsByItemID(_ context.Context, itemID string) ([]domain.ProviderAccount, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.accounts[itemID], nil
}

func (p *stubProvider) GetTransactionsByProviderAccountID(context.Context, domain.ProviderTransactionFilter) ([]domain.ProviderTransaction, error) {
	return nil, p.err
}

type recordingEnqueuer struct {
	mu  sync.Mutex
	ids []string
}

func (r *recordingEnqueuer) EnqueueSync(_ context.Context, accountID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, accountID)
	return nil
}

type testAPI struct {
	router   http.Handler
	provider *stubProvider
	enqueuer *recordingEnqueuer
	token    string
}

func newTestAPI(t *testing.T, checks ...handler.HealthCheck) *testAPI {
	t.Helper()

	users := memory.NewUserRepository()
	categories := memory.NewCategoryRepository(memory.DefaultCategories()...)
	metrics := observability.NewMetrics()
	deps := service.Deps{
		Accounts:     memory.NewAccountRepository(),
		Transactions: memory.NewTransactionRepository(),
		Categories:   categories,
		Invoices:     memory.NewInvoiceRepository(),
		Users:        users,
		Locker:       lock.NewLocal(),
		Metrics:      metrics,
		Logger:       zap.NewNop(),
		Now:          func() time.Time { return time.Date(2023, 3, 20, 12, 0, 0, 0, time.UTC) },
	}

	provider := &stubProvider{accounts: map[string][]domain.ProviderAccount{}}
	categoryCache := cache.New[[]domain.Category](time.Minute)
	institutionCache := cache.New[[]domain.Institution](time.Minute)
	t.Cleanup(categoryCache.Close)
	t.Cleanup(institutionCache.Close)
	catalog := service.NewCatalog(categories, provider, categoryCache, institutionCache)

	api := &testAPI{provider: provider, enqueuer: &recordingEnqueuer{}}
	api.router = handler.NewRouter(handler.RouterDeps{
		Auth:         service.NewAuthService(users, token.NewJWTManager("test-secret", time.Hour), bcrypt.MinCost, zap.NewNop()),
		Accounts:     service.NewAccountService(deps, catalog),
		Transactions: service.NewTransactionService(deps),
		Sync:         service.NewSynchronizer(deps, provider, catalog),
		Catalog:      catalog,
		Enqueuer:     api.enqueuer,
		Metrics:      metrics,
		Logger:       zap.NewNop(),
		Checks:       checks,
		RatePerMin:   1000,
	})
	return api
}

func (a *testAPI) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) signUp(t *testing.T) {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/v1/auth/signup", map[string]string{
		"name": "Ana", "email": "ana@example.com", "password": "s3cret-pass",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp domain.AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	a.token = resp.AccessToken
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthz(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestReadyz(t *testing.T) {
	t.Run("all dependencies up", func(t *testing.T) {
		api := newTestAPI(t, handler.HealthCheck{Name: "db", Check: func(context.Context) error { return nil }})
		assert.Equal(t, http.StatusOK, api.do(t, http.MethodGet, "/readyz", nil).Code)
	})

	t.Run("one dependency down", func(t *testing.T) {
		api := newTestAPI(t,
			handler.HealthCheck{Name: "db", Check: func(context.Context) error { return nil }},
			handler.HealthCheck{Name: "redis", Check: func(context.Context) error { return errors.New("connection refused") }},
		)
		rec := api.do(t, http.MethodGet, "/readyz", nil)
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)

		status := decode[domain.HealthStatus](t, rec)
		assert.Equal(t, "unhealthy", status.Status)
		require.Len(t, status.Services, 2)
		assert.Equal(t, "connection refused", status.Services[1].Error)
	})
}

func TestMetrics(t *testing.T) {
	api := newTestAPI(t)
	assert.Equal(t, http.StatusOK, api.do(t, http.MethodGet, "/metrics", nil).Code)

	rec := api.do(t, http.MethodGet, "/v1/metrics/sync", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "all_time", decode[domain.SyncMetrics](t, rec).Period)
}

func TestAuth(t *testing.T) {
	api := newTestAPI(t)

	t.Run("protected routes need a token", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, api.do(t, http.MethodGet, "/v1/accounts", nil).Code)
	})

	t.Run("bad token", func(t *testing.T) {
		api.token = "garbage"
		assert.Equal(t, http.StatusUnauthorized, api.do(t, http.MethodGet, "/v1/accounts", nil).Code)
		api.token = ""
	})

	t.Run("signup validation", func(t *testing.T) {
		rec := api.do(t, http.MethodPost, "/v1/auth/signup", map[string]string{"name": "Ana", "email": "not-an-email", "password": "s3cret-pass"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "email")
	})

	api.signUp(t)

	t.Run("duplicate signup", func(t *testing.T) {
		rec := api.do(t, http.MethodPost, "/v1/auth/signup", map[string]string{"name": "Ana", "email": "ana@example.com", "password": "s3cret-pass"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := api.do(t, http.MethodPost, "/v1/auth/signin", map[string]string{"email": "ana@example.com", "password": "nope"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("signin", func(t *testing.T) {
		rec := api.do(t, http.MethodPost, "/v1/auth/signin", map[string]string{"email": "ANA@example.com", "password": "s3cret-pass"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotEmpty(t, decode[domain.AuthResponse](t, rec).AccessToken)
	})
}

func TestWalletFlow(t *testing.T) {
	api := newTestAPI(t)
	api.signUp(t)

	rec := api.do(t, http.MethodPost, "/v1/accounts", map[string]any{"type": "WALLET", "name": "Carteira", "balance": 300})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	account := decode[domain.AccountData](t, rec)

	txPath := "/v1/accounts/" + account.ID + "/transactions"
	rec = api.do(t, http.MethodPost, txPath, map[string]any{
		"amount": 2567, "description": "Salário", "date": "2023-03-05", "categoryId": "cat-salary",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	tx := decode[domain.TransactionData](t, rec)
	assert.Equal(t, domain.TransactionIncome, tx.Type)

	rec = api.do(t, http.MethodGet, "/v1/accounts/"+account.ID, nil)
	assert.Equal(t, domain.Money(2867), decode[domain.AccountData](t, rec).Balance)

	rec = api.do(t, http.MethodPut, txPath+"/"+tx.ID, map[string]any{
		"amount": -100, "description": "Café", "date": "2023-03-06T08:30:00Z",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = api.do(t, http.MethodGet, "/v1/accounts/"+account.ID, nil)
	assert.Equal(t, domain.Money(200), decode[domain.AccountData](t, rec).Balance)

	rec = api.do(t, http.MethodDelete, txPath+"/"+tx.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[domain.TransactionData](t, rec).IsDeleted)

	rec = api.do(t, http.MethodGet, txPath, nil)
	assert.Zero(t, decode[domain.ListResponse[domain.TransactionData]](t, rec).Total)

	rec = api.do(t, http.MethodGet, "/v1/accounts/"+account.ID, nil)
	assert.Equal(t, domain.Money(300), decode[domain.AccountData](t, rec).Balance)
}

func TestCreditCardFlow(t *testing.T) {
	api := newTestAPI(t)
	api.signUp(t)

	rec := api.do(t, http.MethodPost, "/v1/accounts", map[string]any{
		"type": "CREDIT_CARD", "name": "Nubank", "institutionId": "nubank",
		"creditCard": map[string]any{"brand": "Mastercard", "creditLimit": 50000, "availableCreditLimit": 50000, "closeDay": 3, "dueDay": 10},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	card := decode[domain.AccountData](t, rec)

	rec = api.do(t, http.MethodPost, "/v1/accounts/"+card.ID+"/transactions", map[string]any{
		"amount": -4567, "description": "Mercado", "date": "2023-03-02", "categoryId": "cat-food",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	tx := decode[domain.TransactionData](t, rec)
	assert.True(t, tx.Date.Equal(time.Date(2023, 3, 10, 0, 0, 0, 0, time.UTC)), "got %s", tx.Date)

	rec = api.do(t, http.MethodGet, "/v1/accounts/"+card.ID, nil)
	assert.Equal(t, domain.Money(45433), decode[domain.AccountData](t, rec).CreditCardInfo.AvailableCreditLimit)

	rec = api.do(t, http.MethodGet, "/v1/accounts/"+card.ID+"/invoices", nil)
	invoices := decode[domain.ListResponse[domain.CreditCardInvoice]](t, rec)
	require.Equal(t, 1, invoices.Total)
	assert.Equal(t, domain.Money(-4567), invoices.Data[0].Amount)
}

func TestServiceErrorMapping(t *testing.T) {
	api := newTestAPI(t)
	api.signUp(t)

	rec := api.do(t, http.MethodPost, "/v1/accounts", map[string]any{"type": "WALLET", "name": "Carteira"})
	require.Equal(t, http.StatusCreated, rec.Code)
	wallet := decode[domain.AccountData](t, rec)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"unknown account type", http.MethodPost, "/v1/accounts", map[string]any{"type": "SAVINGS", "name": "x"}, http.StatusBadRequest},
		{"unknown institution", http.MethodPost, "/v1/accounts", map[string]any{"type": "BANK", "name": "x", "institutionId": "nope"}, http.StatusBadRequest},
		{"unknown account", http.MethodGet, "/v1/accounts/nope", nil, http.StatusBadRequest},
		{"zero amount", http.MethodPost, "/v1/accounts/" + wallet.ID + "/transactions", map[string]any{"amount": 0, "description": "x", "date": "2023-03-01"}, http.StatusBadRequest},
		{"fractional amount", http.MethodPost, "/v1/accounts/" + wallet.ID + "/transactions", map[string]any{"amount": 10.5, "description": "x", "date": "2023-03-01"}, http.StatusBadRequest},
		{"bad date", http.MethodPost, "/v1/accounts/" + wallet.ID + "/transactions", map[string]any{"amount": 10, "description": "x", "date": "yesterday"}, http.StatusBadRequest},
		{"unknown category", http.MethodPost, "/v1/accounts/" + wallet.ID + "/transactions", map[string]any{"amount": 10, "description": "x", "date": "2023-03-01", "categoryId": "nope"}, http.StatusBadRequest},
		{"unknown transaction", http.MethodDelete, "/v1/accounts/" + wallet.ID + "/transactions/nope", nil, http.StatusBadRequest},
		{"sync of manual account", http.MethodPost, "/v1/accounts/" + wallet.ID + "/sync", nil, http.StatusBadRequest},
		{"connect without institution", http.MethodPost, "/v1/items/item-1/connect", map[string]any{}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestConnectItem(t *testing.T) {
	api := newTestAPI(t)
	api.signUp(t)

	api.provider.accounts["item-1"] = []domain.ProviderAccount{
		{ID: "pa-1", ItemID: "item-1", Type: domain.ProviderAccountBank, Name: "Conta", Balance: 10000},
	}

	rec := api.do(t, http.MethodPost, "/v1/items/item-1/connect", map[string]string{"institutionId": "nubank"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[domain.ListResponse[domain.AccountData]](t, rec)
	require.Equal(t, 1, created.Total)
	assert.Equal(t, domain.SyncAutomatic, created.Data[0].SyncType)
	assert.Equal(t, []string{created.Data[0].ID}, api.enqueuer.ids)

	t.Run("provider failure is a 500", func(t *testing.T) {
		api.provider.err = errors.New("provider down")
		defer func() { api.provider.err = nil }()

		rec := api.do(t, http.MethodPost, "/v1/accounts/"+created.Data[0].ID+"/sync", nil)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.True(t, strings.Contains(rec.Body.String(), "provider"), rec.Body.String())
	})
}

package provider_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/boddenberg/ledger-bfa-go/internal/domain"
	"github.com/boddenberg/ledger-bfa-go/internal/infra/provider"
	"github.com/boddenberg/ledger-bfa-go/internal/infra/resilience"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAPI struct {
	authCalls  atomic.Int32
	pages      map[int]string
	failFirst  atomic.Int32
	rejectKeys atomic.Int32
	rejectAll  atomic.Bool
	listCalls  atomic.Int32
}

func (f *fakeAPI) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth", func(w http.ResponseWriter, r *http.Request) {
		n := f.authCalls.Add(1)
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["clientId"] != "client" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"apiKey": "key-" + strconv.Itoa(int(n))})
	})
	mux.HandleFunc("/connectors", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[{"id":212,"name":"Nubank","imageUrl":"https://cdn/nu.svg","primaryColor":"820AD1","type":"PERSONAL_BANK"}]}`))
	})
	mux.HandleFunc("/accounts", func(w http.ResponseWriter, r *http.Request) {
		f.listCalls.Add(1)
		if f.rejectAll.Load() {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if f.rejectKeys.Load() > 0 && r.Header.Get("X-API-KEY") == "key-1" {
			f.rejectKeys.Add(-1)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if f.failFirst.Load() > 0 {
			f.failFirst.Add(-1)
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		if r.URL.Query().Get("itemId") == "missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"results":[
			{"id":"acc-1","itemId":"item-1","type":"BANK","name":"Conta","balance":1520.35},
			{"id":"acc-2","itemId":"item-1","type":"CREDIT","name":"Cartão","balance":"310.10",
			 "creditData":{"brand":"VISA","creditLimit":5000,"availableCreditLimit":4689.9,
			 "balanceCloseDate":"2023-03-03T00:00:00Z","balanceDueDate":"2023-03-10T00:00:00Z"}}
		]}`))
	})
	mux.HandleFunc("/transactions", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "acc-2", r.URL.Query().Get("accountId"))
		assert.Equal(t, "2023-03-01", r.URL.Query().Get("from"))
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		body, ok := f.pages[page]
		if !ok {
			body = `{"results":[]}`
		}
		_, _ = w.Write([]byte(body))
	})
	return mux
}

func newClient(t *testing.T, api *fakeAPI, clientID string) *provider.Client {
	t.Helper()
	srv := httptest.NewServer(api.handler(t))
	t.Cleanup(srv.Close)

	guard := resilience.NewGuard("provider-test", resilience.Config{
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
		MaxConcurrency: 4,
	})
	return provider.NewClient(srv.Client(), provider.Config{
		BaseURL:      srv.URL,
		ClientID:     clientID,
		ClientSecret: "secret",
		PageSize:     2,
	}, guard, zap.NewNop())
}

func TestClient_Institutions(t *testing.T) {
	c := newClient(t, &fakeAPI{}, "client")

	list, err := c.GetAvailableAutomaticInstitutions(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.Institution{ID: "212", Name: "Nubank", ImageURL: "https://cdn/nu.svg", PrimaryColor: "820AD1", Type: "PERSONAL_BANK"}, list[0])
}

func TestClient_AccountsConvertToCents(t *testing.T) {
	api := &fakeAPI{}
	c := newClient(t, api, "client")

	accounts, err := c.GetAccountsByItemID(context.Background(), "item-1")
	require.NoError(t, err)
	require.Len(t, accounts, 2)

	assert.Equal(t, domain.Money(152035), accounts[0].Balance)
	assert.Nil(t, accounts[0].CreditData)

	card := accounts[1]
	assert.Equal(t, domain.ProviderAccountCredit, card.Type)
	assert.Equal(t, domain.Money(31010), card.Balance)
	require.NotNil(t, card.CreditData)
	assert.Equal(t, domain.Money(500000), card.CreditData.CreditLimit)
	assert.Equal(t, domain.Money(468990), card.CreditData.AvailableCreditLimit)
	assert.Equal(t, 3, card.CreditData.BalanceCloseDate.Day())

	_, err = c.GetAccountsByItemID(context.Background(), "item-1")
	require.NoError(t, err)
	assert.Equal(t, int32(1), api.authCalls.Load(), "api key is reused")
}

func TestClient_TransactionsPaginateAndNormaliseSign(t *testing.T) {
	api := &fakeAPI{pages: map[int]string{
		1: `{"page":1,"results":[
			{"id":"t1","amount":45.67,"type":"DEBIT","description":"iFood","date":"2023-03-02T15:04:05-03:00","category":"Alimentação"},
			{"id":"t2","amount":-120,"type":"DEBIT","description":"Uber","date":"2023-03-03T10:00:00Z"}]}`,
		2: `{"page":2,"results":[
			{"id":"t3","amount":310.1,"type":"CREDIT","description":"Pagamento recebido","date":"2023-03-05T00:00:00Z"}]}`,
	}}
	c := newClient(t, api, "client")

	from := time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)
	txs, err := c.GetTransactionsByProviderAccountID(context.Background(), domain.ProviderTransactionFilter{
		ProviderAccountID: "acc-2",
		From:              &from,
	})
	require.NoError(t, err)
	require.Len(t, txs, 3)

	assert.Equal(t, domain.Money(-4567), txs[0].Amount)
	assert.Equal(t, domain.Money(-12000), txs[1].Amount)
	assert.Equal(t, domain.Money(31010), txs[2].Amount)
	assert.Equal(t, "acc-2", txs[0].AccountID)
	assert.Equal(t, time.UTC, txs[0].Date.Location())
}

func TestClient_RetriesServerErrors(t *testing.T) {
	api := &fakeAPI{}
	api.failFirst.Store(2)
	c := newClient(t, api, "client")

	accounts, err := c.GetAccountsByItemID(context.Background(), "item-1")
	require.NoError(t, err)
	assert.Len(t, accounts, 2)
}

func TestClient_RefreshesRejectedKey(t *testing.T) {
	api := &fakeAPI{}
	api.rejectKeys.Store(1)
	c := newClient(t, api, "client")

	_, err := c.GetAccountsByItemID(context.Background(), "item-1")
	require.NoError(t, err)
	assert.Equal(t, int32(2), api.authCalls.Load())
}

func TestClient_ErrorsAreDataProviderErrors(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		c := newClient(t, &fakeAPI{}, "client")
		_, err := c.GetAccountsByItemID(context.Background(), "missing")

		var dp *domain.ErrDataProvider
		require.True(t, errors.As(err, &dp))
		assert.Equal(t, "accounts", dp.Operation)
	})

	t.Run("bad credentials", func(t *testing.T) {
		api := &fakeAPI{}
		c := newClient(t, api, "wrong")
		_, err := c.GetAvailableAutomaticInstitutions(context.Background())

		var dp *domain.ErrDataProvider
		require.True(t, errors.As(err, &dp))
		assert.Equal(t, "institutions", dp.Operation)
		assert.Equal(t, int32(1), api.authCalls.Load(), "credential failures are not retried")
	})
}

func TestClient_RejectedRefreshIsNotRetried(t *testing.T) {
	api := &fakeAPI{}
	api.rejectAll.Store(true)
	c := newClient(t, api, "client")

	_, err := c.GetAccountsByItemID(context.Background(), "item-1")

	var dp *domain.ErrDataProvider
	require.True(t, errors.As(err, &dp))
	assert.Equal(t, int32(2), api.authCalls.Load(), "one key plus one refresh")
	assert.Equal(t, int32(2), api.listCalls.Load())
}

func TestClient_SkipsTransactionsWithSubCentAmounts(t *testing.T) {
	api := &fakeAPI{pages: map[int]string{
		1: `{"page":1,"results":[
			{"id":"t1","amount":1.234,"type":"DEBIT","description":"Tarifa","date":"2023-03-02T00:00:00Z"},
			{"id":"t2","amount":12.5,"type":"DEBIT","description":"Padaria","date":"2023-03-02T00:00:00Z"}]}`,
	}}
	c := newClient(t, api, "client")

	from := time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)
	txs, err := c.GetTransactionsByProviderAccountID(context.Background(), domain.ProviderTransactionFilter{
		ProviderAccountID: "acc-2",
		From:              &from,
	})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "t2", txs[0].ID)
	assert.Equal(t, domain.Money(-1250), txs[0].Amount)
}

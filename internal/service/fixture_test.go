package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/boddenberg/ledger-bfa-go/internal/domain"
	"github.com/boddenberg/ledger-bfa-go/internal/infra/cache"
	"github.com/boddenberg/ledger-bfa-go/internal/infra/lock"
	"github.com/boddenberg/ledger-bfa-go/internal/infra/memory"
	"github.com/boddenberg/ledger-bfa-go/internal/infra/observability"
	"github.com/boddenberg/ledger-bfa-go/internal/service"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	foodCategory        = "cat-food"
	cardPaymentCategory = "cat-card-payment"
)

type fixture struct {
	ctx          context.Context
	now          time.Time
	accounts     *memory.AccountRepository
	transactions *memory.TransactionRepository
	invoices     *memory.InvoiceRepository
	users        *memory.UserRepository
	categories   *memory.CategoryRepository
	provider     *fakeProvider
	metrics      *observability.Metrics
	deps         service.Deps
	catalog      *service.Catalog
	userID       string
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()

	f := &fixture{
		ctx:          context.Background(),
		now:          now,
		accounts:     memory.NewAccountRepository(),
		transactions: memory.NewTransactionRepository(),
		invoices:     memory.NewInvoiceRepository(),
		users:        memory.NewUserRepository(),
		categories:   memory.NewCategoryRepository(memory.DefaultCategories()...),
		provider:     newFakeProvider(),
		metrics:      observability.NewMetrics(),
	}
	f.deps = service.Deps{
		Accounts:     f.accounts,
		Transactions: f.transactions,
		Categories:   f.categories,
		Invoices:     f.invoices,
		Users:        f.users,
		Locker:       lock.NewLocal(),
		Metrics:      f.metrics,
		Logger:       zap.NewNop(),
		Now:          func() time.Time { return f.now },
	}

	categoryCache := cache.New[[]domain.Category](time.Minute)
	institutionCache := cache.New[[]domain.Institution](time.Minute)
	t.Cleanup(categoryCache.Close)
	t.Cleanup(institutionCache.Close)
	f.catalog = service.NewCatalog(f.categories, f.provider, categoryCache, institutionCache)

	user, err := f.users.Add(f.ctx, domain.User{Name: "Ana", Email: "ana@example.com"})
	require.NoError(t, err)
	f.userID = user.ID
	return f
}

func (f *fixture) wallet(t *testing.T, balance domain.Money) *domain.AccountData {
	t.Helper()
	acc, err := domain.NewWalletAccount(domain.AccountParams{UserID: f.userID, Name: "Carteira", Balance: float64(balance)})
	require.NoError(t, err)
	saved, err := f.accounts.Add(f.ctx, acc.Data())
	require.NoError(t, err)
	return saved
}

func (f *fixture) bank(t *testing.T, balance domain.Money) *domain.AccountData {
	t.Helper()
	acc, err := domain.NewManualBankAccount(domain.AccountParams{UserID: f.userID, Name: "Conta corrente", Balance: float64(balance)})
	require.NoError(t, err)
	saved, err := f.accounts.Add(f.ctx, acc.Data())
	require.NoError(t, err)
	return saved
}

func (f *fixture) creditCard(t *testing.T, available domain.Money, closeDay, dueDay int) *domain.AccountData {
	t.Helper()
	acc, err := domain.NewManualCreditCardAccount(domain.AccountParams{
		UserID: f.userID,
		Name:   "Nubank",
		CreditCard: &domain.CreditCardParams{
			Brand:                "Mastercard",
			CreditLimit:          float64(available),
			AvailableCreditLimit: float64(available),
			CloseDay:             closeDay,
			DueDay:               dueDay,
		},
	})
	require.NoError(t, err)
	saved, err := f.accounts.Add(f.ctx, acc.Data())
	require.NoError(t, err)
	return saved
}

func (f *fixture) account(t *testing.T, id string) *domain.AccountData {
	t.Helper()
	acc, err := f.accounts.FindByID(f.ctx, id)
	require.NoError(t, err)
	require.NotNil(t, acc)
	return acc
}

func (f *fixture) invoice(t *testing.T, id string) *domain.CreditCardInvoice {
	t.Helper()
	inv, err := f.invoices.FindByID(f.ctx, id)
	require.NoError(t, err)
	require.NotNil(t, inv)
	return inv
}

// invoiceSum recomputes an invoice amount from its live transactions.
func (f *fixture) invoiceSum(t *testing.T, accountID, invoiceID string) domain.Money {
	t.Helper()
	txs, err := f.transactions.ListByAccount(f.ctx, accountID)
	require.NoError(t, err)

	var sum domain.Money
	for _, tx := range txs {
		if tx.InvoiceID == invoiceID && !tx.Category.IsCardPayment() {
			sum += tx.Amount
		}
	}
	return sum
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 12, 0, 0, 0, time.UTC)
}

// ============================================================
// Provider fake
// ============================================================

type fakeProvider struct {
	institutions []domain.Institution
	accounts     map[string][]domain.ProviderAccount
	transactions map[string][]domain.ProviderTransaction
	err          error
	filters      []domain.ProviderTransactionFilter
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		institutions: []domain.Institution{{ID: "nubank", Name: "Nubank", PrimaryColor: "#820AD1"}},
		accounts:     make(map[string][]domain.ProviderAccount),
		transactions: make(map[string][]domain.ProviderTransaction),
	}
}

func (p *fakeProvider) GetAvailableAutomaticInstitutions(context.Context) ([]domain.Institution, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.institutions, nil
}

func (p *fakeProvider) GetAccountsByItemID(_ context.Context, itemID string) ([]domain.ProviderAccount, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.accounts[itemID], nil
}

func (p *fakeProvider) GetTransactionsByProviderAccountID(_ context.Context, filter domain.ProviderTransactionFilter) ([]domain.ProviderTransaction, error) {
	p.filters = append(p.filters, filter)
	if p.err != nil {
		return nil, p.err
	}
	return p.transactions[filter.ProviderAccountID], nil
}

package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/boddenberg/ledger-bfa-go/internal/domain"
	"github.com/boddenberg/ledger-bfa-go/internal/port"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ port.AccountRepository           = (*AccountRepository)(nil)
	_ port.TransactionRepository       = (*TransactionRepository)(nil)
	_ port.CategoryRepository          = (*CategoryRepository)(nil)
	_ port.CreditCardInvoiceRepository = (*InvoiceRepository)(nil)
	_ port.UserRepository              = (*UserRepository)(nil)
)

// newTestStore connects to LEDGER_TEST_DATABASE_URL and skips otherwise.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("LEDGER_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("LEDGER_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := Connect(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, Migrate(pool))

	_, err = pool.Exec(ctx, `TRUNCATE transactions, credit_card_invoices, accounts, users`)
	require.NoError(t, err)
	return NewStore(pool)
}

func seedCard(t *testing.T, s *Store) (*domain.User, *domain.AccountData) {
	t.Helper()
	ctx := context.Background()
	user, err := s.Users.Add(ctx, domain.User{Name: "Ana", Email: "ana@example.com", PasswordHash: "x"})
	require.NoError(t, err)
	account, err := s.Accounts.Add(ctx, domain.AccountData{
		Type:     domain.AccountCreditCard,
		SyncType: domain.SyncAutomatic,
		Name:     "Nubank",
		UserID:   user.ID,
		CreditCardInfo: &domain.CreditCardInfo{
			Brand: "visa", CreditLimit: 500000, AvailableCreditLimit: 500000, CloseDay: 3, DueDay: 10,
		},
		Synchronization: &domain.Synchronization{ProviderAccountID: "pa-1", ProviderItemID: "item-1", CreatedAt: time.Now().UTC()},
	})
	require.NoError(t, err)
	return user, account
}

func TestAccounts_JSONBRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, account := seedCard(t, s)

	require.NoError(t, s.Accounts.UpdateAvailableCreditCardLimit(ctx, account.ID, 420000))
	syncedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.Accounts.UpdateSynchronizationStatus(ctx, account.ID, port.SyncStatus{LastSyncAt: syncedAt}))

	got, err := s.Accounts.FindByProviderAccountID(ctx, "pa-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.Money(420000), got.CreditCardInfo.AvailableCreditLimit)
	assert.Equal(t, 3, got.CreditCardInfo.CloseDay)
	require.NotNil(t, got.Synchronization.LastSyncAt)
	assert.True(t, syncedAt.Equal(*got.Synchronization.LastSyncAt))

	missing, err := s.Accounts.FindByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	err = s.Accounts.UpdateBalance(ctx, "nope", 1)
	var unregistered *domain.ErrUnregisteredAccount
	assert.ErrorAs(t, err, &unregistered)
}

func TestTransactions_MergeIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user, account := seedCard(t, s)

	batch := []domain.TransactionData{
		{AccountID: account.ID, AccountType: account.Type, SyncType: account.SyncType, UserID: user.ID, Amount: -1000, Date: time.Now().UTC(), ProviderID: "p-1"},
		{AccountID: account.ID, AccountType: account.Type, SyncType: account.SyncType, UserID: user.ID, Amount: 2500, Date: time.Now().UTC(), ProviderID: "p-2"},
	}

	n, err := s.Transactions.MergeTransactions(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.Transactions.MergeTransactions(ctx, batch)
	require.NoError(t, err)
	assert.Zero(t, n)

	txs, err := s.Transactions.ListByAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.Len(t, txs, 2)
}

func TestTransactions_SoftDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user, account := seedCard(t, s)

	tx, err := s.Transactions.Add(ctx, domain.TransactionData{
		AccountID: account.ID, AccountType: account.Type, SyncType: domain.SyncManual, UserID: user.ID,
		Amount: -4200, Date: time.Now().UTC(), Category: &domain.Category{ID: "cat-food", Name: "Alimentação"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionExpense, tx.Type)

	removed, err := s.Transactions.Remove(ctx, tx.ID)
	require.NoError(t, err)
	assert.True(t, removed.IsDeleted)
	assert.Equal(t, "cat-food", removed.Category.ID)

	ok, err := s.Transactions.Exists(ctx, tx.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Transactions.Remove(ctx, "missing")
	var unregistered *domain.ErrUnregisteredTransaction
	assert.ErrorAs(t, err, &unregistered)
}

func TestInvoices_LastClosedAndBatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user, account := seedCard(t, s)

	march, err := s.Invoices.Add(ctx, domain.CreditCardInvoice{
		AccountID: account.ID, UserID: user.ID,
		DueDate:   time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		CloseDate: time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	april, err := s.Invoices.Add(ctx, domain.CreditCardInvoice{
		AccountID: account.ID, UserID: user.ID,
		DueDate:   time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC),
		CloseDate: time.Date(2026, 4, 3, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	require.NoError(t, s.Invoices.BatchUpdateAmount(ctx, []domain.InvoiceAmount{
		{InvoiceID: march.ID, Amount: -3000},
		{InvoiceID: april.ID, Amount: -500},
	}))

	last, err := s.Invoices.GetLastClosedInvoice(ctx, account.ID, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, march.ID, last.ID)
	assert.Equal(t, domain.Money(-3000), last.Amount)

	found, err := s.Invoices.FindByDueDate(ctx, time.Date(2026, 4, 10, 15, 0, 0, 0, time.UTC), account.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, april.ID, found.ID)

	err = s.Invoices.BatchUpdateAmount(ctx, []domain.InvoiceAmount{
		{InvoiceID: march.ID, Amount: 0},
		{InvoiceID: "missing", Amount: 1},
	})
	require.Error(t, err)

	again, err := s.Invoices.FindByID(ctx, march.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Money(-3000), again.Amount, "failed batch must roll back")
}

func TestCategories_Seeded(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c, err := s.Categories.FindByID(ctx, "cat-card-payment")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.True(t, c.IsCardPayment())

	all, err := s.Categories.FetchAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 8)
}

package service_test

import (
	"errors"
	"testing"

	"github.com/boddenberg/ledger-bfa-go/internal/domain"
	"github.com/boddenberg/ledger-bfa-go/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalletTransactions_AddThenRemoveRestoresBalance(t *testing.T) {
	f := newFixture(t, day(2023, 3, 15))
	acc := f.wallet(t, 300)
	uc := service.NewWalletTransactions(f.deps)

	tx, err := uc.Add(f.ctx, service.TransactionRequest{
		UserID:      f.userID,
		AccountID:   acc.ID,
		Amount:      2567,
		Description: "Salário",
		Date:        day(2023, 3, 5),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionIncome, tx.Type)
	assert.Equal(t, domain.AccountWallet, tx.AccountType)
	assert.Equal(t, domain.Money(2867), f.account(t, acc.ID).Balance)

	_, err = uc.Remove(f.ctx, service.RemoveTransactionRequest{UserID: f.userID, AccountID: acc.ID, TransactionID: tx.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.Money(300), f.account(t, acc.ID).Balance)
}

func TestBankTransactions_UpdateReplacesEffect(t *testing.T) {
	f := newFixture(t, day(2023, 3, 15))
	acc := f.bank(t, 10000)
	uc := service.NewBankTransactions(f.deps)

	tx, err := uc.Add(f.ctx, service.TransactionRequest{
		UserID: f.userID, AccountID: acc.ID, Amount: -2500, Description: "Mercado", Date: day(2023, 3, 2), CategoryID: foodCategory,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.Money(7500), f.account(t, acc.ID).Balance)

	updated, err := uc.Update(f.ctx, service.UpdateTransactionRequest{
		TransactionID: tx.ID,
		TransactionRequest: service.TransactionRequest{
			UserID: f.userID, AccountID: acc.ID, Amount: 1000, Description: "Estorno", Date: day(2023, 3, 3),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.Money(11000), f.account(t, acc.ID).Balance)
	assert.Equal(t, domain.TransactionIncome, updated.Type)
	assert.Equal(t, "Estorno", updated.Description)
	assert.Nil(t, updated.Category)
}

func TestBalanceTransactions_SoftDelete(t *testing.T) {
	f := newFixture(t, day(2023, 3, 15))
	acc := f.bank(t, 0)
	uc := service.NewBankTransactions(f.deps)

	tx, err := uc.Add(f.ctx, service.TransactionRequest{UserID: f.userID, AccountID: acc.ID, Amount: -100, Description: "Café", Date: day(2023, 3, 1)})
	require.NoError(t, err)

	_, err = uc.Remove(f.ctx, service.RemoveTransactionRequest{UserID: f.userID, AccountID: acc.ID, TransactionID: tx.ID})
	require.NoError(t, err)

	exists, err := f.transactions.Exists(f.ctx, tx.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	stored, err := f.transactions.FindByID(f.ctx, tx.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, stored.IsDeleted)

	_, err = uc.Remove(f.ctx, service.RemoveTransactionRequest{UserID: f.userID, AccountID: acc.ID, TransactionID: tx.ID})
	var unregistered *domain.ErrUnregisteredTransaction
	assert.True(t, errors.As(err, &unregistered))
	assert.Equal(t, domain.Money(0), f.account(t, acc.ID).Balance)
}

func TestBalanceTransactions_Errors(t *testing.T) {
	f := newFixture(t, day(2023, 3, 15))
	wallet := f.wallet(t, 0)
	card := f.creditCard(t, 50000, 3, 10)
	uc := service.NewWalletTransactions(f.deps)

	valid := service.TransactionRequest{UserID: f.userID, AccountID: wallet.ID, Amount: 100, Description: "Pix", Date: day(2023, 3, 1)}

	tests := []struct {
		name   string
		mutate func(r *service.TransactionRequest)
		target any
	}{
		{"unknown account", func(r *service.TransactionRequest) { r.AccountID = "missing" }, new(*domain.ErrUnregisteredAccount)},
		{"foreign account", func(r *service.TransactionRequest) { r.UserID = "someone-else" }, new(*domain.ErrUnregisteredAccount)},
		{"wrong account kind", func(r *service.TransactionRequest) { r.AccountID = card.ID }, new(*domain.ErrInvalidAccount)},
		{"unknown category", func(r *service.TransactionRequest) { r.CategoryID = "nope" }, new(*domain.ErrUnregisteredCategory)},
		{"zero amount", func(r *service.TransactionRequest) { r.Amount = 0 }, new(*domain.ErrInvalidTransaction)},
		{"fractional amount", func(r *service.TransactionRequest) { r.Amount = 10.5 }, new(*domain.ErrInvalidTransaction)},
		{"no description", func(r *service.TransactionRequest) { r.Description = "" }, new(*domain.ErrInvalidTransaction)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			_, err := uc.Add(f.ctx, req)
			require.Error(t, err)
			assert.True(t, errors.As(err, tt.target), "got %T: %v", err, err)
			assert.True(t, domain.IsClientError(err))
		})
	}

	assert.Equal(t, domain.Money(0), f.account(t, wallet.ID).Balance)
}

func TestBalanceTransactions_UnregisteredUser(t *testing.T) {
	f := newFixture(t, day(2023, 3, 15))
	acc, err := f.accounts.Add(f.ctx, domain.AccountData{Type: domain.AccountWallet, SyncType: domain.SyncManual, Name: "Órfã", UserID: "ghost"})
	require.NoError(t, err)

	_, err = service.NewWalletTransactions(f.deps).Add(f.ctx, service.TransactionRequest{
		UserID: "ghost", AccountID: acc.ID, Amount: 100, Description: "x", Date: day(2023, 3, 1),
	})
	var unregistered *domain.ErrUnregisteredUser
	assert.True(t, errors.As(err, &unregistered))
}

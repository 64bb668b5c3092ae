package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/ledger-bfa-go/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWalletAccount_Validation(t *testing.T) {
	_, err := domain.NewWalletAccount(domain.AccountParams{Name: "  ", Balance: 10})
	var invalidName *domain.ErrInvalidName
	assert.True(t, errors.As(err, &invalidName))

	_, err = domain.NewWalletAccount(domain.AccountParams{Name: "Carteira", Balance: 10.25})
	var invalidBalance *domain.ErrInvalidBalance
	assert.True(t, errors.As(err, &invalidBalance))
}

func TestWalletAccount_AddRemoveTransaction(t *testing.T) {
	wallet, err := domain.NewWalletAccount(domain.AccountParams{Name: "Carteira", Balance: 300})
	require.NoError(t, err)

	tx, err := domain.NewWalletTransaction(domain.TransactionParams{Amount: 2567, Description: "Salário"})
	require.NoError(t, err)

	wallet.AddTransaction(tx)
	assert.Equal(t, domain.Money(2867), wallet.Balance())
	wallet.RemoveTransaction(tx)
	assert.Equal(t, domain.Money(300), wallet.Balance())
}

func TestCreditCardAccount_Validation(t *testing.T) {
	_, err := domain.NewManualCreditCardAccount(domain.AccountParams{
		Name:       "Nubank",
		CreditCard: &domain.CreditCardParams{CloseDay: 0, DueDay: 10, CreditLimit: 0.5, AvailableCreditLimit: 100},
	})
	var invalid *domain.ErrInvalidCreditCard
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, []string{"brand", "closeDay", "creditLimit"}, invalid.Fields)
	assert.Equal(t, "Invalid credit card: brand, closeDay, creditLimit", err.Error())
}

func TestCreditCardAccount_LimitSymmetry(t *testing.T) {
	card, err := domain.NewManualCreditCardAccount(domain.AccountParams{
		Name:       "Nubank",
		CreditCard: &domain.CreditCardParams{Brand: "Visa", CreditLimit: 50000, AvailableCreditLimit: 50000, CloseDay: 3, DueDay: 10},
	})
	require.NoError(t, err)

	expense, err := domain.NewCreditCardTransaction(domain.TransactionParams{Amount: -4567, Description: "Mercado"}, date(2023, 3, 2), "inv-1")
	require.NoError(t, err)
	income, err := domain.NewCreditCardTransaction(domain.TransactionParams{Amount: 4567, Description: "Estorno"}, date(2023, 3, 2), "inv-1")
	require.NoError(t, err)

	card.AddTransaction(&expense.Transaction)
	assert.Equal(t, domain.Money(45433), card.CreditCardInfo().AvailableCreditLimit)
	card.AddTransaction(&income.Transaction)
	assert.Equal(t, domain.Money(50000), card.CreditCardInfo().AvailableCreditLimit)

	card.RemoveTransaction(&income.Transaction)
	card.RemoveTransaction(&expense.Transaction)
	assert.Equal(t, domain.Money(50000), card.CreditCardInfo().AvailableCreditLimit)
}

func TestAutomaticAccount_RequiredSyncFields(t *testing.T) {
	now := time.Now()
	base := domain.AccountParams{Name: "Conta", Institution: &domain.Institution{ID: "nubank"}}

	tests := []struct {
		name string
		sync *domain.SyncParams
		want string
	}{
		{"missing link", nil, "providerAccountId is required"},
		{"missing item", &domain.SyncParams{ProviderAccountID: "pa-1"}, "providerItemId is required"},
		{"missing createdAt", &domain.SyncParams{ProviderAccountID: "pa-1", ProviderItemID: "item-1"}, "createdAt is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base
			p.Synchronization = tt.sync
			_, err := domain.NewAutomaticBankAccount(p)
			var invalid *domain.ErrInvalidAccount
			require.True(t, errors.As(err, &invalid))
			assert.Equal(t, tt.want, invalid.Message)
		})
	}

	t.Run("missing institution", func(t *testing.T) {
		_, err := domain.NewAutomaticBankAccount(domain.AccountParams{
			Name:            "Conta",
			Synchronization: &domain.SyncParams{ProviderAccountID: "pa-1", ProviderItemID: "item-1", CreatedAt: &now},
		})
		var invalid *domain.ErrInvalidInstitution
		assert.True(t, errors.As(err, &invalid))
	})

	t.Run("round trip through data", func(t *testing.T) {
		p := base
		p.Synchronization = &domain.SyncParams{ProviderAccountID: "pa-1", ProviderItemID: "item-1", CreatedAt: &now}
		bank, err := domain.NewAutomaticBankAccount(p)
		require.NoError(t, err)

		again, err := domain.AccountFromData(bank.Data())
		require.NoError(t, err)
		assert.Equal(t, domain.SyncAutomatic, again.SyncType())
		assert.Equal(t, bank.Data(), again.Data())
	})
}

func TestNewTransaction_Validation(t *testing.T) {
	_, err := domain.NewTransaction(domain.TransactionParams{Amount: 0, Description: "x"})
	var invalid *domain.ErrInvalidTransaction
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "amount must not be zero", invalid.Message)

	_, err = domain.NewTransaction(domain.TransactionParams{Amount: 10})
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "description is required", invalid.Message)

	tx, err := domain.NewTransaction(domain.TransactionParams{Amount: 10, DescriptionOriginal: "PIX RECEBIDO"})
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionIncome, tx.Type())
}

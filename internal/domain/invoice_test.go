package domain_test

import (
	"testing"

	"github.com/boddenberg/ledger-bfa-go/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreditCardInvoice_IgnoresCardPayments(t *testing.T) {
	inv := &domain.CreditCardInvoice{}

	purchase, err := domain.NewCreditCardTransaction(domain.TransactionParams{
		Amount: -4567, Description: "Mercado", Category: &domain.Category{Name: "Alimentação"},
	}, date(2023, 3, 2), "inv-1")
	require.NoError(t, err)
	payment, err := domain.NewCreditCardTransaction(domain.TransactionParams{
		Amount: 4567, Description: "Pagamento", Category: &domain.Category{Name: domain.CardPaymentCategoryName},
	}, date(2023, 3, 10), "inv-1")
	require.NoError(t, err)
	uncategorised, err := domain.NewCreditCardTransaction(domain.TransactionParams{Amount: -100, Description: "Café"}, date(2023, 3, 2), "inv-1")
	require.NoError(t, err)

	inv.AddTransaction(purchase)
	inv.AddTransaction(payment)
	inv.AddTransaction(uncategorised)
	assert.Equal(t, domain.Money(-4667), inv.Amount)

	inv.RemoveTransaction(payment)
	inv.RemoveTransaction(purchase)
	assert.Equal(t, domain.Money(-100), inv.Amount)
}

package domain

import "time"

// ============================================================
// Financial data provider
// ============================================================

// Provider account types as reported by the aggregator.
const (
	ProviderAccountBank   = "BANK"
	ProviderAccountCredit = "CREDIT"
)

// ProviderCreditData is the credit card block of a provider account.
type ProviderCreditData struct {
	Brand                string
	CreditLimit          Money
	AvailableCreditLimit Money
	BalanceCloseDate     *time.Time
	BalanceDueDate       *time.Time
}

// ProviderAccount is an account as the data provider reports it. Balance is
// absolute and authoritative for automatic accounts.
type ProviderAccount struct {
	ID         string
	ItemID     string
	Type       string
	Name       string
	Number     string
	Balance    Money
	CreditData *ProviderCreditData
}

// ProviderTransaction is a transaction as the data provider reports it,
// with amounts already normalised to the ledger's sign convention.
type ProviderTransaction struct {
	ID             string
	AccountID      string
	Amount         Money
	Description    string
	DescriptionRaw string
	Date           time.Time
	Category       string
	Status         string
}

// ProviderTransactionFilter selects provider transactions of one account.
// A nil From means the full history.
type ProviderTransactionFilter struct {
	ProviderAccountID string
	From              *time.Time
	To                *time.Time
}

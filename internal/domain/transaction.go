package domain

import (
	"strings"
	"time"
)

// ============================================================
// Transactions
// ============================================================

// TransactionType is derived from the sign of the amount.
type TransactionType string

const (
	TransactionIncome  TransactionType = "INCOME"
	TransactionExpense TransactionType = "EXPENSE"
)

// TransactionData is the persisted form of a transaction of any account kind.
// For credit card transactions Date holds the invoice due date and
// InvoiceDate holds the day the purchase actually happened.
type TransactionData struct {
	ID                  string          `json:"id"`
	AccountID           string          `json:"accountId"`
	AccountType         AccountType     `json:"accountType"`
	SyncType            SyncType        `json:"syncType"`
	UserID              string          `json:"userId"`
	Amount              Money           `json:"amount"`
	Description         string          `json:"description,omitempty"`
	DescriptionOriginal string          `json:"descriptionOriginal,omitempty"`
	Date                time.Time       `json:"date"`
	InvoiceDate         *time.Time      `json:"invoiceDate,omitempty"`
	InvoiceID           string          `json:"invoiceId,omitempty"`
	Type                TransactionType `json:"type"`
	Category            *Category       `json:"category,omitempty"`
	Comment             string          `json:"comment,omitempty"`
	Ignored             bool            `json:"ignored"`
	ProviderID          string          `json:"providerId,omitempty"`
	Status              string          `json:"status,omitempty"`
	IsDeleted           bool            `json:"_isDeleted"`
	CreatedAt           time.Time       `json:"createdAt"`
}

// TransactionParams carries the validated-on-construction fields.
type TransactionParams struct {
	ID                  string
	AccountID           string
	UserID              string
	Amount              Money
	Description         string
	DescriptionOriginal string
	Date                time.Time
	Category            *Category
	Comment             string
	Ignored             bool
}

// Transaction is a single money movement on a wallet or bank account.
type Transaction struct {
	ID                  string
	AccountID           string
	AccountType         AccountType
	UserID              string
	Amount              Money
	Description         string
	DescriptionOriginal string
	Date                time.Time
	Category            *Category
	Comment             string
	Ignored             bool
}

// TransactionAmount validates a raw request amount.
func TransactionAmount(v float64) (Money, error) {
	m, err := NewMoney(v)
	if err != nil {
		return 0, &ErrInvalidTransaction{Message: "amount must be an integer"}
	}
	return m, nil
}

// NewTransaction builds a generic transaction, rejecting a zero amount or a
// missing description.
func NewTransaction(p TransactionParams) (*Transaction, error) {
	return newTransaction(p, "")
}

// NewWalletTransaction builds a transaction bound to a wallet account.
func NewWalletTransaction(p TransactionParams) (*Transaction, error) {
	return newTransaction(p, AccountWallet)
}

// NewBankTransaction builds a transaction bound to a bank account.
func NewBankTransaction(p TransactionParams) (*Transaction, error) {
	return newTransaction(p, AccountBank)
}

func newTransaction(p TransactionParams, kind AccountType) (*Transaction, error) {
	if p.Amount == 0 {
		return nil, &ErrInvalidTransaction{Message: "amount must not be zero"}
	}
	if strings.TrimSpace(p.Description) == "" && strings.TrimSpace(p.DescriptionOriginal) == "" {
		return nil, &ErrInvalidTransaction{Message: "description is required"}
	}
	return &Transaction{
		ID:                  p.ID,
		AccountID:           p.AccountID,
		AccountType:         kind,
		UserID:              p.UserID,
		Amount:              p.Amount,
		Description:         p.Description,
		DescriptionOriginal: p.DescriptionOriginal,
		Date:                p.Date,
		Category:            p.Category,
		Comment:             p.Comment,
		Ignored:             p.Ignored,
	}, nil
}

// Type is INCOME for positive amounts and EXPENSE otherwise.
func (t *Transaction) Type() TransactionType {
	return TypeOf(t.Amount)
}

// Data returns the persistable form of t.
func (t *Transaction) Data() TransactionData {
	return TransactionData{
		ID:                  t.ID,
		AccountID:           t.AccountID,
		AccountType:         t.AccountType,
		SyncType:            SyncManual,
		UserID:              t.UserID,
		Amount:              t.Amount,
		Description:         t.Description,
		DescriptionOriginal: t.DescriptionOriginal,
		Date:                t.Date,
		Type:                t.Type(),
		Category:            t.Category,
		Comment:             t.Comment,
		Ignored:             t.Ignored,
	}
}

// CreditCardTransaction is a purchase or payment on a credit card. Its Date
// is the due date of the invoice it was allocated to.
type CreditCardTransaction struct {
	Transaction
	InvoiceDate time.Time
	InvoiceID   string
}

// NewCreditCardTransaction builds a credit card transaction. invoiceDate is
// the real-world purchase date; p.Date must already be the invoice due date.
func NewCreditCardTransaction(p TransactionParams, invoiceDate time.Time, invoiceID string) (*CreditCardTransaction, error) {
	tx, err := newTransaction(p, AccountCreditCard)
	if err != nil {
		return nil, err
	}
	return &CreditCardTransaction{Transaction: *tx, InvoiceDate: invoiceDate, InvoiceID: invoiceID}, nil
}

// Data returns the persistable form of t.
func (t *CreditCardTransaction) Data() TransactionData {
	d := t.Transaction.Data()
	invoiceDate := t.InvoiceDate
	d.InvoiceDate = &invoiceDate
	d.InvoiceID = t.InvoiceID
	return d
}

// ParamsFromData recovers construction params from a stored record.
func ParamsFromData(d TransactionData) TransactionParams {
	return TransactionParams{
		ID:                  d.ID,
		AccountID:           d.AccountID,
		UserID:              d.UserID,
		Amount:              d.Amount,
		Description:         d.Description,
		DescriptionOriginal: d.DescriptionOriginal,
		Date:                d.Date,
		Category:            d.Category,
		Comment:             d.Comment,
		Ignored:             d.Ignored,
	}
}

// CreditCardTransactionFromData rebuilds a credit card transaction from its
// stored record, keeping its invoice allocation.
func CreditCardTransactionFromData(d TransactionData) (*CreditCardTransaction, error) {
	invoiceDate := d.Date
	if d.InvoiceDate != nil {
		invoiceDate = *d.InvoiceDate
	}
	return NewCreditCardTransaction(ParamsFromData(d), invoiceDate, d.InvoiceID)
}

// TypeOf derives the transaction type from the sign of m.
func TypeOf(m Money) TransactionType {
	if m > 0 {
		return TransactionIncome
	}
	return TransactionExpense
}

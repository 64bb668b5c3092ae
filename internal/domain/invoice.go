package domain

import "time"

// ============================================================
// Credit card invoices
// ============================================================

// CreditCardInvoice is one billing period of one credit card account.
// Amount is the signed sum of its live transactions, card payments excluded.
type CreditCardInvoice struct {
	ID        string    `json:"id"`
	DueDate   time.Time `json:"dueDate"`
	CloseDate time.Time `json:"closeDate"`
	Amount    Money     `json:"amount"`
	AccountID string    `json:"accountId"`
	UserID    string    `json:"userId"`
}

// InvoiceAmount is one entry of a batch amount update.
type InvoiceAmount struct {
	InvoiceID string `json:"invoiceId"`
	Amount    Money  `json:"amount"`
}

// AddTransaction counts tx towards the invoice unless it is a card payment.
func (i *CreditCardInvoice) AddTransaction(tx *CreditCardTransaction) {
	if tx.Category.IsCardPayment() {
		return
	}
	i.Amount += tx.Amount
}

// RemoveTransaction reverses AddTransaction.
func (i *CreditCardInvoice) RemoveTransaction(tx *CreditCardTransaction) {
	if tx.Category.IsCardPayment() {
		return
	}
	i.Amount -= tx.Amount
}

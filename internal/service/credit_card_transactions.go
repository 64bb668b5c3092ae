package service

import (
	"context"
	"fmt"
	"time"

	"github.com/boddenberg/ledger-bfa-go/internal/domain"
	"github.com/boddenberg/ledger-bfa-go/internal/port"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// CreditCardTransactions runs the credit card transaction lifecycle. Each
// transaction is allocated to the invoice its purchase date falls into;
// the invoice amount and the available limit follow incrementally, and the
// account balance is reset to the last closed invoice after every change.
type CreditCardTransactions struct {
	deps Deps
}

func NewCreditCardTransactions(deps Deps) *CreditCardTransactions {
	return &CreditCardTransactions{deps: deps.withDefaults()}
}

func (s *CreditCardTransactions) load(ctx context.Context, userID, accountID string) (*domain.CreditCardAccount, error) {
	data, err := loadAccount(ctx, s.deps.Accounts, userID, accountID)
	if err != nil {
		return nil, err
	}
	if data.Type != domain.AccountCreditCard {
		return nil, wrongAccountType(data, domain.AccountCreditCard)
	}
	if err := rejectAutomatic(data); err != nil {
		return nil, err
	}
	account, err := domain.AccountFromData(*data)
	if err != nil {
		return nil, err
	}
	return account.(*domain.CreditCardAccount), nil
}

// allocate finds or creates the invoice purchaseDate belongs to.
func (s *CreditCardTransactions) allocate(ctx context.Context, account *domain.CreditCardAccount, purchaseDate time.Time) (*domain.CreditCardInvoice, error) {
	info := account.CreditCardInfo()
	dates := s.deps.Strategies.For(account.Institution()).InvoiceDates(purchaseDate, info.CloseDay, info.DueDay)

	invoice, err := s.deps.Invoices.FindByDueDate(ctx, dates.DueDate, account.ID())
	if err != nil {
		return nil, fmt.Errorf("find invoice: %w", err)
	}
	if invoice != nil {
		return invoice, nil
	}

	invoice, err = s.deps.Invoices.Add(ctx, domain.CreditCardInvoice{
		DueDate:   dates.DueDate,
		CloseDate: dates.ClosingDate,
		AccountID: account.ID(),
		UserID:    account.UserID(),
	})
	if err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}
	s.deps.Logger.Debug("invoice opened",
		zap.String("account_id", account.ID()),
		zap.String("invoice_id", invoice.ID),
		zap.Time("due_date", invoice.DueDate),
	)
	return invoice, nil
}

// newTransaction validates the request and allocates it, in that order, so an
// invalid request never opens an invoice.
func (s *CreditCardTransactions) newTransaction(ctx context.Context, account *domain.CreditCardAccount, req TransactionRequest, amount domain.Money, category *domain.Category) (*domain.CreditCardTransaction, *domain.CreditCardInvoice, error) {
	purchaseDate := req.Date.UTC()
	tx, err := domain.NewCreditCardTransaction(req.params(amount, category), purchaseDate, "")
	if err != nil {
		return nil, nil, err
	}
	invoice, err := s.allocate(ctx, account, purchaseDate)
	if err != nil {
		return nil, nil, err
	}
	tx.Date = invoice.DueDate
	tx.InvoiceID = invoice.ID
	return tx, invoice, nil
}

// settle persists the available limit and mirrors the last closed invoice
// into the balance.
func (s *CreditCardTransactions) settle(ctx context.Context, account *domain.CreditCardAccount) error {
	if err := s.deps.Accounts.UpdateAvailableCreditCardLimit(ctx, account.ID(), account.CreditCardInfo().AvailableCreditLimit); err != nil {
		return fmt.Errorf("update available limit: %w", err)
	}
	return refreshCreditCardBalance(ctx, s.deps, account)
}

func refreshCreditCardBalance(ctx context.Context, deps Deps, account *domain.CreditCardAccount) error {
	last, err := deps.Invoices.GetLastClosedInvoice(ctx, account.ID(), deps.Now())
	if err != nil {
		return fmt.Errorf("get last closed invoice: %w", err)
	}
	var balance domain.Money
	if last != nil {
		balance = last.Amount
	}
	account.SetBalance(balance)
	if err := deps.Accounts.UpdateBalance(ctx, account.ID(), balance); err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	return nil
}

// Add allocates the transaction to its invoice and consumes or releases limit.
func (s *CreditCardTransactions) Add(ctx context.Context, req TransactionRequest) (out *domain.TransactionData, err error) {
	ctx, span := txTracer.Start(ctx, "CreditCardTransactions.Add")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", req.AccountID))
	defer s.observe("add", time.Now(), &err)

	unlock, err := s.deps.Locker.Lock(ctx, req.AccountID)
	if err != nil {
		return nil, fmt.Errorf("lock account: %w", err)
	}
	defer unlock()

	account, err := s.load(ctx, req.UserID, req.AccountID)
	if err != nil {
		return nil, err
	}
	category, err := resolveCategory(ctx, s.deps.Categories, req.CategoryID)
	if err != nil {
		return nil, err
	}
	amount, err := domain.TransactionAmount(req.Amount)
	if err != nil {
		return nil, err
	}
	tx, invoice, err := s.newTransaction(ctx, account, req, amount, category)
	if err != nil {
		return nil, err
	}

	invoice.AddTransaction(tx)
	account.AddTransaction(&tx.Transaction)

	saved, err := s.deps.Transactions.Add(ctx, tx.Data())
	if err != nil {
		return nil, fmt.Errorf("save transaction: %w", err)
	}
	if err := s.deps.Invoices.UpdateAmount(ctx, invoice.ID, invoice.Amount); err != nil {
		return nil, fmt.Errorf("update invoice amount: %w", err)
	}
	if err := s.settle(ctx, account); err != nil {
		return nil, err
	}

	s.deps.Logger.Info("credit card transaction added",
		zap.String("account_id", account.ID()),
		zap.String("transaction_id", saved.ID),
		zap.String("invoice_id", invoice.ID),
		zap.Int64("amount", saved.Amount.Int64()),
		zap.Int64("invoice_amount", invoice.Amount.Int64()),
	)
	return saved, nil
}

// Update moves the transaction out of its old invoice and into the one its
// new date belongs to, which may be the same.
func (s *CreditCardTransactions) Update(ctx context.Context, req UpdateTransactionRequest) (out *domain.TransactionData, err error) {
	ctx, span := txTracer.Start(ctx, "CreditCardTransactions.Update")
	defer span.End()
	span.SetAttributes(
		attribute.String("account.id", req.AccountID),
		attribute.String("transaction.id", req.TransactionID),
	)
	defer s.observe("update", time.Now(), &err)

	unlock, err := s.deps.Locker.Lock(ctx, req.AccountID)
	if err != nil {
		return nil, fmt.Errorf("lock account: %w", err)
	}
	defer unlock()

	stored, err := loadLiveTransaction(ctx, s.deps.Transactions, req.AccountID, req.TransactionID)
	if err != nil {
		return nil, err
	}
	account, err := s.load(ctx, req.UserID, req.AccountID)
	if err != nil {
		return nil, err
	}
	category, err := resolveCategory(ctx, s.deps.Categories, req.CategoryID)
	if err != nil {
		return nil, err
	}
	amount, err := domain.TransactionAmount(req.Amount)
	if err != nil {
		return nil, err
	}
	oldTx, err := domain.CreditCardTransactionFromData(*stored)
	if err != nil {
		return nil, fmt.Errorf("rebuild transaction %s: %w", stored.ID, err)
	}
	oldInvoice, err := s.invoiceOf(ctx, stored)
	if err != nil {
		return nil, err
	}

	newTx, newInvoice, err := s.newTransaction(ctx, account, req.TransactionRequest, amount, category)
	if err != nil {
		return nil, err
	}
	if newInvoice.ID == oldInvoice.ID {
		newInvoice = oldInvoice
	}
	oldInvoice.RemoveTransaction(oldTx)
	newInvoice.AddTransaction(newTx)

	amounts := []domain.InvoiceAmount{{InvoiceID: oldInvoice.ID, Amount: oldInvoice.Amount}}
	if newInvoice != oldInvoice {
		amounts = append(amounts, domain.InvoiceAmount{InvoiceID: newInvoice.ID, Amount: newInvoice.Amount})
	}
	if err := s.deps.Invoices.BatchUpdateAmount(ctx, amounts); err != nil {
		return nil, fmt.Errorf("update invoice amounts: %w", err)
	}

	account.RemoveTransaction(&oldTx.Transaction)
	account.AddTransaction(&newTx.Transaction)

	invoiceDate := newTx.InvoiceDate
	updated, err := s.deps.Transactions.Update(ctx, stored.ID, port.TransactionUpdate{
		Amount:              newTx.Amount,
		Description:         newTx.Description,
		DescriptionOriginal: newTx.DescriptionOriginal,
		Date:                newTx.Date,
		Category:            newTx.Category,
		Comment:             newTx.Comment,
		Ignored:             newTx.Ignored,
		InvoiceID:           newTx.InvoiceID,
		InvoiceDate:         &invoiceDate,
	})
	if err != nil {
		return nil, fmt.Errorf("update transaction: %w", err)
	}
	if err := s.settle(ctx, account); err != nil {
		return nil, err
	}

	s.deps.Logger.Info("credit card transaction updated",
		zap.String("account_id", account.ID()),
		zap.String("transaction_id", stored.ID),
		zap.String("old_invoice_id", oldInvoice.ID),
		zap.String("new_invoice_id", newInvoice.ID),
	)
	return updated, nil
}

// Remove soft-deletes the transaction and takes it out of its invoice.
func (s *CreditCardTransactions) Remove(ctx context.Context, req RemoveTransactionRequest) (out *domain.TransactionData, err error) {
	ctx, span := txTracer.Start(ctx, "CreditCardTransactions.Remove")
	defer span.End()
	span.SetAttributes(
		attribute.String("account.id", req.AccountID),
		attribute.String("transaction.id", req.TransactionID),
	)
	defer s.observe("remove", time.Now(), &err)

	unlock, err := s.deps.Locker.Lock(ctx, req.AccountID)
	if err != nil {
		return nil, fmt.Errorf("lock account: %w", err)
	}
	defer unlock()

	stored, err := loadLiveTransaction(ctx, s.deps.Transactions, req.AccountID, req.TransactionID)
	if err != nil {
		return nil, err
	}
	account, err := s.load(ctx, req.UserID, req.AccountID)
	if err != nil {
		return nil, err
	}
	tx, err := domain.CreditCardTransactionFromData(*stored)
	if err != nil {
		return nil, fmt.Errorf("rebuild transaction %s: %w", stored.ID, err)
	}
	invoice, err := s.invoiceOf(ctx, stored)
	if err != nil {
		return nil, err
	}

	invoice.RemoveTransaction(tx)
	account.RemoveTransaction(&tx.Transaction)

	removed, err := s.deps.Transactions.Remove(ctx, stored.ID)
	if err != nil {
		return nil, fmt.Errorf("remove transaction: %w", err)
	}
	if err := s.deps.Invoices.UpdateAmount(ctx, invoice.ID, invoice.Amount); err != nil {
		return nil, fmt.Errorf("update invoice amount: %w", err)
	}
	if err := s.settle(ctx, account); err != nil {
		return nil, err
	}

	s.deps.Logger.Info("credit card transaction removed",
		zap.String("account_id", account.ID()),
		zap.String("transaction_id", stored.ID),
		zap.String("invoice_id", invoice.ID),
	)
	return removed, nil
}

func (s *CreditCardTransactions) invoiceOf(ctx context.Context, tx *domain.TransactionData) (*domain.CreditCardInvoice, error) {
	if tx.SyncType == domain.SyncAutomatic {
		return nil, &domain.ErrInvalidTransaction{Message: fmt.Sprintf("transaction %s was imported from the data provider and is read-only", tx.ID)}
	}
	if tx.InvoiceID == "" {
		return nil, &domain.ErrUnexpected{Message: fmt.Sprintf("transaction %s has no invoice", tx.ID)}
	}
	invoice, err := s.deps.Invoices.FindByID(ctx, tx.InvoiceID)
	if err != nil {
		return nil, fmt.Errorf("find invoice: %w", err)
	}
	if invoice == nil {
		return nil, &domain.ErrUnexpected{Message: fmt.Sprintf("invoice %s of transaction %s not found", tx.InvoiceID, tx.ID)}
	}
	return invoice, nil
}

func (s *CreditCardTransactions) observe(op string, start time.Time, err *error) {
	s.deps.Metrics.RecordDuration("transactions."+op, time.Since(start))
	s.deps.Metrics.IncrTransactionOp(domain.AccountCreditCard, op, *err)
}

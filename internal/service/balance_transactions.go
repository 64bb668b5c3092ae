package service

import (
	"context"
	"fmt"
	"time"

	"github.com/boddenberg/ledger-bfa-go/internal/domain"
	"github.com/boddenberg/ledger-bfa-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var txTracer = otel.Tracer("service/transactions")

// BalanceTransactions runs the transaction lifecycle of accounts whose
// balance is the running sum of their transactions: wallets and bank
// accounts.
type BalanceTransactions struct {
	kind domain.AccountType
	deps Deps
}

// NewWalletTransactions returns the wallet add/update/remove use cases.
func NewWalletTransactions(deps Deps) *BalanceTransactions {
	return &BalanceTransactions{kind: domain.AccountWallet, deps: deps.withDefaults()}
}

// NewBankTransactions returns the bank account add/update/remove use cases.
func NewBankTransactions(deps Deps) *BalanceTransactions {
	return &BalanceTransactions{kind: domain.AccountBank, deps: deps.withDefaults()}
}

func (s *BalanceTransactions) newTransaction(p domain.TransactionParams) (*domain.Transaction, error) {
	if s.kind == domain.AccountWallet {
		return domain.NewWalletTransaction(p)
	}
	return domain.NewBankTransaction(p)
}

// load resolves the account entity and checks it has the right kind.
func (s *BalanceTransactions) load(ctx context.Context, userID, accountID string) (domain.Account, error) {
	data, err := loadAccount(ctx, s.deps.Accounts, userID, accountID)
	if err != nil {
		return nil, err
	}
	if data.Type != s.kind {
		return nil, wrongAccountType(data, s.kind)
	}
	if err := rejectAutomatic(data); err != nil {
		return nil, err
	}
	return domain.AccountFromData(*data)
}

// Add records a new transaction and moves the balance by its amount.
func (s *BalanceTransactions) Add(ctx context.Context, req TransactionRequest) (out *domain.TransactionData, err error) {
	ctx, span := txTracer.Start(ctx, "BalanceTransactions.Add")
	defer span.End()
	span.SetAttributes(
		attribute.String("account.id", req.AccountID),
		attribute.String("account.type", string(s.kind)),
	)
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
	if err := ensureUser(ctx, s.deps.Users, req.UserID); err != nil {
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
	tx, err := s.newTransaction(req.params(amount, category))
	if err != nil {
		return nil, err
	}

	account.AddTransaction(tx)

	saved, err := s.deps.Transactions.Add(ctx, tx.Data())
	if err != nil {
		return nil, fmt.Errorf("save transaction: %w", err)
	}
	if err := s.deps.Accounts.UpdateBalance(ctx, account.ID(), account.Balance()); err != nil {
		return nil, fmt.Errorf("update balance: %w", err)
	}

	s.deps.Logger.Info("transaction added",
		zap.String("account_id", account.ID()),
		zap.String("transaction_id", saved.ID),
		zap.Int64("amount", saved.Amount.Int64()),
		zap.Int64("balance", account.Balance().Int64()),
	)
	return saved, nil
}

// Update reverses the stored transaction and applies the new values.
func (s *BalanceTransactions) Update(ctx context.Context, req UpdateTransactionRequest) (out *domain.TransactionData, err error) {
	ctx, span := txTracer.Start(ctx, "BalanceTransactions.Update")
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
	if err := ensureUser(ctx, s.deps.Users, req.UserID); err != nil {
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
	oldTx, err := s.newTransaction(domain.ParamsFromData(*stored))
	if err != nil {
		return nil, fmt.Errorf("rebuild transaction %s: %w", stored.ID, err)
	}
	newTx, err := s.newTransaction(req.params(amount, category))
	if err != nil {
		return nil, err
	}

	account.RemoveTransaction(oldTx)
	account.AddTransaction(newTx)

	updated, err := s.deps.Transactions.Update(ctx, stored.ID, port.TransactionUpdate{
		Amount:              newTx.Amount,
		Description:         newTx.Description,
		DescriptionOriginal: newTx.DescriptionOriginal,
		Date:                newTx.Date,
		Category:            newTx.Category,
		Comment:             newTx.Comment,
		Ignored:             newTx.Ignored,
	})
	if err != nil {
		return nil, fmt.Errorf("update transaction: %w", err)
	}
	if err := s.deps.Accounts.UpdateBalance(ctx, account.ID(), account.Balance()); err != nil {
		return nil, fmt.Errorf("update balance: %w", err)
	}

	s.deps.Logger.Info("transaction updated",
		zap.String("account_id", account.ID()),
		zap.String("transaction_id", stored.ID),
		zap.Int64("old_amount", oldTx.Amount.Int64()),
		zap.Int64("new_amount", newTx.Amount.Int64()),
	)
	return updated, nil
}

// Remove soft-deletes the transaction and reverses its effect on the balance.
func (s *BalanceTransactions) Remove(ctx context.Context, req RemoveTransactionRequest) (out *domain.TransactionData, err error) {
	ctx, span := txTracer.Start(ctx, "BalanceTransactions.Remove")
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
	tx, err := s.newTransaction(domain.ParamsFromData(*stored))
	if err != nil {
		return nil, fmt.Errorf("rebuild transaction %s: %w", stored.ID, err)
	}

	account.RemoveTransaction(tx)

	removed, err := s.deps.Transactions.Remove(ctx, stored.ID)
	if err != nil {
		return nil, fmt.Errorf("remove transaction: %w", err)
	}
	if err := s.deps.Accounts.UpdateBalance(ctx, account.ID(), account.Balance()); err != nil {
		return nil, fmt.Errorf("update balance: %w", err)
	}

	s.deps.Logger.Info("transaction removed",
		zap.String("account_id", account.ID()),
		zap.String("transaction_id", stored.ID),
		zap.Int64("balance", account.Balance().Int64()),
	)
	return removed, nil
}

func (s *BalanceTransactions) observe(op string, start time.Time, err *error) {
	s.deps.Metrics.RecordDuration("transactions."+op, time.Since(start))
	s.deps.Metrics.IncrTransactionOp(s.kind, op, *err)
}

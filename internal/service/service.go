// Package service provides the business logic layer (use cases): account
// management, the transaction lifecycle per account kind, credit card
// invoice allocation, provider sync, auth and reference catalogs.
//
// Every use case returns (result, error). The first failing step
// short-circuits and nothing after it is applied.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/boddenberg/ledger-bfa-go/internal/domain"
	"github.com/boddenberg/ledger-bfa-go/internal/infra/observability"
	"github.com/boddenberg/ledger-bfa-go/internal/port"

	"go.uber.org/zap"
)

// Deps bundles the collaborators shared by the ledger use cases.
type Deps struct {
	Accounts     port.AccountRepository
	Transactions port.TransactionRepository
	Categories   port.CategoryRepository
	Invoices     port.CreditCardInvoiceRepository
	Users        port.UserRepository
	Locker       port.AccountLocker
	Strategies   *domain.InvoiceStrategies
	Metrics      *observability.Metrics
	Logger       *zap.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Strategies == nil {
		d.Strategies = domain.NewInvoiceStrategies(domain.NubankInvoiceStrategy{})
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Metrics == nil {
		d.Metrics = observability.NewMetrics()
	}
	return d
}

// TransactionRequest is the input of add and update for every account kind.
// Amount is the raw request number and must be a whole number of cents.
type TransactionRequest struct {
	UserID              string
	AccountID           string
	Amount              float64
	Description         string
	DescriptionOriginal string
	Date                time.Time
	CategoryID          string
	Comment             string
	Ignored             bool
}

// UpdateTransactionRequest replaces every mutable field of a transaction.
type UpdateTransactionRequest struct {
	TransactionID string
	TransactionRequest
}

// RemoveTransactionRequest soft-deletes a transaction.
type RemoveTransactionRequest struct {
	UserID        string
	AccountID     string
	TransactionID string
}

// loadAccount returns the account if it exists and belongs to userID.
// An empty userID skips the ownership check (internal callers).
func loadAccount(ctx context.Context, repo port.AccountRepository, userID, accountID string) (*domain.AccountData, error) {
	acc, err := repo.FindByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}
	if acc == nil || (userID != "" && acc.UserID != userID) {
		return nil, &domain.ErrUnregisteredAccount{ID: accountID}
	}
	return acc, nil
}

func ensureUser(ctx context.Context, repo port.UserRepository, userID string) error {
	ok, err := repo.Exists(ctx, userID)
	if err != nil {
		return fmt.Errorf("check user: %w", err)
	}
	if !ok {
		return &domain.ErrUnregisteredUser{ID: userID}
	}
	return nil
}

// resolveCategory returns nil for an empty id.
func resolveCategory(ctx context.Context, repo port.CategoryRepository, categoryID string) (*domain.Category, error) {
	if categoryID == "" {
		return nil, nil
	}
	c, err := repo.FindByID(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("find category: %w", err)
	}
	if c == nil {
		return nil, &domain.ErrUnregisteredCategory{ID: categoryID}
	}
	return c, nil
}

// loadLiveTransaction treats soft-deleted and foreign transactions as absent.
func loadLiveTransaction(ctx context.Context, repo port.TransactionRepository, accountID, txID string) (*domain.TransactionData, error) {
	tx, err := repo.FindByID(ctx, txID)
	if err != nil {
		return nil, fmt.Errorf("find transaction: %w", err)
	}
	if tx == nil || tx.IsDeleted || tx.AccountID != accountID {
		return nil, &domain.ErrUnregisteredTransaction{ID: txID}
	}
	return tx, nil
}

func (r TransactionRequest) params(amount domain.Money, category *domain.Category) domain.TransactionParams {
	return domain.TransactionParams{
		AccountID:           r.AccountID,
		UserID:              r.UserID,
		Amount:              amount,
		Description:         r.Description,
		DescriptionOriginal: r.DescriptionOriginal,
		Date:                r.Date.UTC(),
		Category:            category,
		Comment:             r.Comment,
		Ignored:             r.Ignored,
	}
}

// rejectAutomatic refuses manual bookkeeping on accounts mirrored from the
// data provider: their balance, limits and transactions come from sync only.
func rejectAutomatic(acc *domain.AccountData) error {
	if acc.SyncType != domain.SyncAutomatic {
		return nil
	}
	return &domain.ErrInvalidAccount{
		Message: fmt.Sprintf("account %s is synchronised with the data provider; its transactions are read-only", acc.ID),
	}
}

func wrongAccountType(acc *domain.AccountData, want ...domain.AccountType) error {
	return &domain.ErrInvalidAccount{
		Message: fmt.Sprintf("account %s is %s, expected %v", acc.ID, acc.Type, want),
	}
}

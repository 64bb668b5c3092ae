// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
//
// Finders return (nil, nil) when nothing matches; use cases turn that into
// the matching Unregistered* error.
package port

import (
	"context"
	"time"

	"github.com/boddenberg/ledger-bfa-go/internal/domain"
)

// AccountRepository persists accounts of every kind.
type AccountRepository interface {
	Add(ctx context.Context, account domain.AccountData) (*domain.AccountData, error)
	FindByID(ctx context.Context, id string) (*domain.AccountData, error)
	Exists(ctx context.Context, id string) (bool, error)
	ListByUser(ctx context.Context, userID string) ([]domain.AccountData, error)
	ListAutomatic(ctx context.Context) ([]domain.AccountData, error)
	FindByProviderAccountID(ctx context.Context, providerAccountID string) (*domain.AccountData, error)

	UpdateBalance(ctx context.Context, accountID string, balance domain.Money) error
	UpdateAvailableCreditCardLimit(ctx context.Context, accountID string, limit domain.Money) error
	UpdateSynchronizationStatus(ctx context.Context, accountID string, status SyncStatus) error
	UpdateCreditCardInfo(ctx context.Context, accountID string, info domain.CreditCardInfo) error
}

// SyncStatus is stamped on an automatic account after a sync.
type SyncStatus struct {
	LastSyncAt time.Time
}

// TransactionUpdate is the full set of mutable transaction fields.
type TransactionUpdate struct {
	Amount              domain.Money
	Description         string
	DescriptionOriginal string
	Date                time.Time
	Category            *domain.Category
	Comment             string
	Ignored             bool
	InvoiceID           string
	InvoiceDate         *time.Time
}

// TransactionRepository persists transactions. Removal is a soft delete.
type TransactionRepository interface {
	Add(ctx context.Context, tx domain.TransactionData) (*domain.TransactionData, error)
	FindByID(ctx context.Context, id string) (*domain.TransactionData, error)
	// Exists is false for unknown and for soft-deleted transactions.
	Exists(ctx context.Context, id string) (bool, error)
	Remove(ctx context.Context, id string) (*domain.TransactionData, error)
	Update(ctx context.Context, id string, update TransactionUpdate) (*domain.TransactionData, error)
	// MergeTransactions inserts the transactions whose ProviderID is not
	// stored yet and returns how many were inserted.
	MergeTransactions(ctx context.Context, txs []domain.TransactionData) (int, error)
	ListByAccount(ctx context.Context, accountID string) ([]domain.TransactionData, error)
}

// CategoryRepository reads the category catalog.
type CategoryRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Category, error)
	FetchAll(ctx context.Context) ([]domain.Category, error)
	Exists(ctx context.Context, id string) (bool, error)
}

// CreditCardInvoiceRepository persists invoices.
type CreditCardInvoiceRepository interface {
	Add(ctx context.Context, invoice domain.CreditCardInvoice) (*domain.CreditCardInvoice, error)
	FindByID(ctx context.Context, id string) (*domain.CreditCardInvoice, error)
	FindByDueDate(ctx context.Context, dueDate time.Time, accountID string) (*domain.CreditCardInvoice, error)
	// GetLastClosedInvoice returns the invoice with the latest due date
	// strictly before now, or nil.
	GetLastClosedInvoice(ctx context.Context, accountID string, now time.Time) (*domain.CreditCardInvoice, error)
	UpdateAmount(ctx context.Context, id string, amount domain.Money) error
	BatchUpdateAmount(ctx context.Context, amounts []domain.InvoiceAmount) error
	ListByAccount(ctx context.Context, accountID string) ([]domain.CreditCardInvoice, error)
}

// UserRepository persists users.
type UserRepository interface {
	Add(ctx context.Context, user domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	Exists(ctx context.Context, id string) (bool, error)
}

// FinancialDataProvider is the external aggregator. Expected failures come
// back as *domain.ErrDataProvider, never as panics.
type FinancialDataProvider interface {
	GetAvailableAutomaticInstitutions(ctx context.Context) ([]domain.Institution, error)
	GetAccountsByItemID(ctx context.Context, itemID string) ([]domain.ProviderAccount, error)
	GetTransactionsByProviderAccountID(ctx context.Context, filter domain.ProviderTransactionFilter) ([]domain.ProviderTransaction, error)
}

// TokenManager signs and verifies access tokens.
type TokenManager interface {
	Sign(claims domain.TokenClaims) (string, error)
	Verify(token string) (*domain.TokenClaims, error)
	TTL() time.Duration
}

// AccountLocker serialises mutations of one account. unlock must be called
// once the caller is done.
type AccountLocker interface {
	Lock(ctx context.Context, accountID string) (unlock func(), err error)
}

// SyncEnqueuer schedules a background sync of one automatic account.
type SyncEnqueuer interface {
	EnqueueSync(ctx context.Context, accountID string) error
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
	GetOrLoad(ctx context.Context, key string, load func(context.Context) (T, error)) (T, error)
}

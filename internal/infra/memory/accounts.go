package memory

import (
	"context"
	"time"

	"github.com/boddenberg/ledger-bfa-go/internal/domain"
	"github.com/boddenberg/ledger-bfa-go/internal/port"

	"github.com/google/uuid"
)

// AccountRepository implements port.AccountRepository.
type AccountRepository struct {
	rows *table[domain.AccountData]
}

func NewAccountRepository() *AccountRepository {
	return &AccountRepository{rows: newTable[domain.AccountData]()}
}

func (r *AccountRepository) Add(_ context.Context, account domain.AccountData) (*domain.AccountData, error) {
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}
	account = cloneAccount(account)
	r.rows.put(account.ID, account)
	out := cloneAccount(account)
	return &out, nil
}

func (r *AccountRepository) FindByID(_ context.Context, id string) (*domain.AccountData, error) {
	a, ok := r.rows.get(id)
	if !ok {
		return nil, nil
	}
	out := cloneAccount(a)
	return &out, nil
}

func (r *AccountRepository) Exists(_ context.Context, id string) (bool, error) {
	_, ok := r.rows.get(id)
	return ok, nil
}

func (r *AccountRepository) ListByUser(_ context.Context, userID string) ([]domain.AccountData, error) {
	return cloneAccounts(r.rows.filter(func(a domain.AccountData) bool { return a.UserID == userID })), nil
}

func (r *AccountRepository) ListAutomatic(_ context.Context) ([]domain.AccountData, error) {
	return cloneAccounts(r.rows.filter(func(a domain.AccountData) bool { return a.SyncType == domain.SyncAutomatic })), nil
}

func (r *AccountRepository) FindByProviderAccountID(_ context.Context, providerAccountID string) (*domain.AccountData, error) {
	a, ok := r.rows.find(func(a domain.AccountData) bool {
		return a.Synchronization != nil && a.Synchronization.ProviderAccountID == providerAccountID
	})
	if !ok {
		return nil, nil
	}
	out := cloneAccount(a)
	return &out, nil
}

func (r *AccountRepository) UpdateBalance(_ context.Context, accountID string, balance domain.Money) error {
	_, ok := r.rows.update(accountID, func(a *domain.AccountData) { a.Balance = balance })
	if !ok {
		return &domain.ErrUnregisteredAccount{ID: accountID}
	}
	return nil
}

func (r *AccountRepository) UpdateAvailableCreditCardLimit(_ context.Context, accountID string, limit domain.Money) error {
	_, ok := r.rows.update(accountID, func(a *domain.AccountData) {
		info := domain.CreditCardInfo{}
		if a.CreditCardInfo != nil {
			info = *a.CreditCardInfo
		}
		info.AvailableCreditLimit = limit
		a.CreditCardInfo = &info
	})
	if !ok {
		return &domain.ErrUnregisteredAccount{ID: accountID}
	}
	return nil
}

func (r *AccountRepository) UpdateSynchronizationStatus(_ context.Context, accountID string, status port.SyncStatus) error {
	_, ok := r.rows.update(accountID, func(a *domain.AccountData) {
		sync := domain.Synchronization{}
		if a.Synchronization != nil {
			sync = *a.Synchronization
		}
		at := status.LastSyncAt
		sync.LastSyncAt = &at
		a.Synchronization = &sync
	})
	if !ok {
		return &domain.ErrUnregisteredAccount{ID: accountID}
	}
	return nil
}

func (r *AccountRepository) UpdateCreditCardInfo(_ context.Context, accountID string, info domain.CreditCardInfo) error {
	_, ok := r.rows.update(accountID, func(a *domain.AccountData) { a.CreditCardInfo = &info })
	if !ok {
		return &domain.ErrUnregisteredAccount{ID: accountID}
	}
	return nil
}

func cloneAccount(a domain.AccountData) domain.AccountData {
	if a.Institution != nil {
		inst := *a.Institution
		a.Institution = &inst
	}
	if a.CreditCardInfo != nil {
		info := *a.CreditCardInfo
		a.CreditCardInfo = &info
	}
	if a.Synchronization != nil {
		sync := *a.Synchronization
		if sync.LastSyncAt != nil {
			at := *sync.LastSyncAt
			sync.LastSyncAt = &at
		}
		a.Synchronization = &sync
	}
	return a
}

func cloneAccounts(in []domain.AccountData) []domain.AccountData {
	for i := range in {
		in[i] = cloneAccount(in[i])
	}
	return in
}

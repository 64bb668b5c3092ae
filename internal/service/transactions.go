package service

import (
	"context"
	"fmt"

	"github.com/boddenberg/ledger-bfa-go/internal/domain"
	"github.com/boddenberg/ledger-bfa-go/internal/port"
)

// transactionLifecycle is what every account kind supports.
type transactionLifecycle interface {
	Add(ctx context.Context, req TransactionRequest) (*domain.TransactionData, error)
	Update(ctx context.Context, req UpdateTransactionRequest) (*domain.TransactionData, error)
	Remove(ctx context.Context, req RemoveTransactionRequest) (*domain.TransactionData, error)
}

// TransactionService routes a transaction request to the use case of the
// account's kind.
type TransactionService struct {
	accounts port.AccountRepository
	byKind   map[domain.AccountType]transactionLifecycle
}

// NewTransactionService wires the wallet, bank and credit card use cases.
func NewTransactionService(deps Deps) *TransactionService {
	deps = deps.withDefaults()
	return &TransactionService{
		accounts: deps.Accounts,
		byKind: map[domain.AccountType]transactionLifecycle{
			domain.AccountWallet:     NewWalletTransactions(deps),
			domain.AccountBank:       NewBankTransactions(deps),
			domain.AccountCreditCard: NewCreditCardTransactions(deps),
		},
	}
}

func (s *TransactionService) route(ctx context.Context, userID, accountID string) (transactionLifecycle, error) {
	acc, err := loadAccount(ctx, s.accounts, userID, accountID)
	if err != nil {
		return nil, err
	}
	uc, ok := s.byKind[acc.Type]
	if !ok {
		return nil, &domain.ErrInvalidAccount{Message: fmt.Sprintf("unknown account type: %s", acc.Type)}
	}
	return uc, nil
}

func (s *TransactionService) Add(ctx context.Context, req TransactionRequest) (*domain.TransactionData, error) {
	uc, err := s.route(ctx, req.UserID, req.AccountID)
	if err != nil {
		return nil, err
	}
	return uc.Add(ctx, req)
}

func (s *TransactionService) Update(ctx context.Context, req UpdateTransactionRequest) (*domain.TransactionData, error) {
	uc, err := s.route(ctx, req.UserID, req.AccountID)
	if err != nil {
		return nil, err
	}
	return uc.Update(ctx, req)
}

func (s *TransactionService) Remove(ctx context.Context, req RemoveTransactionRequest) (*domain.TransactionData, error) {
	uc, err := s.route(ctx, req.UserID, req.AccountID)
	if err != nil {
		return nil, err
	}
	return uc.Remove(ctx, req)
}

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/boddenberg/ledger-bfa-go/internal/domain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var accountTracer = otel.Tracer("service/accounts")

// CreateAccountRequest opens a manual account.
type CreateAccountRequest struct {
	UserID        string
	Type          domain.AccountType
	Name          string
	Balance       float64
	ImageURL      string
	InstitutionID string
	CreditCard    *domain.CreditCardParams
}

// AccountService manages manual accounts and reads every account kind.
type AccountService struct {
	deps    Deps
	catalog *Catalog
}

func NewAccountService(deps Deps, catalog *Catalog) *AccountService {
	return &AccountService{deps: deps.withDefaults(), catalog: catalog}
}

// Create validates and stores a manual wallet, bank or credit card account.
func (s *AccountService) Create(ctx context.Context, req CreateAccountRequest) (*domain.AccountData, error) {
	ctx, span := accountTracer.Start(ctx, "AccountService.Create")
	defer span.End()
	span.SetAttributes(attribute.String("account.type", string(req.Type)))

	if err := ensureUser(ctx, s.deps.Users, req.UserID); err != nil {
		return nil, err
	}

	var institution *domain.Institution
	if req.InstitutionID != "" {
		inst, err := s.catalog.Institution(ctx, req.InstitutionID)
		if err != nil {
			return nil, err
		}
		if inst == nil {
			return nil, &domain.ErrInvalidInstitution{Institution: req.InstitutionID}
		}
		institution = inst
	}

	params := domain.AccountParams{
		UserID:      req.UserID,
		Name:        req.Name,
		Balance:     req.Balance,
		ImageURL:    req.ImageURL,
		Institution: institution,
		CreditCard:  req.CreditCard,
		CreatedAt:   s.deps.Now().UTC(),
	}

	var (
		account domain.Account
		err     error
	)
	switch req.Type {
	case domain.AccountWallet:
		account, err = domain.NewWalletAccount(params)
	case domain.AccountBank:
		account, err = domain.NewManualBankAccount(params)
	case domain.AccountCreditCard:
		account, err = domain.NewManualCreditCardAccount(params)
	default:
		return nil, &domain.ErrInvalidAccount{Message: fmt.Sprintf("unknown account type: %q", req.Type)}
	}
	if err != nil {
		return nil, err
	}

	data := account.Data()
	if cc, ok := account.(*domain.CreditCardAccount); ok {
		// A fresh card owes nothing until an invoice closes.
		cc.SetBalance(0)
		data = cc.Data()
	}

	saved, err := s.deps.Accounts.Add(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("save account: %w", err)
	}

	s.deps.Logger.Info("account created",
		zap.String("account_id", saved.ID),
		zap.String("user_id", saved.UserID),
		zap.String("type", string(saved.Type)),
	)
	return saved, nil
}

func (s *AccountService) Get(ctx context.Context, userID, accountID string) (*domain.AccountData, error) {
	ctx, span := accountTracer.Start(ctx, "AccountService.Get")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	return loadAccount(ctx, s.deps.Accounts, userID, accountID)
}

func (s *AccountService) ListByUser(ctx context.Context, userID string) ([]domain.AccountData, error) {
	ctx, span := accountTracer.Start(ctx, "AccountService.ListByUser")
	defer span.End()

	return s.deps.Accounts.ListByUser(ctx, userID)
}

// Transactions lists the live transactions of an account, newest first.
func (s *AccountService) Transactions(ctx context.Context, userID, accountID string) ([]domain.TransactionData, error) {
	ctx, span := accountTracer.Start(ctx, "AccountService.Transactions")
	defer span.End()

	if _, err := loadAccount(ctx, s.deps.Accounts, userID, accountID); err != nil {
		return nil, err
	}
	list, err := s.deps.Transactions.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	sortByDateDesc(list, func(t domain.TransactionData) time.Time { return t.Date })
	return list, nil
}

// Invoices lists the invoices of a credit card account, latest due first.
func (s *AccountService) Invoices(ctx context.Context, userID, accountID string) ([]domain.CreditCardInvoice, error) {
	ctx, span := accountTracer.Start(ctx, "AccountService.Invoices")
	defer span.End()

	acc, err := loadAccount(ctx, s.deps.Accounts, userID, accountID)
	if err != nil {
		return nil, err
	}
	if acc.Type != domain.AccountCreditCard {
		return nil, wrongAccountType(acc, domain.AccountCreditCard)
	}
	list, err := s.deps.Invoices.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	sortByDateDesc(list, func(i domain.CreditCardInvoice) time.Time { return i.DueDate })
	return list, nil
}

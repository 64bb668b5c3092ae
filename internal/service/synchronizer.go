package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/boddenberg/ledger-bfa-go/internal/domain"
	"github.com/boddenberg/ledger-bfa-go/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var syncTracer = otel.Tracer("service/sync")

// syncOverlap re-reads a few days before the last sync so transactions the
// provider posts late are still picked up. The merge drops repeats.
const syncOverlap = 7 * 24 * time.Hour

// SyncResult summarises one account sync.
type SyncResult struct {
	AccountID          string    `json:"accountId"`
	TransactionsMerged int       `json:"transactionsMerged"`
	Balance            int64     `json:"balance"`
	SyncedAt           time.Time `json:"syncedAt"`
}

// Synchronizer mirrors automatic accounts from the financial data provider.
// The provider is the source of truth for their balances and limits; no
// invoice math runs here.
type Synchronizer struct {
	deps     Deps
	provider port.FinancialDataProvider
	catalog  *Catalog
}

func NewSynchronizer(deps Deps, provider port.FinancialDataProvider, catalog *Catalog) *Synchronizer {
	return &Synchronizer{deps: deps.withDefaults(), provider: provider, catalog: catalog}
}

// SyncAccount merges new provider transactions and overwrites balance and
// limits with the provider's values.
func (s *Synchronizer) SyncAccount(ctx context.Context, accountID string) (res *SyncResult, err error) {
	ctx, span := syncTracer.Start(ctx, "Synchronizer.SyncAccount")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	start := time.Now()
	defer func() {
		merged := 0
		if res != nil {
			merged = res.TransactionsMerged
		}
		s.deps.Metrics.RecordDuration("sync.account", time.Since(start))
		s.deps.Metrics.RecordSync(merged, err)
	}()

	unlock, err := s.deps.Locker.Lock(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("lock account: %w", err)
	}
	defer unlock()

	acc, err := loadAccount(ctx, s.deps.Accounts, "", accountID)
	if err != nil {
		return nil, err
	}
	if acc.SyncType != domain.SyncAutomatic || acc.Synchronization == nil {
		return nil, &domain.ErrInvalidAccount{Message: fmt.Sprintf("account %s is not synchronised", accountID)}
	}
	link := acc.Synchronization
	now := s.deps.Now().UTC()

	remote, err := s.providerAccount(ctx, link)
	if err != nil {
		return nil, err
	}

	filter := domain.ProviderTransactionFilter{ProviderAccountID: link.ProviderAccountID, To: &now}
	if link.LastSyncAt != nil {
		from := link.LastSyncAt.Add(-syncOverlap)
		filter.From = &from
	}
	remoteTxs, err := s.provider.GetTransactionsByProviderAccountID(ctx, filter)
	if err != nil {
		return nil, s.providerFailure("transactions", err)
	}

	categories, err := s.categoriesByName(ctx)
	if err != nil {
		return nil, err
	}

	batch := make([]domain.TransactionData, 0, len(remoteTxs))
	for _, rt := range remoteTxs {
		if rt.Amount == 0 {
			s.deps.Logger.Debug("sync: skipping zero-amount provider transaction",
				zap.String("account_id", accountID),
				zap.String("provider_id", rt.ID),
			)
			continue
		}
		batch = append(batch, s.toTransaction(acc, rt, categories))
	}

	merged, err := s.deps.Transactions.MergeTransactions(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("merge transactions: %w", err)
	}

	if err := s.deps.Accounts.UpdateBalance(ctx, accountID, remote.Balance); err != nil {
		return nil, fmt.Errorf("update balance: %w", err)
	}
	if acc.Type == domain.AccountCreditCard && remote.CreditData != nil {
		info := creditCardInfoFrom(acc.CreditCardInfo, remote.CreditData)
		if err := s.deps.Accounts.UpdateCreditCardInfo(ctx, accountID, info); err != nil {
			return nil, fmt.Errorf("update credit card info: %w", err)
		}
	}
	if err := s.deps.Accounts.UpdateSynchronizationStatus(ctx, accountID, port.SyncStatus{LastSyncAt: now}); err != nil {
		return nil, fmt.Errorf("update sync status: %w", err)
	}

	s.deps.Logger.Info("account synchronised",
		zap.String("account_id", accountID),
		zap.Int("fetched", len(remoteTxs)),
		zap.Int("merged", merged),
		zap.Int64("balance", remote.Balance.Int64()),
	)
	return &SyncResult{
		AccountID:          accountID,
		TransactionsMerged: merged,
		Balance:            remote.Balance.Int64(),
		SyncedAt:           now,
	}, nil
}

// ConnectItem creates the automatic accounts of a provider item the user
// just linked. Accounts already connected are left alone.
func (s *Synchronizer) ConnectItem(ctx context.Context, userID, itemID, institutionID string) ([]domain.AccountData, error) {
	ctx, span := syncTracer.Start(ctx, "Synchronizer.ConnectItem")
	defer span.End()
	span.SetAttributes(attribute.String("item.id", itemID), attribute.String("institution.id", institutionID))

	if err := ensureUser(ctx, s.deps.Users, userID); err != nil {
		return nil, err
	}
	institution, err := s.catalog.Institution(ctx, institutionID)
	if err != nil {
		return nil, s.providerFailure("institutions", err)
	}
	if institution == nil {
		return nil, &domain.ErrUnregisteredInstitution{ID: institutionID}
	}

	remote, err := s.provider.GetAccountsByItemID(ctx, itemID)
	if err != nil {
		return nil, s.providerFailure("accounts", err)
	}
	if len(remote) == 0 {
		return nil, &domain.ErrUnexpected{Message: fmt.Sprintf("item %s has no accounts", itemID)}
	}

	// Build every account before saving any, so bad provider data leaves
	// nothing half connected.
	now := s.deps.Now().UTC()
	pending := make([]domain.Account, 0, len(remote))
	for _, ra := range remote {
		existing, err := s.deps.Accounts.FindByProviderAccountID(ctx, ra.ID)
		if err != nil {
			return nil, fmt.Errorf("find account by provider id: %w", err)
		}
		if existing != nil {
			continue
		}

		account, err := automaticAccount(userID, itemID, institution, ra, now)
		if err != nil {
			return nil, err
		}
		pending = append(pending, account)
	}

	created := make([]domain.AccountData, 0, len(pending))
	for _, account := range pending {
		saved, err := s.deps.Accounts.Add(ctx, account.Data())
		if err != nil {
			return nil, fmt.Errorf("save account: %w", err)
		}
		created = append(created, *saved)

		s.deps.Logger.Info("automatic account connected",
			zap.String("account_id", saved.ID),
			zap.String("provider_account_id", saved.Synchronization.ProviderAccountID),
			zap.String("type", string(saved.Type)),
		)
	}
	return created, nil
}

func (s *Synchronizer) providerAccount(ctx context.Context, link *domain.Synchronization) (*domain.ProviderAccount, error) {
	accounts, err := s.provider.GetAccountsByItemID(ctx, link.ProviderItemID)
	if err != nil {
		return nil, s.providerFailure("accounts", err)
	}
	for i := range accounts {
		if accounts[i].ID == link.ProviderAccountID {
			return &accounts[i], nil
		}
	}
	return nil, &domain.ErrUnexpected{
		Message: fmt.Sprintf("item %s has no account %s", link.ProviderItemID, link.ProviderAccountID),
	}
}

// providerFailure makes sure every provider-side error reaches the caller
// as an ErrDataProvider.
func (s *Synchronizer) providerFailure(operation string, err error) error {
	s.deps.Metrics.IncrProviderError(operation)
	var dp *domain.ErrDataProvider
	if errors.As(err, &dp) {
		return err
	}
	return &domain.ErrDataProvider{Operation: operation, Err: err}
}

func (s *Synchronizer) categoriesByName(ctx context.Context) (map[string]domain.Category, error) {
	var (
		list []domain.Category
		err  error
	)
	if s.catalog != nil {
		list, err = s.catalog.Categories(ctx)
	} else {
		list, err = s.deps.Categories.FetchAll(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch categories: %w", err)
	}
	byName := make(map[string]domain.Category, len(list))
	for _, c := range list {
		byName[strings.ToLower(c.Name)] = c
	}
	return byName, nil
}

func (s *Synchronizer) toTransaction(acc *domain.AccountData, rt domain.ProviderTransaction, categories map[string]domain.Category) domain.TransactionData {
	tx := domain.TransactionData{
		ID:                  uuid.NewString(),
		AccountID:           acc.ID,
		AccountType:         acc.Type,
		SyncType:            domain.SyncAutomatic,
		UserID:              acc.UserID,
		Amount:              rt.Amount,
		Description:         rt.Description,
		DescriptionOriginal: rt.DescriptionRaw,
		Date:                rt.Date.UTC(),
		Type:                domain.TransactionExpense,
		ProviderID:          rt.ID,
		Status:              rt.Status,
		CreatedAt:           s.deps.Now().UTC(),
	}
	if rt.Amount > 0 {
		tx.Type = domain.TransactionIncome
	}
	if c, ok := categories[strings.ToLower(rt.Category)]; ok {
		tx.Category = &c
		tx.Ignored = c.Ignored
	}
	return tx
}

// creditCardInfoFrom overlays the provider's limits on the stored info. The
// billing days follow the provider's current statement when it reports one.
func creditCardInfoFrom(stored *domain.CreditCardInfo, remote *domain.ProviderCreditData) domain.CreditCardInfo {
	info := domain.CreditCardInfo{}
	if stored != nil {
		info = *stored
	}
	if remote.Brand != "" {
		info.Brand = remote.Brand
	}
	info.CreditLimit = remote.CreditLimit
	info.AvailableCreditLimit = remote.AvailableCreditLimit
	if remote.BalanceCloseDate != nil {
		info.CloseDay = remote.BalanceCloseDate.UTC().Day()
	}
	if remote.BalanceDueDate != nil {
		info.DueDay = remote.BalanceDueDate.UTC().Day()
	}
	return info
}

func automaticAccount(userID, itemID string, institution *domain.Institution, ra domain.ProviderAccount, now time.Time) (domain.Account, error) {
	params := domain.AccountParams{
		UserID:      userID,
		Name:        ra.Name,
		Balance:     float64(ra.Balance),
		Institution: institution,
		ImageURL:    institution.ImageURL,
		Synchronization: &domain.SyncParams{
			ProviderAccountID: ra.ID,
			ProviderItemID:    itemID,
			CreatedAt:         &now,
		},
		CreatedAt: now,
	}

	var (
		account domain.Account
		err     error
	)
	switch ra.Type {
	case domain.ProviderAccountBank:
		account, err = domain.NewAutomaticBankAccount(params)
	case domain.ProviderAccountCredit:
		if ra.CreditData == nil {
			return nil, &domain.ErrUnexpected{Message: fmt.Sprintf("credit account %s has no credit data", ra.ID)}
		}
		info := creditCardInfoFrom(nil, ra.CreditData)
		params.CreditCard = &domain.CreditCardParams{
			Brand:                info.Brand,
			CreditLimit:          float64(info.CreditLimit),
			AvailableCreditLimit: float64(info.AvailableCreditLimit),
			CloseDay:             info.CloseDay,
			DueDay:               info.DueDay,
		}
		account, err = domain.NewAutomaticCreditCardAccount(params)
	default:
		return nil, &domain.ErrUnexpected{Message: fmt.Sprintf("provider account %s has unsupported type %q", ra.ID, ra.Type)}
	}
	if err != nil {
		// The input came from the provider, not the user.
		return nil, &domain.ErrUnexpected{Message: fmt.Sprintf("provider account %s: %v", ra.ID, err)}
	}
	return account, nil
}

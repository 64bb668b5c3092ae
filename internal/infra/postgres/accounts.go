package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/boddenberg/ledger-bfa-go/internal/domain"
	"github.com/boddenberg/ledger-bfa-go/internal/port"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const accountColumns = `id, type, sync_type, name, balance, image_url, user_id,
	institution, credit_card_info, synchronization, created_at`

// AccountRepository implements port.AccountRepository.
type AccountRepository struct {
	db dbtx
}

func (r *AccountRepository) Add(ctx context.Context, a domain.AccountData) (*domain.AccountData, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		a.ID, a.Type, a.SyncType, a.Name, a.Balance, a.ImageURL, a.UserID,
		a.Institution, a.CreditCardInfo, a.Synchronization, a.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert account: %w", err)
	}
	return &a, nil
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (*domain.AccountData, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccountRow(row)
}

func (r *AccountRepository) Exists(ctx context.Context, id string) (bool, error) {
	var ok bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, id).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check account: %w", err)
	}
	return ok, nil
}

func (r *AccountRepository) ListByUser(ctx context.Context, userID string) ([]domain.AccountData, error) {
	return r.list(ctx, `SELECT `+accountColumns+` FROM accounts WHERE user_id = $1 ORDER BY created_at`, userID)
}

func (r *AccountRepository) ListAutomatic(ctx context.Context) ([]domain.AccountData, error) {
	return r.list(ctx, `SELECT `+accountColumns+` FROM accounts WHERE sync_type = $1 ORDER BY created_at`, domain.SyncAutomatic)
}

func (r *AccountRepository) FindByProviderAccountID(ctx context.Context, providerAccountID string) (*domain.AccountData, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+accountColumns+` FROM accounts
		WHERE synchronization->>'providerAccountId' = $1`, providerAccountID)
	return scanAccountRow(row)
}

func (r *AccountRepository) UpdateBalance(ctx context.Context, accountID string, balance domain.Money) error {
	return r.exec(ctx, accountID, `UPDATE accounts SET balance = $2 WHERE id = $1`, accountID, balance)
}

func (r *AccountRepository) UpdateAvailableCreditCardLimit(ctx context.Context, accountID string, limit domain.Money) error {
	return r.exec(ctx, accountID, `
		UPDATE accounts
		SET credit_card_info = jsonb_set(COALESCE(credit_card_info, '{}'::jsonb), '{availableCreditLimit}', to_jsonb($2::bigint))
		WHERE id = $1`, accountID, limit)
}

func (r *AccountRepository) UpdateSynchronizationStatus(ctx context.Context, accountID string, status port.SyncStatus) error {
	return r.exec(ctx, accountID, `
		UPDATE accounts
		SET synchronization = jsonb_set(COALESCE(synchronization, '{}'::jsonb), '{lastSyncAt}', to_jsonb($2::timestamptz))
		WHERE id = $1`, accountID, status.LastSyncAt.UTC())
}

func (r *AccountRepository) UpdateCreditCardInfo(ctx context.Context, accountID string, info domain.CreditCardInfo) error {
	return r.exec(ctx, accountID, `UPDATE accounts SET credit_card_info = $2 WHERE id = $1`, accountID, info)
}

func (r *AccountRepository) exec(ctx context.Context, accountID, sql string, args ...any) error {
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &domain.ErrUnregisteredAccount{ID: accountID}
	}
	return nil
}

func (r *AccountRepository) list(ctx context.Context, sql string, args ...any) ([]domain.AccountData, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	accounts := []domain.AccountData{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *a)
	}
	return accounts, rows.Err()
}

func scanAccountRow(row pgx.Row) (*domain.AccountData, error) {
	a, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

func scanAccount(row pgx.Row) (*domain.AccountData, error) {
	var a domain.AccountData
	err := row.Scan(
		&a.ID, &a.Type, &a.SyncType, &a.Name, &a.Balance, &a.ImageURL, &a.UserID,
		&a.Institution, &a.CreditCardInfo, &a.Synchronization, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	return &a, nil
}

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

const transactionColumns = `id, account_id, account_type, sync_type, user_id, amount, type,
	description, description_original, date, invoice_date, invoice_id, category,
	comment, ignored, provider_id, status, is_deleted, created_at`

const insertTransaction = `
	INSERT INTO transactions (` + transactionColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

// TransactionRepository implements port.TransactionRepository.
type TransactionRepository struct {
	db dbtx
}

func (r *TransactionRepository) Add(ctx context.Context, tx domain.TransactionData) (*domain.TransactionData, error) {
	prepareTransaction(&tx)
	if _, err := r.db.Exec(ctx, insertTransaction, transactionArgs(tx)...); err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}
	return &tx, nil
}

func (r *TransactionRepository) FindByID(ctx context.Context, id string) (*domain.TransactionData, error) {
	row := r.db.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)
	tx, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return tx, err
}

func (r *TransactionRepository) Exists(ctx context.Context, id string) (bool, error) {
	var ok bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM transactions WHERE id = $1 AND NOT is_deleted)`, id,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check transaction: %w", err)
	}
	return ok, nil
}

func (r *TransactionRepository) Remove(ctx context.Context, id string) (*domain.TransactionData, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE transactions SET is_deleted = TRUE
		WHERE id = $1
		RETURNING `+transactionColumns, id)
	return r.returning(row, id)
}

func (r *TransactionRepository) Update(ctx context.Context, id string, u port.TransactionUpdate) (*domain.TransactionData, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE transactions SET
			amount = $2, type = $3, description = $4, description_original = $5,
			date = $6, category = $7, comment = $8, ignored = $9,
			invoice_id = $10, invoice_date = $11
		WHERE id = $1
		RETURNING `+transactionColumns,
		id, u.Amount, domain.TypeOf(u.Amount), u.Description, u.DescriptionOriginal,
		u.Date, u.Category, u.Comment, u.Ignored,
		nullable(u.InvoiceID), u.InvoiceDate,
	)
	return r.returning(row, id)
}

// MergeTransactions inserts txs in one batch inside a transaction; rows
// whose provider_id is already stored are skipped by the unique index.
func (r *TransactionRepository) MergeTransactions(ctx context.Context, txs []domain.TransactionData) (int, error) {
	if len(txs) == 0 {
		return 0, nil
	}

	inserted := 0
	err := withTx(ctx, r.db, func(db dbtx) error {
		batch := &pgx.Batch{}
		for _, tx := range txs {
			prepareTransaction(&tx)
			batch.Queue(insertTransaction+`
				ON CONFLICT (provider_id) WHERE provider_id IS NOT NULL DO NOTHING`,
				transactionArgs(tx)...)
		}

		results := db.SendBatch(ctx, batch)
		defer results.Close()

		for range txs {
			tag, err := results.Exec()
			if err != nil {
				return fmt.Errorf("merge transaction: %w", err)
			}
			inserted += int(tag.RowsAffected())
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

func (r *TransactionRepository) ListByAccount(ctx context.Context, accountID string) ([]domain.TransactionData, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE account_id = $1 AND NOT is_deleted
		ORDER BY created_at`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	txs := []domain.TransactionData{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, *tx)
	}
	return txs, rows.Err()
}

func (r *TransactionRepository) returning(row pgx.Row, id string) (*domain.TransactionData, error) {
	tx, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &domain.ErrUnregisteredTransaction{ID: id}
	}
	return tx, err
}

func prepareTransaction(tx *domain.TransactionData) {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	tx.Type = domain.TypeOf(tx.Amount)
}

func transactionArgs(tx domain.TransactionData) []any {
	return []any{
		tx.ID, tx.AccountID, tx.AccountType, tx.SyncType, tx.UserID, tx.Amount, tx.Type,
		tx.Description, tx.DescriptionOriginal, tx.Date, tx.InvoiceDate, nullable(tx.InvoiceID), tx.Category,
		tx.Comment, tx.Ignored, nullable(tx.ProviderID), tx.Status, tx.IsDeleted, tx.CreatedAt,
	}
}

func scanTransaction(row pgx.Row) (*domain.TransactionData, error) {
	var (
		tx                    domain.TransactionData
		invoiceID, providerID *string
	)
	err := row.Scan(
		&tx.ID, &tx.AccountID, &tx.AccountType, &tx.SyncType, &tx.UserID, &tx.Amount, &tx.Type,
		&tx.Description, &tx.DescriptionOriginal, &tx.Date, &tx.InvoiceDate, &invoiceID, &tx.Category,
		&tx.Comment, &tx.Ignored, &providerID, &tx.Status, &tx.IsDeleted, &tx.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	tx.InvoiceID = deref(invoiceID)
	tx.ProviderID = deref(providerID)
	return &tx, nil
}

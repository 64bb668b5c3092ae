package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/boddenberg/ledger-bfa-go/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const invoiceColumns = `id, account_id, user_id, due_date, close_date, amount`

// InvoiceRepository implements port.CreditCardInvoiceRepository.
type InvoiceRepository struct {
	db dbtx
}

func (r *InvoiceRepository) Add(ctx context.Context, inv domain.CreditCardInvoice) (*domain.CreditCardInvoice, error) {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	_, err := r.db.Exec(ctx, `INSERT INTO credit_card_invoices (`+invoiceColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		inv.ID, inv.AccountID, inv.UserID, inv.DueDate, inv.CloseDate, inv.Amount)
	if err != nil {
		return nil, fmt.Errorf("insert invoice: %w", err)
	}
	return &inv, nil
}

func (r *InvoiceRepository) FindByID(ctx context.Context, id string) (*domain.CreditCardInvoice, error) {
	return r.one(ctx, `SELECT `+invoiceColumns+` FROM credit_card_invoices WHERE id = $1`, id)
}

// FindByDueDate matches on the UTC calendar day of dueDate.
func (r *InvoiceRepository) FindByDueDate(ctx context.Context, dueDate time.Time, accountID string) (*domain.CreditCardInvoice, error) {
	d := dueDate.UTC()
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	return r.one(ctx, `
		SELECT `+invoiceColumns+` FROM credit_card_invoices
		WHERE account_id = $1 AND due_date >= $2 AND due_date < $3`,
		accountID, start, start.AddDate(0, 0, 1))
}

func (r *InvoiceRepository) GetLastClosedInvoice(ctx context.Context, accountID string, now time.Time) (*domain.CreditCardInvoice, error) {
	return r.one(ctx, `
		SELECT `+invoiceColumns+` FROM credit_card_invoices
		WHERE account_id = $1 AND due_date < $2
		ORDER BY due_date DESC
		LIMIT 1`, accountID, now)
}

func (r *InvoiceRepository) UpdateAmount(ctx context.Context, id string, amount domain.Money) error {
	tag, err := r.db.Exec(ctx, `UPDATE credit_card_invoices SET amount = $2 WHERE id = $1`, id, amount)
	if err != nil {
		return fmt.Errorf("update invoice amount: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &domain.ErrUnexpected{Message: "invoice " + id + " not found"}
	}
	return nil
}

// BatchUpdateAmount applies every amount or none.
func (r *InvoiceRepository) BatchUpdateAmount(ctx context.Context, amounts []domain.InvoiceAmount) error {
	return withTx(ctx, r.db, func(db dbtx) error {
		tx := &InvoiceRepository{db: db}
		for _, a := range amounts {
			if err := tx.UpdateAmount(ctx, a.InvoiceID, a.Amount); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *InvoiceRepository) ListByAccount(ctx context.Context, accountID string) ([]domain.CreditCardInvoice, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+invoiceColumns+` FROM credit_card_invoices
		WHERE account_id = $1 ORDER BY due_date`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	invoices := []domain.CreditCardInvoice{}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, *inv)
	}
	return invoices, rows.Err()
}

func (r *InvoiceRepository) one(ctx context.Context, sql string, args ...any) (*domain.CreditCardInvoice, error) {
	inv, err := scanInvoice(r.db.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return inv, err
}

func scanInvoice(row pgx.Row) (*domain.CreditCardInvoice, error) {
	var inv domain.CreditCardInvoice
	if err := row.Scan(&inv.ID, &inv.AccountID, &inv.UserID, &inv.DueDate, &inv.CloseDate, &inv.Amount); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan invoice: %w", err)
	}
	inv.DueDate = inv.DueDate.UTC()
	inv.CloseDate = inv.CloseDate.UTC()
	return &inv, nil
}

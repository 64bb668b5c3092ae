package memory

import (
	"context"
	"time"

	"github.com/boddenberg/ledger-bfa-go/internal/domain"

	"github.com/google/uuid"
)

// InvoiceRepository implements port.CreditCardInvoiceRepository.
type InvoiceRepository struct {
	rows *table[domain.CreditCardInvoice]
}

func NewInvoiceRepository() *InvoiceRepository {
	return &InvoiceRepository{rows: newTable[domain.CreditCardInvoice]()}
}

func (r *InvoiceRepository) Add(_ context.Context, inv domain.CreditCardInvoice) (*domain.CreditCardInvoice, error) {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	r.rows.put(inv.ID, inv)
	return &inv, nil
}

func (r *InvoiceRepository) FindByID(_ context.Context, id string) (*domain.CreditCardInvoice, error) {
	inv, ok := r.rows.get(id)
	if !ok {
		return nil, nil
	}
	return &inv, nil
}

// FindByDueDate matches on the UTC calendar day of dueDate.
func (r *InvoiceRepository) FindByDueDate(_ context.Context, dueDate time.Time, accountID string) (*domain.CreditCardInvoice, error) {
	inv, ok := r.rows.find(func(i domain.CreditCardInvoice) bool {
		return i.AccountID == accountID && sameDay(i.DueDate, dueDate)
	})
	if !ok {
		return nil, nil
	}
	return &inv, nil
}

func (r *InvoiceRepository) GetLastClosedInvoice(_ context.Context, accountID string, now time.Time) (*domain.CreditCardInvoice, error) {
	var last *domain.CreditCardInvoice
	for _, inv := range r.rows.filter(func(i domain.CreditCardInvoice) bool {
		return i.AccountID == accountID && i.DueDate.Before(now)
	}) {
		if last == nil || inv.DueDate.After(last.DueDate) {
			inv := inv
			last = &inv
		}
	}
	return last, nil
}

func (r *InvoiceRepository) UpdateAmount(_ context.Context, id string, amount domain.Money) error {
	if _, ok := r.rows.update(id, func(i *domain.CreditCardInvoice) { i.Amount = amount }); !ok {
		return &domain.ErrUnexpected{Message: "invoice " + id + " not found"}
	}
	return nil
}

func (r *InvoiceRepository) BatchUpdateAmount(ctx context.Context, amounts []domain.InvoiceAmount) error {
	for _, a := range amounts {
		if err := r.UpdateAmount(ctx, a.InvoiceID, a.Amount); err != nil {
			return err
		}
	}
	return nil
}

func (r *InvoiceRepository) ListByAccount(_ context.Context, accountID string) ([]domain.CreditCardInvoice, error) {
	return r.rows.filter(func(i domain.CreditCardInvoice) bool { return i.AccountID == accountID }), nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

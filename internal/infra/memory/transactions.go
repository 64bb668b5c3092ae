package memory

import (
	"context"
	"time"

	"github.com/boddenberg/ledger-bfa-go/internal/domain"
	"github.com/boddenberg/ledger-bfa-go/internal/port"

	"github.com/google/uuid"
)

// TransactionRepository implements port.TransactionRepository.
type TransactionRepository struct {
	rows *table[domain.TransactionData]
}

func NewTransactionRepository() *TransactionRepository {
	return &TransactionRepository{rows: newTable[domain.TransactionData]()}
}

func (r *TransactionRepository) Add(_ context.Context, tx domain.TransactionData) (*domain.TransactionData, error) {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	tx = cloneTransaction(tx)
	r.rows.put(tx.ID, tx)
	out := cloneTransaction(tx)
	return &out, nil
}

func (r *TransactionRepository) FindByID(_ context.Context, id string) (*domain.TransactionData, error) {
	tx, ok := r.rows.get(id)
	if !ok {
		return nil, nil
	}
	out := cloneTransaction(tx)
	return &out, nil
}

func (r *TransactionRepository) Exists(_ context.Context, id string) (bool, error) {
	tx, ok := r.rows.get(id)
	return ok && !tx.IsDeleted, nil
}

func (r *TransactionRepository) Remove(_ context.Context, id string) (*domain.TransactionData, error) {
	tx, ok := r.rows.update(id, func(t *domain.TransactionData) { t.IsDeleted = true })
	if !ok {
		return nil, &domain.ErrUnregisteredTransaction{ID: id}
	}
	out := cloneTransaction(tx)
	return &out, nil
}

func (r *TransactionRepository) Update(_ context.Context, id string, u port.TransactionUpdate) (*domain.TransactionData, error) {
	tx, ok := r.rows.update(id, func(t *domain.TransactionData) {
		t.Amount = u.Amount
		t.Type = domain.TypeOf(u.Amount)
		t.Description = u.Description
		t.DescriptionOriginal = u.DescriptionOriginal
		t.Date = u.Date
		t.Category = u.Category
		t.Comment = u.Comment
		t.Ignored = u.Ignored
		t.InvoiceID = u.InvoiceID
		t.InvoiceDate = u.InvoiceDate
	})
	if !ok {
		return nil, &domain.ErrUnregisteredTransaction{ID: id}
	}
	out := cloneTransaction(tx)
	return &out, nil
}

func (r *TransactionRepository) MergeTransactions(_ context.Context, txs []domain.TransactionData) (int, error) {
	inserted := 0
	for _, tx := range txs {
		if tx.ProviderID != "" {
			_, exists := r.rows.find(func(t domain.TransactionData) bool { return t.ProviderID == tx.ProviderID })
			if exists {
				continue
			}
		}
		if tx.ID == "" {
			tx.ID = uuid.NewString()
		}
		if tx.CreatedAt.IsZero() {
			tx.CreatedAt = time.Now().UTC()
		}
		r.rows.put(tx.ID, cloneTransaction(tx))
		inserted++
	}
	return inserted, nil
}

func (r *TransactionRepository) ListByAccount(_ context.Context, accountID string) ([]domain.TransactionData, error) {
	rows := r.rows.filter(func(t domain.TransactionData) bool {
		return t.AccountID == accountID && !t.IsDeleted
	})
	for i := range rows {
		rows[i] = cloneTransaction(rows[i])
	}
	return rows, nil
}

func cloneTransaction(t domain.TransactionData) domain.TransactionData {
	if t.Category != nil {
		c := *t.Category
		t.Category = &c
	}
	if t.InvoiceDate != nil {
		d := *t.InvoiceDate
		t.InvoiceDate = &d
	}
	return t
}

package memory

import (
	"context"

	"github.com/boddenberg/ledger-bfa-go/internal/domain"
)

// CategoryRepository implements port.CategoryRepository over a fixed catalog.
type CategoryRepository struct {
	rows *table[domain.Category]
}

// NewCategoryRepository seeds the catalog with categories.
func NewCategoryRepository(categories ...domain.Category) *CategoryRepository {
	r := &CategoryRepository{rows: newTable[domain.Category]()}
	for _, c := range categories {
		r.rows.put(c.ID, c)
	}
	return r
}

func (r *CategoryRepository) FindByID(_ context.Context, id string) (*domain.Category, error) {
	c, ok := r.rows.get(id)
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *CategoryRepository) FetchAll(_ context.Context) ([]domain.Category, error) {
	return r.rows.filter(func(domain.Category) bool { return true }), nil
}

func (r *CategoryRepository) Exists(_ context.Context, id string) (bool, error) {
	_, ok := r.rows.get(id)
	return ok, nil
}

// DefaultCategories is the catalog shipped with a fresh ledger.
func DefaultCategories() []domain.Category {
	return []domain.Category{
		{ID: "cat-salary", Name: "Salário", Group: "Renda", IconName: "briefcase", PrimaryColor: "#2E7D32"},
		{ID: "cat-food", Name: "Alimentação", Group: "Essenciais", IconName: "utensils", PrimaryColor: "#EF6C00"},
		{ID: "cat-transport", Name: "Transporte", Group: "Essenciais", IconName: "car", PrimaryColor: "#1565C0"},
		{ID: "cat-home", Name: "Moradia", Group: "Essenciais", IconName: "home", PrimaryColor: "#6D4C41"},
		{ID: "cat-leisure", Name: "Lazer", Group: "Estilo de vida", IconName: "music", PrimaryColor: "#AD1457"},
		{ID: "cat-health", Name: "Saúde", Group: "Essenciais", IconName: "heart", PrimaryColor: "#C62828"},
		{ID: "cat-transfer", Name: "Transferência", Group: "Movimentações", IconName: "exchange", PrimaryColor: "#546E7A", Ignored: true},
		{ID: "cat-card-payment", Name: domain.CardPaymentCategoryName, Group: "Movimentações", IconName: "credit-card", PrimaryColor: "#4527A0", Ignored: true},
	}
}

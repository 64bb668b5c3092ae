package service

import (
	"context"
	"fmt"

	"github.com/boddenberg/ledger-bfa-go/internal/domain"
	"github.com/boddenberg/ledger-bfa-go/internal/port"

	"go.opentelemetry.io/otel"
)

var catalogTracer = otel.Tracer("service/catalog")

const (
	categoriesKey   = "categories"
	institutionsKey = "institutions"
)

// Catalog serves the slow-changing reference data: the category list and
// the institutions the provider can connect to.
type Catalog struct {
	categories   port.CategoryRepository
	provider     port.FinancialDataProvider
	categoryList port.Cache[[]domain.Category]
	institutions port.Cache[[]domain.Institution]
}

func NewCatalog(
	categories port.CategoryRepository,
	provider port.FinancialDataProvider,
	categoryCache port.Cache[[]domain.Category],
	institutionCache port.Cache[[]domain.Institution],
) *Catalog {
	return &Catalog{
		categories:   categories,
		provider:     provider,
		categoryList: categoryCache,
		institutions: institutionCache,
	}
}

func (c *Catalog) Categories(ctx context.Context) ([]domain.Category, error) {
	ctx, span := catalogTracer.Start(ctx, "Catalog.Categories")
	defer span.End()

	return c.categoryList.GetOrLoad(ctx, categoriesKey, func(ctx context.Context) ([]domain.Category, error) {
		list, err := c.categories.FetchAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch categories: %w", err)
		}
		return list, nil
	})
}

// Institutions returns the provider's connectable institutions.
func (c *Catalog) Institutions(ctx context.Context) ([]domain.Institution, error) {
	ctx, span := catalogTracer.Start(ctx, "Catalog.Institutions")
	defer span.End()

	return c.institutions.GetOrLoad(ctx, institutionsKey, c.provider.GetAvailableAutomaticInstitutions)
}

// Institution looks up one institution by id; nil when unknown.
func (c *Catalog) Institution(ctx context.Context, id string) (*domain.Institution, error) {
	list, err := c.Institutions(ctx)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].ID == id {
			inst := list[i]
			return &inst, nil
		}
	}
	return nil, nil
}

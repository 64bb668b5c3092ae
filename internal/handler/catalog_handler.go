package handler

import (
	"net/http"

	"github.com/boddenberg/ledger-bfa-go/internal/domain"
	"github.com/boddenberg/ledger-bfa-go/internal/service"

	"go.uber.org/zap"
)

func listCategoriesHandler(catalog *service.Catalog, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/categories")
		defer span.End()

		categories, err := catalog.Categories(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.ListResponse[domain.Category]{Data: categories, Total: len(categories)})
	}
}

func listInstitutionsHandler(catalog *service.Catalog, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/institutions")
		defer span.End()

		institutions, err := catalog.Institutions(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.ListResponse[domain.Institution]{Data: institutions, Total: len(institutions)})
	}
}

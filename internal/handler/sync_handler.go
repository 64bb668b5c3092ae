package handler

import (
	"net/http"

	"github.com/boddenberg/ledger-bfa-go/internal/domain"
	"github.com/boddenberg/ledger-bfa-go/internal/port"
	"github.com/boddenberg/ledger-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Provider sync — POST /v1/accounts/{accountId}/sync, POST /v1/items/{itemId}/connect
// ============================================================

func syncAccountHandler(accounts *service.AccountService, sync *service.Synchronizer, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/accounts/{accountId}/sync")
		defer span.End()

		accountID := chi.URLParam(r, "accountId")
		span.SetAttributes(attribute.String("account.id", accountID))

		// ownership check; the synchronizer itself is user-agnostic
		if _, err := accounts.Get(ctx, UserIDFromContext(ctx), accountID); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		res, err := sync.SyncAccount(ctx, accountID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

type connectItemBody struct {
	InstitutionID string `json:"institutionId" validate:"required"`
}

func connectItemHandler(sync *service.Synchronizer, enqueuer port.SyncEnqueuer, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/items/{itemId}/connect")
		defer span.End()

		itemID := chi.URLParam(r, "itemId")
		span.SetAttributes(attribute.String("item.id", itemID))

		var body connectItemBody
		if err := decodeBody(r, &body); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		accounts, err := sync.ConnectItem(ctx, UserIDFromContext(ctx), itemID, body.InstitutionID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		if enqueuer != nil {
			for _, a := range accounts {
				if err := enqueuer.EnqueueSync(ctx, a.ID); err != nil {
					logger.Warn("enqueue initial sync", zap.String("account_id", a.ID), zap.Error(err))
				}
			}
		}

		writeJSON(w, http.StatusCreated, domain.ListResponse[domain.AccountData]{Data: accounts, Total: len(accounts)})
	}
}

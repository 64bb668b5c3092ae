package handler

import (
	"net/http"

	"github.com/boddenberg/ledger-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Transactions — routed by account type inside TransactionService
// ============================================================

type transactionBody struct {
	Amount              float64 `json:"amount"`
	Description         string  `json:"description" validate:"max=255"`
	DescriptionOriginal string  `json:"descriptionOriginal" validate:"max=255"`
	Date                string  `json:"date" validate:"required"`
	CategoryID          string  `json:"categoryId"`
	Comment             string  `json:"comment" validate:"max=500"`
	Ignored             bool    `json:"ignored"`
}

func (b transactionBody) request(userID, accountID string) (service.TransactionRequest, error) {
	date, err := parseDate("date", b.Date)
	if err != nil {
		return service.TransactionRequest{}, err
	}
	return service.TransactionRequest{
		UserID:              userID,
		AccountID:           accountID,
		Amount:              b.Amount,
		Description:         b.Description,
		DescriptionOriginal: b.DescriptionOriginal,
		Date:                date,
		CategoryID:          b.CategoryID,
		Comment:             b.Comment,
		Ignored:             b.Ignored,
	}, nil
}

func addTransactionHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/accounts/{accountId}/transactions")
		defer span.End()

		accountID := chi.URLParam(r, "accountId")
		span.SetAttributes(attribute.String("account.id", accountID))

		var body transactionBody
		if err := decodeBody(r, &body); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		req, err := body.request(UserIDFromContext(ctx), accountID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		tx, err := svc.Add(ctx, req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, tx)
	}
}

func updateTransactionHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/accounts/{accountId}/transactions/{transactionId}")
		defer span.End()

		accountID := chi.URLParam(r, "accountId")
		transactionID := chi.URLParam(r, "transactionId")
		span.SetAttributes(
			attribute.String("account.id", accountID),
			attribute.String("transaction.id", transactionID),
		)

		var body transactionBody
		if err := decodeBody(r, &body); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		req, err := body.request(UserIDFromContext(ctx), accountID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		tx, err := svc.Update(ctx, service.UpdateTransactionRequest{TransactionID: transactionID, TransactionRequest: req})
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, tx)
	}
}

func removeTransactionHandler(svc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/accounts/{accountId}/transactions/{transactionId}")
		defer span.End()

		accountID := chi.URLParam(r, "accountId")
		transactionID := chi.URLParam(r, "transactionId")
		span.SetAttributes(
			attribute.String("account.id", accountID),
			attribute.String("transaction.id", transactionID),
		)

		tx, err := svc.Remove(ctx, service.RemoveTransactionRequest{
			UserID:        UserIDFromContext(ctx),
			AccountID:     accountID,
			TransactionID: transactionID,
		})
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, tx)
	}
}

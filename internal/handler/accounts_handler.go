package handler

import (
	"net/http"

	"github.com/boddenberg/ledger-bfa-go/internal/domain"
	"github.com/boddenberg/ledger-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type creditCardBody struct {
	Brand                string  `json:"brand"`
	CreditLimit          float64 `json:"creditLimit"`
	AvailableCreditLimit float64 `json:"availableCreditLimit"`
	CloseDay             int     `json:"closeDay"`
	DueDay               int     `json:"dueDay"`
}

// createAccountBody only checks shape; field rules live in the domain
// constructors so their error messages stay the same everywhere.
type createAccountBody struct {
	Type          string          `json:"type" validate:"required,oneof=WALLET BANK CREDIT_CARD"`
	Name          string          `json:"name"`
	Balance       float64         `json:"balance"`
	ImageURL      string          `json:"imageUrl" validate:"omitempty,url"`
	InstitutionID string          `json:"institutionId"`
	CreditCard    *creditCardBody `json:"creditCard"`
}

func createAccountHandler(svc *service.AccountService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/accounts")
		defer span.End()

		var body createAccountBody
		if err := decodeBody(r, &body); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		req := service.CreateAccountRequest{
			UserID:        UserIDFromContext(ctx),
			Type:          domain.AccountType(body.Type),
			Name:          body.Name,
			Balance:       body.Balance,
			ImageURL:      body.ImageURL,
			InstitutionID: body.InstitutionID,
		}
		if body.CreditCard != nil {
			req.CreditCard = &domain.CreditCardParams{
				Brand:                body.CreditCard.Brand,
				CreditLimit:          body.CreditCard.CreditLimit,
				AvailableCreditLimit: body.CreditCard.AvailableCreditLimit,
				CloseDay:             body.CreditCard.CloseDay,
				DueDay:               body.CreditCard.DueDay,
			}
		}

		account, err := svc.Create(ctx, req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, account)
	}
}

func listAccountsHandler(svc *service.AccountService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/accounts")
		defer span.End()

		accounts, err := svc.ListByUser(ctx, UserIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.ListResponse[domain.AccountData]{Data: accounts, Total: len(accounts)})
	}
}

func getAccountHandler(svc *service.AccountService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/accounts/{accountId}")
		defer span.End()

		accountID := chi.URLParam(r, "accountId")
		span.SetAttributes(attribute.String("account.id", accountID))

		account, err := svc.Get(ctx, UserIDFromContext(ctx), accountID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, account)
	}
}

func listTransactionsHandler(svc *service.AccountService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/accounts/{accountId}/transactions")
		defer span.End()

		accountID := chi.URLParam(r, "accountId")
		span.SetAttributes(attribute.String("account.id", accountID))

		txs, err := svc.Transactions(ctx, UserIDFromContext(ctx), accountID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.ListResponse[domain.TransactionData]{Data: txs, Total: len(txs)})
	}
}

func listInvoicesHandler(svc *service.AccountService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/accounts/{accountId}/invoices")
		defer span.End()

		accountID := chi.URLParam(r, "accountId")
		span.SetAttributes(attribute.String("account.id", accountID))

		invoices, err := svc.Invoices(ctx, UserIDFromContext(ctx), accountID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.ListResponse[domain.CreditCardInvoice]{Data: invoices, Total: len(invoices)})
	}
}

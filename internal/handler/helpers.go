package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/boddenberg/ledger-bfa-go/internal/domain"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// ============================================================
// Shared helper functions
// ============================================================

var validate = validator.New(validator.WithRequiredStructEnabled())

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// decodeBody reads a JSON body into dst and runs its validate tags. The
// first failing field comes back as *domain.ErrValidation.
func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &domain.ErrValidation{Field: "body", Message: "invalid request body"}
	}
	if err := validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return &domain.ErrValidation{Field: lowerFirst(fe.Field()), Message: "failed on '" + fe.Tag() + "'"}
		}
		return &domain.ErrValidation{Field: "body", Message: err.Error()}
	}
	return nil
}

// parseDate accepts RFC 3339 timestamps and plain YYYY-MM-DD days (UTC).
func parseDate(field, v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.DateOnly, v); err == nil {
		return t, nil
	}
	return time.Time{}, &domain.ErrValidation{Field: field, Message: "expected RFC 3339 or YYYY-MM-DD"}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// handleServiceError maps domain errors to HTTP responses: bad input and
// missing resources are 400, auth failures 401, everything else 500.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var provider *domain.ErrDataProvider
	var unexpected *domain.ErrUnexpected

	switch {
	case domain.IsAuthError(err):
		logger.Warn("unauthorized", zap.String("error", err.Error()))
		writeError(w, http.StatusUnauthorized, err.Error())
	case domain.IsClientError(err):
		logger.Debug("client error", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &provider):
		logger.Error("data provider failure", zap.String("operation", provider.Operation), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	case errors.As(err, &unexpected):
		logger.Error("unexpected provider data", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error types for consistent error handling across the ledger.
// Use cases return them as plain errors; callers match with errors.As.

// ============================================================
// Validation errors
// ============================================================

// ErrInvalidName indicates an empty or malformed entity name.
type ErrInvalidName struct {
	Name string
}

func (e *ErrInvalidName) Error() string {
	return fmt.Sprintf("Invalid name: %q", e.Name)
}

// ErrInvalidBalance indicates a balance that is not a whole number of cents.
type ErrInvalidBalance struct {
	Balance float64
}

func (e *ErrInvalidBalance) Error() string {
	return fmt.Sprintf("Invalid balance: %v", e.Balance)
}

// ErrInvalidCreditCard lists every credit card field that failed validation.
type ErrInvalidCreditCard struct {
	Fields []string
}

func (e *ErrInvalidCreditCard) Error() string {
	return "Invalid credit card: " + strings.Join(e.Fields, ", ")
}

// ErrInvalidInstitution indicates a missing or unknown institution.
type ErrInvalidInstitution struct {
	Institution string
}

func (e *ErrInvalidInstitution) Error() string {
	if e.Institution == "" {
		return "Invalid institution"
	}
	return fmt.Sprintf("Invalid institution: %s", e.Institution)
}

// ErrInvalidAccount indicates an account missing a required field.
type ErrInvalidAccount struct {
	Message string
}

func (e *ErrInvalidAccount) Error() string {
	return e.Message
}

// ErrInvalidTransaction indicates a transaction rejected by validation.
type ErrInvalidTransaction struct {
	Message string
}

func (e *ErrInvalidTransaction) Error() string {
	return "Invalid transaction: " + e.Message
}

// ErrValidation indicates a malformed request field (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ============================================================
// Not-found errors
// ============================================================

type ErrUnregisteredUser struct {
	ID string
}

func (e *ErrUnregisteredUser) Error() string {
	return fmt.Sprintf("Unregistered user: %s", e.ID)
}

type ErrUnregisteredAccount struct {
	ID string
}

func (e *ErrUnregisteredAccount) Error() string {
	return fmt.Sprintf("Unregistered account: %s", e.ID)
}

type ErrUnregisteredCategory struct {
	ID string
}

func (e *ErrUnregisteredCategory) Error() string {
	return fmt.Sprintf("Unregistered category: %s", e.ID)
}

type ErrUnregisteredTransaction struct {
	ID string
}

func (e *ErrUnregisteredTransaction) Error() string {
	return fmt.Sprintf("Unregistered transaction: %s", e.ID)
}

type ErrUnregisteredInstitution struct {
	ID string
}

func (e *ErrUnregisteredInstitution) Error() string {
	return fmt.Sprintf("Unregistered institution: %s", e.ID)
}

// ============================================================
// External / unexpected errors
// ============================================================

// ErrDataProvider wraps any failure talking to the financial data provider.
type ErrDataProvider struct {
	Operation string
	Err       error
}

func (e *ErrDataProvider) Error() string {
	return fmt.Sprintf("data provider error [%s]: %v", e.Operation, e.Err)
}

func (e *ErrDataProvider) Unwrap() error {
	return e.Err
}

// ErrUnexpected indicates provider data inconsistent with the request.
type ErrUnexpected struct {
	Message string
}

func (e *ErrUnexpected) Error() string {
	return "Unexpected error: " + e.Message
}

// ============================================================
// Auth errors
// ============================================================

type ErrInvalidToken struct {
	Reason string
}

func (e *ErrInvalidToken) Error() string {
	if e.Reason != "" {
		return "Invalid token: " + e.Reason
	}
	return "Invalid token"
}

type ErrUserNotFound struct {
	Email string
}

func (e *ErrUserNotFound) Error() string {
	return fmt.Sprintf("User not found: %s", e.Email)
}

type ErrWrongPassword struct{}

func (e *ErrWrongPassword) Error() string {
	return "Wrong password"
}

// ErrConflict indicates a resource already exists (e.g. duplicate e-mail).
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	return e.Message
}

// IsClientError reports whether err is caused by bad input or a missing
// resource, as opposed to an unexpected or provider-side failure.
func IsClientError(err error) bool {
	var (
		invalidName        *ErrInvalidName
		invalidBalance     *ErrInvalidBalance
		invalidCreditCard  *ErrInvalidCreditCard
		invalidInstitution *ErrInvalidInstitution
		invalidAccount     *ErrInvalidAccount
		invalidTransaction *ErrInvalidTransaction
		validation         *ErrValidation
		user               *ErrUnregisteredUser
		account            *ErrUnregisteredAccount
		category           *ErrUnregisteredCategory
		transaction        *ErrUnregisteredTransaction
		institution        *ErrUnregisteredInstitution
		conflict           *ErrConflict
	)
	return errors.As(err, &invalidName) ||
		errors.As(err, &invalidBalance) ||
		errors.As(err, &invalidCreditCard) ||
		errors.As(err, &invalidInstitution) ||
		errors.As(err, &invalidAccount) ||
		errors.As(err, &invalidTransaction) ||
		errors.As(err, &validation) ||
		errors.As(err, &user) ||
		errors.As(err, &account) ||
		errors.As(err, &category) ||
		errors.As(err, &transaction) ||
		errors.As(err, &institution) ||
		errors.As(err, &conflict)
}

// IsAuthError reports whether err is a token or credential failure.
func IsAuthError(err error) bool {
	var (
		token    *ErrInvalidToken
		notFound *ErrUserNotFound
		password *ErrWrongPassword
	)
	return errors.As(err, &token) || errors.As(err, &notFound) || errors.As(err, &password)
}

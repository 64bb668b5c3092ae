package provider

import (
	"fmt"
	"strconv"
	"time"

	"github.com/boddenberg/ledger-bfa-go/internal/domain"

	"github.com/shopspring/decimal"
)

type authRequest struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
}

type authResponse struct {
	APIKey string `json:"apiKey"`
}

type connectorsPage struct {
	Results []connector `json:"results"`
}

type connector struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	ImageURL     string `json:"imageUrl"`
	PrimaryColor string `json:"primaryColor"`
	Type         string `json:"type"`
}

func (c connector) toDomain() domain.Institution {
	return domain.Institution{
		ID:           strconv.Itoa(c.ID),
		Name:         c.Name,
		ImageURL:     c.ImageURL,
		PrimaryColor: c.PrimaryColor,
		Type:         c.Type,
	}
}

type accountsPage struct {
	Results []account `json:"results"`
}

type account struct {
	ID         string          `json:"id"`
	ItemID     string          `json:"itemId"`
	Type       string          `json:"type"`
	Name       string          `json:"name"`
	Number     string          `json:"number"`
	Balance    decimal.Decimal `json:"balance"`
	CreditData *creditData     `json:"creditData"`
}

type creditData struct {
	Brand                string          `json:"brand"`
	CreditLimit          decimal.Decimal `json:"creditLimit"`
	AvailableCreditLimit decimal.Decimal `json:"availableCreditLimit"`
	BalanceCloseDate     *time.Time      `json:"balanceCloseDate"`
	BalanceDueDate       *time.Time      `json:"balanceDueDate"`
}

func (a account) toDomain() (domain.ProviderAccount, error) {
	balance, err := domain.MoneyFromDecimal(a.Balance)
	if err != nil {
		return domain.ProviderAccount{}, fmt.Errorf("account %s balance %s: %w", a.ID, a.Balance, err)
	}
	out := domain.ProviderAccount{
		ID:      a.ID,
		ItemID:  a.ItemID,
		Type:    a.Type,
		Name:    a.Name,
		Number:  a.Number,
		Balance: balance,
	}
	if a.CreditData != nil {
		limit, err := domain.MoneyFromDecimal(a.CreditData.CreditLimit)
		if err != nil {
			return domain.ProviderAccount{}, fmt.Errorf("account %s credit limit: %w", a.ID, err)
		}
		available, err := domain.MoneyFromDecimal(a.CreditData.AvailableCreditLimit)
		if err != nil {
			return domain.ProviderAccount{}, fmt.Errorf("account %s available limit: %w", a.ID, err)
		}
		out.CreditData = &domain.ProviderCreditData{
			Brand:                a.CreditData.Brand,
			CreditLimit:          limit,
			AvailableCreditLimit: available,
			BalanceCloseDate:     a.CreditData.BalanceCloseDate,
			BalanceDueDate:       a.CreditData.BalanceDueDate,
		}
	}
	return out, nil
}

type transactionsPage struct {
	Total      int           `json:"total"`
	TotalPages int           `json:"totalPages"`
	Page       int           `json:"page"`
	Results    []transaction `json:"results"`
}

// Provider transaction directions. DEBIT leaves the account, whatever the
// sign the provider put on the amount.
const (
	directionDebit  = "DEBIT"
	directionCredit = "CREDIT"
)

type transaction struct {
	ID             string          `json:"id"`
	AccountID      string          `json:"accountId"`
	Amount         decimal.Decimal `json:"amount"`
	Type           string          `json:"type"`
	Description    string          `json:"description"`
	DescriptionRaw string          `json:"descriptionRaw"`
	Date           time.Time       `json:"date"`
	Category       string          `json:"category"`
	Status         string          `json:"status"`
}

// toDomain normalises the amount to the ledger convention: negative for
// money leaving the account.
func (t transaction) toDomain(accountID string) (domain.ProviderTransaction, error) {
	amount, err := domain.MoneyFromDecimal(t.Amount.Abs())
	if err != nil {
		return domain.ProviderTransaction{}, fmt.Errorf("transaction %s amount %s: %w", t.ID, t.Amount, err)
	}
	switch t.Type {
	case directionDebit:
		amount = -amount
	case directionCredit:
	default:
		if t.Amount.IsNegative() {
			amount = -amount
		}
	}
	if t.AccountID != "" {
		accountID = t.AccountID
	}
	return domain.ProviderTransaction{
		ID:             t.ID,
		AccountID:      accountID,
		Amount:         amount,
		Description:    t.Description,
		DescriptionRaw: t.DescriptionRaw,
		Date:           t.Date.UTC(),
		Category:       t.Category,
		Status:         t.Status,
	}, nil
}

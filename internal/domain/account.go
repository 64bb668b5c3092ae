package domain

import (
	"strings"
	"time"
)

// ============================================================
// Accounts
// ============================================================

// AccountType is the closed set of account kinds.
type AccountType string

const (
	AccountWallet     AccountType = "WALLET"
	AccountBank       AccountType = "BANK"
	AccountCreditCard AccountType = "CREDIT_CARD"
)

// SyncType tells whether an account is kept by hand or by the data provider.
type SyncType string

const (
	SyncManual    SyncType = "MANUAL"
	SyncAutomatic SyncType = "AUTOMATIC"
)

// Institution is a financial institution an account belongs to.
type Institution struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ImageURL     string `json:"imageUrl,omitempty"`
	PrimaryColor string `json:"primaryColor,omitempty"`
	Type         string `json:"type,omitempty"`
}

// CreditCardInfo is the limit and billing-cycle state of a credit card.
// AvailableCreditLimit is tracked, not clamped to CreditLimit.
type CreditCardInfo struct {
	Brand                string `json:"brand"`
	CreditLimit          Money  `json:"creditLimit"`
	AvailableCreditLimit Money  `json:"availableCreditLimit"`
	CloseDay             int    `json:"closeDay"`
	DueDay               int    `json:"dueDay"`
}

// Synchronization links an automatic account to the data provider.
type Synchronization struct {
	ProviderAccountID string     `json:"providerAccountId"`
	ProviderItemID    string     `json:"providerItemId"`
	CreatedAt         time.Time  `json:"createdAt"`
	LastSyncAt        *time.Time `json:"lastSyncAt,omitempty"`
}

// AccountData is the persisted form of every account variant.
type AccountData struct {
	ID              string           `json:"id"`
	Type            AccountType      `json:"type"`
	SyncType        SyncType         `json:"syncType"`
	Name            string           `json:"name"`
	Balance         Money            `json:"balance"`
	ImageURL        string           `json:"imageUrl,omitempty"`
	UserID          string           `json:"userId"`
	Institution     *Institution     `json:"institution,omitempty"`
	CreditCardInfo  *CreditCardInfo  `json:"creditCardInfo,omitempty"`
	Synchronization *Synchronization `json:"synchronization,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
}

// CreditCardParams is the raw credit card input, validated as a whole.
type CreditCardParams struct {
	Brand                string
	CreditLimit          float64
	AvailableCreditLimit float64
	CloseDay             int
	DueDay               int
}

// SyncParams is the raw provider link of an automatic account.
type SyncParams struct {
	ProviderAccountID string
	ProviderItemID    string
	CreatedAt         *time.Time
	LastSyncAt        *time.Time
}

// AccountParams is the raw input accepted by the account factories.
type AccountParams struct {
	ID              string
	UserID          string
	Name            string
	Balance         float64
	ImageURL        string
	Institution     *Institution
	CreditCard      *CreditCardParams
	Synchronization *SyncParams
	CreatedAt       time.Time
}

// Account is the behaviour shared by every account variant.
type Account interface {
	ID() string
	Type() AccountType
	SyncType() SyncType
	Name() string
	Balance() Money
	UserID() string
	AddTransaction(tx *Transaction)
	RemoveTransaction(tx *Transaction)
	Data() AccountData
}

type baseAccount struct {
	id          string
	syncType    SyncType
	name        string
	balance     Money
	imageURL    string
	userID      string
	institution *Institution
	createdAt   time.Time
}

func (a *baseAccount) ID() string                { return a.id }
func (a *baseAccount) SyncType() SyncType        { return a.syncType }
func (a *baseAccount) Name() string              { return a.name }
func (a *baseAccount) Balance() Money            { return a.balance }
func (a *baseAccount) UserID() string            { return a.userID }
func (a *baseAccount) Institution() *Institution { return a.institution }

// SetBalance overwrites the balance, used when a source of truth other than
// the transaction stream decides it.
func (a *baseAccount) SetBalance(b Money) { a.balance = b }

func (a *baseAccount) data(t AccountType) AccountData {
	return AccountData{
		ID:          a.id,
		Type:        t,
		SyncType:    a.syncType,
		Name:        a.name,
		Balance:     a.balance,
		ImageURL:    a.imageURL,
		UserID:      a.userID,
		Institution: a.institution,
		CreatedAt:   a.createdAt,
	}
}

// ============================================================
// Wallet
// ============================================================

// WalletAccount is a manual cash account.
type WalletAccount struct {
	baseAccount
}

// NewWalletAccount validates p and builds a wallet.
func NewWalletAccount(p AccountParams) (*WalletAccount, error) {
	base, err := newBase(p, SyncManual)
	if err != nil {
		return nil, err
	}
	return &WalletAccount{baseAccount: *base}, nil
}

func (a *WalletAccount) Type() AccountType { return AccountWallet }

func (a *WalletAccount) AddTransaction(tx *Transaction)    { a.balance += tx.Amount }
func (a *WalletAccount) RemoveTransaction(tx *Transaction) { a.balance -= tx.Amount }

func (a *WalletAccount) Data() AccountData { return a.data(AccountWallet) }

// ============================================================
// Bank
// ============================================================

// BankAccount is a checking or savings account, manual or automatic.
type BankAccount struct {
	baseAccount
	sync *Synchronization
}

// NewManualBankAccount validates p and builds a manual bank account.
func NewManualBankAccount(p AccountParams) (*BankAccount, error) {
	base, err := newBase(p, SyncManual)
	if err != nil {
		return nil, err
	}
	return &BankAccount{baseAccount: *base}, nil
}

// NewAutomaticBankAccount validates p, including its provider link.
func NewAutomaticBankAccount(p AccountParams) (*BankAccount, error) {
	base, err := newBase(p, SyncAutomatic)
	if err != nil {
		return nil, err
	}
	sync, err := validateAutomatic(p)
	if err != nil {
		return nil, err
	}
	return &BankAccount{baseAccount: *base, sync: sync}, nil
}

func (a *BankAccount) Type() AccountType { return AccountBank }

func (a *BankAccount) AddTransaction(tx *Transaction)    { a.balance += tx.Amount }
func (a *BankAccount) RemoveTransaction(tx *Transaction) { a.balance -= tx.Amount }

// Synchronization is nil for manual accounts.
func (a *BankAccount) Synchronization() *Synchronization { return a.sync }

func (a *BankAccount) Data() AccountData {
	d := a.data(AccountBank)
	d.Synchronization = a.sync
	return d
}

// ============================================================
// Credit card
// ============================================================

// CreditCardAccount tracks available limit through its transactions. Its
// balance mirrors the last closed invoice and is set by the caller.
type CreditCardAccount struct {
	baseAccount
	info CreditCardInfo
	sync *Synchronization
}

// NewManualCreditCardAccount validates p and builds a manual credit card.
func NewManualCreditCardAccount(p AccountParams) (*CreditCardAccount, error) {
	base, err := newBase(p, SyncManual)
	if err != nil {
		return nil, err
	}
	info, err := validateCreditCard(p.CreditCard)
	if err != nil {
		return nil, err
	}
	return &CreditCardAccount{baseAccount: *base, info: *info}, nil
}

// NewAutomaticCreditCardAccount validates p, including its provider link.
func NewAutomaticCreditCardAccount(p AccountParams) (*CreditCardAccount, error) {
	base, err := newBase(p, SyncAutomatic)
	if err != nil {
		return nil, err
	}
	info, err := validateCreditCard(p.CreditCard)
	if err != nil {
		return nil, err
	}
	sync, err := validateAutomatic(p)
	if err != nil {
		return nil, err
	}
	return &CreditCardAccount{baseAccount: *base, info: *info, sync: sync}, nil
}

func (a *CreditCardAccount) Type() AccountType { return AccountCreditCard }

// AddTransaction releases limit for income and consumes it for expenses.
func (a *CreditCardAccount) AddTransaction(tx *Transaction) {
	a.info.AvailableCreditLimit += tx.Amount
}

func (a *CreditCardAccount) RemoveTransaction(tx *Transaction) {
	a.info.AvailableCreditLimit -= tx.Amount
}

func (a *CreditCardAccount) CreditCardInfo() CreditCardInfo { return a.info }

// SetCreditCardInfo overwrites limits with values reported by the provider.
func (a *CreditCardAccount) SetCreditCardInfo(info CreditCardInfo) { a.info = info }

func (a *CreditCardAccount) Synchronization() *Synchronization { return a.sync }

func (a *CreditCardAccount) Data() AccountData {
	d := a.data(AccountCreditCard)
	info := a.info
	d.CreditCardInfo = &info
	d.Synchronization = a.sync
	return d
}

// ============================================================
// Factories
// ============================================================

// AccountFromData rebuilds the right account variant from a stored record.
func AccountFromData(d AccountData) (Account, error) {
	p := ParamsFromAccountData(d)
	switch {
	case d.Type == AccountWallet:
		return NewWalletAccount(p)
	case d.Type == AccountBank && d.SyncType == SyncAutomatic:
		return NewAutomaticBankAccount(p)
	case d.Type == AccountBank:
		return NewManualBankAccount(p)
	case d.Type == AccountCreditCard && d.SyncType == SyncAutomatic:
		return NewAutomaticCreditCardAccount(p)
	case d.Type == AccountCreditCard:
		return NewManualCreditCardAccount(p)
	default:
		return nil, &ErrInvalidAccount{Message: "unknown account type: " + string(d.Type)}
	}
}

// ParamsFromAccountData turns a stored record back into factory input.
func ParamsFromAccountData(d AccountData) AccountParams {
	p := AccountParams{
		ID:          d.ID,
		UserID:      d.UserID,
		Name:        d.Name,
		Balance:     float64(d.Balance),
		ImageURL:    d.ImageURL,
		Institution: d.Institution,
		CreatedAt:   d.CreatedAt,
	}
	if d.CreditCardInfo != nil {
		p.CreditCard = &CreditCardParams{
			Brand:                d.CreditCardInfo.Brand,
			CreditLimit:          float64(d.CreditCardInfo.CreditLimit),
			AvailableCreditLimit: float64(d.CreditCardInfo.AvailableCreditLimit),
			CloseDay:             d.CreditCardInfo.CloseDay,
			DueDay:               d.CreditCardInfo.DueDay,
		}
	}
	if d.Synchronization != nil {
		createdAt := d.Synchronization.CreatedAt
		p.Synchronization = &SyncParams{
			ProviderAccountID: d.Synchronization.ProviderAccountID,
			ProviderItemID:    d.Synchronization.ProviderItemID,
			CreatedAt:         &createdAt,
			LastSyncAt:        d.Synchronization.LastSyncAt,
		}
	}
	return p
}

func newBase(p AccountParams, sync SyncType) (*baseAccount, error) {
	if strings.TrimSpace(p.Name) == "" {
		return nil, &ErrInvalidName{Name: p.Name}
	}
	balance, err := NewMoney(p.Balance)
	if err != nil {
		return nil, &ErrInvalidBalance{Balance: p.Balance}
	}
	return &baseAccount{
		id:          p.ID,
		syncType:    sync,
		name:        p.Name,
		balance:     balance,
		imageURL:    p.ImageURL,
		userID:      p.UserID,
		institution: p.Institution,
		createdAt:   p.CreatedAt,
	}, nil
}

// validateCreditCard checks every field at once so the error names all of
// them, in the order brand, closeDay, dueDay, creditLimit, availableCreditLimit.
func validateCreditCard(p *CreditCardParams) (*CreditCardInfo, error) {
	if p == nil {
		return nil, &ErrInvalidCreditCard{Fields: []string{"brand", "closeDay", "dueDay", "creditLimit", "availableCreditLimit"}}
	}
	var invalid []string
	if strings.TrimSpace(p.Brand) == "" {
		invalid = append(invalid, "brand")
	}
	if p.CloseDay < 1 || p.CloseDay > 31 {
		invalid = append(invalid, "closeDay")
	}
	if p.DueDay < 1 || p.DueDay > 31 {
		invalid = append(invalid, "dueDay")
	}
	limit, err := NewMoney(p.CreditLimit)
	if err != nil {
		invalid = append(invalid, "creditLimit")
	}
	available, err := NewMoney(p.AvailableCreditLimit)
	if err != nil {
		invalid = append(invalid, "availableCreditLimit")
	}
	if len(invalid) > 0 {
		return nil, &ErrInvalidCreditCard{Fields: invalid}
	}
	return &CreditCardInfo{
		Brand:                p.Brand,
		CreditLimit:          limit,
		AvailableCreditLimit: available,
		CloseDay:             p.CloseDay,
		DueDay:               p.DueDay,
	}, nil
}

func validateAutomatic(p AccountParams) (*Synchronization, error) {
	if p.Institution == nil {
		return nil, &ErrInvalidInstitution{}
	}
	s := p.Synchronization
	if s == nil || strings.TrimSpace(s.ProviderAccountID) == "" {
		return nil, &ErrInvalidAccount{Message: "providerAccountId is required"}
	}
	if strings.TrimSpace(s.ProviderItemID) == "" {
		return nil, &ErrInvalidAccount{Message: "providerItemId is required"}
	}
	if s.CreatedAt == nil {
		return nil, &ErrInvalidAccount{Message: "createdAt is required"}
	}
	return &Synchronization{
		ProviderAccountID: s.ProviderAccountID,
		ProviderItemID:    s.ProviderItemID,
		CreatedAt:         *s.CreatedAt,
		LastSyncAt:        s.LastSyncAt,
	}, nil
}

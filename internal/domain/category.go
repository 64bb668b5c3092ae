package domain

// CardPaymentCategoryName is the category for settling a credit card bill.
// Transactions tagged with it never count towards an invoice amount.
const CardPaymentCategoryName = "Pagamento de cartão"

// Category tags a transaction for budgeting and reporting.
type Category struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Group        string `json:"group"`
	IconName     string `json:"iconName"`
	PrimaryColor string `json:"primaryColor"`
	Ignored      bool   `json:"ignored"`
}

// IsCardPayment reports whether c is the card-payment category.
func (c *Category) IsCardPayment() bool {
	return c != nil && c.Name == CardPaymentCategoryName
}

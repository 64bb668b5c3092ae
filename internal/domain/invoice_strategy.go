package domain

import "time"

// InvoiceDates is the billing period a credit card purchase falls into.
type InvoiceDates struct {
	ClosingDate time.Time
	DueDate     time.Time
}

// InvoiceStrategy maps a purchase date to its invoice period. Institutions
// may bill differently, so the strategy is chosen per institution.
type InvoiceStrategy interface {
	InvoiceDates(transactionDate time.Time, closeDay, dueDay int) InvoiceDates
}

// NubankInvoiceStrategy: a purchase made strictly before the close day goes
// to the invoice closing that month; on or after it, to the next one. The due
// date is the first due day after the closing date.
//
// All arithmetic is on UTC calendar days. A close or due day past the end of
// a short month is clamped to that month's last day.
type NubankInvoiceStrategy struct{}

func (NubankInvoiceStrategy) InvoiceDates(transactionDate time.Time, closeDay, dueDay int) InvoiceDates {
	t := transactionDate.UTC()
	year, month := t.Year(), t.Month()

	if t.Day() >= clampDay(year, month, closeDay) {
		year, month = addMonths(year, month, 1)
	}
	closing := dateOn(year, month, closeDay)

	dueYear, dueMonth := year, month
	if dueDay <= closeDay {
		dueYear, dueMonth = addMonths(year, month, 1)
	}
	return InvoiceDates{
		ClosingDate: closing,
		DueDate:     dateOn(dueYear, dueMonth, dueDay),
	}
}

// InvoiceStrategies resolves the strategy for an institution, falling back
// to the default when none is registered.
type InvoiceStrategies struct {
	byInstitution map[string]InvoiceStrategy
	fallback      InvoiceStrategy
}

// NewInvoiceStrategies returns a registry with fallback as default.
func NewInvoiceStrategies(fallback InvoiceStrategy) *InvoiceStrategies {
	if fallback == nil {
		fallback = NubankInvoiceStrategy{}
	}
	return &InvoiceStrategies{byInstitution: make(map[string]InvoiceStrategy), fallback: fallback}
}

// Register binds a strategy to an institution id.
func (s *InvoiceStrategies) Register(institutionID string, strategy InvoiceStrategy) {
	s.byInstitution[institutionID] = strategy
}

// For returns the strategy for inst (which may be nil).
func (s *InvoiceStrategies) For(inst *Institution) InvoiceStrategy {
	if inst != nil {
		if strategy, ok := s.byInstitution[inst.ID]; ok {
			return strategy
		}
	}
	return s.fallback
}

func addMonths(year int, month time.Month, n int) (int, time.Month) {
	m := int(month) - 1 + n
	year += m / 12
	m %= 12
	if m < 0 {
		m += 12
		year--
	}
	return year, time.Month(m + 1)
}

func clampDay(year int, month time.Month, day int) int {
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		return last
	}
	return day
}

func dateOn(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, clampDay(year, month, day), 0, 0, 0, 0, time.UTC)
}

package domain

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
)

// ErrFractionalMoney is returned when an amount carries fractions of a minor unit.
var ErrFractionalMoney = errors.New("amount must be a whole number of cents")

// Money is an amount expressed in minor currency units (cents).
type Money int64

// NewMoney builds Money from a raw numeric input (e.g. a JSON number).
// Non-integer or non-finite values are rejected.
func NewMoney(v float64) (Money, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
		return 0, ErrFractionalMoney
	}
	if v >= math.MaxInt64 || v < math.MinInt64 {
		return 0, ErrFractionalMoney
	}
	return Money(int64(v)), nil
}

// MoneyFromDecimal converts a major-unit decimal amount (e.g. 45.67 from a
// data provider) into cents. More than two decimal places is an error.
func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	cents := d.Shift(2)
	if !cents.IsInteger() {
		return 0, ErrFractionalMoney
	}
	return Money(cents.IntPart()), nil
}

// Int64 returns the raw number of cents.
func (m Money) Int64() int64 { return int64(m) }

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -2)
}

// String formats the amount in major units with two decimals.
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

package domain_test

import (
	"math"
	"testing"

	"github.com/boddenberg/ledger-bfa-go/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	tests := []struct {
		in      float64
		want    domain.Money
		wantErr bool
	}{
		{2567, 2567, false},
		{-4567, -4567, false},
		{0, 0, false},
		{10.5, 0, true},
		{math.NaN(), 0, true},
		{math.Inf(1), 0, true},
	}
	for _, tt := range tests {
		got, err := domain.NewMoney(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, domain.ErrFractionalMoney, "input %v", tt.in)
			continue
		}
		require.NoError(t, err, "input %v", tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestMoneyFromDecimal(t *testing.T) {
	m, err := domain.MoneyFromDecimal(decimal.RequireFromString("45.67"))
	require.NoError(t, err)
	assert.Equal(t, domain.Money(4567), m)

	m, err = domain.MoneyFromDecimal(decimal.RequireFromString("-1200"))
	require.NoError(t, err)
	assert.Equal(t, domain.Money(-120000), m)

	_, err = domain.MoneyFromDecimal(decimal.RequireFromString("0.001"))
	assert.ErrorIs(t, err, domain.ErrFractionalMoney)

	assert.Equal(t, "45.67", domain.Money(4567).String())
	assert.Equal(t, "-0.05", domain.Money(-5).String())
}

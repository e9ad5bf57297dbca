package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestFromMinorUnits(t *testing.T) {
	m := FromMinorUnits(135000, "NGN")
	require.True(t, m.Amount.Equal(decimal.NewFromInt(1350)))
	require.Equal(t, int64(135000), m.MinorUnits())
}

func TestRoundHalfUp(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"150.005", "150.01"},
		{"150.004", "150.00"},
		{"149.995", "150.00"},
		{"0.125", "0.13"},
	}
	for _, tc := range tests {
		d, err := decimal.NewFromString(tc.in)
		require.NoError(t, err)
		got := New(d, "NGN").RoundHalfUp()
		require.Equal(t, tc.want, got.Amount.StringFixed(2), "rounding %s", tc.in)
	}
}

func TestCeilToUnit(t *testing.T) {
	d, err := decimal.NewFromString("199.01")
	require.NoError(t, err)
	require.Equal(t, "200", New(d, "NGN").CeilToUnit().Amount.String())

	whole, err := decimal.NewFromString("200.00")
	require.NoError(t, err)
	require.Equal(t, "200", New(whole, "NGN").CeilToUnit().Amount.String())
}

func TestCurrencyMismatch(t *testing.T) {
	ngn := Zero("NGN")
	ghs := Zero("GHS")
	_, err := ngn.Add(ghs)
	require.Error(t, err)
	_, err = ngn.Sub(ghs)
	require.Error(t, err)
}

func TestServiceFeeMath(t *testing.T) {
	// round_half_up(1000 × 0.15) = 150
	overall := New(decimal.NewFromInt(1000), "NGN")
	rate, _ := decimal.NewFromString("0.15")
	fee := overall.MulRate(rate).RoundHalfUp()
	require.Equal(t, "150.00", fee.Amount.StringFixed(2))
}

func TestDivByExact(t *testing.T) {
	delivery := New(decimal.NewFromInt(300), "NGN")
	share := delivery.DivBy(2)
	require.Equal(t, "150.00", share.Amount.StringFixed(2))
}

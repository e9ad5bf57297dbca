package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is a fixed-point amount tagged with a currency. All arithmetic is
// exact; nothing in a money path touches floats.
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// New builds a Money value.
func New(amount decimal.Decimal, currency string) Money {
	return Money{Amount: amount, Currency: currency}
}

// NewFromString parses a decimal string into a Money value.
func NewFromString(amount, currency string) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	return Money{Amount: d, Currency: currency}, nil
}

// Zero returns the zero amount in the given currency.
func Zero(currency string) Money {
	return Money{Amount: decimal.Zero, Currency: currency}
}

// FromMinorUnits converts a gateway minor-unit integer (kobo, cents) into a
// major-unit Money value.
func FromMinorUnits(minor int64, currency string) Money {
	return Money{Amount: decimal.New(minor, -2), Currency: currency}
}

// MinorUnits returns the amount in minor units, rounded half-up.
func (m Money) MinorUnits() int64 {
	return m.Amount.Mul(decimal.New(100, 0)).Round(0).IntPart()
}

func (m Money) sameCurrency(other Money) error {
	if m.Currency != other.Currency {
		return fmt.Errorf("currency mismatch: %s vs %s", m.Currency, other.Currency)
	}
	return nil
}

// Add returns m + other; the currencies must match.
func (m Money) Add(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount.Add(other.Amount), Currency: m.Currency}, nil
}

// Sub returns m − other; the currencies must match.
func (m Money) Sub(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount.Sub(other.Amount), Currency: m.Currency}, nil
}

// MulRate multiplies by a decimal rate (e.g. the 0.15 service-fee rate).
func (m Money) MulRate(rate decimal.Decimal) Money {
	return Money{Amount: m.Amount.Mul(rate), Currency: m.Currency}
}

// DivBy divides the amount evenly across n parts.
func (m Money) DivBy(n int64) Money {
	return Money{Amount: m.Amount.Div(decimal.New(n, 0)), Currency: m.Currency}
}

// RoundHalfUp rounds to the currency's minor unit (2 decimal places),
// half-up, the display rounding used everywhere in price math.
func (m Money) RoundHalfUp() Money {
	return Money{Amount: m.Amount.Round(2), Currency: m.Currency}
}

// CeilToUnit rounds up to the whole currency unit; delivery fees always
// charge full units.
func (m Money) CeilToUnit() Money {
	return Money{Amount: m.Amount.Ceil(), Currency: m.Currency}
}

// Cmp compares amounts; currencies are assumed equal by the caller.
func (m Money) Cmp(other Money) int {
	return m.Amount.Cmp(other.Amount)
}

// GTE reports m ≥ other.
func (m Money) GTE(other Money) bool {
	return m.Amount.GreaterThanOrEqual(other.Amount)
}

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool {
	return m.Amount.IsNegative()
}

// IsZero reports whether the amount equals zero.
func (m Money) IsZero() bool {
	return m.Amount.IsZero()
}

// String renders "1350.00 NGN".
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Amount.StringFixed(2), m.Currency)
}

// RoundHalfUp rounds a bare decimal to 2 places, half-up.
func RoundHalfUp(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// CeilToUnit rounds a bare decimal up to the whole unit.
func CeilToUnit(d decimal.Decimal) decimal.Decimal {
	return d.Ceil()
}

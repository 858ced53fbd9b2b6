package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Cents is a monetary amount in integer minor units of the group's base
// currency. Positive and negative values are both meaningful; see Balance.
type Cents int64

var hundred = decimal.NewFromInt(100)

// CentsFromFloat converts a wire amount in currency units to Cents, rounding
// half away from zero. Residues below half a minor unit collapse to zero,
// which is what retires them from settlement planning.
func CentsFromFloat(amount float64) Cents {
	return Cents(decimal.NewFromFloat(amount).Mul(hundred).Round(0).IntPart())
}

// CentsFromString parses a currency-unit amount like "12.34" into Cents,
// rounding half away from zero.
func CentsFromString(s string) (Cents, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return Cents(d.Mul(hundred).Round(0).IntPart()), nil
}

// Float64 converts back to currency units for the wire.
func (c Cents) Float64() float64 {
	f, _ := decimal.NewFromInt(int64(c)).Div(hundred).Float64()
	return f
}

// Abs returns the magnitude of the amount.
func (c Cents) Abs() Cents {
	if c < 0 {
		return -c
	}
	return c
}

// String formats the amount in currency units with two decimals, e.g. "12.34".
func (c Cents) String() string {
	return decimal.NewFromInt(int64(c)).Div(hundred).StringFixed(2)
}

// Package types provides common type aliases and utilities.
package types

import (
	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

// NewMoney creates a Money value from a float.
// WARNING: Use NewMoneyFromString for precise values.
func NewMoney(f float64) Money {
	return decimal.NewFromFloat(f)
}

// NewMoneyFromString creates a Money value from a string.
// This is the preferred method for monetary values.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

// Percent converts a percentage value (e.g. 17.5) to its fractional
// multiplier (0.175). Discounts and tax rates are stored as percentages.
type Percent = decimal.Decimal

// NewPercent creates a Percent from a float.
func NewPercent(f float64) Percent {
	return decimal.NewFromFloat(f)
}

// Fraction returns p/100 for use as a multiplier.
func Fraction(p Percent) decimal.Decimal {
	return p.Div(decimal.NewFromInt(100))
}

// RoundMoney rounds to 2 decimal places, the precision stored for all
// monetary totals.
func RoundMoney(m Money) Money {
	return m.Round(2)
}

// ClampNonNegative returns zero when m is negative, m otherwise.
// Document totals never go below zero regardless of discounts applied.
func ClampNonNegative(m Money) Money {
	if m.IsNegative() {
		return decimal.Zero
	}
	return m
}

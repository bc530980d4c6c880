// Package types provides common type aliases and utilities.
package types

import (
	"github.com/shopspring/decimal"
)

// VND is a monetary amount in Vietnamese dong.
// The dong has no fractional denomination in retail use, so amounts are
// plain integers. Storage: int64 - sufficient for ±9.2 quintillion VND.
type VND int64

func (v VND) IsZero() bool     { return v == 0 }
func (v VND) IsPositive() bool { return v > 0 }
func (v VND) IsNegative() bool { return v < 0 }
func (v VND) Neg() VND         { return -v }

// Int64 returns the raw amount.
func (v VND) Int64() int64 { return int64(v) }

// Decimal converts the amount to a decimal for cost arithmetic.
func (v VND) Decimal() decimal.Decimal {
	return decimal.NewFromInt(int64(v))
}

// Mul multiplies the amount by an integer quantity.
func (v VND) Mul(qty int64) VND {
	return VND(int64(v) * qty)
}

// Cost is a unit cost with full precision.
// Weighted-average costs are quotients and must not be truncated to whole
// dong between receipts; decimal.Decimal avoids both float drift and
// premature rounding.
type Cost = decimal.Decimal

// NewCostFromString creates a Cost from a string.
// This is the preferred constructor for monetary values.
func NewCostFromString(s string) (Cost, error) {
	return decimal.NewFromString(s)
}

// MustCost creates a Cost from a string, panics on error.
// Use only for constants and tests.
func MustCost(s string) Cost {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// ZeroCost returns the zero Cost value.
func ZeroCost() Cost {
	return decimal.Zero
}

// RoundVND rounds a decimal amount to whole dong, half up.
// decimal.Decimal rounds half away from zero; amounts here are never
// negative, so this is half-up.
func RoundVND(d decimal.Decimal) VND {
	return VND(d.Round(0).IntPart())
}

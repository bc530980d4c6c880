// Package unitconv provides pure conversion logic between a product's two
// coupled units: the large purchasing/storage unit (box, bottle) and the
// small retail/dispensing unit (tablet, ampoule). The two are related by an
// integer conversion factor: small units per one large unit.
//
// All functions are side-effect free. Quantity arithmetic is exact; the only
// rounding happens in SmallUnitPrice, which rounds to whole dong.
package unitconv

import (
	"github.com/shopspring/decimal"

	"medstock/internal/core/apperror"
	"medstock/internal/core/types"
)

// ToSmall converts a large-unit quantity to small units.
// Fails with INVALID_CONVERSION when the factor is malformed and with
// INVALID_INPUT when the quantity is negative.
func ToSmall(qtyLarge, factor int64) (int64, error) {
	if factor < 1 {
		return 0, apperror.NewInvalidConversion(factor)
	}
	if qtyLarge < 0 {
		return 0, apperror.NewInvalidInput("quantity cannot be negative").
			WithDetail("quantity", qtyLarge)
	}
	return qtyLarge * factor, nil
}

// ToLarge converts a small-unit quantity to an exact large-unit quantity.
// Used for valuation, where fractional large units carry real value.
func ToLarge(qtySmall, factor int64) (decimal.Decimal, error) {
	if factor < 1 {
		return decimal.Zero, apperror.NewInvalidConversion(factor)
	}
	return decimal.NewFromInt(qtySmall).Div(decimal.NewFromInt(factor)), nil
}

// FloorLarge returns the number of whole large units contained in a
// small-unit quantity. Used for display and for the availability ceiling of
// large-unit sales: a partially opened box does not count.
func FloorLarge(qtySmall, factor int64) (int64, error) {
	if factor < 1 {
		return 0, apperror.NewInvalidConversion(factor)
	}
	if qtySmall < 0 {
		return 0, apperror.NewInvalidInput("quantity cannot be negative").
			WithDetail("quantity", qtySmall)
	}
	return qtySmall / factor, nil
}

// SmallUnitPrice derives the retail price of one small unit from the
// wholesale price of one large unit. The result is rounded half up to whole
// dong; the function is pure, so repeated computation never drifts.
func SmallUnitPrice(priceLarge types.VND, factor int64) (types.VND, error) {
	if factor < 1 {
		return 0, apperror.NewInvalidConversion(factor)
	}
	if priceLarge.IsNegative() {
		return 0, apperror.NewInvalidInput("price cannot be negative").
			WithDetail("price", priceLarge.Int64())
	}
	price := priceLarge.Decimal().Div(decimal.NewFromInt(factor))
	return types.RoundVND(price), nil
}

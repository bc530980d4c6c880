// Package product provides the Product catalog: one record per distinct
// medicine/SKU, carrying the full stock state for that item.
//
// Stock is held in two coupled units. QuantitySmall (the small retail unit)
// is the single source of truth for on-hand quantity; the large-unit
// quantity is always derived through the conversion factor. AvgCostLarge is
// the weighted-average cost of one large unit and is mutated only by the
// receiving engine.
package product

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"medstock/internal/core/apperror"
	"medstock/internal/core/entity"
	"medstock/internal/core/types"
	"medstock/internal/domain/unitconv"
)

// Product represents a medicine/SKU with its stock record.
type Product struct {
	entity.Catalog

	// Barcode is the item barcode (EAN-13, etc.)
	Barcode *string `db:"barcode" json:"barcode,omitempty"`

	// Unit pair. LargeUnitName is the purchasing/storage unit ("Box"),
	// SmallUnitName the retail/dispensing unit ("Tablet").
	LargeUnitName string `db:"large_unit_name" json:"largeUnitName"`
	SmallUnitName string `db:"small_unit_name" json:"smallUnitName"`

	// ConversionFactor is the number of small units per one large unit.
	// Invariant: >= 1. Immutable once the item has stock or movements.
	ConversionFactor int64 `db:"conversion_factor" json:"conversionFactor"`

	// QuantitySmall is total on-hand stock in small units. Invariant: >= 0,
	// enforced by the storage-level guard on every decrement.
	QuantitySmall int64 `db:"quantity_small" json:"quantitySmall"`

	// AvgCostLarge is the weighted-average cost of one large unit.
	// Updated only by receiving; selling never touches it.
	AvgCostLarge types.Cost `db:"avg_cost_large" json:"avgCostLarge"`

	// Selling prices. RetailPriceSmall is derived from the wholesale price
	// at data-entry time (not re-derived from cost).
	WholesalePriceLarge types.VND `db:"wholesale_price_large" json:"wholesalePriceLarge"`
	RetailPriceSmall    types.VND `db:"retail_price_small" json:"retailPriceSmall"`

	// MinStockSmall is the low-stock threshold in small units.
	MinStockSmall int64 `db:"min_stock_small" json:"minStockSmall"`

	// ExpiryDate is optional; read by the valuation reporter only.
	ExpiryDate *time.Time `db:"expiry_date" json:"expiryDate,omitempty"`

	// Description is a detailed description
	Description *string `db:"description" json:"description,omitempty"`
}

// NewProduct creates a new Product with required fields.
func NewProduct(code, name, largeUnit, smallUnit string, factor int64) *Product {
	return &Product{
		Catalog:          entity.NewCatalog(code, name),
		LargeUnitName:    largeUnit,
		SmallUnitName:    smallUnit,
		ConversionFactor: factor,
		AvgCostLarge:     decimal.Zero,
	}
}

// Validate implements entity.Validatable interface.
func (p *Product) Validate(ctx context.Context) error {
	if err := p.Catalog.Validate(ctx); err != nil {
		return err
	}

	if p.ConversionFactor < 1 {
		return apperror.NewInvalidConversion(p.ConversionFactor).
			WithDetail("field", "conversionFactor")
	}

	if p.LargeUnitName == "" || p.SmallUnitName == "" {
		return apperror.NewValidation("both unit names are required").
			WithDetail("field", "largeUnitName/smallUnitName")
	}

	if p.QuantitySmall < 0 {
		return apperror.NewValidation("stock quantity cannot be negative").
			WithDetail("field", "quantitySmall")
	}

	if p.AvgCostLarge.IsNegative() {
		return apperror.NewValidation("average cost cannot be negative").
			WithDetail("field", "avgCostLarge")
	}

	if p.WholesalePriceLarge.IsNegative() || p.RetailPriceSmall.IsNegative() {
		return apperror.NewValidation("prices cannot be negative").
			WithDetail("field", "wholesalePriceLarge/retailPriceSmall")
	}

	if p.MinStockSmall < 0 {
		return apperror.NewValidation("low-stock threshold cannot be negative").
			WithDetail("field", "minStockSmall")
	}

	return nil
}

// QuantityLargeExact returns on-hand stock in large units, exact.
// Fractional large units (opened boxes) carry real value in valuation.
func (p *Product) QuantityLargeExact() decimal.Decimal {
	qty, err := unitconv.ToLarge(p.QuantitySmall, p.ConversionFactor)
	if err != nil {
		return decimal.Zero
	}
	return qty
}

// QuantityLargeWhole returns the number of whole large units on hand.
func (p *Product) QuantityLargeWhole() int64 {
	qty, err := unitconv.FloorLarge(p.QuantitySmall, p.ConversionFactor)
	if err != nil {
		return 0
	}
	return qty
}

// StockValue returns the item's stock value: exact large quantity times the
// weighted-average large-unit cost.
func (p *Product) StockValue() decimal.Decimal {
	return p.QuantityLargeExact().Mul(p.AvgCostLarge)
}

// IsLowStock reports whether on-hand stock is at or below the item threshold.
func (p *Product) IsLowStock() bool {
	return p.MinStockSmall > 0 && p.QuantitySmall <= p.MinStockSmall
}

// ExpiresWithin reports whether the item expires within d from now.
func (p *Product) ExpiresWithin(d time.Duration) bool {
	if p.ExpiryDate == nil {
		return false
	}
	return p.ExpiryDate.Before(time.Now().Add(d))
}

// DeriveRetailPrice recomputes RetailPriceSmall from the wholesale price.
// Called at data-entry time; never re-derived from cost afterwards.
func (p *Product) DeriveRetailPrice() error {
	price, err := unitconv.SmallUnitPrice(p.WholesalePriceLarge, p.ConversionFactor)
	if err != nil {
		return err
	}
	p.RetailPriceSmall = price
	return nil
}

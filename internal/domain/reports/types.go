// Package reports provides the inventory valuation report.
package reports

import (
	"time"

	"medstock/internal/core/id"
	"medstock/internal/core/types"
)

// --- Valuation Report ---

// ValuationFilter defines filters for the valuation report.
type ValuationFilter struct {
	// Search matches product code/name/barcode
	Search string

	// ProductIDs restricts to specific products
	ProductIDs []id.ID

	// ExcludeZero drops products with no stock
	ExcludeZero bool

	// OnlyFlagged keeps only low-stock or expiring rows
	OnlyFlagged bool

	// ExpiryHorizon marks rows expiring within this window (default 90 days)
	ExpiryHorizon time.Duration

	// Pagination
	Limit  int
	Offset int
}

// ValuationRow is one product in the valuation report.
type ValuationRow struct {
	ProductID   id.ID   `json:"productId"`
	ProductCode string  `json:"productCode"`
	ProductName string  `json:"productName"`
	Barcode     *string `json:"barcode,omitempty"`

	LargeUnitName    string `json:"largeUnitName"`
	SmallUnitName    string `json:"smallUnitName"`
	ConversionFactor int64  `json:"conversionFactor"`

	// Quantities: raw small units plus the display split into whole large
	// units and the loose small remainder ("12 boxes + 7 tablets")
	QuantitySmall  int64 `json:"quantitySmall"`
	WholeLarge     int64 `json:"wholeLarge"`
	RemainderSmall int64 `json:"remainderSmall"`

	// Value: exact (fractional) large quantity times weighted-average cost,
	// rounded to whole dong
	AvgCostLarge types.Cost `json:"avgCostLarge"`
	StockValue   types.VND  `json:"stockValue"`

	// Flags
	LowStock      bool       `json:"lowStock"`
	MinStockSmall int64      `json:"minStockSmall"`
	ExpiringSoon  bool       `json:"expiringSoon"`
	ExpiryDate    *time.Time `json:"expiryDate,omitempty"`
}

// ValuationReport is the full report with summary totals.
type ValuationReport struct {
	AsOf       time.Time      `json:"asOf"`
	Items      []ValuationRow `json:"items"`
	TotalItems int64          `json:"totalItems"`

	// Summary
	TotalValue    types.VND `json:"totalValue"`
	LowStockCount int       `json:"lowStockCount"`
	ExpiringCount int       `json:"expiringCount"`
}

// Source is the raw product state the repository feeds a report row from.
type Source struct {
	ProductID        id.ID      `db:"id"`
	Code             string     `db:"code"`
	Name             string     `db:"name"`
	Barcode          *string    `db:"barcode"`
	LargeUnitName    string     `db:"large_unit_name"`
	SmallUnitName    string     `db:"small_unit_name"`
	ConversionFactor int64      `db:"conversion_factor"`
	QuantitySmall    int64      `db:"quantity_small"`
	AvgCostLarge     types.Cost `db:"avg_cost_large"`
	MinStockSmall    int64      `db:"min_stock_small"`
	ExpiryDate       *time.Time `db:"expiry_date"`
}

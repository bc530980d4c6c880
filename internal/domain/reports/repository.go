package reports

import (
	"context"

	"medstock/internal/core/types"
)

// Repository supplies raw product state for report building.
type Repository interface {
	// GetValuationSources returns product rows matching the filter along
	// with the unpaginated total count. Summary totals are computed over
	// the whole match, not just the returned page, by the service.
	GetValuationSources(ctx context.Context, filter ValuationFilter) ([]Source, int64, error)

	// GetValuationTotals returns summary aggregates over every row the
	// filter matches, ignoring pagination.
	GetValuationTotals(ctx context.Context, filter ValuationFilter) (ValuationTotals, error)
}

// ValuationTotals are filter-wide aggregates for the report header.
type ValuationTotals struct {
	TotalItems int64

	// TotalValue is Σ exact-large-quantity × avg-cost-large, unrounded
	TotalValue types.Cost

	LowStockCount int
	ExpiringCount int
}

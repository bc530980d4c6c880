package dto

import (
	"strings"
	"time"

	"medstock/internal/core/id"
	"medstock/internal/domain/reports"
)

// ValuationFilterRequest holds query parameters for the valuation report.
type ValuationFilterRequest struct {
	Search      string `form:"search"`
	ProductIDs  string `form:"productIds"` // comma-separated
	ExcludeZero bool   `form:"excludeZero"`
	OnlyFlagged bool   `form:"onlyFlagged"`
	ExpiryDays  int    `form:"expiryDays"`
	Limit       int    `form:"limit"`
	Offset      int    `form:"offset"`
}

// ToFilter converts query parameters to the domain filter.
func (r *ValuationFilterRequest) ToFilter() reports.ValuationFilter {
	filter := reports.ValuationFilter{
		Search:      r.Search,
		ExcludeZero: r.ExcludeZero,
		OnlyFlagged: r.OnlyFlagged,
		Limit:       r.Limit,
		Offset:      r.Offset,
	}

	if r.ExpiryDays > 0 {
		filter.ExpiryHorizon = time.Duration(r.ExpiryDays) * 24 * time.Hour
	}

	if r.ProductIDs != "" {
		for _, raw := range strings.Split(r.ProductIDs, ",") {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			if parsed, err := id.Parse(raw); err == nil {
				filter.ProductIDs = append(filter.ProductIDs, parsed)
			}
		}
	}

	return filter
}

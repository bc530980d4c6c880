package reports

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"medstock/internal/core/types"
	"medstock/internal/domain/unitconv"
)

// DefaultExpiryHorizon marks products expiring within 90 days.
const DefaultExpiryHorizon = 90 * 24 * time.Hour

// Service builds valuation reports from raw product state.
type Service struct {
	repo Repository
}

// NewService creates a new reports service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// GetValuation builds the inventory valuation report: per product the whole
// large / loose small split, the stock value at weighted-average cost, and
// low-stock/expiry flags; plus filter-wide summary totals.
func (s *Service) GetValuation(ctx context.Context, filter ValuationFilter) (*ValuationReport, error) {
	if filter.ExpiryHorizon <= 0 {
		filter.ExpiryHorizon = DefaultExpiryHorizon
	}
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	if filter.Limit > 1000 {
		filter.Limit = 1000
	}

	sources, _, err := s.repo.GetValuationSources(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("get valuation sources: %w", err)
	}

	totals, err := s.repo.GetValuationTotals(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("get valuation totals: %w", err)
	}

	now := time.Now().UTC()
	report := &ValuationReport{
		AsOf:          now,
		Items:         make([]ValuationRow, 0, len(sources)),
		TotalItems:    totals.TotalItems,
		TotalValue:    types.RoundVND(totals.TotalValue),
		LowStockCount: totals.LowStockCount,
		ExpiringCount: totals.ExpiringCount,
	}

	cutoff := now.Add(filter.ExpiryHorizon)
	for _, src := range sources {
		report.Items = append(report.Items, buildRow(src, cutoff))
	}

	return report, nil
}

// buildRow turns raw product state into a report row.
func buildRow(src Source, expiryCutoff time.Time) ValuationRow {
	row := ValuationRow{
		ProductID:        src.ProductID,
		ProductCode:      src.Code,
		ProductName:      src.Name,
		Barcode:          src.Barcode,
		LargeUnitName:    src.LargeUnitName,
		SmallUnitName:    src.SmallUnitName,
		ConversionFactor: src.ConversionFactor,
		QuantitySmall:    src.QuantitySmall,
		AvgCostLarge:     src.AvgCostLarge,
		MinStockSmall:    src.MinStockSmall,
		ExpiryDate:       src.ExpiryDate,
	}

	if whole, err := unitconv.FloorLarge(src.QuantitySmall, src.ConversionFactor); err == nil {
		row.WholeLarge = whole
		row.RemainderSmall = src.QuantitySmall - whole*src.ConversionFactor
	}

	if exact, err := unitconv.ToLarge(src.QuantitySmall, src.ConversionFactor); err == nil {
		row.StockValue = types.RoundVND(exact.Mul(src.AvgCostLarge))
	}

	row.LowStock = src.MinStockSmall > 0 && src.QuantitySmall <= src.MinStockSmall
	row.ExpiringSoon = src.ExpiryDate != nil && src.ExpiryDate.Before(expiryCutoff)

	return row
}

// csvHeader for valuation export.
var csvHeader = []string{
	"code", "name", "barcode",
	"large_unit", "small_unit", "conversion_factor",
	"quantity_small", "whole_large", "remainder_small",
	"avg_cost_large", "stock_value",
	"low_stock", "expiring_soon", "expiry_date",
}

// ExportValuationCSV streams the valuation report as CSV. Pagination is
// ignored: the export always covers everything the filter matches.
func (s *Service) ExportValuationCSV(ctx context.Context, filter ValuationFilter, w io.Writer) error {
	if filter.ExpiryHorizon <= 0 {
		filter.ExpiryHorizon = DefaultExpiryHorizon
	}
	filter.Limit = 0
	filter.Offset = 0

	sources, _, err := s.repo.GetValuationSources(ctx, filter)
	if err != nil {
		return fmt.Errorf("get valuation sources: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	cutoff := time.Now().UTC().Add(filter.ExpiryHorizon)
	for _, src := range sources {
		row := buildRow(src, cutoff)

		barcode := ""
		if row.Barcode != nil {
			barcode = *row.Barcode
		}
		expiry := ""
		if row.ExpiryDate != nil {
			expiry = row.ExpiryDate.Format("2006-01-02")
		}

		record := []string{
			row.ProductCode,
			row.ProductName,
			barcode,
			row.LargeUnitName,
			row.SmallUnitName,
			strconv.FormatInt(row.ConversionFactor, 10),
			strconv.FormatInt(row.QuantitySmall, 10),
			strconv.FormatInt(row.WholeLarge, 10),
			strconv.FormatInt(row.RemainderSmall, 10),
			row.AvgCostLarge.StringFixed(2),
			strconv.FormatInt(row.StockValue.Int64(), 10),
			strconv.FormatBool(row.LowStock),
			strconv.FormatBool(row.ExpiringSoon),
			expiry,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

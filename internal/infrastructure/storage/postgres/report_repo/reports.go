// Package report_repo provides PostgreSQL queries for report building.
package report_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"medstock/internal/domain/reports"
	"medstock/internal/infrastructure/storage/postgres"
)

var sourceColumns = []string{
	"id", "code", "name", "barcode",
	"large_unit_name", "small_unit_name", "conversion_factor",
	"quantity_small", "avg_cost_large", "min_stock_small", "expiry_date",
}

// ReportRepo implements reports.Repository for PostgreSQL.
type ReportRepo struct {
	txManager *postgres.TxManager
}

// NewReportRepo creates a new report repository.
func NewReportRepo(txManager *postgres.TxManager) *ReportRepo {
	return &ReportRepo{txManager: txManager}
}

func (r *ReportRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// filtered applies the shared valuation filter conditions.
func (r *ReportRepo) filtered(q squirrel.SelectBuilder, filter reports.ValuationFilter, expiryCutoff time.Time) squirrel.SelectBuilder {
	q = q.Where(squirrel.Eq{"deletion_mark": false})

	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"name": pattern},
			squirrel.ILike{"code": pattern},
			squirrel.ILike{"barcode": pattern},
		})
	}
	if len(filter.ProductIDs) > 0 {
		q = q.Where(squirrel.Eq{"id": filter.ProductIDs})
	}
	if filter.ExcludeZero {
		q = q.Where(squirrel.Gt{"quantity_small": 0})
	}
	if filter.OnlyFlagged {
		q = q.Where(squirrel.Or{
			squirrel.And{
				squirrel.Gt{"min_stock_small": 0},
				squirrel.Expr("quantity_small <= min_stock_small"),
			},
			squirrel.And{
				squirrel.NotEq{"expiry_date": nil},
				squirrel.Lt{"expiry_date": expiryCutoff},
			},
		})
	}

	return q
}

// GetValuationSources returns the page of raw product rows for the report.
func (r *ReportRepo) GetValuationSources(ctx context.Context, filter reports.ValuationFilter) ([]reports.Source, int64, error) {
	cutoff := time.Now().UTC().Add(filter.ExpiryHorizon)

	q := r.filtered(r.builder().Select(sourceColumns...).From("cat_product"), filter, cutoff).
		OrderBy("name ASC")

	countQ := r.builder().Select("COUNT(*)").FromSelect(q, "sub")
	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	var total int64
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count: %w", err)
	}

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build query: %w", err)
	}

	var sources []reports.Source
	if err := pgxscan.Select(ctx, querier, &sources, sql, args...); err != nil {
		return nil, 0, fmt.Errorf("get valuation sources: %w", err)
	}

	return sources, total, nil
}

// GetValuationTotals aggregates over every matching row, ignoring
// pagination. Stock value is the exact fractional large quantity times the
// average cost, summed in numeric precision.
func (r *ReportRepo) GetValuationTotals(ctx context.Context, filter reports.ValuationFilter) (reports.ValuationTotals, error) {
	var totals reports.ValuationTotals
	cutoff := time.Now().UTC().Add(filter.ExpiryHorizon)

	q := r.filtered(
		r.builder().Select(
			"COUNT(*) AS total_items",
			"COALESCE(SUM((quantity_small::numeric / conversion_factor) * avg_cost_large), 0) AS total_value",
			"COUNT(*) FILTER (WHERE min_stock_small > 0 AND quantity_small <= min_stock_small) AS low_stock_count",
		).Column(squirrel.Expr(
			"COUNT(*) FILTER (WHERE expiry_date IS NOT NULL AND expiry_date < ?) AS expiring_count", cutoff,
		)).From("cat_product"),
		filter, cutoff,
	)

	sql, args, err := q.ToSql()
	if err != nil {
		return totals, fmt.Errorf("build query: %w", err)
	}

	err = r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(
		&totals.TotalItems, &totals.TotalValue,
		&totals.LowStockCount, &totals.ExpiringCount,
	)
	if err != nil {
		return totals, fmt.Errorf("get valuation totals: %w", err)
	}

	return totals, nil
}

// Ensure interface compliance at compile time.
var _ reports.Repository = (*ReportRepo)(nil)

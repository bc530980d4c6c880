// Package stock_repo provides the PostgreSQL stock ledger.
//
// Quantity lives on the product row and changes only through ApplyDelta's
// single guarded UPDATE. The guard (quantity_small + delta >= 0) is checked
// by the database inside the row-level write lock, so two concurrent sales
// can both pass validation but only one can take the last units.
package stock_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"medstock/internal/core/apperror"
	"medstock/internal/core/id"
	"medstock/internal/core/types"
	"medstock/internal/domain/stock"
	"medstock/internal/infrastructure/storage/postgres"
)

const tableName = "cat_product"

var levelColumns = []string{"id", "conversion_factor", "quantity_small", "avg_cost_large"}

// StockRepo implements stock.Repository for PostgreSQL.
type StockRepo struct {
	txManager *postgres.TxManager
}

// NewStockRepo creates a new stock repository.
func NewStockRepo(txManager *postgres.TxManager) *StockRepo {
	return &StockRepo{txManager: txManager}
}

func (r *StockRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// ApplyDelta atomically adjusts stock and returns the new quantity.
//
// The WHERE clause carries the non-negative guard, so a decrement that
// would overdraw matches zero rows and leaves the row untouched. A zero-row
// outcome on an existing product means stock moved under us; callers see
// CONCURRENT_MODIFICATION and must re-validate.
func (r *StockRepo) ApplyDelta(ctx context.Context, productID id.ID, deltaSmall int64) (int64, error) {
	const sql = `
		UPDATE cat_product
		SET quantity_small = quantity_small + $1
		WHERE id = $2 AND quantity_small + $1 >= 0
		RETURNING quantity_small
	`

	var newQty int64
	err := r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, deltaSmall, productID).Scan(&newQty)
	if err == nil {
		return newQty, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("apply stock delta: %w", err)
	}

	// Guard rejected or product missing; tell them apart.
	exists, err := r.exists(ctx, productID)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, apperror.NewNotFound("product", productID.String())
	}
	return 0, apperror.NewConcurrentModification("stock", productID.String()).
		WithDetail("delta_small", deltaSmall)
}

// SetCost overwrites the weighted-average cost. Callers hold the row lock.
func (r *StockRepo) SetCost(ctx context.Context, productID id.ID, avgCostLarge types.Cost) error {
	q := r.builder().
		Update(tableName).
		Set("avg_cost_large", avgCostLarge).
		Where(squirrel.Eq{"id": productID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("set cost: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("product", productID.String())
	}
	return nil
}

// GetLevel returns the current stock snapshot.
func (r *StockRepo) GetLevel(ctx context.Context, productID id.ID) (stock.Level, error) {
	return r.getLevel(ctx, productID, false)
}

// GetLevelForUpdate returns the snapshot with a row lock.
func (r *StockRepo) GetLevelForUpdate(ctx context.Context, productID id.ID) (stock.Level, error) {
	return r.getLevel(ctx, productID, true)
}

func (r *StockRepo) getLevel(ctx context.Context, productID id.ID, forUpdate bool) (stock.Level, error) {
	var level stock.Level

	q := r.builder().
		Select(levelColumns...).
		From(tableName).
		Where(squirrel.Eq{"id": productID})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return level, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &level, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return level, apperror.NewNotFound("product", productID.String())
		}
		return level, fmt.Errorf("get stock level: %w", err)
	}

	return level, nil
}

// GetLevels returns snapshots for multiple products at once.
func (r *StockRepo) GetLevels(ctx context.Context, productIDs []id.ID) (map[id.ID]stock.Level, error) {
	if len(productIDs) == 0 {
		return map[id.ID]stock.Level{}, nil
	}

	q := r.builder().
		Select(levelColumns...).
		From(tableName).
		Where(squirrel.Eq{"id": productIDs})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var levels []stock.Level
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &levels, sql, args...); err != nil {
		return nil, fmt.Errorf("get stock levels: %w", err)
	}

	result := make(map[id.ID]stock.Level, len(levels))
	for _, level := range levels {
		result[level.ProductID] = level
	}
	return result, nil
}

func (r *StockRepo) exists(ctx context.Context, productID id.ID) (bool, error) {
	q := r.builder().
		Select("1").
		From(tableName).
		Where(squirrel.Eq{"id": productID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var one int
	err = r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("exists: %w", err)
	}
	return true, nil
}

// Ensure interface compliance at compile time.
var _ stock.Repository = (*StockRepo)(nil)

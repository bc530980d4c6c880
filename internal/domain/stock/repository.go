// Package stock provides the on-hand quantity ledger: availability checks
// per unit mode and atomic guarded deltas against product stock.
package stock

import (
	"context"

	"medstock/internal/core/id"
	"medstock/internal/core/types"
)

// Level is a product's current stock snapshot.
type Level struct {
	ProductID        id.ID      `db:"id"`
	ConversionFactor int64      `db:"conversion_factor"`
	QuantitySmall    int64      `db:"quantity_small"`
	AvgCostLarge     types.Cost `db:"avg_cost_large"`
}

// Repository defines storage operations on stock levels.
//
// ApplyDelta is the only way quantity changes. It must be a single guarded
// atomic statement (qty = qty + delta where qty + delta >= 0), never a
// read-modify-write, so concurrent sales cannot both pass a check and
// oversell. A guard rejection surfaces as CONCURRENT_MODIFICATION.
type Repository interface {
	// ApplyDelta atomically adjusts stock by deltaSmall (small units, signed)
	// and returns the new quantity. Fails without modifying anything when the
	// result would go negative.
	ApplyDelta(ctx context.Context, productID id.ID, deltaSmall int64) (int64, error)

	// SetCost overwrites the weighted-average large-unit cost.
	// Callers must hold the product row lock (GetLevelForUpdate).
	SetCost(ctx context.Context, productID id.ID, avgCostLarge types.Cost) error

	// GetLevel returns the current stock snapshot
	GetLevel(ctx context.Context, productID id.ID) (Level, error)

	// GetLevelForUpdate returns the snapshot with a row lock.
	// Must be called inside a transaction; serializes cost updates.
	GetLevelForUpdate(ctx context.Context, productID id.ID) (Level, error)

	// GetLevels returns snapshots for multiple products at once
	GetLevels(ctx context.Context, productIDs []id.ID) (map[id.ID]Level, error)
}

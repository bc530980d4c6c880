package product

import (
	"context"
	"time"

	"medstock/internal/core/id"
	"medstock/internal/domain"
)

// Repository defines storage operations for products.
type Repository interface {
	domain.CatalogRepository[*Product]

	// FindByBarcode looks up a product by its barcode
	FindByBarcode(ctx context.Context, barcode string) (*Product, error)

	// GetForUpdate retrieves a product with a row lock.
	// Must be called inside a transaction; receiving uses it to serialize
	// weighted-average cost updates per product.
	GetForUpdate(ctx context.Context, id id.ID) (*Product, error)

	// FindLowStock returns products at or below their low-stock threshold
	FindLowStock(ctx context.Context) ([]*Product, error)

	// FindExpiring returns products whose expiry date falls before the cutoff
	FindExpiring(ctx context.Context, before time.Time) ([]*Product, error)
}

package catalog_repo

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"

	"medstock/internal/domain/catalogs/product"
	"medstock/internal/infrastructure/storage/postgres"
)

// productColumns is computed once from the entity's db tags.
var productColumns = postgres.ExtractDBColumns[product.Product]()

// ProductRepo implements product.Repository for PostgreSQL.
type ProductRepo struct {
	*BaseCatalogRepo[*product.Product]
}

// NewProductRepo creates a new product repository.
func NewProductRepo(txManager *postgres.TxManager) *ProductRepo {
	base := NewBaseCatalogRepo(
		txManager,
		"cat_product",
		productColumns,
		func() *product.Product { return &product.Product{} },
	)

	// The stock ledger owns these columns; a card edit must never write back
	// the stale values it loaded while sales and receipts run concurrently.
	base.ExcludeFromUpdate("quantity_small", "avg_cost_large")

	return &ProductRepo{BaseCatalogRepo: base}
}

// FindByBarcode retrieves a product by barcode.
func (r *ProductRepo) FindByBarcode(ctx context.Context, barcode string) (*product.Product, error) {
	q := r.Builder().
		Select(productColumns...).
		From("cat_product").
		Where(squirrel.Eq{"barcode": barcode}).
		Where(squirrel.Eq{"deletion_mark": false}).
		Limit(1)

	return r.FindOne(ctx, q)
}

// FindLowStock retrieves products at or below their low-stock threshold.
func (r *ProductRepo) FindLowStock(ctx context.Context) ([]*product.Product, error) {
	q := r.Builder().
		Select(productColumns...).
		From("cat_product").
		Where(squirrel.Eq{"deletion_mark": false}).
		Where(squirrel.Gt{"min_stock_small": 0}).
		Where(squirrel.Expr("quantity_small <= min_stock_small")).
		OrderBy("name ASC")

	return r.FindMany(ctx, q)
}

// FindExpiring retrieves products whose expiry date falls before the cutoff.
func (r *ProductRepo) FindExpiring(ctx context.Context, before time.Time) ([]*product.Product, error) {
	q := r.Builder().
		Select(productColumns...).
		From("cat_product").
		Where(squirrel.Eq{"deletion_mark": false}).
		Where(squirrel.NotEq{"expiry_date": nil}).
		Where(squirrel.Lt{"expiry_date": before}).
		OrderBy("expiry_date ASC")

	return r.FindMany(ctx, q)
}

// Ensure interface compliance at compile time.
var _ product.Repository = (*ProductRepo)(nil)

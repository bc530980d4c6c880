package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"medstock/internal/core/apperror"
	"medstock/internal/core/id"
	"medstock/internal/core/types"
	"medstock/internal/domain/catalogs/customer"
	"medstock/internal/infrastructure/storage/postgres"
)

var customerColumns = postgres.ExtractDBColumns[customer.Customer]()

// CustomerRepo implements customer.Repository for PostgreSQL.
type CustomerRepo struct {
	*BaseCatalogRepo[*customer.Customer]
}

// NewCustomerRepo creates a new customer repository.
func NewCustomerRepo(txManager *postgres.TxManager) *CustomerRepo {
	base := NewBaseCatalogRepo(
		txManager,
		"cat_customer",
		customerColumns,
		func() *customer.Customer { return &customer.Customer{} },
	)

	// Owned by AddToLifetimeTotal's atomic increment; a card edit must not
	// write back the value it loaded.
	base.ExcludeFromUpdate("lifetime_total")

	return &CustomerRepo{BaseCatalogRepo: base}
}

// FindByPhone retrieves a customer by phone number.
func (r *CustomerRepo) FindByPhone(ctx context.Context, phone string) (*customer.Customer, error) {
	q := r.Builder().
		Select(customerColumns...).
		From("cat_customer").
		Where(squirrel.Eq{"phone": phone}).
		Where(squirrel.Eq{"deletion_mark": false}).
		Limit(1)

	return r.FindOne(ctx, q)
}

// AddToLifetimeTotal atomically increments the lifetime purchase total.
// Single UPDATE, never read-modify-write.
func (r *CustomerRepo) AddToLifetimeTotal(ctx context.Context, customerID id.ID, amount types.VND) error {
	q := r.Builder().
		Update("cat_customer").
		Set("lifetime_total", squirrel.Expr("lifetime_total + ?", amount.Int64())).
		Where(squirrel.Eq{"id": customerID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.Querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("add to lifetime total: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("customer", customerID.String())
	}

	return nil
}

// Ensure interface compliance at compile time.
var _ customer.Repository = (*CustomerRepo)(nil)

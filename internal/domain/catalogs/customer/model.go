// Package customer provides the Customer catalog for the selling engine.
package customer

import (
	"context"

	"medstock/internal/core/apperror"
	"medstock/internal/core/entity"
	"medstock/internal/core/types"
)

// Customer represents a buyer. Walk-in sales carry no customer at all;
// a record exists only for named/repeat customers.
type Customer struct {
	entity.Catalog

	// Contact information
	Phone   *string `db:"phone" json:"phone,omitempty"`
	Email   *string `db:"email" json:"email,omitempty"`
	Address *string `db:"address" json:"address,omitempty"`

	// LifetimeTotal accumulates the grand totals of this customer's applied
	// invoices. Updated best-effort after commit; not part of the stock
	// consistency contract.
	LifetimeTotal types.VND `db:"lifetime_total" json:"lifetimeTotal"`

	// Comment is free-form notes
	Comment *string `db:"comment" json:"comment,omitempty"`
}

// NewCustomer creates a new Customer with required fields.
func NewCustomer(code, name string) *Customer {
	return &Customer{
		Catalog: entity.NewCatalog(code, name),
	}
}

// Validate implements entity.Validatable interface.
func (c *Customer) Validate(ctx context.Context) error {
	if err := c.Catalog.Validate(ctx); err != nil {
		return err
	}

	if c.LifetimeTotal.IsNegative() {
		return apperror.NewValidation("lifetime total cannot be negative").
			WithDetail("field", "lifetimeTotal")
	}

	return nil
}

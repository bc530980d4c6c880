package customer

import (
	"context"

	"medstock/internal/core/id"
	"medstock/internal/core/types"
	"medstock/internal/domain"
)

// Repository defines storage operations for customers.
type Repository interface {
	domain.CatalogRepository[*Customer]

	// FindByPhone looks up a customer by phone number
	FindByPhone(ctx context.Context, phone string) (*Customer, error)

	// AddToLifetimeTotal atomically increments the lifetime purchase total.
	// An atomic increment, not read-modify-write, so concurrent invoice
	// commits never lose an update.
	AddToLifetimeTotal(ctx context.Context, id id.ID, amount types.VND) error
}

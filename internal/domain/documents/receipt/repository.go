package receipt

import (
	"context"
	"time"

	"medstock/internal/core/id"
	"medstock/internal/domain"
)

// Repository defines storage operations for receipt documents.
type Repository interface {
	// CRUD operations
	Create(ctx context.Context, doc *StockReceipt) error
	GetByID(ctx context.Context, docID id.ID) (*StockReceipt, error)
	GetByNumber(ctx context.Context, number string) (*StockReceipt, error)
	Update(ctx context.Context, doc *StockReceipt) error

	// Line operations
	GetLines(ctx context.Context, docID id.ID) ([]Line, error)
	SaveLines(ctx context.Context, docID id.ID, lines []Line) error

	// List operations
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*StockReceipt], error)
}

// ListFilter for filtering receipts.
type ListFilter struct {
	domain.ListFilter

	ProductID *id.ID
	Reversed  *bool
	DateFrom  *time.Time
	DateTo    *time.Time
}

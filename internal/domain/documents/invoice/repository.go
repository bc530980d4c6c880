package invoice

import (
	"context"
	"time"

	"medstock/internal/core/id"
	"medstock/internal/domain"
)

// Repository defines storage operations for invoice documents.
type Repository interface {
	// CRUD operations
	Create(ctx context.Context, doc *SalesInvoice) error
	GetByID(ctx context.Context, docID id.ID) (*SalesInvoice, error)
	GetByNumber(ctx context.Context, number string) (*SalesInvoice, error)

	// Line operations
	GetLines(ctx context.Context, docID id.ID) ([]Line, error)
	SaveLines(ctx context.Context, docID id.ID, lines []Line) error

	// MarkLineApplied conditionally flips the applied flag (applied = false
	// guard) and reports whether this call flipped it. Running inside the
	// same transaction as the stock decrement makes redrive idempotent.
	MarkLineApplied(ctx context.Context, lineID id.ID) (bool, error)

	// MarkLineUnapplied flips an applied line back (applied = true guard).
	// Used by void.
	MarkLineUnapplied(ctx context.Context, lineID id.ID) (bool, error)

	// SetStatus transitions the invoice status
	SetStatus(ctx context.Context, docID id.ID, status Status) error

	// FindPending returns pending invoices older than the cutoff, for the
	// recovery worker
	FindPending(ctx context.Context, olderThan time.Time, limit int) ([]*SalesInvoice, error)

	// List operations
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*SalesInvoice], error)
}

// ListFilter for filtering invoices.
type ListFilter struct {
	domain.ListFilter

	CustomerID *id.ID
	ProductID  *id.ID
	Status     *Status
	DateFrom   *time.Time
	DateTo     *time.Time
}

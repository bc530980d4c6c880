// Package invoice provides the SalesInvoice document and the selling engine:
// cart validation per unit mode, the two-phase commit against stock, and the
// redrive/void recovery paths.
package invoice

import (
	"context"
	"time"

	"medstock/internal/core/apperror"
	"medstock/internal/core/entity"
	"medstock/internal/core/id"
	"medstock/internal/core/types"
	"medstock/internal/domain/stock"
)

// Status of an invoice within the commit protocol.
type Status string

const (
	// StatusPending: invoice durably written, stock decrements not yet (all)
	// applied. The recovery worker picks these up.
	StatusPending Status = "pending"

	// StatusApplied: every line's decrement has been applied.
	StatusApplied Status = "applied"

	// StatusPartiallyApplied: a redrive pass could not apply every remaining
	// line. Needs operator attention.
	StatusPartiallyApplied Status = "partially_applied"

	// StatusVoided: the invoice was cancelled; applied decrements were
	// returned to stock.
	StatusVoided Status = "voided"
)

// SalesInvoice represents a sale to a customer.
type SalesInvoice struct {
	entity.Document

	// CustomerID is optional; walk-in sales have none
	CustomerID *id.ID `db:"customer_id" json:"customerId,omitempty"`

	// EmployeeName identifies who rang up the sale. Free text; staff are not
	// a managed catalog.
	EmployeeName *string `db:"employee_name" json:"employeeName,omitempty"`

	Status Status `db:"status" json:"status"`

	// TotalAmount is the sum of line totals
	TotalAmount types.VND `db:"total_amount" json:"totalAmount"`

	AppliedAt *time.Time `db:"applied_at" json:"appliedAt,omitempty"`
	VoidedAt  *time.Time `db:"voided_at" json:"voidedAt,omitempty"`

	// Table part: sold goods
	Lines []Line `db:"-" json:"lines"`
}

// Line represents one sold product.
type Line struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	ProductID id.ID `db:"product_id" json:"productId"`

	// Quantity in the unit the sale was made in. Invariant: > 0.
	Quantity int64          `db:"quantity" json:"quantity"`
	UnitMode stock.UnitMode `db:"unit_mode" json:"unitMode"`

	// UnitPrice is the price of one unit in UnitMode; LineTotal is
	// Quantity * UnitPrice. Both fixed at validation time.
	UnitPrice types.VND `db:"unit_price" json:"unitPrice"`
	LineTotal types.VND `db:"line_total" json:"lineTotal"`

	// DeltaSmall is the stock decrement in small units, computed once at
	// validation so redrive never re-derives it from a possibly changed
	// conversion factor.
	DeltaSmall int64 `db:"delta_small" json:"deltaSmall"`

	// Applied flags whether this line's decrement has hit stock. The flag
	// flips in the same transaction as the decrement, which is what makes
	// redrive idempotent.
	Applied bool `db:"applied" json:"applied"`
}

// NewSalesInvoice creates a new invoice document in pending status.
func NewSalesInvoice(customerID *id.ID) *SalesInvoice {
	return &SalesInvoice{
		Document:   entity.NewDocument(),
		CustomerID: customerID,
		Status:     StatusPending,
		Lines:      make([]Line, 0),
	}
}

// AddLine adds a cart line. Price, total and delta are filled during cart
// validation.
func (inv *SalesInvoice) AddLine(productID id.ID, quantity int64, mode stock.UnitMode) {
	inv.Lines = append(inv.Lines, Line{
		LineID:    id.New(),
		LineNo:    len(inv.Lines) + 1,
		ProductID: productID,
		Quantity:  quantity,
		UnitMode:  mode,
	})
}

// AppliedCount returns how many lines have been applied to stock.
func (inv *SalesInvoice) AppliedCount() int {
	n := 0
	for _, line := range inv.Lines {
		if line.Applied {
			n++
		}
	}
	return n
}

// Validate implements entity.Validatable. Checks shape only; stock and
// pricing checks live in the service's cart validation.
func (inv *SalesInvoice) Validate(ctx context.Context) error {
	if err := inv.Document.Validate(ctx); err != nil {
		return err
	}

	if len(inv.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").
			WithDetail("field", "lines")
	}

	for _, line := range inv.Lines {
		if id.IsNil(line.ProductID) {
			return apperror.NewValidation("product is required").
				WithDetail("field", "lines").
				WithDetail("lineNo", line.LineNo)
		}
		if line.Quantity <= 0 {
			return apperror.NewInvalidInput("quantity must be positive").
				WithDetail("field", "lines").
				WithDetail("lineNo", line.LineNo)
		}
		if !line.UnitMode.Valid() {
			return apperror.NewInvalidInput("unknown unit mode").
				WithDetail("field", "lines").
				WithDetail("lineNo", line.LineNo).
				WithDetail("unitMode", string(line.UnitMode))
		}
	}

	return nil
}

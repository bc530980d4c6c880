// Package receipt provides the StockReceipt document: goods arriving from a
// supplier, always in whole large units, folded into the product's
// weighted-average cost.
package receipt

import (
	"context"
	"time"

	"medstock/internal/core/apperror"
	"medstock/internal/core/entity"
	"medstock/internal/core/id"
	"medstock/internal/core/types"
)

// StockReceipt represents a goods receipt from a supplier.
type StockReceipt struct {
	entity.Document

	// SupplierName is free text; suppliers are not a managed catalog
	SupplierName *string `db:"supplier_name" json:"supplierName,omitempty"`

	// SupplierDocNumber is the supplier's own invoice/delivery note number
	SupplierDocNumber *string `db:"supplier_doc_number" json:"supplierDocNumber,omitempty"`

	// Totals (calculated from lines)
	TotalQuantityLarge int64     `db:"total_quantity_large" json:"totalQuantityLarge"`
	TotalAmount        types.VND `db:"total_amount" json:"totalAmount"`

	// Reversed marks a receipt whose stock and cost effects were rolled back
	Reversed   bool       `db:"reversed" json:"reversed"`
	ReversedAt *time.Time `db:"reversed_at" json:"reversedAt,omitempty"`

	// Table part: received goods
	Lines []Line `db:"-" json:"lines"`
}

// Line represents one received product.
type Line struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	ProductID id.ID `db:"product_id" json:"productId"`

	// QuantityLarge is received quantity in whole large units. Invariant: > 0.
	QuantityLarge int64 `db:"quantity_large" json:"quantityLarge"`

	// UnitCostLarge is the purchase cost of one large unit. Invariant: > 0.
	UnitCostLarge types.VND `db:"unit_cost_large" json:"unitCostLarge"`

	// Amount is QuantityLarge * UnitCostLarge
	Amount types.VND `db:"amount" json:"amount"`

	// Cost snapshots around the weighted-average update, kept for audit and
	// for reversing the receipt later.
	CostBefore types.Cost `db:"cost_before" json:"costBefore"`
	CostAfter  types.Cost `db:"cost_after" json:"costAfter"`

	// QuantityAfterSmall is the stock level right after this line applied,
	// in small units. The entry screen shows it next to the new cost.
	QuantityAfterSmall int64 `db:"quantity_after_small" json:"quantityAfterSmall"`
}

// NewStockReceipt creates a new receipt document.
func NewStockReceipt() *StockReceipt {
	return &StockReceipt{
		Document: entity.NewDocument(),
		Lines:    make([]Line, 0),
	}
}

// AddLine adds a line and recalculates totals.
func (r *StockReceipt) AddLine(productID id.ID, quantityLarge int64, unitCostLarge types.VND) {
	line := Line{
		LineID:        id.New(),
		LineNo:        len(r.Lines) + 1,
		ProductID:     productID,
		QuantityLarge: quantityLarge,
		UnitCostLarge: unitCostLarge,
		Amount:        unitCostLarge.Mul(quantityLarge),
	}

	r.Lines = append(r.Lines, line)
	r.recalculateTotals()
}

func (r *StockReceipt) recalculateTotals() {
	r.TotalQuantityLarge = 0
	r.TotalAmount = 0

	for _, line := range r.Lines {
		r.TotalQuantityLarge += line.QuantityLarge
		r.TotalAmount += line.Amount
	}
}

// Validate implements entity.Validatable.
func (r *StockReceipt) Validate(ctx context.Context) error {
	if err := r.Document.Validate(ctx); err != nil {
		return err
	}

	if len(r.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").
			WithDetail("field", "lines")
	}

	for _, line := range r.Lines {
		if id.IsNil(line.ProductID) {
			return apperror.NewValidation("product is required").
				WithDetail("field", "lines").
				WithDetail("lineNo", line.LineNo)
		}
		if line.QuantityLarge <= 0 {
			return apperror.NewInvalidInput("received quantity must be positive").
				WithDetail("field", "lines").
				WithDetail("lineNo", line.LineNo)
		}
		if !line.UnitCostLarge.IsPositive() {
			return apperror.NewInvalidInput("unit cost must be positive").
				WithDetail("field", "lines").
				WithDetail("lineNo", line.LineNo)
		}
	}

	return nil
}

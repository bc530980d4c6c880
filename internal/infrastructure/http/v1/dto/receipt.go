package dto

import (
	"time"

	"medstock/internal/core/id"
	"medstock/internal/core/types"
	"medstock/internal/domain/documents/receipt"
)

// --- Request DTOs ---

// ReceiptLineRequest is one received product line.
type ReceiptLineRequest struct {
	ProductID     string    `json:"productId" binding:"required"`
	QuantityLarge int64     `json:"quantityLarge" binding:"required"`
	UnitCostLarge types.VND `json:"unitCostLarge" binding:"required"`
}

// CreateReceiptRequest is the request body for receiving goods.
type CreateReceiptRequest struct {
	Date              *time.Time           `json:"date"`
	SupplierName      *string              `json:"supplierName"`
	SupplierDocNumber *string              `json:"supplierDocNumber"`
	Comment           string               `json:"comment"`
	Lines             []ReceiptLineRequest `json:"lines" binding:"required,min=1"`
}

// ToEntity converts DTO to domain entity. Invalid product IDs surface later
// as validation errors on the nil ID.
func (r *CreateReceiptRequest) ToEntity() *receipt.StockReceipt {
	doc := receipt.NewStockReceipt()
	if r.Date != nil {
		doc.Date = *r.Date
	}
	doc.SupplierName = r.SupplierName
	doc.SupplierDocNumber = r.SupplierDocNumber
	doc.Comment = r.Comment

	for _, line := range r.Lines {
		productID, err := id.Parse(line.ProductID)
		if err != nil {
			productID = id.Nil()
		}
		doc.AddLine(productID, line.QuantityLarge, line.UnitCostLarge)
	}

	return doc
}

// --- Response DTOs ---

// ReceiptLineResponse is one received product line. QuantityAfterSmall is
// the resulting stock level, shown on the entry screen next to the new cost.
type ReceiptLineResponse struct {
	LineID             string     `json:"lineId"`
	LineNo             int        `json:"lineNo"`
	ProductID          string     `json:"productId"`
	QuantityLarge      int64      `json:"quantityLarge"`
	UnitCostLarge      types.VND  `json:"unitCostLarge"`
	Amount             types.VND  `json:"amount"`
	CostBefore         types.Cost `json:"costBefore"`
	CostAfter          types.Cost `json:"costAfter"`
	QuantityAfterSmall int64      `json:"quantityAfterSmall"`
}

// ReceiptResponse is the response body for a stock receipt.
type ReceiptResponse struct {
	DocumentResponse
	SupplierName       *string               `json:"supplierName,omitempty"`
	SupplierDocNumber  *string               `json:"supplierDocNumber,omitempty"`
	TotalQuantityLarge int64                 `json:"totalQuantityLarge"`
	TotalAmount        types.VND             `json:"totalAmount"`
	Reversed           bool                  `json:"reversed"`
	ReversedAt         *time.Time            `json:"reversedAt,omitempty"`
	Lines              []ReceiptLineResponse `json:"lines"`
}

// FromReceipt converts domain entity to response DTO.
func FromReceipt(doc *receipt.StockReceipt) *ReceiptResponse {
	lines := make([]ReceiptLineResponse, len(doc.Lines))
	for i, line := range doc.Lines {
		lines[i] = ReceiptLineResponse{
			LineID:             line.LineID.String(),
			LineNo:             line.LineNo,
			ProductID:          line.ProductID.String(),
			QuantityLarge:      line.QuantityLarge,
			UnitCostLarge:      line.UnitCostLarge,
			Amount:             line.Amount,
			CostBefore:         line.CostBefore,
			CostAfter:          line.CostAfter,
			QuantityAfterSmall: line.QuantityAfterSmall,
		}
	}

	return &ReceiptResponse{
		DocumentResponse:   FromDocument(doc.Document),
		SupplierName:       doc.SupplierName,
		SupplierDocNumber:  doc.SupplierDocNumber,
		TotalQuantityLarge: doc.TotalQuantityLarge,
		TotalAmount:        doc.TotalAmount,
		Reversed:           doc.Reversed,
		ReversedAt:         doc.ReversedAt,
		Lines:              lines,
	}
}

// ReceiptListResponse wraps a page of receipts.
type ReceiptListResponse struct {
	Items      []*ReceiptResponse `json:"items"`
	TotalCount int64              `json:"totalCount"`
	Limit      int                `json:"limit"`
	Offset     int                `json:"offset"`
}

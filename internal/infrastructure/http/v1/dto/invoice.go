package dto

import (
	"time"

	"medstock/internal/core/id"
	"medstock/internal/core/types"
	"medstock/internal/domain/documents/invoice"
	"medstock/internal/domain/stock"
)

// --- Request DTOs ---

// InvoiceLineRequest is one cart line. Quantity is in the unit the sale is
// made in; price comes from the product card, never from the client.
type InvoiceLineRequest struct {
	ProductID string         `json:"productId" binding:"required"`
	Quantity  int64          `json:"quantity" binding:"required"`
	UnitMode  stock.UnitMode `json:"unitMode" binding:"required"`
}

// CreateInvoiceRequest is the request body for committing a sale.
type CreateInvoiceRequest struct {
	CustomerID   *string              `json:"customerId"`
	EmployeeName *string              `json:"employeeName"`
	Date         *time.Time           `json:"date"`
	Comment      string               `json:"comment"`
	Lines        []InvoiceLineRequest `json:"lines" binding:"required,min=1"`
}

// ToEntity converts DTO to domain entity.
func (r *CreateInvoiceRequest) ToEntity() *invoice.SalesInvoice {
	var customerID *id.ID
	if r.CustomerID != nil && *r.CustomerID != "" {
		if parsed, err := id.Parse(*r.CustomerID); err == nil {
			customerID = &parsed
		}
	}

	doc := invoice.NewSalesInvoice(customerID)
	doc.EmployeeName = r.EmployeeName
	if r.Date != nil {
		doc.Date = *r.Date
	}
	doc.Comment = r.Comment

	for _, line := range r.Lines {
		productID, err := id.Parse(line.ProductID)
		if err != nil {
			productID = id.Nil()
		}
		doc.AddLine(productID, line.Quantity, line.UnitMode)
	}

	return doc
}

// ValidateCartRequest reuses the invoice shape for dry-run cart validation.
type ValidateCartRequest = CreateInvoiceRequest

// --- Response DTOs ---

// InvoiceLineResponse is one sold product line.
type InvoiceLineResponse struct {
	LineID     string         `json:"lineId"`
	LineNo     int            `json:"lineNo"`
	ProductID  string         `json:"productId"`
	Quantity   int64          `json:"quantity"`
	UnitMode   stock.UnitMode `json:"unitMode"`
	UnitPrice  types.VND      `json:"unitPrice"`
	LineTotal  types.VND      `json:"lineTotal"`
	DeltaSmall int64          `json:"deltaSmall"`
	Applied    bool           `json:"applied"`
}

// InvoiceResponse is the response body for a sales invoice.
type InvoiceResponse struct {
	DocumentResponse
	CustomerID   *string               `json:"customerId,omitempty"`
	EmployeeName *string               `json:"employeeName,omitempty"`
	Status       invoice.Status        `json:"status"`
	TotalAmount  types.VND             `json:"totalAmount"`
	AppliedAt    *time.Time            `json:"appliedAt,omitempty"`
	VoidedAt     *time.Time            `json:"voidedAt,omitempty"`
	Lines        []InvoiceLineResponse `json:"lines"`
}

// FromInvoice converts domain entity to response DTO.
func FromInvoice(doc *invoice.SalesInvoice) *InvoiceResponse {
	lines := make([]InvoiceLineResponse, len(doc.Lines))
	for i, line := range doc.Lines {
		lines[i] = InvoiceLineResponse{
			LineID:     line.LineID.String(),
			LineNo:     line.LineNo,
			ProductID:  line.ProductID.String(),
			Quantity:   line.Quantity,
			UnitMode:   line.UnitMode,
			UnitPrice:  line.UnitPrice,
			LineTotal:  line.LineTotal,
			DeltaSmall: line.DeltaSmall,
			Applied:    line.Applied,
		}
	}

	var customerID *string
	if doc.CustomerID != nil {
		s := doc.CustomerID.String()
		customerID = &s
	}

	return &InvoiceResponse{
		DocumentResponse: FromDocument(doc.Document),
		CustomerID:       customerID,
		EmployeeName:     doc.EmployeeName,
		Status:           doc.Status,
		TotalAmount:      doc.TotalAmount,
		AppliedAt:        doc.AppliedAt,
		VoidedAt:         doc.VoidedAt,
		Lines:            lines,
	}
}

// InvoiceListResponse wraps a page of invoices.
type InvoiceListResponse struct {
	Items      []*InvoiceResponse `json:"items"`
	TotalCount int64              `json:"totalCount"`
	Limit      int                `json:"limit"`
	Offset     int                `json:"offset"`
}

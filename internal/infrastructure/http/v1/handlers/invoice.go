package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"medstock/internal/core/apperror"
	"medstock/internal/core/id"
	"medstock/internal/domain"
	"medstock/internal/domain/documents/invoice"
	"medstock/internal/infrastructure/http/v1/dto"
	"medstock/internal/infrastructure/storage/postgres"
)

// InvoiceHandler handles HTTP requests for SalesInvoice documents.
type InvoiceHandler struct {
	*BaseHandler
	service *invoice.Service
	audit   *postgres.AuditService
}

// NewInvoiceHandler creates a new invoice handler.
func NewInvoiceHandler(base *BaseHandler, service *invoice.Service, audit *postgres.AuditService) *InvoiceHandler {
	return &InvoiceHandler{
		BaseHandler: base,
		service:     service,
		audit:       audit,
	}
}

// ValidateCart handles POST /document/invoices/validate - dry-run cart
// check. Prices and availability are evaluated but nothing is written.
func (h *InvoiceHandler) ValidateCart(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.ValidateCartRequest
	if !h.BindJSON(c, &req) {
		return
	}

	doc := req.ToEntity()

	if err := h.service.ValidateCart(ctx, doc); err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromInvoice(doc))
}

// Create handles POST /document/invoices - commit a sale.
// The invoice is written first, then stock decrements apply; a failure after
// the write leaves the invoice pending for the recovery worker.
func (h *InvoiceHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateInvoiceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	doc := req.ToEntity()

	if err := h.service.Commit(ctx, doc); err != nil {
		h.Error(c, err)
		return
	}

	h.AuditDocument(c, h.audit, "document.sales_invoice", doc.ID, postgres.AuditActionCommit, doc)

	response := dto.FromInvoice(doc)
	h.CompleteIdempotency(c, http.StatusCreated, "application/json", response)
	c.JSON(http.StatusCreated, response)
}

// Get handles GET /document/invoices/:id.
func (h *InvoiceHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	docID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	doc, err := h.service.GetByID(ctx, docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromInvoice(doc))
}

// Redrive handles POST /document/invoices/:id/redrive - re-apply the
// unapplied lines of a pending or partially applied invoice.
func (h *InvoiceHandler) Redrive(c *gin.Context) {
	ctx := c.Request.Context()

	docID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	if err := h.service.Redrive(ctx, docID); err != nil {
		h.Error(c, err)
		return
	}

	doc, err := h.service.GetByID(ctx, docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.AuditDocument(c, h.audit, "document.sales_invoice", doc.ID, postgres.AuditActionRedrive, doc)

	response := dto.FromInvoice(doc)
	h.CompleteIdempotency(c, http.StatusOK, "application/json", response)
	c.JSON(http.StatusOK, response)
}

// Void handles POST /document/invoices/:id/void - cancel the invoice and
// return applied decrements to stock.
func (h *InvoiceHandler) Void(c *gin.Context) {
	ctx := c.Request.Context()

	docID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	if err := h.service.Void(ctx, docID); err != nil {
		h.Error(c, err)
		return
	}

	doc, err := h.service.GetByID(ctx, docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.AuditDocument(c, h.audit, "document.sales_invoice", doc.ID, postgres.AuditActionVoid, doc)

	response := dto.FromInvoice(doc)
	h.CompleteIdempotency(c, http.StatusOK, "application/json", response)
	c.JSON(http.StatusOK, response)
}

// List handles GET /document/invoices - list with filtering.
func (h *InvoiceHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	filter := invoice.ListFilter{
		ListFilter: domain.DefaultListFilter(),
	}
	filter.Search = c.Query("search")
	filter.Limit = h.ParseIntQuery(c, "limit", 50)
	filter.Offset = h.ParseIntQuery(c, "offset", 0)
	filter.OrderBy = c.DefaultQuery("orderBy", "-date")
	filter.IncludeDeleted = c.Query("includeDeleted") == "true"

	if customerID := c.Query("customerId"); customerID != "" {
		if parsed, err := id.Parse(customerID); err == nil {
			filter.CustomerID = &parsed
		}
	}

	if productID := c.Query("productId"); productID != "" {
		if parsed, err := id.Parse(productID); err == nil {
			filter.ProductID = &parsed
		}
	}

	if status := c.Query("status"); status != "" {
		val := invoice.Status(status)
		filter.Status = &val
	}

	if dateFrom := c.Query("dateFrom"); dateFrom != "" {
		if parsed, err := time.Parse(time.RFC3339, dateFrom); err == nil {
			filter.DateFrom = &parsed
		}
	}

	if dateTo := c.Query("dateTo"); dateTo != "" {
		if parsed, err := time.Parse(time.RFC3339, dateTo); err == nil {
			filter.DateTo = &parsed
		}
	}

	result, err := h.service.List(ctx, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]*dto.InvoiceResponse, len(result.Items))
	for i, doc := range result.Items {
		items[i] = dto.FromInvoice(doc)
	}

	c.JSON(http.StatusOK, dto.InvoiceListResponse{
		Items:      items,
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// RegisterRoutes registers invoice routes.
func (h *InvoiceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.POST("/validate", h.ValidateCart)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/redrive", h.Redrive)
	rg.POST("/:id/void", h.Void)
}

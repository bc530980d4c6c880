package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"medstock/internal/core/apperror"
	"medstock/internal/core/id"
	"medstock/internal/domain"
	"medstock/internal/domain/documents/receipt"
	"medstock/internal/infrastructure/http/v1/dto"
	"medstock/internal/infrastructure/storage/postgres"
)

// ReceiptHandler handles HTTP requests for StockReceipt documents.
type ReceiptHandler struct {
	*BaseHandler
	service *receipt.Service
	audit   *postgres.AuditService
}

// NewReceiptHandler creates a new receipt handler.
func NewReceiptHandler(base *BaseHandler, service *receipt.Service, audit *postgres.AuditService) *ReceiptHandler {
	return &ReceiptHandler{
		BaseHandler: base,
		service:     service,
		audit:       audit,
	}
}

// Create handles POST /document/receipts - receive goods.
// Stock and cost effects apply atomically with the document write.
func (h *ReceiptHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateReceiptRequest
	if !h.BindJSON(c, &req) {
		return
	}

	doc := req.ToEntity()

	if err := h.service.Receive(ctx, doc); err != nil {
		h.Error(c, err)
		return
	}

	h.AuditDocument(c, h.audit, "document.stock_receipt", doc.ID, postgres.AuditActionReceive, doc)

	response := dto.FromReceipt(doc)
	h.CompleteIdempotency(c, http.StatusCreated, "application/json", response)
	c.JSON(http.StatusCreated, response)
}

// Get handles GET /document/receipts/:id.
func (h *ReceiptHandler) Get(c *gin.Context) {
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

	c.JSON(http.StatusOK, dto.FromReceipt(doc))
}

// Reverse handles POST /document/receipts/:id/reverse - roll back a
// mistaken receipt's stock and cost effects.
func (h *ReceiptHandler) Reverse(c *gin.Context) {
	ctx := c.Request.Context()

	docID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	if err := h.service.Reverse(ctx, docID); err != nil {
		h.Error(c, err)
		return
	}

	doc, err := h.service.GetByID(ctx, docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.AuditDocument(c, h.audit, "document.stock_receipt", doc.ID, postgres.AuditActionReverse, doc)

	response := dto.FromReceipt(doc)
	h.CompleteIdempotency(c, http.StatusOK, "application/json", response)
	c.JSON(http.StatusOK, response)
}

// List handles GET /document/receipts - list with filtering.
func (h *ReceiptHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	filter := receipt.ListFilter{
		ListFilter: domain.DefaultListFilter(),
	}
	filter.Search = c.Query("search")
	filter.Limit = h.ParseIntQuery(c, "limit", 50)
	filter.Offset = h.ParseIntQuery(c, "offset", 0)
	filter.OrderBy = c.DefaultQuery("orderBy", "-date")
	filter.IncludeDeleted = c.Query("includeDeleted") == "true"

	if productID := c.Query("productId"); productID != "" {
		if parsed, err := id.Parse(productID); err == nil {
			filter.ProductID = &parsed
		}
	}

	if reversed := c.Query("reversed"); reversed != "" {
		val := reversed == "true"
		filter.Reversed = &val
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

	items := make([]*dto.ReceiptResponse, len(result.Items))
	for i, doc := range result.Items {
		items[i] = dto.FromReceipt(doc)
	}

	c.JSON(http.StatusOK, dto.ReceiptListResponse{
		Items:      items,
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// RegisterRoutes registers receipt routes.
func (h *ReceiptHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/reverse", h.Reverse)
}

package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"medstock/internal/core/apperror"
	"medstock/internal/domain/catalogs/product"
	"medstock/internal/infrastructure/http/v1/dto"
)

// ProductHandler handles HTTP requests for the Product catalog.
type ProductHandler struct {
	*CatalogHandler[*product.Product, dto.CreateProductRequest, dto.UpdateProductRequest]
	service *product.Service
}

// NewProductHandler creates a new product handler.
func NewProductHandler(base *BaseHandler, service *product.Service) *ProductHandler {
	cfg := CatalogHandlerConfig[*product.Product, dto.CreateProductRequest, dto.UpdateProductRequest]{
		Service:    service.CatalogService,
		EntityName: "product",
		MapCreateDTO: func(req dto.CreateProductRequest) *product.Product {
			return req.ToEntity()
		},
		MapUpdateDTO: func(req dto.UpdateProductRequest, existing *product.Product) *product.Product {
			req.ApplyTo(existing)
			return existing
		},
		MapToDTO: func(item *product.Product) any {
			return dto.FromProduct(item)
		},
	}

	return &ProductHandler{
		CatalogHandler: NewCatalogHandler(base, cfg),
		service:        service,
	}
}

// GetByBarcode handles GET /catalog/products/barcode/:barcode - barcode scan lookup.
func (h *ProductHandler) GetByBarcode(c *gin.Context) {
	ctx := c.Request.Context()

	barcode := c.Param("barcode")
	if barcode == "" {
		h.Error(c, apperror.NewValidation("barcode is required"))
		return
	}

	item, err := h.service.FindByBarcode(ctx, barcode)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromProduct(item))
}

// LowStock handles GET /catalog/products/low-stock - items at or below threshold.
func (h *ProductHandler) LowStock(c *gin.Context) {
	ctx := c.Request.Context()

	items, err := h.service.FindLowStock(ctx)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.respondItems(c, items)
}

// Expiring handles GET /catalog/products/expiring?days=90 - items expiring soon.
func (h *ProductHandler) Expiring(c *gin.Context) {
	ctx := c.Request.Context()

	days := h.ParseIntQuery(c, "days", 90)
	before := time.Now().UTC().Add(time.Duration(days) * 24 * time.Hour)

	items, err := h.service.FindExpiring(ctx, before)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.respondItems(c, items)
}

func (h *ProductHandler) respondItems(c *gin.Context, items []*product.Product) {
	dtos := make([]*dto.ProductResponse, len(items))
	for i, item := range items {
		dtos[i] = dto.FromProduct(item)
	}
	c.JSON(http.StatusOK, gin.H{"items": dtos})
}

// RegisterRoutes registers product routes.
func (h *ProductHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/low-stock", h.LowStock)
	rg.GET("/expiring", h.Expiring)
	rg.GET("/barcode/:barcode", h.GetByBarcode)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
	rg.POST("/:id/deletion-mark", h.SetDeletionMark)
}

package dto

import (
	"time"

	"medstock/internal/core/types"
	"medstock/internal/domain/catalogs/product"
)

// --- Request DTOs ---

// CreateProductRequest is the request body for creating a product.
type CreateProductRequest struct {
	Code                string     `json:"code"`
	Name                string     `json:"name" binding:"required"`
	Barcode             *string    `json:"barcode"`
	LargeUnitName       string     `json:"largeUnitName" binding:"required"`
	SmallUnitName       string     `json:"smallUnitName" binding:"required"`
	ConversionFactor    int64      `json:"conversionFactor" binding:"required"`
	WholesalePriceLarge types.VND  `json:"wholesalePriceLarge"`
	RetailPriceSmall    *types.VND `json:"retailPriceSmall"`
	MinStockSmall       int64      `json:"minStockSmall"`
	ExpiryDate          *time.Time `json:"expiryDate"`
	Description         *string    `json:"description"`
}

// ToEntity converts DTO to domain entity.
func (r *CreateProductRequest) ToEntity() *product.Product {
	item := product.NewProduct(r.Code, r.Name, r.LargeUnitName, r.SmallUnitName, r.ConversionFactor)
	item.Barcode = r.Barcode
	item.WholesalePriceLarge = r.WholesalePriceLarge
	if r.RetailPriceSmall != nil {
		item.RetailPriceSmall = *r.RetailPriceSmall
	}
	item.MinStockSmall = r.MinStockSmall
	item.ExpiryDate = r.ExpiryDate
	item.Description = r.Description
	return item
}

// UpdateProductRequest is the request body for updating a product.
// Stock quantity and average cost are absent on purpose: they change only
// through receipts and invoices.
type UpdateProductRequest struct {
	Code                string     `json:"code"`
	Name                string     `json:"name" binding:"required"`
	Barcode             *string    `json:"barcode"`
	LargeUnitName       string     `json:"largeUnitName" binding:"required"`
	SmallUnitName       string     `json:"smallUnitName" binding:"required"`
	ConversionFactor    int64      `json:"conversionFactor" binding:"required"`
	WholesalePriceLarge types.VND  `json:"wholesalePriceLarge"`
	RetailPriceSmall    types.VND  `json:"retailPriceSmall"`
	MinStockSmall       int64      `json:"minStockSmall"`
	ExpiryDate          *time.Time `json:"expiryDate"`
	Description         *string    `json:"description"`
	Version             int        `json:"version" binding:"required"`
}

// ApplyTo applies update DTO to existing entity.
func (r *UpdateProductRequest) ApplyTo(item *product.Product) {
	item.Code = r.Code
	item.Name = r.Name
	item.Barcode = r.Barcode
	item.LargeUnitName = r.LargeUnitName
	item.SmallUnitName = r.SmallUnitName
	item.ConversionFactor = r.ConversionFactor
	item.WholesalePriceLarge = r.WholesalePriceLarge
	item.RetailPriceSmall = r.RetailPriceSmall
	item.MinStockSmall = r.MinStockSmall
	item.ExpiryDate = r.ExpiryDate
	item.Description = r.Description
	item.Version = r.Version
}

// --- Response DTOs ---

// ProductResponse is the response body for a product.
type ProductResponse struct {
	CatalogResponse
	Barcode             *string    `json:"barcode,omitempty"`
	LargeUnitName       string     `json:"largeUnitName"`
	SmallUnitName       string     `json:"smallUnitName"`
	ConversionFactor    int64      `json:"conversionFactor"`
	QuantitySmall       int64      `json:"quantitySmall"`
	QuantityLargeWhole  int64      `json:"quantityLargeWhole"`
	RemainderSmall      int64      `json:"remainderSmall"`
	AvgCostLarge        types.Cost `json:"avgCostLarge"`
	WholesalePriceLarge types.VND  `json:"wholesalePriceLarge"`
	RetailPriceSmall    types.VND  `json:"retailPriceSmall"`
	MinStockSmall       int64      `json:"minStockSmall"`
	LowStock            bool       `json:"lowStock"`
	ExpiryDate          *time.Time `json:"expiryDate,omitempty"`
	Description         *string    `json:"description,omitempty"`
}

// FromProduct converts domain entity to response DTO.
func FromProduct(item *product.Product) *ProductResponse {
	whole := item.QuantityLargeWhole()
	return &ProductResponse{
		CatalogResponse:     FromCatalog(item.Catalog),
		Barcode:             item.Barcode,
		LargeUnitName:       item.LargeUnitName,
		SmallUnitName:       item.SmallUnitName,
		ConversionFactor:    item.ConversionFactor,
		QuantitySmall:       item.QuantitySmall,
		QuantityLargeWhole:  whole,
		RemainderSmall:      item.QuantitySmall - whole*item.ConversionFactor,
		AvgCostLarge:        item.AvgCostLarge,
		WholesalePriceLarge: item.WholesalePriceLarge,
		RetailPriceSmall:    item.RetailPriceSmall,
		MinStockSmall:       item.MinStockSmall,
		LowStock:            item.IsLowStock(),
		ExpiryDate:          item.ExpiryDate,
		Description:         item.Description,
	}
}

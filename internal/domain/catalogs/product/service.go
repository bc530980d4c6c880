package product

import (
	"context"
	"fmt"
	"time"

	"medstock/internal/core/apperror"
	"medstock/internal/core/id"
	"medstock/internal/core/numerator"
	"medstock/internal/core/tx"
	"medstock/internal/domain"
)

// Service provides business logic for the Product catalog.
// Uses composition with domain.CatalogService for common CRUD operations.
type Service struct {
	*domain.CatalogService[*Product]
	repo      Repository
	numerator numerator.Generator
}

// NewService creates a new Product service.
func NewService(
	repo Repository,
	txManager tx.Manager,
	numerator numerator.Generator,
) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Product]{
		Repo:       repo,
		TxManager:  txManager,
		EntityName: "product",
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
		numerator:      numerator,
	}

	base.Hooks().OnBeforeCreate(svc.prepareForCreate)
	base.Hooks().OnBeforeUpdate(svc.prepareForUpdate)

	return svc
}

// prepareForCreate handles code generation, barcode uniqueness and price derivation.
func (s *Service) prepareForCreate(ctx context.Context, item *Product) error {
	// Generate code if not provided
	if item.Code == "" {
		code, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("PR"), nil, time.Now())
		if err != nil {
			return fmt.Errorf("generate code: %w", err)
		}
		item.Code = code
	}

	// Check barcode uniqueness
	if item.Barcode != nil && *item.Barcode != "" {
		if exists, _ := s.checkBarcodeExists(ctx, *item.Barcode, item.ID); exists {
			return apperror.NewConflict("item with this barcode already exists").
				WithDetail("barcode", item.Barcode)
		}
	}

	return deriveRetailPriceIfUnset(item)
}

// prepareForUpdate handles barcode uniqueness, the conversion-factor freeze
// and price derivation.
func (s *Service) prepareForUpdate(ctx context.Context, item *Product) error {
	if item.Barcode != nil && *item.Barcode != "" {
		if exists, _ := s.checkBarcodeExists(ctx, *item.Barcode, item.ID); exists {
			return apperror.NewConflict("item with this barcode already exists").
				WithDetail("barcode", item.Barcode)
		}
	}

	// The conversion factor is frozen once the item holds stock: changing it
	// would silently revalue every small unit on hand.
	current, err := s.repo.GetByID(ctx, item.ID)
	if err == nil && current.ConversionFactor != item.ConversionFactor && current.QuantitySmall != 0 {
		return apperror.NewBusinessRule(
			apperror.CodeBusinessRule,
			"conversion factor cannot change while the item has stock on hand",
		).WithDetail("quantitySmall", current.QuantitySmall)
	}

	return deriveRetailPriceIfUnset(item)
}

// deriveRetailPriceIfUnset fills the retail price from the wholesale price
// unless the operator entered one explicitly.
func deriveRetailPriceIfUnset(item *Product) error {
	if item.RetailPriceSmall != 0 {
		return nil
	}
	return item.DeriveRetailPrice()
}

// --- Entity-specific methods ---

// FindByBarcode retrieves a product by barcode.
func (s *Service) FindByBarcode(ctx context.Context, barcode string) (*Product, error) {
	item, err := s.repo.FindByBarcode(ctx, barcode)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("product", barcode)
		}
		return nil, err
	}
	return item, nil
}

// FindLowStock retrieves products at or below their low-stock threshold.
func (s *Service) FindLowStock(ctx context.Context) ([]*Product, error) {
	return s.repo.FindLowStock(ctx)
}

// FindExpiring retrieves products expiring before the cutoff.
func (s *Service) FindExpiring(ctx context.Context, before time.Time) ([]*Product, error) {
	return s.repo.FindExpiring(ctx, before)
}

// checkBarcodeExists checks if barcode is already used by another product.
func (s *Service) checkBarcodeExists(ctx context.Context, barcode string, excludeID id.ID) (bool, error) {
	existing, err := s.repo.FindByBarcode(ctx, barcode)
	if err != nil {
		return false, nil
	}
	return existing.ID != excludeID, nil
}

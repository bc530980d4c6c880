package customer

import (
	"context"
	"fmt"
	"time"

	"medstock/internal/core/apperror"
	"medstock/internal/core/id"
	"medstock/internal/core/numerator"
	"medstock/internal/core/tx"
	"medstock/internal/core/types"
	"medstock/internal/domain"
)

// Service provides business logic for the Customer catalog.
type Service struct {
	*domain.CatalogService[*Customer]
	repo      Repository
	numerator numerator.Generator
}

// NewService creates a new Customer service.
func NewService(
	repo Repository,
	txManager tx.Manager,
	numerator numerator.Generator,
) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Customer]{
		Repo:       repo,
		TxManager:  txManager,
		EntityName: "customer",
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
		numerator:      numerator,
	}

	base.Hooks().OnBeforeCreate(svc.prepareForCreate)

	return svc
}

// prepareForCreate handles code generation and phone uniqueness.
func (s *Service) prepareForCreate(ctx context.Context, item *Customer) error {
	if item.Code == "" {
		code, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("CU"), nil, time.Now())
		if err != nil {
			return fmt.Errorf("generate code: %w", err)
		}
		item.Code = code
	}

	if item.Phone != nil && *item.Phone != "" {
		if existing, err := s.repo.FindByPhone(ctx, *item.Phone); err == nil && existing.ID != item.ID {
			return apperror.NewConflict("customer with this phone already exists").
				WithDetail("phone", item.Phone)
		}
	}

	return nil
}

// --- Entity-specific methods ---

// FindByPhone retrieves a customer by phone number.
func (s *Service) FindByPhone(ctx context.Context, phone string) (*Customer, error) {
	item, err := s.repo.FindByPhone(ctx, phone)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("customer", phone)
		}
		return nil, err
	}
	return item, nil
}

// RecordPurchase adds an applied invoice total to the customer's lifetime
// total. Failures here never roll back the invoice; callers log and move on.
func (s *Service) RecordPurchase(ctx context.Context, customerID id.ID, total types.VND) error {
	if total.IsNegative() {
		return apperror.NewInvalidInput("purchase total cannot be negative").
			WithDetail("total", total.Int64())
	}
	return s.repo.AddToLifetimeTotal(ctx, customerID, total)
}

package stock

import (
	"context"

	"medstock/internal/core/apperror"
	"medstock/internal/core/id"
	"medstock/internal/domain/unitconv"
)

// UnitMode selects which of a product's two units a quantity is expressed in.
type UnitMode string

const (
	// UnitLarge transacts in whole large units (boxes, bottles)
	UnitLarge UnitMode = "large"
	// UnitSmall transacts in small units (tablets, ampoules)
	UnitSmall UnitMode = "small"
)

// Valid reports whether the mode is one of the two known values.
func (m UnitMode) Valid() bool {
	return m == UnitLarge || m == UnitSmall
}

// Service answers availability questions on top of the stock repository.
type Service struct {
	repo Repository
}

// NewService creates a new stock service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Repo exposes the underlying repository for engines that apply deltas
// inside their own transactions.
func (s *Service) Repo() Repository {
	return s.repo
}

// AvailableIn returns the sellable quantity of a level in the given unit
// mode. Small mode sees every unit on hand; large mode counts only whole
// large units, so an opened box never sells as a full one.
func AvailableIn(level Level, mode UnitMode) (int64, error) {
	switch mode {
	case UnitSmall:
		return level.QuantitySmall, nil
	case UnitLarge:
		return unitconv.FloorLarge(level.QuantitySmall, level.ConversionFactor)
	default:
		return 0, apperror.NewInvalidInput("unknown unit mode").
			WithDetail("unitMode", string(mode))
	}
}

// DeltaSmall converts a signed quantity in the given mode to a small-unit
// delta suitable for ApplyDelta.
func DeltaSmall(qty int64, mode UnitMode, factor int64) (int64, error) {
	switch mode {
	case UnitSmall:
		if factor < 1 {
			return 0, apperror.NewInvalidConversion(factor)
		}
		return qty, nil
	case UnitLarge:
		if qty >= 0 {
			return unitconv.ToSmall(qty, factor)
		}
		small, err := unitconv.ToSmall(-qty, factor)
		if err != nil {
			return 0, err
		}
		return -small, nil
	default:
		return 0, apperror.NewInvalidInput("unknown unit mode").
			WithDetail("unitMode", string(mode))
	}
}

// Available returns the sellable quantity of a product in the given mode.
func (s *Service) Available(ctx context.Context, productID id.ID, mode UnitMode) (int64, error) {
	level, err := s.repo.GetLevel(ctx, productID)
	if err != nil {
		return 0, err
	}
	return AvailableIn(level, mode)
}

// CheckAvailability verifies that requested units fit the current stock.
// On shortage the error carries the true remaining quantity in the caller's
// unit mode, so the client can clamp or cancel.
func (s *Service) CheckAvailability(ctx context.Context, productID id.ID, mode UnitMode, requested int64) error {
	if requested <= 0 {
		return apperror.NewInvalidInput("requested quantity must be positive").
			WithDetail("requested", requested)
	}

	level, err := s.repo.GetLevel(ctx, productID)
	if err != nil {
		return err
	}

	available, err := AvailableIn(level, mode)
	if err != nil {
		return err
	}

	if requested > available {
		return apperror.NewInsufficientStock(productID.String(), string(mode), requested, available)
	}
	return nil
}

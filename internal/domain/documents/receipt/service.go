package receipt

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"medstock/internal/core/apperror"
	"medstock/internal/core/id"
	"medstock/internal/core/numerator"
	"medstock/internal/core/tx"
	"medstock/internal/core/types"
	"medstock/internal/domain"
	"medstock/internal/domain/stock"
	"medstock/internal/domain/unitconv"
	"medstock/pkg/logger"
)

// NumeratorStrategy for receipt numbers. Strict: receipts feed accounting,
// gaps in the sequence raise questions during audit.
const NumeratorStrategy = numerator.StrategyStrict

// Service provides the receiving engine: recording supplier deliveries and
// folding their cost into each product's weighted average.
type Service struct {
	repo      Repository
	stockRepo stock.Repository
	numerator numerator.Generator
	txManager tx.Manager
	hooks     *domain.HookRegistry[*StockReceipt]
}

// NewService creates a new receipt service.
func NewService(
	repo Repository,
	stockRepo stock.Repository,
	numerator numerator.Generator,
	txManager tx.Manager,
) *Service {
	return &Service{
		repo:      repo,
		stockRepo: stockRepo,
		numerator: numerator,
		txManager: txManager,
		hooks:     domain.NewHookRegistry[*StockReceipt](),
	}
}

// Hooks returns the hook registry for registering callbacks.
func (s *Service) Hooks() *domain.HookRegistry[*StockReceipt] {
	return s.hooks
}

// Receive validates and applies a receipt in one transaction: per line it
// locks the product row, recomputes the weighted-average cost, increments
// stock and persists the document with before/after cost snapshots.
//
// The row lock serializes concurrent receipts of the same product; the cost
// update is inherently read-modify-write and cannot rely on the guarded
// delta alone.
func (s *Service) Receive(ctx context.Context, doc *StockReceipt) error {
	if err := s.hooks.RunBeforeCreate(ctx, doc); err != nil {
		return err
	}

	if err := doc.Validate(ctx); err != nil {
		return err
	}

	if doc.Number == "" {
		cfg := numerator.DefaultConfig("RC")
		number, err := s.numerator.GetNextNumber(ctx, cfg, &numerator.Options{Strategy: NumeratorStrategy}, time.Now())
		if err != nil {
			return fmt.Errorf("generate number: %w", err)
		}
		doc.Number = number
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		for i := range doc.Lines {
			if err := s.applyLine(ctx, &doc.Lines[i]); err != nil {
				return err
			}
		}

		if err := s.repo.Create(ctx, doc); err != nil {
			return fmt.Errorf("create document: %w", err)
		}
		if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.hooks.RunAfterCreate(ctx, doc); err != nil {
		logger.Warn(ctx, "after-create hook failed", "error", err)
	}

	logger.Info(ctx, "stock receipt applied",
		"id", doc.ID,
		"number", doc.Number,
		"lines", len(doc.Lines))

	return nil
}

// applyLine folds one received line into stock and cost. Caller holds the
// transaction; the row lock is taken here.
func (s *Service) applyLine(ctx context.Context, line *Line) error {
	level, err := s.stockRepo.GetLevelForUpdate(ctx, line.ProductID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return apperror.NewNotFound("product", line.ProductID.String())
		}
		return err
	}

	deltaSmall, err := unitconv.ToSmall(line.QuantityLarge, level.ConversionFactor)
	if err != nil {
		return err
	}

	line.CostBefore = level.AvgCostLarge
	line.CostAfter = WeightedAverage(
		level.QuantitySmall, level.ConversionFactor, level.AvgCostLarge,
		line.QuantityLarge, line.UnitCostLarge,
	)

	newQty, err := s.stockRepo.ApplyDelta(ctx, line.ProductID, deltaSmall)
	if err != nil {
		return err
	}
	line.QuantityAfterSmall = newQty

	return s.stockRepo.SetCost(ctx, line.ProductID, line.CostAfter)
}

// WeightedAverage computes the new average large-unit cost after receiving
// qtyLarge units at unitCost:
//
//	(onHandLarge*oldCost + qtyLarge*unitCost) / (onHandLarge + qtyLarge)
//
// On-hand quantity enters as the exact (possibly fractional) large-unit
// quantity so partially dispensed boxes keep their weight. With zero stock
// the result is exactly the incoming unit cost.
func WeightedAverage(qtySmall, factor int64, oldCost types.Cost, qtyLarge int64, unitCost types.VND) types.Cost {
	onHand := decimal.NewFromInt(qtySmall).Div(decimal.NewFromInt(factor))
	incoming := decimal.NewFromInt(qtyLarge)

	totalQty := onHand.Add(incoming)
	if totalQty.IsZero() {
		return oldCost
	}

	totalValue := onHand.Mul(oldCost).Add(incoming.Mul(unitCost.Decimal()))
	return totalValue.Div(totalQty)
}

// Reverse rolls a receipt back: stock is decremented and the average cost is
// unwound. It fails when the received stock has since been sold, since the
// goods can no longer be returned to the supplier intact.
func (s *Service) Reverse(ctx context.Context, docID id.ID) error {
	doc, err := s.GetByID(ctx, docID)
	if err != nil {
		return err
	}

	if doc.Reversed {
		return apperror.NewConflict("receipt is already reversed").
			WithDetail("id", docID.String())
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		for _, line := range doc.Lines {
			if err := s.reverseLine(ctx, line); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		doc.Reversed = true
		doc.ReversedAt = &now
		doc.Touch()
		return s.repo.Update(ctx, doc)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "stock receipt reversed", "id", docID, "number", doc.Number)
	return nil
}

func (s *Service) reverseLine(ctx context.Context, line Line) error {
	level, err := s.stockRepo.GetLevelForUpdate(ctx, line.ProductID)
	if err != nil {
		return err
	}

	deltaSmall, err := unitconv.ToSmall(line.QuantityLarge, level.ConversionFactor)
	if err != nil {
		return err
	}

	newQtySmall, err := s.stockRepo.ApplyDelta(ctx, line.ProductID, -deltaSmall)
	if err != nil {
		if apperror.IsConcurrentModification(err) || apperror.IsInsufficientStock(err) {
			return apperror.NewBusinessRule(
				apperror.CodeBusinessRule,
				"cannot reverse receipt: received stock has already been sold",
			).WithDetail("product_id", line.ProductID.String())
		}
		return err
	}

	var restored types.Cost
	if newQtySmall == 0 {
		// Nothing left on hand: go back to the pre-receipt cost snapshot.
		restored = line.CostBefore
	} else {
		// Unwind the weighted average: subtract this line's value and
		// quantity from the current state.
		curQty := decimal.NewFromInt(level.QuantitySmall).Div(decimal.NewFromInt(level.ConversionFactor))
		remQty := decimal.NewFromInt(newQtySmall).Div(decimal.NewFromInt(level.ConversionFactor))
		lineValue := decimal.NewFromInt(line.QuantityLarge).Mul(line.UnitCostLarge.Decimal())

		restored = curQty.Mul(level.AvgCostLarge).Sub(lineValue).Div(remQty)
		if restored.IsNegative() {
			restored = decimal.Zero
		}
	}

	return s.stockRepo.SetCost(ctx, line.ProductID, restored)
}

// GetByID retrieves a receipt with lines.
func (s *Service) GetByID(ctx context.Context, docID id.ID) (*StockReceipt, error) {
	doc, err := s.repo.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}

	lines, err := s.repo.GetLines(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	doc.Lines = lines

	return doc, nil
}

// List retrieves receipts with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*StockReceipt], error) {
	return s.repo.List(ctx, filter)
}

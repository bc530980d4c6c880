package invoice

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
	"medstock/internal/domain/catalogs/customer"
	"medstock/internal/domain/catalogs/product"
	"medstock/internal/domain/stock"
	"medstock/pkg/logger"
)

// NumeratorStrategy for invoice numbers. Strict: invoice sequences must be
// gapless for tax reporting.
const NumeratorStrategy = numerator.StrategyStrict

// Service provides the selling engine.
//
// Commit is two-phased: the invoice document is written first (the
// durability point), then stock decrements are applied. A crash or guard
// rejection between the phases leaves the invoice pending with its money
// trail intact; Redrive finishes the decrements idempotently and Void
// cancels them. Stock is only ever touched through guarded atomic deltas.
type Service struct {
	repo         Repository
	productRepo  product.Repository
	stockRepo    stock.Repository
	customerRepo customer.Repository
	numerator    numerator.Generator
	txManager    tx.Manager
	hooks        *domain.HookRegistry[*SalesInvoice]
}

// NewService creates a new invoice service.
func NewService(
	repo Repository,
	productRepo product.Repository,
	stockRepo stock.Repository,
	customerRepo customer.Repository,
	numerator numerator.Generator,
	txManager tx.Manager,
) *Service {
	return &Service{
		repo:         repo,
		productRepo:  productRepo,
		stockRepo:    stockRepo,
		customerRepo: customerRepo,
		numerator:    numerator,
		txManager:    txManager,
		hooks:        domain.NewHookRegistry[*SalesInvoice](),
	}
}

// Hooks returns the hook registry for registering callbacks.
func (s *Service) Hooks() *domain.HookRegistry[*SalesInvoice] {
	return s.hooks
}

// ValidateCart checks every line against the catalog and current stock and
// fills in prices, line totals and small-unit deltas.
//
// Availability is checked in each line's own unit mode: small mode sees
// every unit on hand, large mode only whole boxes. Lines for the same
// product share one pool, so two lines cannot both claim the last units.
// On shortage the error carries the true remaining quantity in the line's
// mode.
func (s *Service) ValidateCart(ctx context.Context, doc *SalesInvoice) error {
	if err := doc.Validate(ctx); err != nil {
		return err
	}

	// Small units already claimed by earlier lines, per product.
	claimed := make(map[id.ID]int64)
	doc.TotalAmount = 0

	for i := range doc.Lines {
		line := &doc.Lines[i]

		item, err := s.productRepo.GetByID(ctx, line.ProductID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return apperror.NewNotFound("product", line.ProductID.String())
			}
			return err
		}
		if item.DeletionMark {
			return apperror.NewBusinessRule(
				apperror.CodeBusinessRule,
				"product is marked for deletion and cannot be sold",
			).WithDetail("product_id", line.ProductID.String())
		}

		switch line.UnitMode {
		case stock.UnitLarge:
			line.UnitPrice = item.WholesalePriceLarge
		case stock.UnitSmall:
			line.UnitPrice = item.RetailPriceSmall
		}
		line.LineTotal = line.UnitPrice.Mul(line.Quantity)

		delta, err := stock.DeltaSmall(line.Quantity, line.UnitMode, item.ConversionFactor)
		if err != nil {
			return err
		}
		line.DeltaSmall = delta

		level := stock.Level{
			ProductID:        item.ID,
			ConversionFactor: item.ConversionFactor,
			QuantitySmall:    item.QuantitySmall - claimed[item.ID],
		}
		available, err := stock.AvailableIn(level, line.UnitMode)
		if err != nil {
			return err
		}
		if line.Quantity > available {
			return apperror.NewInsufficientStock(
				item.ID.String(), string(line.UnitMode), line.Quantity, available,
			).WithDetail("lineNo", line.LineNo)
		}

		claimed[item.ID] += delta
		doc.TotalAmount += line.LineTotal
	}

	return nil
}

// Commit validates the cart, durably writes the invoice and applies the
// stock decrements.
//
// Phase 1 writes the invoice in pending status with all its lines; once it
// commits the sale is recorded no matter what happens next. Phase 2 applies
// every decrement in a single all-or-nothing transaction. If phase 2 fails
// the invoice stays pending: the caller gets the error (a guard rejection
// surfaces as CONCURRENT_MODIFICATION when stock changed after validation)
// and can redrive or void.
func (s *Service) Commit(ctx context.Context, doc *SalesInvoice) error {
	if err := s.hooks.RunBeforeCreate(ctx, doc); err != nil {
		return err
	}

	if err := s.ValidateCart(ctx, doc); err != nil {
		return err
	}

	if doc.Number == "" {
		cfg := numerator.DefaultConfig("IV")
		number, err := s.numerator.GetNextNumber(ctx, cfg, &numerator.Options{Strategy: NumeratorStrategy}, time.Now())
		if err != nil {
			return fmt.Errorf("generate number: %w", err)
		}
		doc.Number = number
	}

	// Phase 1: durability point.
	doc.Status = StatusPending
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
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

	// Phase 2: decrements, all or nothing.
	if err := s.applyAll(ctx, doc); err != nil {
		logger.Warn(ctx, "invoice committed but decrements failed, left pending",
			"id", doc.ID, "number", doc.Number, "error", err)
		if appErr, ok := apperror.AsAppError(err); ok {
			return appErr.WithDetail("invoice_id", doc.ID.String()).
				WithDetail("invoice_status", string(StatusPending))
		}
		return err
	}

	s.recordPurchase(ctx, doc)

	if err := s.hooks.RunAfterCreate(ctx, doc); err != nil {
		logger.Warn(ctx, "after-create hook failed", "error", err)
	}

	logger.Info(ctx, "invoice committed",
		"id", doc.ID,
		"number", doc.Number,
		"total", doc.TotalAmount.Int64(),
		"lines", len(doc.Lines))

	return nil
}

// applyAll applies every unapplied decrement in one transaction and marks
// the invoice applied. The applied flag flips in the same transaction as
// the decrement, so a retry after a crash never double-decrements.
func (s *Service) applyAll(ctx context.Context, doc *SalesInvoice) error {
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		for i := range doc.Lines {
			line := &doc.Lines[i]
			if line.Applied {
				continue
			}

			flipped, err := s.repo.MarkLineApplied(ctx, line.LineID)
			if err != nil {
				return err
			}
			if !flipped {
				continue
			}

			if _, err := s.stockRepo.ApplyDelta(ctx, line.ProductID, -line.DeltaSmall); err != nil {
				return err
			}
		}

		return s.repo.SetStatus(ctx, doc.ID, StatusApplied)
	})
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	doc.Status = StatusApplied
	doc.AppliedAt = &now
	for i := range doc.Lines {
		doc.Lines[i].Applied = true
	}
	return nil
}

// Redrive finishes a pending invoice's decrements, line by line in separate
// transactions so one exhausted product does not block the rest.
//
// Safe to call any number of times: already applied lines are skipped by
// the flag guard. When every line lands the invoice becomes applied; when
// some still cannot, it becomes partially applied and the error reports the
// applied/total counts.
func (s *Service) Redrive(ctx context.Context, docID id.ID) error {
	doc, err := s.GetByID(ctx, docID)
	if err != nil {
		return err
	}

	switch doc.Status {
	case StatusApplied:
		return nil
	case StatusVoided:
		return apperror.NewBusinessRule(apperror.CodeInvoiceVoided, "invoice is voided").
			WithDetail("id", docID.String())
	}

	failed := 0
	for i := range doc.Lines {
		line := &doc.Lines[i]
		if line.Applied {
			continue
		}

		err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
			flipped, err := s.repo.MarkLineApplied(ctx, line.LineID)
			if err != nil {
				return err
			}
			if !flipped {
				return nil
			}
			_, err = s.stockRepo.ApplyDelta(ctx, line.ProductID, -line.DeltaSmall)
			return err
		})
		if err != nil {
			failed++
			logger.Warn(ctx, "redrive: line decrement failed",
				"invoice_id", docID, "line_no", line.LineNo,
				"product_id", line.ProductID, "error", err)
			continue
		}
		line.Applied = true
	}

	if failed == 0 {
		if err := s.repo.SetStatus(ctx, docID, StatusApplied); err != nil {
			return err
		}
		// Already-applied invoices returned early above, so this is always
		// the first transition into applied, whether the invoice came in
		// pending or partially applied. The total has never been counted.
		s.recordPurchase(ctx, doc)
		logger.Info(ctx, "invoice redriven to applied", "id", docID, "number", doc.Number)
		return nil
	}

	if err := s.repo.SetStatus(ctx, docID, StatusPartiallyApplied); err != nil {
		return err
	}
	return apperror.NewPartiallyApplied(docID.String(), doc.AppliedCount(), len(doc.Lines))
}

// Void cancels an invoice and returns every applied decrement to stock.
// Unapplied lines are simply left unapplied. Increments cannot violate the
// non-negative guard, so the whole void runs in one transaction.
func (s *Service) Void(ctx context.Context, docID id.ID) error {
	doc, err := s.GetByID(ctx, docID)
	if err != nil {
		return err
	}

	if doc.Status == StatusVoided {
		return nil
	}
	wasApplied := doc.Status == StatusApplied

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		for i := range doc.Lines {
			line := &doc.Lines[i]
			if !line.Applied {
				continue
			}

			flipped, err := s.repo.MarkLineUnapplied(ctx, line.LineID)
			if err != nil {
				return err
			}
			if !flipped {
				continue
			}

			if _, err := s.stockRepo.ApplyDelta(ctx, line.ProductID, line.DeltaSmall); err != nil {
				return err
			}
		}

		return s.repo.SetStatus(ctx, docID, StatusVoided)
	})
	if err != nil {
		return err
	}

	if wasApplied && doc.CustomerID != nil {
		if err := s.customerRepo.AddToLifetimeTotal(ctx, *doc.CustomerID, doc.TotalAmount.Neg()); err != nil {
			logger.Warn(ctx, "void: lifetime total rollback failed",
				"customer_id", doc.CustomerID, "error", err)
		}
	}

	logger.Info(ctx, "invoice voided", "id", docID, "number", doc.Number)
	return nil
}

// recordPurchase updates the customer's lifetime total, best effort.
// Never rolls back the sale.
func (s *Service) recordPurchase(ctx context.Context, doc *SalesInvoice) {
	if doc.CustomerID == nil {
		return
	}
	if err := s.customerRepo.AddToLifetimeTotal(ctx, *doc.CustomerID, doc.TotalAmount); err != nil {
		logger.Warn(ctx, "lifetime total update failed",
			"customer_id", doc.CustomerID, "invoice_id", doc.ID, "error", err)
	}
}

// GetByID retrieves an invoice with lines.
func (s *Service) GetByID(ctx context.Context, docID id.ID) (*SalesInvoice, error) {
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

// List retrieves invoices with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*SalesInvoice], error) {
	return s.repo.List(ctx, filter)
}

// RedrivePending finds pending invoices older than the grace period and
// redrives each. Called by the recovery worker. Returns how many invoices
// were examined.
func (s *Service) RedrivePending(ctx context.Context, grace time.Duration, limit int) (int, error) {
	cutoff := time.Now().UTC().Add(-grace)
	pending, err := s.repo.FindPending(ctx, cutoff, limit)
	if err != nil {
		return 0, err
	}

	for _, doc := range pending {
		if err := s.Redrive(ctx, doc.ID); err != nil {
			logger.Warn(ctx, "pending invoice redrive failed",
				"id", doc.ID, "number", doc.Number, "error", err)
		}
	}
	return len(pending), nil
}

// CommitTotal is a convenience for displays: grand total of an invoice
// recomputed from lines.
func CommitTotal(lines []Line) types.VND {
	var total types.VND
	for _, line := range lines {
		total += line.LineTotal
	}
	return total
}

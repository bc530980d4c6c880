package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"medstock/internal/core/id"
	"medstock/internal/domain"
	"medstock/internal/domain/documents/receipt"
	"medstock/internal/infrastructure/storage/postgres"
)

var receiptColumns = postgres.ExtractDBColumns[receipt.StockReceipt]()

var receiptLineColumns = []string{
	"doc_id", "line_id", "line_no", "product_id",
	"quantity_large", "unit_cost_large", "amount",
	"cost_before", "cost_after", "quantity_after_small",
}

// ReceiptRepo implements receipt.Repository for PostgreSQL.
type ReceiptRepo struct {
	*BaseDocumentRepo[*receipt.StockReceipt]
	batch *postgres.BatchInserter
}

// NewReceiptRepo creates a new receipt repository.
func NewReceiptRepo(txManager *postgres.TxManager) *ReceiptRepo {
	return &ReceiptRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			"doc_receipt",
			receiptColumns,
			func() *receipt.StockReceipt { return &receipt.StockReceipt{} },
		),
		batch: postgres.NewBatchInserter(txManager),
	}
}

// GetLines retrieves lines of a receipt ordered by line number.
func (r *ReceiptRepo) GetLines(ctx context.Context, docID id.ID) ([]receipt.Line, error) {
	q := r.Builder().
		Select("line_id", "line_no", "product_id",
			"quantity_large", "unit_cost_large", "amount",
			"cost_before", "cost_after", "quantity_after_small").
		From("doc_receipt_line").
		Where(squirrel.Eq{"doc_id": docID}).
		OrderBy("line_no ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []receipt.Line
	if err := pgxscan.Select(ctx, r.Querier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}

	return lines, nil
}

// SaveLines replaces the lines of a receipt. Requires a transaction: the
// COPY bulk insert runs on the transaction connection.
func (r *ReceiptRepo) SaveLines(ctx context.Context, docID id.ID, lines []receipt.Line) error {
	delQ := r.Builder().
		Delete("doc_receipt_line").
		Where(squirrel.Eq{"doc_id": docID})

	sql, args, err := delQ.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := r.Querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete old lines: %w", err)
	}

	if len(lines) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(lines))
	for _, line := range lines {
		rows = append(rows, []any{
			docID, line.LineID, line.LineNo, line.ProductID,
			line.QuantityLarge, line.UnitCostLarge.Int64(), line.Amount.Int64(),
			line.CostBefore, line.CostAfter, line.QuantityAfterSmall,
		})
	}

	if _, err := r.batch.CopyFromSlice(ctx, "doc_receipt_line", receiptLineColumns, rows); err != nil {
		return fmt.Errorf("insert lines: %w", err)
	}

	return nil
}

// List retrieves receipts with document-specific filtering.
func (r *ReceiptRepo) List(ctx context.Context, filter receipt.ListFilter) (domain.ListResult[*receipt.StockReceipt], error) {
	q := r.listQuery(filter.ListFilter)

	if filter.Reversed != nil {
		q = q.Where(squirrel.Eq{"reversed": *filter.Reversed})
	}
	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"date": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{"date": *filter.DateTo})
	}
	if filter.ProductID != nil {
		q = q.Where(squirrel.Expr(
			"id IN (SELECT doc_id FROM doc_receipt_line WHERE product_id = ?)",
			*filter.ProductID,
		))
	}

	return r.runList(ctx, q, filter.ListFilter)
}

// Ensure interface compliance at compile time.
var _ receipt.Repository = (*ReceiptRepo)(nil)

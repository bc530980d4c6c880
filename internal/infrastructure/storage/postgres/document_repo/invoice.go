package document_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"medstock/internal/core/id"
	"medstock/internal/domain"
	"medstock/internal/domain/documents/invoice"
	"medstock/internal/infrastructure/storage/postgres"
)

var invoiceColumns = postgres.ExtractDBColumns[invoice.SalesInvoice]()

var invoiceLineColumns = []string{
	"doc_id", "line_id", "line_no", "product_id",
	"quantity", "unit_mode", "unit_price", "line_total",
	"delta_small", "applied",
}

// InvoiceRepo implements invoice.Repository for PostgreSQL.
type InvoiceRepo struct {
	*BaseDocumentRepo[*invoice.SalesInvoice]
	batch *postgres.BatchInserter
}

// NewInvoiceRepo creates a new invoice repository.
func NewInvoiceRepo(txManager *postgres.TxManager) *InvoiceRepo {
	return &InvoiceRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			"doc_invoice",
			invoiceColumns,
			func() *invoice.SalesInvoice { return &invoice.SalesInvoice{} },
		),
		batch: postgres.NewBatchInserter(txManager),
	}
}

// GetLines retrieves lines of an invoice ordered by line number.
func (r *InvoiceRepo) GetLines(ctx context.Context, docID id.ID) ([]invoice.Line, error) {
	q := r.Builder().
		Select("line_id", "line_no", "product_id",
			"quantity", "unit_mode", "unit_price", "line_total",
			"delta_small", "applied").
		From("doc_invoice_line").
		Where(squirrel.Eq{"doc_id": docID}).
		OrderBy("line_no ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []invoice.Line
	if err := pgxscan.Select(ctx, r.Querier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}

	return lines, nil
}

// SaveLines replaces the lines of an invoice. Requires a transaction.
func (r *InvoiceRepo) SaveLines(ctx context.Context, docID id.ID, lines []invoice.Line) error {
	delQ := r.Builder().
		Delete("doc_invoice_line").
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
			line.Quantity, string(line.UnitMode), line.UnitPrice.Int64(), line.LineTotal.Int64(),
			line.DeltaSmall, line.Applied,
		})
	}

	if _, err := r.batch.CopyFromSlice(ctx, "doc_invoice_line", invoiceLineColumns, rows); err != nil {
		return fmt.Errorf("insert lines: %w", err)
	}

	return nil
}

// MarkLineApplied flips the applied flag if it is not yet set.
// The conditional WHERE is the idempotency guard: only one transaction ever
// sees a true result for a given line.
func (r *InvoiceRepo) MarkLineApplied(ctx context.Context, lineID id.ID) (bool, error) {
	const sql = `
		UPDATE doc_invoice_line
		SET applied = true
		WHERE line_id = $1 AND applied = false
	`

	result, err := r.Querier(ctx).Exec(ctx, sql, lineID)
	if err != nil {
		return false, fmt.Errorf("mark line applied: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// MarkLineUnapplied flips an applied line back.
func (r *InvoiceRepo) MarkLineUnapplied(ctx context.Context, lineID id.ID) (bool, error) {
	const sql = `
		UPDATE doc_invoice_line
		SET applied = false
		WHERE line_id = $1 AND applied = true
	`

	result, err := r.Querier(ctx).Exec(ctx, sql, lineID)
	if err != nil {
		return false, fmt.Errorf("mark line unapplied: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// SetStatus transitions the invoice status and stamps the matching
// timestamp column.
func (r *InvoiceRepo) SetStatus(ctx context.Context, docID id.ID, status invoice.Status) error {
	q := r.Builder().
		Update("doc_invoice").
		Set("status", string(status)).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": docID})

	switch status {
	case invoice.StatusApplied:
		q = q.Set("applied_at", squirrel.Expr("NOW()"))
	case invoice.StatusVoided:
		q = q.Set("voided_at", squirrel.Expr("NOW()"))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.Querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("set status: invoice %s not found", docID)
	}
	return nil
}

// FindPending returns pending invoices created before the cutoff, oldest
// first. Fed to the recovery worker.
func (r *InvoiceRepo) FindPending(ctx context.Context, olderThan time.Time, limit int) ([]*invoice.SalesInvoice, error) {
	q := r.Builder().
		Select(invoiceColumns...).
		From("doc_invoice").
		Where(squirrel.Eq{"status": string(invoice.StatusPending)}).
		Where(squirrel.Eq{"deletion_mark": false}).
		Where(squirrel.Lt{"created_at": olderThan}).
		OrderBy("created_at ASC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var docs []*invoice.SalesInvoice
	if err := pgxscan.Select(ctx, r.Querier(ctx), &docs, sql, args...); err != nil {
		return nil, fmt.Errorf("find pending: %w", err)
	}

	return docs, nil
}

// List retrieves invoices with document-specific filtering.
func (r *InvoiceRepo) List(ctx context.Context, filter invoice.ListFilter) (domain.ListResult[*invoice.SalesInvoice], error) {
	q := r.listQuery(filter.ListFilter)

	if filter.CustomerID != nil {
		q = q.Where(squirrel.Eq{"customer_id": *filter.CustomerID})
	}
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": string(*filter.Status)})
	}
	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"date": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{"date": *filter.DateTo})
	}
	if filter.ProductID != nil {
		q = q.Where(squirrel.Expr(
			"id IN (SELECT doc_id FROM doc_invoice_line WHERE product_id = ?)",
			*filter.ProductID,
		))
	}

	return r.runList(ctx, q, filter.ListFilter)
}

// Ensure interface compliance at compile time.
var _ invoice.Repository = (*InvoiceRepo)(nil)

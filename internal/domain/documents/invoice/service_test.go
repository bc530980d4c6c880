package invoice

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medstock/internal/core/apperror"
	"medstock/internal/core/id"
	"medstock/internal/core/numerator"
	"medstock/internal/core/types"
	"medstock/internal/domain"
	"medstock/internal/domain/catalogs/customer"
	"medstock/internal/domain/catalogs/product"
	"medstock/internal/domain/stock"
)

// --- Test fakes ---

// fakeTxManager snapshots the in-memory fakes before the function runs and
// restores them when it fails, mirroring a real rollback. Without this the
// applied-flag flip would survive a failed decrement and the pending /
// redrive scenarios could not be exercised.
type fakeTxManager struct {
	docs  *fakeInvoiceRepo
	stock *fakeStockRepo
}

func (m fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	docs := make(map[id.ID]SalesInvoice, len(m.docs.docs))
	for k, v := range m.docs.docs {
		docs[k] = *v
	}
	lines := make(map[id.ID][]Line, len(m.docs.lines))
	for k, v := range m.docs.lines {
		lines[k] = append([]Line(nil), v...)
	}
	levels := make(map[id.ID]stock.Level, len(m.stock.levels))
	for k, v := range m.stock.levels {
		levels[k] = *v
	}

	err := fn(ctx)
	if err != nil {
		for k, v := range docs {
			copied := v
			m.docs.docs[k] = &copied
		}
		for k, v := range lines {
			m.docs.lines[k] = v
		}
		for k, v := range levels {
			copied := v
			m.stock.levels[k] = &copied
		}
	}
	return err
}

type fakeStockRepo struct {
	levels map[id.ID]*stock.Level
}

func newFakeStockRepo() *fakeStockRepo {
	return &fakeStockRepo{levels: make(map[id.ID]*stock.Level)}
}

func (r *fakeStockRepo) ApplyDelta(ctx context.Context, productID id.ID, deltaSmall int64) (int64, error) {
	level, ok := r.levels[productID]
	if !ok {
		return 0, apperror.NewNotFound("product", productID.String())
	}
	if level.QuantitySmall+deltaSmall < 0 {
		return 0, apperror.NewConcurrentModification("product", productID.String())
	}
	level.QuantitySmall += deltaSmall
	return level.QuantitySmall, nil
}

func (r *fakeStockRepo) SetCost(ctx context.Context, productID id.ID, avgCostLarge types.Cost) error {
	r.levels[productID].AvgCostLarge = avgCostLarge
	return nil
}

func (r *fakeStockRepo) GetLevel(ctx context.Context, productID id.ID) (stock.Level, error) {
	level, ok := r.levels[productID]
	if !ok {
		return stock.Level{}, apperror.NewNotFound("product", productID.String())
	}
	return *level, nil
}

func (r *fakeStockRepo) GetLevelForUpdate(ctx context.Context, productID id.ID) (stock.Level, error) {
	return r.GetLevel(ctx, productID)
}

func (r *fakeStockRepo) GetLevels(ctx context.Context, productIDs []id.ID) (map[id.ID]stock.Level, error) {
	out := make(map[id.ID]stock.Level, len(productIDs))
	for _, pid := range productIDs {
		if level, ok := r.levels[pid]; ok {
			out[pid] = *level
		}
	}
	return out, nil
}

type fakeProductRepo struct {
	items map[id.ID]*product.Product
}

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{items: make(map[id.ID]*product.Product)}
}

func (r *fakeProductRepo) Create(ctx context.Context, item *product.Product) error {
	r.items[item.ID] = item
	return nil
}

func (r *fakeProductRepo) GetByID(ctx context.Context, pid id.ID) (*product.Product, error) {
	item, ok := r.items[pid]
	if !ok {
		return nil, apperror.NewNotFound("product", pid.String())
	}
	copied := *item
	return &copied, nil
}

func (r *fakeProductRepo) GetByCode(ctx context.Context, code string) (*product.Product, error) {
	for _, item := range r.items {
		if item.Code == code {
			copied := *item
			return &copied, nil
		}
	}
	return nil, apperror.NewNotFound("product", code)
}

func (r *fakeProductRepo) Update(ctx context.Context, item *product.Product) error {
	r.items[item.ID] = item
	return nil
}

func (r *fakeProductRepo) Delete(ctx context.Context, pid id.ID) error {
	return r.SetDeletionMark(ctx, pid, true)
}

func (r *fakeProductRepo) SetDeletionMark(ctx context.Context, pid id.ID, marked bool) error {
	item, ok := r.items[pid]
	if !ok {
		return apperror.NewNotFound("product", pid.String())
	}
	item.DeletionMark = marked
	return nil
}

func (r *fakeProductRepo) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*product.Product], error) {
	return domain.ListResult[*product.Product]{}, nil
}

func (r *fakeProductRepo) Exists(ctx context.Context, pid id.ID) (bool, error) {
	_, ok := r.items[pid]
	return ok, nil
}

func (r *fakeProductRepo) ExistsByCode(ctx context.Context, code string) (bool, error) {
	_, err := r.GetByCode(ctx, code)
	return err == nil, nil
}

func (r *fakeProductRepo) FindByBarcode(ctx context.Context, barcode string) (*product.Product, error) {
	return nil, apperror.NewNotFound("product", barcode)
}

func (r *fakeProductRepo) GetForUpdate(ctx context.Context, pid id.ID) (*product.Product, error) {
	return r.GetByID(ctx, pid)
}

func (r *fakeProductRepo) FindLowStock(ctx context.Context) ([]*product.Product, error) {
	return nil, nil
}

func (r *fakeProductRepo) FindExpiring(ctx context.Context, before time.Time) ([]*product.Product, error) {
	return nil, nil
}

type fakeCustomerRepo struct {
	customers map[id.ID]*customer.Customer
}

func newFakeCustomerRepo() *fakeCustomerRepo {
	return &fakeCustomerRepo{customers: make(map[id.ID]*customer.Customer)}
}

func (r *fakeCustomerRepo) Create(ctx context.Context, c *customer.Customer) error {
	r.customers[c.ID] = c
	return nil
}

func (r *fakeCustomerRepo) GetByID(ctx context.Context, cid id.ID) (*customer.Customer, error) {
	c, ok := r.customers[cid]
	if !ok {
		return nil, apperror.NewNotFound("customer", cid.String())
	}
	return c, nil
}

func (r *fakeCustomerRepo) GetByCode(ctx context.Context, code string) (*customer.Customer, error) {
	return nil, apperror.NewNotFound("customer", code)
}

func (r *fakeCustomerRepo) Update(ctx context.Context, c *customer.Customer) error { return nil }

func (r *fakeCustomerRepo) Delete(ctx context.Context, cid id.ID) error { return nil }

func (r *fakeCustomerRepo) SetDeletionMark(ctx context.Context, cid id.ID, marked bool) error {
	return nil
}

func (r *fakeCustomerRepo) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*customer.Customer], error) {
	return domain.ListResult[*customer.Customer]{}, nil
}

func (r *fakeCustomerRepo) Exists(ctx context.Context, cid id.ID) (bool, error) {
	_, ok := r.customers[cid]
	return ok, nil
}

func (r *fakeCustomerRepo) ExistsByCode(ctx context.Context, code string) (bool, error) {
	return false, nil
}

func (r *fakeCustomerRepo) FindByPhone(ctx context.Context, phone string) (*customer.Customer, error) {
	return nil, apperror.NewNotFound("customer", phone)
}

func (r *fakeCustomerRepo) AddToLifetimeTotal(ctx context.Context, cid id.ID, amount types.VND) error {
	c, ok := r.customers[cid]
	if !ok {
		return apperror.NewNotFound("customer", cid.String())
	}
	c.LifetimeTotal += amount
	return nil
}

type fakeInvoiceRepo struct {
	docs  map[id.ID]*SalesInvoice
	lines map[id.ID][]Line
	index map[id.ID]id.ID // lineID -> docID
}

func newFakeInvoiceRepo() *fakeInvoiceRepo {
	return &fakeInvoiceRepo{
		docs:  make(map[id.ID]*SalesInvoice),
		lines: make(map[id.ID][]Line),
		index: make(map[id.ID]id.ID),
	}
}

func (r *fakeInvoiceRepo) Create(ctx context.Context, doc *SalesInvoice) error {
	copied := *doc
	copied.Lines = nil
	r.docs[doc.ID] = &copied
	return nil
}

func (r *fakeInvoiceRepo) GetByID(ctx context.Context, docID id.ID) (*SalesInvoice, error) {
	doc, ok := r.docs[docID]
	if !ok {
		return nil, apperror.NewNotFound("sales invoice", docID.String())
	}
	copied := *doc
	return &copied, nil
}

func (r *fakeInvoiceRepo) GetByNumber(ctx context.Context, number string) (*SalesInvoice, error) {
	for _, doc := range r.docs {
		if doc.Number == number {
			copied := *doc
			return &copied, nil
		}
	}
	return nil, apperror.NewNotFound("sales invoice", number)
}

func (r *fakeInvoiceRepo) GetLines(ctx context.Context, docID id.ID) ([]Line, error) {
	return append([]Line(nil), r.lines[docID]...), nil
}

func (r *fakeInvoiceRepo) SaveLines(ctx context.Context, docID id.ID, lines []Line) error {
	r.lines[docID] = append([]Line(nil), lines...)
	for _, line := range lines {
		r.index[line.LineID] = docID
	}
	return nil
}

func (r *fakeInvoiceRepo) MarkLineApplied(ctx context.Context, lineID id.ID) (bool, error) {
	docID, ok := r.index[lineID]
	if !ok {
		return false, apperror.NewNotFound("invoice line", lineID.String())
	}
	for i := range r.lines[docID] {
		if r.lines[docID][i].LineID == lineID {
			if r.lines[docID][i].Applied {
				return false, nil
			}
			r.lines[docID][i].Applied = true
			return true, nil
		}
	}
	return false, apperror.NewNotFound("invoice line", lineID.String())
}

func (r *fakeInvoiceRepo) MarkLineUnapplied(ctx context.Context, lineID id.ID) (bool, error) {
	docID, ok := r.index[lineID]
	if !ok {
		return false, apperror.NewNotFound("invoice line", lineID.String())
	}
	for i := range r.lines[docID] {
		if r.lines[docID][i].LineID == lineID {
			if !r.lines[docID][i].Applied {
				return false, nil
			}
			r.lines[docID][i].Applied = false
			return true, nil
		}
	}
	return false, apperror.NewNotFound("invoice line", lineID.String())
}

func (r *fakeInvoiceRepo) SetStatus(ctx context.Context, docID id.ID, status Status) error {
	doc, ok := r.docs[docID]
	if !ok {
		return apperror.NewNotFound("sales invoice", docID.String())
	}
	doc.Status = status
	return nil
}

func (r *fakeInvoiceRepo) FindPending(ctx context.Context, olderThan time.Time, limit int) ([]*SalesInvoice, error) {
	var out []*SalesInvoice
	for _, doc := range r.docs {
		if doc.Status == StatusPending && doc.CreatedAt.Before(olderThan) {
			copied := *doc
			out = append(out, &copied)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (r *fakeInvoiceRepo) List(ctx context.Context, filter ListFilter) (domain.ListResult[*SalesInvoice], error) {
	return domain.ListResult[*SalesInvoice]{}, nil
}

// --- Fixture ---

type fixture struct {
	svc       *Service
	docs      *fakeInvoiceRepo
	products  *fakeProductRepo
	stock     *fakeStockRepo
	customers *fakeCustomerRepo

	productID  id.ID
	customerID id.ID
}

// newFixture sets up one product: 25 tablets on hand, 10 per box,
// box price 100000, tablet price 3333.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		docs:      newFakeInvoiceRepo(),
		products:  newFakeProductRepo(),
		stock:     newFakeStockRepo(),
		customers: newFakeCustomerRepo(),
	}

	item := product.NewProduct("PR-2026-00001", "Paracetamol 500mg", "Box", "Tablet", 10)
	item.QuantitySmall = 25
	item.WholesalePriceLarge = 100000
	item.RetailPriceSmall = 3333
	f.productID = item.ID
	f.products.items[item.ID] = item
	f.stock.levels[item.ID] = &stock.Level{
		ProductID:        item.ID,
		ConversionFactor: 10,
		QuantitySmall:    25,
	}

	buyer := customer.NewCustomer("CU-2026-00001", "Nguyen Van An")
	f.customerID = buyer.ID
	f.customers.customers[buyer.ID] = buyer

	txManager := fakeTxManager{docs: f.docs, stock: f.stock}
	f.svc = NewService(f.docs, f.products, f.stock, f.customers, &numerator.MockGenerator{}, txManager)
	return f
}

func (f *fixture) stockSmall(t *testing.T) int64 {
	t.Helper()
	level, err := f.stock.GetLevel(context.Background(), f.productID)
	require.NoError(t, err)
	return level.QuantitySmall
}

// --- ValidateCart ---

func TestValidateCart(t *testing.T) {
	ctx := context.Background()

	t.Run("prices lines per unit mode", func(t *testing.T) {
		f := newFixture(t)

		doc := NewSalesInvoice(nil)
		doc.AddLine(f.productID, 2, stock.UnitLarge)
		doc.AddLine(f.productID, 5, stock.UnitSmall)

		require.NoError(t, f.svc.ValidateCart(ctx, doc))

		assert.Equal(t, types.VND(100000), doc.Lines[0].UnitPrice)
		assert.Equal(t, types.VND(200000), doc.Lines[0].LineTotal)
		assert.Equal(t, int64(20), doc.Lines[0].DeltaSmall)

		assert.Equal(t, types.VND(3333), doc.Lines[1].UnitPrice)
		assert.Equal(t, types.VND(16665), doc.Lines[1].LineTotal)
		assert.Equal(t, int64(5), doc.Lines[1].DeltaSmall)

		assert.Equal(t, types.VND(216665), doc.TotalAmount)
	})

	t.Run("large mode ceiling excludes opened box", func(t *testing.T) {
		f := newFixture(t)

		// 25 tablets = 2 whole boxes; asking for 3 must fail with the ceiling.
		doc := NewSalesInvoice(nil)
		doc.AddLine(f.productID, 3, stock.UnitLarge)

		err := f.svc.ValidateCart(ctx, doc)
		require.Error(t, err)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)
		assert.Equal(t, int64(3), appErr.Details["requested"])
		assert.Equal(t, int64(2), appErr.Details["available"])
		assert.Equal(t, "large", appErr.Details["unit"])
	})

	t.Run("lines for the same product share one pool", func(t *testing.T) {
		f := newFixture(t)

		doc := NewSalesInvoice(nil)
		doc.AddLine(f.productID, 2, stock.UnitLarge) // claims 20 of 25
		doc.AddLine(f.productID, 6, stock.UnitSmall) // only 5 remain

		err := f.svc.ValidateCart(ctx, doc)
		require.Error(t, err)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)
		assert.Equal(t, int64(5), appErr.Details["available"])
	})

	t.Run("rejects marked product", func(t *testing.T) {
		f := newFixture(t)
		f.products.items[f.productID].DeletionMark = true

		doc := NewSalesInvoice(nil)
		doc.AddLine(f.productID, 1, stock.UnitSmall)

		err := f.svc.ValidateCart(ctx, doc)
		requireCode(t, err, apperror.CodeBusinessRule)
	})

	t.Run("rejects unknown product", func(t *testing.T) {
		f := newFixture(t)

		doc := NewSalesInvoice(nil)
		doc.AddLine(id.New(), 1, stock.UnitSmall)

		assert.True(t, apperror.IsNotFound(f.svc.ValidateCart(ctx, doc)))
	})

	t.Run("rejects malformed lines", func(t *testing.T) {
		f := newFixture(t)

		doc := NewSalesInvoice(nil)
		err := f.svc.ValidateCart(ctx, doc)
		requireCode(t, err, apperror.CodeValidation)

		doc = NewSalesInvoice(nil)
		doc.AddLine(f.productID, 0, stock.UnitSmall)
		err = f.svc.ValidateCart(ctx, doc)
		requireCode(t, err, apperror.CodeInvalidInput)

		doc = NewSalesInvoice(nil)
		doc.AddLine(f.productID, 1, stock.UnitMode("bogus"))
		err = f.svc.ValidateCart(ctx, doc)
		requireCode(t, err, apperror.CodeInvalidInput)
	})
}

// --- Commit ---

func TestCommit(t *testing.T) {
	ctx := context.Background()

	t.Run("decrements stock and applies invoice", func(t *testing.T) {
		f := newFixture(t)

		doc := NewSalesInvoice(&f.customerID)
		doc.AddLine(f.productID, 2, stock.UnitLarge)

		require.NoError(t, f.svc.Commit(ctx, doc))

		assert.Equal(t, StatusApplied, doc.Status)
		assert.NotEmpty(t, doc.Number)
		assert.Equal(t, int64(5), f.stockSmall(t))

		saved, err := f.svc.GetByID(ctx, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusApplied, saved.Status)
		require.Len(t, saved.Lines, 1)
		assert.True(t, saved.Lines[0].Applied)

		buyer := f.customers.customers[f.customerID]
		assert.Equal(t, types.VND(200000), buyer.LifetimeTotal)
	})

	t.Run("walk-in sale has no customer side effects", func(t *testing.T) {
		f := newFixture(t)

		doc := NewSalesInvoice(nil)
		doc.AddLine(f.productID, 5, stock.UnitSmall)

		require.NoError(t, f.svc.Commit(ctx, doc))
		assert.Equal(t, int64(20), f.stockSmall(t))
	})

	t.Run("phase two failure leaves invoice pending", func(t *testing.T) {
		f := newFixture(t)

		// Stock shrinks between validation (reads the catalog record) and
		// the guarded decrement.
		f.stock.levels[f.productID].QuantitySmall = 10

		doc := NewSalesInvoice(&f.customerID)
		doc.AddLine(f.productID, 2, stock.UnitLarge)

		err := f.svc.Commit(ctx, doc)
		require.Error(t, err)

		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeConcurrentModification, appErr.Code)
		assert.Equal(t, doc.ID.String(), appErr.Details["invoice_id"])
		assert.Equal(t, string(StatusPending), appErr.Details["invoice_status"])

		// The durability point held: invoice is recorded, stock untouched.
		saved, getErr := f.svc.GetByID(ctx, doc.ID)
		require.NoError(t, getErr)
		assert.Equal(t, StatusPending, saved.Status)
		assert.Equal(t, int64(10), f.stockSmall(t))

		// No purchase was recorded for a sale that did not land.
		assert.Equal(t, types.VND(0), f.customers.customers[f.customerID].LifetimeTotal)
	})

	t.Run("carries the employee reference", func(t *testing.T) {
		f := newFixture(t)

		seller := "Tran Thi Hoa"
		doc := NewSalesInvoice(nil)
		doc.EmployeeName = &seller
		doc.AddLine(f.productID, 1, stock.UnitSmall)

		require.NoError(t, f.svc.Commit(ctx, doc))

		saved, err := f.svc.GetByID(ctx, doc.ID)
		require.NoError(t, err)
		require.NotNil(t, saved.EmployeeName)
		assert.Equal(t, seller, *saved.EmployeeName)
	})

	t.Run("oversell is rejected before anything is written", func(t *testing.T) {
		f := newFixture(t)

		doc := NewSalesInvoice(nil)
		doc.AddLine(f.productID, 26, stock.UnitSmall)

		err := f.svc.Commit(ctx, doc)
		requireCode(t, err, apperror.CodeInsufficientStock)

		_, getErr := f.svc.GetByID(ctx, doc.ID)
		assert.True(t, apperror.IsNotFound(getErr))
		assert.Equal(t, int64(25), f.stockSmall(t))
	})
}

// --- Redrive ---

func TestRedrive(t *testing.T) {
	ctx := context.Background()

	// commitPending drives a commit into the pending state by shrinking
	// stock under the validated cart.
	commitPending := func(t *testing.T, f *fixture) *SalesInvoice {
		t.Helper()
		f.stock.levels[f.productID].QuantitySmall = 10

		doc := NewSalesInvoice(&f.customerID)
		doc.AddLine(f.productID, 2, stock.UnitLarge)
		require.Error(t, f.svc.Commit(ctx, doc))
		return doc
	}

	t.Run("finishes a pending invoice once stock returns", func(t *testing.T) {
		f := newFixture(t)
		doc := commitPending(t, f)

		// Replenishment arrives.
		_, err := f.stock.ApplyDelta(ctx, f.productID, 15)
		require.NoError(t, err)

		require.NoError(t, f.svc.Redrive(ctx, doc.ID))

		saved, err := f.svc.GetByID(ctx, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusApplied, saved.Status)
		assert.Equal(t, int64(5), f.stockSmall(t))
		assert.Equal(t, types.VND(200000), f.customers.customers[f.customerID].LifetimeTotal)
	})

	t.Run("idempotent on applied invoices", func(t *testing.T) {
		f := newFixture(t)

		doc := NewSalesInvoice(nil)
		doc.AddLine(f.productID, 2, stock.UnitLarge)
		require.NoError(t, f.svc.Commit(ctx, doc))
		require.Equal(t, int64(5), f.stockSmall(t))

		// Any number of redrives must not decrement again.
		require.NoError(t, f.svc.Redrive(ctx, doc.ID))
		require.NoError(t, f.svc.Redrive(ctx, doc.ID))
		assert.Equal(t, int64(5), f.stockSmall(t))
	})

	t.Run("reports partial application", func(t *testing.T) {
		f := newFixture(t)
		doc := commitPending(t, f)

		// Still not enough stock for the 20-tablet decrement.
		err := f.svc.Redrive(ctx, doc.ID)
		require.Error(t, err)

		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodePartiallyApplied, appErr.Code)

		saved, getErr := f.svc.GetByID(ctx, doc.ID)
		require.NoError(t, getErr)
		assert.Equal(t, StatusPartiallyApplied, saved.Status)
		assert.Equal(t, int64(10), f.stockSmall(t))
	})

	t.Run("records the purchase after a partial detour", func(t *testing.T) {
		f := newFixture(t)
		doc := commitPending(t, f)

		// First pass still cannot decrement: invoice becomes partially applied.
		err := f.svc.Redrive(ctx, doc.ID)
		requireCode(t, err, apperror.CodePartiallyApplied)
		require.Equal(t, types.VND(0), f.customers.customers[f.customerID].LifetimeTotal)

		// Replenish and finish. The purchase must land exactly once even
		// though the invoice arrives at applied via partially_applied.
		_, err = f.stock.ApplyDelta(ctx, f.productID, 15)
		require.NoError(t, err)
		require.NoError(t, f.svc.Redrive(ctx, doc.ID))
		assert.Equal(t, types.VND(200000), f.customers.customers[f.customerID].LifetimeTotal)

		// Void takes back exactly what was recorded, never more.
		require.NoError(t, f.svc.Void(ctx, doc.ID))
		assert.Equal(t, types.VND(0), f.customers.customers[f.customerID].LifetimeTotal)
	})

	t.Run("rejects voided invoices", func(t *testing.T) {
		f := newFixture(t)
		doc := commitPending(t, f)

		require.NoError(t, f.svc.Void(ctx, doc.ID))
		err := f.svc.Redrive(ctx, doc.ID)
		requireCode(t, err, apperror.CodeInvoiceVoided)
	})
}

// --- Void ---

func TestVoid(t *testing.T) {
	ctx := context.Background()

	t.Run("returns applied decrements to stock", func(t *testing.T) {
		f := newFixture(t)

		doc := NewSalesInvoice(&f.customerID)
		doc.AddLine(f.productID, 2, stock.UnitLarge)
		require.NoError(t, f.svc.Commit(ctx, doc))
		require.Equal(t, int64(5), f.stockSmall(t))

		require.NoError(t, f.svc.Void(ctx, doc.ID))

		saved, err := f.svc.GetByID(ctx, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusVoided, saved.Status)
		assert.Equal(t, int64(25), f.stockSmall(t))

		// Lifetime total rolled back to net zero.
		assert.Equal(t, types.VND(0), f.customers.customers[f.customerID].LifetimeTotal)
	})

	t.Run("unapplied lines are left alone", func(t *testing.T) {
		f := newFixture(t)
		f.stock.levels[f.productID].QuantitySmall = 10

		doc := NewSalesInvoice(nil)
		doc.AddLine(f.productID, 2, stock.UnitLarge)
		require.Error(t, f.svc.Commit(ctx, doc))

		require.NoError(t, f.svc.Void(ctx, doc.ID))
		assert.Equal(t, int64(10), f.stockSmall(t))
	})

	t.Run("void is idempotent", func(t *testing.T) {
		f := newFixture(t)

		doc := NewSalesInvoice(nil)
		doc.AddLine(f.productID, 5, stock.UnitSmall)
		require.NoError(t, f.svc.Commit(ctx, doc))

		require.NoError(t, f.svc.Void(ctx, doc.ID))
		require.NoError(t, f.svc.Void(ctx, doc.ID))
		assert.Equal(t, int64(25), f.stockSmall(t))
	})
}

// --- Worker entry point ---

func TestRedrivePending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.stock.levels[f.productID].QuantitySmall = 10
	doc := NewSalesInvoice(nil)
	doc.AddLine(f.productID, 2, stock.UnitLarge)
	require.Error(t, f.svc.Commit(ctx, doc))

	// Age the invoice past the grace window and restock.
	f.docs.docs[doc.ID].CreatedAt = time.Now().UTC().Add(-time.Hour)
	_, err := f.stock.ApplyDelta(ctx, f.productID, 15)
	require.NoError(t, err)

	examined, err := f.svc.RedrivePending(ctx, time.Minute, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, examined)

	saved, err := f.svc.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusApplied, saved.Status)
	assert.Equal(t, int64(5), f.stockSmall(t))
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok, "expected AppError, got %T", err)
	assert.Equal(t, code, appErr.Code)
}

package receipt

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medstock/internal/core/apperror"
	"medstock/internal/core/id"
	"medstock/internal/core/numerator"
	"medstock/internal/core/types"
	"medstock/internal/domain"
	"medstock/internal/domain/stock"
)

// --- Test fakes ---

// nopTxManager runs the function directly; the fakes have no real
// transactions to manage.
type nopTxManager struct{}

func (nopTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeStockRepo struct {
	levels map[id.ID]*stock.Level
}

func newFakeStockRepo(levels ...stock.Level) *fakeStockRepo {
	r := &fakeStockRepo{levels: make(map[id.ID]*stock.Level)}
	for i := range levels {
		l := levels[i]
		r.levels[l.ProductID] = &l
	}
	return r
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
	level, ok := r.levels[productID]
	if !ok {
		return apperror.NewNotFound("product", productID.String())
	}
	level.AvgCostLarge = avgCostLarge
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

type fakeDocRepo struct {
	docs  map[id.ID]*StockReceipt
	lines map[id.ID][]Line
}

func newFakeDocRepo() *fakeDocRepo {
	return &fakeDocRepo{
		docs:  make(map[id.ID]*StockReceipt),
		lines: make(map[id.ID][]Line),
	}
}

func (r *fakeDocRepo) Create(ctx context.Context, doc *StockReceipt) error {
	copied := *doc
	r.docs[doc.ID] = &copied
	return nil
}

func (r *fakeDocRepo) GetByID(ctx context.Context, docID id.ID) (*StockReceipt, error) {
	doc, ok := r.docs[docID]
	if !ok {
		return nil, apperror.NewNotFound("stock receipt", docID.String())
	}
	copied := *doc
	return &copied, nil
}

func (r *fakeDocRepo) GetByNumber(ctx context.Context, number string) (*StockReceipt, error) {
	for _, doc := range r.docs {
		if doc.Number == number {
			copied := *doc
			return &copied, nil
		}
	}
	return nil, apperror.NewNotFound("stock receipt", number)
}

func (r *fakeDocRepo) Update(ctx context.Context, doc *StockReceipt) error {
	if _, ok := r.docs[doc.ID]; !ok {
		return apperror.NewNotFound("stock receipt", doc.ID.String())
	}
	copied := *doc
	r.docs[doc.ID] = &copied
	return nil
}

func (r *fakeDocRepo) GetLines(ctx context.Context, docID id.ID) ([]Line, error) {
	return append([]Line(nil), r.lines[docID]...), nil
}

func (r *fakeDocRepo) SaveLines(ctx context.Context, docID id.ID, lines []Line) error {
	r.lines[docID] = append([]Line(nil), lines...)
	return nil
}

func (r *fakeDocRepo) List(ctx context.Context, filter ListFilter) (domain.ListResult[*StockReceipt], error) {
	result := domain.ListResult[*StockReceipt]{Limit: filter.Limit, Offset: filter.Offset}
	for _, doc := range r.docs {
		copied := *doc
		result.Items = append(result.Items, &copied)
	}
	result.TotalCount = int64(len(result.Items))
	return result, nil
}

func newTestService(stockRepo *fakeStockRepo, docRepo *fakeDocRepo) *Service {
	return NewService(docRepo, stockRepo, &numerator.MockGenerator{}, nopTxManager{})
}

// --- WeightedAverage ---

func TestWeightedAverage(t *testing.T) {
	t.Run("zero stock takes incoming cost exactly", func(t *testing.T) {
		got := WeightedAverage(0, 10, decimal.Zero, 5, types.VND(120000))
		assert.True(t, got.Equal(types.MustCost("120000")), "got %s", got)
	})

	t.Run("equal weights average evenly", func(t *testing.T) {
		// 10 boxes on hand at 100000, receive 10 at 160000.
		got := WeightedAverage(100, 10, types.MustCost("100000"), 10, types.VND(160000))
		assert.True(t, got.Equal(types.MustCost("130000")), "got %s", got)
	})

	t.Run("opened box keeps fractional weight", func(t *testing.T) {
		// 2.5 boxes at 8000, receive 5 at 12000: 80000 / 7.5.
		got := WeightedAverage(25, 10, types.MustCost("8000"), 5, types.VND(12000))
		want := types.MustCost("80000").Div(types.MustCost("7.5"))
		assert.True(t, got.Equal(want), "got %s want %s", got, want)
	})
}

// --- Receive ---

func TestReceive(t *testing.T) {
	ctx := context.Background()
	productID := id.New()

	setup := func() (*Service, *fakeStockRepo, *fakeDocRepo) {
		stockRepo := newFakeStockRepo(stock.Level{
			ProductID:        productID,
			ConversionFactor: 10,
			QuantitySmall:    0,
			AvgCostLarge:     decimal.Zero,
		})
		docRepo := newFakeDocRepo()
		return newTestService(stockRepo, docRepo), stockRepo, docRepo
	}

	t.Run("applies stock and cost and persists document", func(t *testing.T) {
		svc, stockRepo, docRepo := setup()

		doc := NewStockReceipt()
		doc.AddLine(productID, 5, types.VND(120000))

		require.NoError(t, svc.Receive(ctx, doc))

		assert.NotEmpty(t, doc.Number)

		level, err := stockRepo.GetLevel(ctx, productID)
		require.NoError(t, err)
		assert.Equal(t, int64(50), level.QuantitySmall)
		assert.True(t, level.AvgCostLarge.Equal(types.MustCost("120000")))

		saved, err := docRepo.GetByID(ctx, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, types.VND(600000), saved.TotalAmount)

		lines, err := docRepo.GetLines(ctx, doc.ID)
		require.NoError(t, err)
		require.Len(t, lines, 1)
		assert.True(t, lines[0].CostBefore.IsZero())
		assert.True(t, lines[0].CostAfter.Equal(types.MustCost("120000")))
		assert.Equal(t, int64(50), lines[0].QuantityAfterSmall)
	})

	t.Run("lines carry the resulting stock level", func(t *testing.T) {
		svc, _, _ := setup()

		first := NewStockReceipt()
		first.AddLine(productID, 3, types.VND(100000))
		require.NoError(t, svc.Receive(ctx, first))
		assert.Equal(t, int64(30), first.Lines[0].QuantityAfterSmall)

		// The entry screen shows each line's level as of its own apply.
		second := NewStockReceipt()
		second.AddLine(productID, 2, types.VND(100000))
		require.NoError(t, svc.Receive(ctx, second))
		assert.Equal(t, int64(50), second.Lines[0].QuantityAfterSmall)
	})

	t.Run("second receipt folds into weighted average", func(t *testing.T) {
		svc, stockRepo, _ := setup()

		first := NewStockReceipt()
		first.AddLine(productID, 10, types.VND(100000))
		require.NoError(t, svc.Receive(ctx, first))

		second := NewStockReceipt()
		second.AddLine(productID, 10, types.VND(160000))
		require.NoError(t, svc.Receive(ctx, second))

		level, err := stockRepo.GetLevel(ctx, productID)
		require.NoError(t, err)
		assert.Equal(t, int64(200), level.QuantitySmall)
		assert.True(t, level.AvgCostLarge.Equal(types.MustCost("130000")))
	})

	t.Run("rejects empty document", func(t *testing.T) {
		svc, _, _ := setup()
		err := svc.Receive(ctx, NewStockReceipt())
		require.Error(t, err)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeValidation, appErr.Code)
	})

	t.Run("rejects non-positive quantity and cost", func(t *testing.T) {
		svc, _, _ := setup()

		doc := NewStockReceipt()
		doc.Lines = append(doc.Lines, Line{LineID: id.New(), LineNo: 1, ProductID: productID, QuantityLarge: 0, UnitCostLarge: 100})
		err := svc.Receive(ctx, doc)
		requireCode(t, err, apperror.CodeInvalidInput)

		doc = NewStockReceipt()
		doc.Lines = append(doc.Lines, Line{LineID: id.New(), LineNo: 1, ProductID: productID, QuantityLarge: 5, UnitCostLarge: 0})
		err = svc.Receive(ctx, doc)
		requireCode(t, err, apperror.CodeInvalidInput)
	})

	t.Run("unknown product", func(t *testing.T) {
		svc, _, _ := setup()
		doc := NewStockReceipt()
		doc.AddLine(id.New(), 5, types.VND(1000))
		err := svc.Receive(ctx, doc)
		assert.True(t, apperror.IsNotFound(err))
	})
}

// --- Reverse ---

func TestReverse(t *testing.T) {
	ctx := context.Background()
	productID := id.New()

	t.Run("rolls back stock and restores cost snapshot", func(t *testing.T) {
		stockRepo := newFakeStockRepo(stock.Level{
			ProductID:        productID,
			ConversionFactor: 10,
		})
		docRepo := newFakeDocRepo()
		svc := newTestService(stockRepo, docRepo)

		doc := NewStockReceipt()
		doc.AddLine(productID, 10, types.VND(100000))
		require.NoError(t, svc.Receive(ctx, doc))

		require.NoError(t, svc.Reverse(ctx, doc.ID))

		level, err := stockRepo.GetLevel(ctx, productID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), level.QuantitySmall)
		assert.True(t, level.AvgCostLarge.IsZero(), "got %s", level.AvgCostLarge)

		reversed, err := svc.GetByID(ctx, doc.ID)
		require.NoError(t, err)
		assert.True(t, reversed.Reversed)
		require.NotNil(t, reversed.ReversedAt)
	})

	t.Run("unwinds weighted average with remaining stock", func(t *testing.T) {
		stockRepo := newFakeStockRepo(stock.Level{
			ProductID:        productID,
			ConversionFactor: 10,
		})
		docRepo := newFakeDocRepo()
		svc := newTestService(stockRepo, docRepo)

		first := NewStockReceipt()
		first.AddLine(productID, 10, types.VND(100000))
		require.NoError(t, svc.Receive(ctx, first))

		second := NewStockReceipt()
		second.AddLine(productID, 10, types.VND(160000))
		require.NoError(t, svc.Receive(ctx, second))

		require.NoError(t, svc.Reverse(ctx, second.ID))

		level, err := stockRepo.GetLevel(ctx, productID)
		require.NoError(t, err)
		assert.Equal(t, int64(100), level.QuantitySmall)
		// (20 * 130000 - 10 * 160000) / 10 = 100000
		assert.True(t, level.AvgCostLarge.Equal(types.MustCost("100000")), "got %s", level.AvgCostLarge)
	})

	t.Run("fails when received stock was sold", func(t *testing.T) {
		stockRepo := newFakeStockRepo(stock.Level{
			ProductID:        productID,
			ConversionFactor: 10,
		})
		docRepo := newFakeDocRepo()
		svc := newTestService(stockRepo, docRepo)

		doc := NewStockReceipt()
		doc.AddLine(productID, 10, types.VND(100000))
		require.NoError(t, svc.Receive(ctx, doc))

		// Half the received tablets get dispensed.
		_, err := stockRepo.ApplyDelta(ctx, productID, -50)
		require.NoError(t, err)

		err = svc.Reverse(ctx, doc.ID)
		requireCode(t, err, apperror.CodeBusinessRule)
	})

	t.Run("double reverse is rejected", func(t *testing.T) {
		stockRepo := newFakeStockRepo(stock.Level{
			ProductID:        productID,
			ConversionFactor: 10,
		})
		docRepo := newFakeDocRepo()
		svc := newTestService(stockRepo, docRepo)

		doc := NewStockReceipt()
		doc.AddLine(productID, 10, types.VND(100000))
		require.NoError(t, svc.Receive(ctx, doc))
		require.NoError(t, svc.Reverse(ctx, doc.ID))

		err := svc.Reverse(ctx, doc.ID)
		requireCode(t, err, apperror.CodeConflict)
	})
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok, "expected AppError, got %T", err)
	assert.Equal(t, code, appErr.Code)
}

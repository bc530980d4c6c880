package product

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
)

type nopTxManager struct{}

func (nopTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeRepo struct {
	items map[id.ID]*Product
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{items: make(map[id.ID]*Product)}
}

func (r *fakeRepo) Create(ctx context.Context, item *Product) error {
	copied := *item
	r.items[item.ID] = &copied
	return nil
}

func (r *fakeRepo) GetByID(ctx context.Context, pid id.ID) (*Product, error) {
	item, ok := r.items[pid]
	if !ok {
		return nil, apperror.NewNotFound("product", pid.String())
	}
	copied := *item
	return &copied, nil
}

func (r *fakeRepo) GetByCode(ctx context.Context, code string) (*Product, error) {
	for _, item := range r.items {
		if item.Code == code {
			copied := *item
			return &copied, nil
		}
	}
	return nil, apperror.NewNotFound("product", code)
}

func (r *fakeRepo) Update(ctx context.Context, item *Product) error {
	if _, ok := r.items[item.ID]; !ok {
		return apperror.NewNotFound("product", item.ID.String())
	}
	copied := *item
	r.items[item.ID] = &copied
	return nil
}

func (r *fakeRepo) Delete(ctx context.Context, pid id.ID) error {
	return r.SetDeletionMark(ctx, pid, true)
}

func (r *fakeRepo) SetDeletionMark(ctx context.Context, pid id.ID, marked bool) error {
	item, ok := r.items[pid]
	if !ok {
		return apperror.NewNotFound("product", pid.String())
	}
	item.DeletionMark = marked
	return nil
}

func (r *fakeRepo) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Product], error) {
	return domain.ListResult[*Product]{}, nil
}

func (r *fakeRepo) Exists(ctx context.Context, pid id.ID) (bool, error) {
	_, ok := r.items[pid]
	return ok, nil
}

func (r *fakeRepo) ExistsByCode(ctx context.Context, code string) (bool, error) {
	_, err := r.GetByCode(ctx, code)
	return err == nil, nil
}

func (r *fakeRepo) FindByBarcode(ctx context.Context, barcode string) (*Product, error) {
	for _, item := range r.items {
		if item.Barcode != nil && *item.Barcode == barcode {
			copied := *item
			return &copied, nil
		}
	}
	return nil, apperror.NewNotFound("product", barcode)
}

func (r *fakeRepo) GetForUpdate(ctx context.Context, pid id.ID) (*Product, error) {
	return r.GetByID(ctx, pid)
}

func (r *fakeRepo) FindLowStock(ctx context.Context) ([]*Product, error) {
	var out []*Product
	for _, item := range r.items {
		if item.IsLowStock() {
			copied := *item
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeRepo) FindExpiring(ctx context.Context, before time.Time) ([]*Product, error) {
	return nil, nil
}

var _ Repository = (*fakeRepo)(nil)

func newTestService() (*Service, *fakeRepo) {
	repo := newFakeRepo()
	gen := &numerator.MockGenerator{
		GetNextNumberFunc: func(ctx context.Context, cfg numerator.Config, opts *numerator.Options, period time.Time) (string, error) {
			return cfg.Prefix + "-2026-00001", nil
		},
	}
	return NewService(repo, nopTxManager{}, gen), repo
}

func TestCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("generates code and derives retail price", func(t *testing.T) {
		svc, _ := newTestService()

		item := NewProduct("", "Paracetamol 500mg", "Box", "Tablet", 100)
		item.WholesalePriceLarge = 120000

		require.NoError(t, svc.Create(ctx, item))
		assert.Equal(t, "PR-2026-00001", item.Code)
		assert.Equal(t, types.VND(1200), item.RetailPriceSmall)
	})

	t.Run("derived price rounds half up", func(t *testing.T) {
		svc, _ := newTestService()

		item := NewProduct("", "Oddlot", "Box", "Tablet", 30)
		item.WholesalePriceLarge = 100000

		require.NoError(t, svc.Create(ctx, item))
		assert.Equal(t, types.VND(3333), item.RetailPriceSmall)
	})

	t.Run("explicit retail price survives", func(t *testing.T) {
		svc, _ := newTestService()

		item := NewProduct("", "Paracetamol 500mg", "Box", "Tablet", 100)
		item.WholesalePriceLarge = 120000
		item.RetailPriceSmall = 1500

		require.NoError(t, svc.Create(ctx, item))
		assert.Equal(t, types.VND(1500), item.RetailPriceSmall)
	})

	t.Run("rejects duplicate barcode", func(t *testing.T) {
		svc, _ := newTestService()
		barcode := "8934567000011"

		first := NewProduct("A-1", "First", "Box", "Tablet", 10)
		first.Barcode = &barcode
		require.NoError(t, svc.Create(ctx, first))

		second := NewProduct("A-2", "Second", "Box", "Tablet", 10)
		second.Barcode = &barcode
		err := svc.Create(ctx, second)
		require.Error(t, err)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeConflict, appErr.Code)
	})

	t.Run("rejects bad conversion factor", func(t *testing.T) {
		svc, _ := newTestService()

		item := NewProduct("A-1", "Broken", "Box", "Tablet", 0)
		err := svc.Create(ctx, item)
		require.Error(t, err)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeInvalidConversion, appErr.Code)
	})
}

func TestUpdateConversionFactorFreeze(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService()

	item := NewProduct("A-1", "Paracetamol 500mg", "Box", "Tablet", 100)
	item.WholesalePriceLarge = 120000
	require.NoError(t, svc.Create(ctx, item))

	t.Run("factor may change while no stock", func(t *testing.T) {
		item.ConversionFactor = 50
		require.NoError(t, svc.Update(ctx, item))
	})

	t.Run("factor is frozen once stock exists", func(t *testing.T) {
		repo.items[item.ID].QuantitySmall = 30

		item.ConversionFactor = 20
		err := svc.Update(ctx, item)
		require.Error(t, err)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeBusinessRule, appErr.Code)
	})
}

func TestProductModel(t *testing.T) {
	t.Run("quantity split and stock value", func(t *testing.T) {
		item := NewProduct("A-1", "Paracetamol 500mg", "Box", "Tablet", 10)
		item.QuantitySmall = 25
		item.AvgCostLarge = types.MustCost("100000")

		assert.Equal(t, int64(2), item.QuantityLargeWhole())
		assert.Equal(t, "2.5", item.QuantityLargeExact().String())
		assert.True(t, item.StockValue().Equal(types.MustCost("250000")))
	})

	t.Run("low stock threshold", func(t *testing.T) {
		item := NewProduct("A-1", "Paracetamol 500mg", "Box", "Tablet", 10)
		item.MinStockSmall = 20

		item.QuantitySmall = 20
		assert.True(t, item.IsLowStock())
		item.QuantitySmall = 21
		assert.False(t, item.IsLowStock())

		// A zero threshold disables the flag entirely.
		item.MinStockSmall = 0
		item.QuantitySmall = 0
		assert.False(t, item.IsLowStock())
	})

	t.Run("expiry window", func(t *testing.T) {
		item := NewProduct("A-1", "Paracetamol 500mg", "Box", "Tablet", 10)
		assert.False(t, item.ExpiresWithin(90*24*time.Hour))

		soon := time.Now().Add(30 * 24 * time.Hour)
		item.ExpiryDate = &soon
		assert.True(t, item.ExpiresWithin(90*24*time.Hour))
		assert.False(t, item.ExpiresWithin(10*24*time.Hour))
	})
}

package stock

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medstock/internal/core/apperror"
	"medstock/internal/core/id"
	"medstock/internal/core/types"
)

// fakeRepo is an in-memory stock repository for service tests.
type fakeRepo struct {
	levels map[id.ID]*Level
}

func newFakeRepo(levels ...Level) *fakeRepo {
	r := &fakeRepo{levels: make(map[id.ID]*Level)}
	for i := range levels {
		l := levels[i]
		r.levels[l.ProductID] = &l
	}
	return r
}

func (r *fakeRepo) ApplyDelta(ctx context.Context, productID id.ID, deltaSmall int64) (int64, error) {
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

func (r *fakeRepo) SetCost(ctx context.Context, productID id.ID, avgCostLarge types.Cost) error {
	level, ok := r.levels[productID]
	if !ok {
		return apperror.NewNotFound("product", productID.String())
	}
	level.AvgCostLarge = avgCostLarge
	return nil
}

func (r *fakeRepo) GetLevel(ctx context.Context, productID id.ID) (Level, error) {
	level, ok := r.levels[productID]
	if !ok {
		return Level{}, apperror.NewNotFound("product", productID.String())
	}
	return *level, nil
}

func (r *fakeRepo) GetLevelForUpdate(ctx context.Context, productID id.ID) (Level, error) {
	return r.GetLevel(ctx, productID)
}

func (r *fakeRepo) GetLevels(ctx context.Context, productIDs []id.ID) (map[id.ID]Level, error) {
	out := make(map[id.ID]Level, len(productIDs))
	for _, pid := range productIDs {
		if level, ok := r.levels[pid]; ok {
			out[pid] = *level
		}
	}
	return out, nil
}

var _ Repository = (*fakeRepo)(nil)

func TestAvailableIn(t *testing.T) {
	// 25 tablets, 10 per box: an opened box never sells as a full one.
	level := Level{ConversionFactor: 10, QuantitySmall: 25}

	small, err := AvailableIn(level, UnitSmall)
	require.NoError(t, err)
	assert.Equal(t, int64(25), small)

	large, err := AvailableIn(level, UnitLarge)
	require.NoError(t, err)
	assert.Equal(t, int64(2), large)

	_, err = AvailableIn(level, UnitMode("bogus"))
	require.Error(t, err)
}

func TestDeltaSmall(t *testing.T) {
	t.Run("small mode passes through", func(t *testing.T) {
		got, err := DeltaSmall(7, UnitSmall, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(7), got)
	})

	t.Run("large mode multiplies", func(t *testing.T) {
		got, err := DeltaSmall(3, UnitLarge, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(30), got)
	})

	t.Run("negative large quantity keeps sign", func(t *testing.T) {
		got, err := DeltaSmall(-3, UnitLarge, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(-30), got)
	})

	t.Run("rejects bad factor", func(t *testing.T) {
		_, err := DeltaSmall(3, UnitSmall, 0)
		require.Error(t, err)
		_, err = DeltaSmall(3, UnitLarge, 0)
		require.Error(t, err)
	})

	t.Run("rejects unknown mode", func(t *testing.T) {
		_, err := DeltaSmall(3, UnitMode("bogus"), 10)
		require.Error(t, err)
	})
}

func TestCheckAvailability(t *testing.T) {
	ctx := context.Background()
	productID := id.New()
	svc := NewService(newFakeRepo(Level{
		ProductID:        productID,
		ConversionFactor: 10,
		QuantitySmall:    25,
		AvgCostLarge:     decimal.Zero,
	}))

	t.Run("within stock", func(t *testing.T) {
		require.NoError(t, svc.CheckAvailability(ctx, productID, UnitSmall, 25))
		require.NoError(t, svc.CheckAvailability(ctx, productID, UnitLarge, 2))
	})

	t.Run("shortage reports true ceiling in callers mode", func(t *testing.T) {
		err := svc.CheckAvailability(ctx, productID, UnitLarge, 3)
		require.Error(t, err)

		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)
		assert.Equal(t, int64(3), appErr.Details["requested"])
		assert.Equal(t, int64(2), appErr.Details["available"])
		assert.Equal(t, "large", appErr.Details["unit"])
	})

	t.Run("rejects non-positive request", func(t *testing.T) {
		err := svc.CheckAvailability(ctx, productID, UnitSmall, 0)
		require.Error(t, err)
	})

	t.Run("unknown product", func(t *testing.T) {
		err := svc.CheckAvailability(ctx, id.New(), UnitSmall, 1)
		assert.True(t, apperror.IsNotFound(err))
	})
}

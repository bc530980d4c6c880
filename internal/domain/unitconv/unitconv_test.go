package unitconv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medstock/internal/core/apperror"
	"medstock/internal/core/types"
)

func TestToSmall(t *testing.T) {
	t.Run("converts boxes to tablets", func(t *testing.T) {
		got, err := ToSmall(3, 100)
		require.NoError(t, err)
		assert.Equal(t, int64(300), got)
	})

	t.Run("factor one is identity", func(t *testing.T) {
		got, err := ToSmall(7, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(7), got)
	})

	t.Run("zero quantity", func(t *testing.T) {
		got, err := ToSmall(0, 50)
		require.NoError(t, err)
		assert.Equal(t, int64(0), got)
	})

	t.Run("rejects factor below one", func(t *testing.T) {
		_, err := ToSmall(3, 0)
		requireCode(t, err, apperror.CodeInvalidConversion)

		_, err = ToSmall(3, -10)
		requireCode(t, err, apperror.CodeInvalidConversion)
	})

	t.Run("rejects negative quantity", func(t *testing.T) {
		_, err := ToSmall(-1, 100)
		requireCode(t, err, apperror.CodeInvalidInput)
	})
}

func TestToLarge(t *testing.T) {
	t.Run("exact fraction preserved", func(t *testing.T) {
		got, err := ToLarge(25, 10)
		require.NoError(t, err)
		assert.Equal(t, "2.5", got.String())
	})

	t.Run("whole units", func(t *testing.T) {
		got, err := ToLarge(300, 100)
		require.NoError(t, err)
		assert.True(t, got.Equal(types.MustCost("3")))
	})

	t.Run("rejects factor below one", func(t *testing.T) {
		_, err := ToLarge(25, 0)
		requireCode(t, err, apperror.CodeInvalidConversion)
	})
}

func TestFloorLarge(t *testing.T) {
	t.Run("opened box does not count", func(t *testing.T) {
		got, err := FloorLarge(25, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(2), got)
	})

	t.Run("less than one box", func(t *testing.T) {
		got, err := FloorLarge(9, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(0), got)
	})

	t.Run("rejects negative quantity", func(t *testing.T) {
		_, err := FloorLarge(-1, 10)
		requireCode(t, err, apperror.CodeInvalidInput)
	})

	t.Run("rejects factor below one", func(t *testing.T) {
		_, err := FloorLarge(25, 0)
		requireCode(t, err, apperror.CodeInvalidConversion)
	})
}

func TestSmallUnitPrice(t *testing.T) {
	t.Run("even division", func(t *testing.T) {
		got, err := SmallUnitPrice(types.VND(120000), 100)
		require.NoError(t, err)
		assert.Equal(t, types.VND(1200), got)
	})

	t.Run("rounds half up", func(t *testing.T) {
		// 25 / 2 = 12.5 -> 13
		got, err := SmallUnitPrice(types.VND(25), 2)
		require.NoError(t, err)
		assert.Equal(t, types.VND(13), got)
	})

	t.Run("rounds down below half", func(t *testing.T) {
		// 100000 / 30 = 3333.33 -> 3333
		got, err := SmallUnitPrice(types.VND(100000), 30)
		require.NoError(t, err)
		assert.Equal(t, types.VND(3333), got)
	})

	t.Run("repeated derivation never drifts", func(t *testing.T) {
		first, err := SmallUnitPrice(types.VND(100000), 30)
		require.NoError(t, err)
		for i := 0; i < 10; i++ {
			again, err := SmallUnitPrice(types.VND(100000), 30)
			require.NoError(t, err)
			assert.Equal(t, first, again)
		}
	})

	t.Run("rejects negative price", func(t *testing.T) {
		_, err := SmallUnitPrice(types.VND(-1), 10)
		requireCode(t, err, apperror.CodeInvalidInput)
	})

	t.Run("rejects factor below one", func(t *testing.T) {
		_, err := SmallUnitPrice(types.VND(100), 0)
		requireCode(t, err, apperror.CodeInvalidConversion)
	})
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok, "expected AppError, got %T", err)
	assert.Equal(t, code, appErr.Code)
}

package types

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRoundVND(t *testing.T) {
	cases := []struct {
		in   string
		want VND
	}{
		{"0", 0},
		{"1200", 1200},
		{"3333.33", 3333},
		{"3333.5", 3334},
		{"3333.51", 3334},
		{"12.4999", 12},
	}

	for _, tc := range cases {
		got := RoundVND(decimal.RequireFromString(tc.in))
		assert.Equal(t, tc.want, got, "RoundVND(%s)", tc.in)
	}
}

func TestVNDMul(t *testing.T) {
	assert.Equal(t, VND(360000), VND(120000).Mul(3))
	assert.Equal(t, VND(0), VND(120000).Mul(0))
}

func TestMustCost(t *testing.T) {
	assert.True(t, MustCost("12.5").Equal(decimal.RequireFromString("12.50")))
	assert.Panics(t, func() { MustCost("not a number") })
}

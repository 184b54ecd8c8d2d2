package inventory_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/stock-ledger/internal/domain/inventory"
)

func TestMergeLines_SumaRepetidasYConservaOrden(t *testing.T) {
	got := inventory.MergeLines([]inventory.Line{
		{VariantID: "b", Quantity: 1},
		{VariantID: "a", Quantity: 2},
		{VariantID: "b", Quantity: 3},
	})
	assert.Equal(t, []inventory.Line{
		{VariantID: "b", Quantity: 4},
		{VariantID: "a", Quantity: 2},
	}, got)
}

func TestAddQuantity_DetectaDesbordamiento(t *testing.T) {
	sum, ok := inventory.AddQuantity(3, 4)
	assert.True(t, ok)
	assert.Equal(t, int64(7), sum)

	_, ok = inventory.AddQuantity(math.MaxInt64, 1)
	assert.False(t, ok)
	_, ok = inventory.AddQuantity(math.MinInt64, -1)
	assert.False(t, ok)
	sum, ok = inventory.AddQuantity(math.MaxInt64, -1)
	assert.True(t, ok)
	assert.Equal(t, int64(math.MaxInt64-1), sum)
}

func TestMergedOverflow(t *testing.T) {
	assert.Empty(t, inventory.MergedOverflow([]inventory.Line{{VariantID: "a", Quantity: 1}, {VariantID: "a", Quantity: 2}}))
	assert.Equal(t, "b", inventory.MergedOverflow([]inventory.Line{
		{VariantID: "a", Quantity: math.MaxInt64},
		{VariantID: "b", Quantity: math.MaxInt64},
		{VariantID: "b", Quantity: math.MaxInt64},
	}))
}

func TestShortfalls_VarianteDesconocidaCuentaComoCero(t *testing.T) {
	got := inventory.Shortfalls(
		[]inventory.Line{{VariantID: "x", Quantity: 1}, {VariantID: "ok", Quantity: 2}},
		map[string]int64{"ok": 2},
	)
	assert.Equal(t, []inventory.Shortfall{{VariantID: "x", Requested: 1, Available: 0}}, got)
}

func TestShortfalls_RepetidasSeEvaluanSumadas(t *testing.T) {
	got := inventory.Shortfalls(
		[]inventory.Line{{VariantID: "v", Quantity: 3}, {VariantID: "v", Quantity: 3}},
		map[string]int64{"v": 5},
	)
	assert.Equal(t, []inventory.Shortfall{{VariantID: "v", Requested: 6, Available: 5}}, got)
}

func TestTotals(t *testing.T) {
	got := inventory.Totals(
		map[string]int64{"v1": 6, "v2": 1},
		map[string]map[string]int64{"d1": {"v1": 4}, "d2": {"v1": 2, "v3": 7}},
	)
	assert.Equal(t, map[string]int64{"v1": 12, "v2": 1, "v3": 7}, got)
}

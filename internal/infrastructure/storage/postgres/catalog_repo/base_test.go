package catalog_repo

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"medstock/internal/core/types"
	"medstock/internal/domain/catalogs/customer"
	"medstock/internal/domain/catalogs/product"
	"medstock/internal/infrastructure/storage/postgres"
)

func TestProductUpdateSetMap(t *testing.T) {
	repo := NewProductRepo(nil)

	item := product.NewProduct("PR-2026-00001", "Paracetamol 500mg", "Box", "Tablet", 100)
	item.WholesalePriceLarge = 120000
	item.RetailPriceSmall = 1200
	item.QuantitySmall = 25
	item.AvgCostLarge = types.MustCost("100000")

	setMap := repo.updateSetMap(postgres.StructToMap(item))

	// The stock ledger owns these columns. A card edit carries the values it
	// read before editing; writing them back would overwrite a sale or
	// receipt that landed in between.
	assert.NotContains(t, setMap, "quantity_small")
	assert.NotContains(t, setMap, "avg_cost_large")

	// Immutable columns go through WHERE and the version bump, never SET.
	assert.NotContains(t, setMap, "id")
	assert.NotContains(t, setMap, "version")

	// Editable card fields still pass.
	assert.Equal(t, "Paracetamol 500mg", setMap["name"])
	assert.Equal(t, types.VND(120000), setMap["wholesale_price_large"])
	assert.Contains(t, setMap, "conversion_factor")
	assert.Contains(t, setMap, "retail_price_small")
}

func TestCustomerUpdateSetMap(t *testing.T) {
	repo := NewCustomerRepo(nil)

	buyer := customer.NewCustomer("CU-2026-00001", "Nguyen Van A")
	buyer.LifetimeTotal = 500000

	setMap := repo.updateSetMap(postgres.StructToMap(buyer))

	// Owned by AddToLifetimeTotal's atomic increment.
	assert.NotContains(t, setMap, "lifetime_total")
	assert.Equal(t, "Nguyen Van A", setMap["name"])
}

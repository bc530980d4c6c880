package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"medstock/internal/core/entity"
	"medstock/internal/core/id"
)

type mockCatalog struct {
	entity.Catalog
	Barcode *string `db:"barcode" json:"barcode,omitempty"`
	Factor  int64   `db:"conversion_factor" json:"conversionFactor"`
	Note    string  `db:"-" json:"note"`
}

func TestExtractDBColumns(t *testing.T) {
	cols := ExtractDBColumns[mockCatalog]()

	expectedCols := []string{
		"id", "deletion_mark", "version", "code", "name", "barcode", "conversion_factor",
	}
	for _, expected := range expectedCols {
		assert.Contains(t, cols, expected)
	}

	// db:"-" is skipped.
	assert.NotContains(t, cols, "-")
	assert.NotContains(t, cols, "note")
}

func TestExtractDBColumns_Pointer(t *testing.T) {
	assert.Equal(t, ExtractDBColumns[mockCatalog](), ExtractDBColumns[*mockCatalog]())
}

func TestStructToMap(t *testing.T) {
	barcode := "8934567000011"
	cat := mockCatalog{
		Catalog: entity.Catalog{
			BaseCatalog: entity.BaseCatalog{
				BaseEntity: entity.BaseEntity{
					ID:           id.New(),
					DeletionMark: true,
					Version:      5,
				},
			},
			Code: "PR-2026-00001",
			Name: "Paracetamol 500mg",
		},
		Barcode: &barcode,
		Factor:  100,
		Note:    "never persisted",
	}

	m := StructToMap(cat)

	assert.Equal(t, cat.ID, m["id"])
	assert.Equal(t, true, m["deletion_mark"])
	assert.Equal(t, 5, m["version"])
	assert.Equal(t, "PR-2026-00001", m["code"])
	assert.Equal(t, "Paracetamol 500mg", m["name"])
	assert.Equal(t, &barcode, m["barcode"])
	assert.Equal(t, int64(100), m["conversion_factor"])

	assert.NotContains(t, m, "-")
	assert.NotContains(t, m, "note")
}

func TestStructToMap_PointerInput(t *testing.T) {
	cat := &mockCatalog{
		Catalog: entity.NewCatalog("CU-2026-00001", "Nguyen Van A"),
	}

	m := StructToMap(cat)

	assert.Equal(t, "CU-2026-00001", m["code"])
	assert.Equal(t, cat.ID, m["id"])
}

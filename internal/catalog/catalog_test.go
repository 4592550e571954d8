package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/cesta/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDump = `{
  "ultima_actualizacion": "2025-03-01T06:00:00.000Z",
  "total_productos": 4,
  "productos": [
    {"id": "4241", "nombre": "Leche entera Hacendado", "categoria_L1": "Lácteos y huevos", "categoria_L2": "Leche y bebidas vegetales", "categoria_L3": "Leche entera",
     "precio": 1.05, "precio_anterior": null, "packaging": "Brick", "precio_bulk": 1.05, "unit_size": 1, "size_format": "l", "iva": 4,
     "es_nuevo": false, "tiene_descuento": false, "es_pack": false, "url": "https://example.test/4241", "imagen": "https://example.test/4241.jpg"},
    {"id": 10380, "nombre": "Tomate frito Hacendado", "categoria_L1": "Conservas, caldos y cremas", "categoria_L2": "Tomate", "categoria_L3": "Tomate frito",
     "precio": "0,95", "precio_anterior": 1.10, "packaging": "Bote", "unit_size": "", "size_format": "kg", "iva": 10, "tiene_descuento": true},
    {"id": "4241", "nombre": "Duplicado", "categoria_L1": "Otros", "categoria_L2": "Otros", "categoria_L3": "Otros", "precio": 9},
    {"id": "52001", "nombre": "Leche semidesnatada", "categoria_L1": "Lácteos y huevos", "categoria_L2": "Leche y bebidas vegetales", "categoria_L3": "Leche semi",
     "precio": 0}
  ]
}`

func decodeSample(t *testing.T) *Catalog {
	t.Helper()
	c, err := Decode(strings.NewReader(sampleDump))
	require.NoError(t, err)
	return c
}

func TestDecode(t *testing.T) {
	c := decodeSample(t)

	assert.Equal(t, 3, c.Len(), "duplicate id is dropped")
	assert.Equal(t, 2025, c.UpdatedAt().Year())

	leche, ok := c.ByID("4241")
	require.True(t, ok)
	assert.Equal(t, "Leche entera Hacendado", leche.Name)
	assert.InDelta(t, 1.05, leche.Price, 1e-9)
	assert.Nil(t, leche.PreviousPrice)
	require.NotNil(t, leche.BulkPrice)
	assert.Equal(t, 4, leche.IVA)
	assert.True(t, leche.HasPrice())

	tomate, ok := c.ByID("10380")
	require.True(t, ok, "numeric ids are read as strings")
	assert.InDelta(t, 0.95, tomate.Price, 1e-9)
	require.NotNil(t, tomate.PreviousPrice)
	assert.InDelta(t, 1.10, *tomate.PreviousPrice, 1e-9)
	assert.True(t, tomate.HasDiscount)
	assert.Zero(t, tomate.UnitSize)

	semi, ok := c.ByID("52001")
	require.True(t, ok)
	assert.False(t, semi.HasPrice())

	_, ok = c.ByID("missing")
	assert.False(t, ok)
}

func TestDecode_Invalid(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"productos": [`))
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "productos.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleDump), 0o600))

	c, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Len())

	_, err = LoadFile(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestCategories(t *testing.T) {
	c := decodeSample(t)

	nodes := c.Categories()
	require.Len(t, nodes, 2)
	assert.Equal(t, "Lácteos y huevos", nodes[0].Name)
	assert.Equal(t, 2, nodes[0].ProductCount)
	require.Len(t, nodes[0].Subcategories, 1)
	assert.Equal(t, model.SubcategoryNode{Name: "Leche y bebidas vegetales", ProductCount: 2}, nodes[0].Subcategories[0])
	assert.Equal(t, "Conservas, caldos y cremas", nodes[1].Name)
}

func TestSubcategory(t *testing.T) {
	c := decodeSample(t)

	groups := c.Subcategory("Leche y bebidas vegetales")
	require.Len(t, groups, 2)
	assert.Equal(t, "Leche entera", groups[0].Name)
	assert.Equal(t, "4241", groups[0].Products[0].ID)
	assert.Equal(t, "Leche semi", groups[1].Name)

	assert.Nil(t, c.Subcategory("Nada"))
}

func TestNilCatalog(t *testing.T) {
	var c *Catalog
	assert.Zero(t, c.Len())
	assert.Nil(t, c.Products())
	_, ok := c.ByID("1")
	assert.False(t, ok)
}

func TestNormalizedAt(t *testing.T) {
	c := New([]model.Product{{ID: "2", Name: "Champú  Suave (250ml)", CategoryL1: "Cuidado del cabello", CategoryL2: "Champú"}}, time.Time{})

	n := c.NormalizedAt(0)
	assert.Equal(t, "champu suave 250ml", n.Name)
	assert.Equal(t, "cuidado del cabello", n.CategoryL1)
	assert.Equal(t, "champu", n.CategoryL2)
}

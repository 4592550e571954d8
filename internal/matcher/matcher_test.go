package matcher

import (
	"testing"
	"time"

	"github.com/Veraticus/cesta/internal/catalog"
	"github.com/Veraticus/cesta/internal/model"
	"github.com/Veraticus/cesta/internal/textnorm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAssociations map[string]string

func (f fakeAssociations) Get(itemText string) (model.Association, bool) {
	key := textnorm.Key(itemText)
	id, ok := f[key]
	if !ok {
		return model.Association{}, false
	}
	return model.Association{Key: key, ProductID: id, Source: model.SourceUser}, true
}

type fakePrices map[string]float64

func (f fakePrices) LatestPrice(productID string) (float64, bool) {
	p, ok := f[productID]
	return p, ok
}

var testExcluded = []string{"cuidado", "mascotas", "bebe", "limpieza"}

func floatPtr(f float64) *float64 { return &f }

func product(id, name string, price float64, category string) model.Product {
	return model.Product{ID: id, Name: name, Price: price, CategoryL1: category}
}

func newTestMatcher(assoc AssociationLookup, prices PriceLookup, opts Options) *Matcher {
	if opts.ExcludedCategories == nil {
		opts.ExcludedCategories = testExcluded
	}
	return New(assoc, prices, opts, nil)
}

func TestMatch_HeuristicWithPrice(t *testing.T) {
	c := catalog.New([]model.Product{
		product("1", "Leche Entera 1L", 1.05, "Lácteos"),
		product("2", "Champú Suave", 3.2, "Cuidado"),
	}, time.Time{})
	m := newTestMatcher(nil, nil, DefaultOptions())

	result := m.Match(c, model.TicketLineItem{Name: "LECHE ENTERA", Price: floatPtr(1.05)})

	require.True(t, result.Matched())
	assert.Equal(t, "1", result.MatchedProduct.ID)
	assert.Equal(t, model.MatchSourceHeuristic, result.Source)
	assert.True(t, result.HasPriceMatch)
	assert.False(t, result.NeedsReview)
	// entera(3) + leche(1) + containment(5) + exact price(5)
	assert.Equal(t, 14, result.MatchScore)
	assert.Equal(t, "LECHE ENTERA", result.IngredientName)
	require.NotNil(t, result.TicketPrice)
	assert.InDelta(t, 1.05, *result.TicketPrice, 0.0001)
}

func TestMatch_ExcludedCategoryNeverMatches(t *testing.T) {
	c := catalog.New([]model.Product{
		product("2", "Champú Suave", 3.2, "Cuidado del cabello"),
	}, time.Time{})
	m := newTestMatcher(nil, nil, DefaultOptions())

	result := m.Match(c, model.TicketLineItem{Name: "CHAMPU SUAVE", Price: floatPtr(3.2)})

	assert.False(t, result.Matched())
	assert.False(t, result.NeedsReview)
	assert.Empty(t, result.Suggestions)
}

func TestMatch_AssociationPriority(t *testing.T) {
	c := catalog.New([]model.Product{
		product("A", "Leche semidesnatada", 0.95, "Lácteos"),
		product("B", "Leche Entera 1L", 1.05, "Lácteos"),
	}, time.Time{})
	m := newTestMatcher(fakeAssociations{"leche entera": "A"}, nil, DefaultOptions())

	result := m.Match(c, model.TicketLineItem{Name: "LECHE ENTERA", Price: floatPtr(1.05)})

	require.True(t, result.Matched())
	assert.Equal(t, "A", result.MatchedProduct.ID)
	assert.Equal(t, model.MatchSourceAssociation, result.Source)
	assert.Equal(t, AssociationScore, result.MatchScore)
	// 0.10 / 1.05 is below the mismatch ratio.
	assert.True(t, result.HasPriceMatch)
	assert.False(t, result.PriceMismatch)
}

func TestMatch_AssociationPriceMismatch(t *testing.T) {
	c := catalog.New([]model.Product{
		product("A", "Leche semidesnatada", 1.00, "Lácteos"),
	}, time.Time{})
	m := newTestMatcher(fakeAssociations{"leche entera": "A"}, nil, DefaultOptions())

	result := m.Match(c, model.TicketLineItem{Name: "leche entera", Price: floatPtr(1.50)})

	require.True(t, result.Matched())
	assert.Equal(t, "A", result.MatchedProduct.ID)
	assert.True(t, result.PriceMismatch)
	assert.False(t, result.HasPriceMatch)
}

func TestMatch_AssociationFallsThrough(t *testing.T) {
	tests := []struct {
		name   string
		target string
	}{
		{name: "dangling product", target: "missing"},
		{name: "excluded category", target: "P"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := catalog.New([]model.Product{
				product("P", "Pienso perro", 9.99, "Mascotas"),
				product("B", "Leche Entera 1L", 1.05, "Lácteos"),
			}, time.Time{})
			m := newTestMatcher(fakeAssociations{"leche entera": tt.target}, nil, DefaultOptions())

			result := m.Match(c, model.TicketLineItem{Name: "LECHE ENTERA"})

			require.True(t, result.Matched())
			assert.Equal(t, "B", result.MatchedProduct.ID)
			assert.Equal(t, model.MatchSourceHeuristic, result.Source)
		})
	}
}

func TestMatch_PriceOnlyNeedsReview(t *testing.T) {
	c := catalog.New([]model.Product{
		product("1", "Pan de molde", 1.30, "Panadería"),
		product("2", "Aceite de oliva", 2.05, "Aceite"),
		product("3", "Detergente", 2.00, "Limpieza y hogar"),
		product("4", "Yogur natural", 1.95, "Lácteos"),
		product("5", "Huevos L", 2.50, "Huevos"),
		product("6", "Sal fina", 0, "Despensa"),
	}, time.Time{})
	opts := DefaultOptions()
	opts.MaxSuggestions = 3
	m := newTestMatcher(nil, nil, opts)

	result := m.Match(c, model.TicketLineItem{Name: "ZZZZ QWERTY", Price: floatPtr(2.00)})

	assert.False(t, result.Matched())
	assert.True(t, result.NeedsReview)
	require.Len(t, result.Suggestions, 3)
	assert.Equal(t, "2", result.Suggestions[0].ID)
	assert.Equal(t, "4", result.Suggestions[1].ID)
	assert.Equal(t, "5", result.Suggestions[2].ID)
}

func TestMatch_Unmatched(t *testing.T) {
	c := catalog.New([]model.Product{
		product("1", "Arroz redondo", 1.10, "Arroz"),
	}, time.Time{})
	m := newTestMatcher(nil, nil, DefaultOptions())

	tests := []struct {
		item model.TicketLineItem
		name string
	}{
		{name: "no search terms", item: model.TicketLineItem{Name: "UVA 1234", Price: floatPtr(1.10)}},
		{name: "below threshold", item: model.TicketLineItem{Name: "ARROZ LARGO"}},
		{name: "far price only", item: model.TicketLineItem{Name: "ZZZZ", Price: floatPtr(9.00)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := m.Match(c, tt.item)
			assert.False(t, result.Matched())
			assert.False(t, result.NeedsReview)
			assert.NotNil(t, result.Suggestions)
			assert.Empty(t, result.Suggestions)
			assert.Equal(t, model.MatchSourceNone, result.Source)
		})
	}
}

func TestMatch_AlternatesCapped(t *testing.T) {
	c := catalog.New([]model.Product{
		product("1", "Tomate frito Hacendado", 0.85, "Conservas"),
		product("2", "Tomate frito con aceite", 1.20, "Conservas"),
		product("3", "Tomate triturado", 0.70, "Conservas"),
	}, time.Time{})

	m := newTestMatcher(nil, nil, DefaultOptions())
	result := m.Match(c, model.TicketLineItem{Name: "TOMATE FRITO"})
	require.True(t, result.Matched())
	assert.Equal(t, "1", result.MatchedProduct.ID)
	require.Len(t, result.Alternates, 1)
	assert.Equal(t, "2", result.Alternates[0].ID)

	opts := DefaultOptions()
	opts.MaxProductsPerItem = 3
	m = newTestMatcher(nil, nil, opts)
	result = m.Match(c, model.TicketLineItem{Name: "TOMATE FRITO"})
	require.Len(t, result.Alternates, 2)
	assert.Equal(t, "3", result.Alternates[1].ID)
}

func TestMatch_PriceHistoryFallback(t *testing.T) {
	c := catalog.New([]model.Product{
		product("1", "Zumo de naranja", 0, "Zumos"),
	}, time.Time{})
	m := newTestMatcher(nil, fakePrices{"1": 1.80}, DefaultOptions())

	result := m.Match(c, model.TicketLineItem{Name: "ZUMO NARANJA", Price: floatPtr(1.80)})

	require.True(t, result.Matched())
	assert.True(t, result.HasPriceMatch)
}

func TestMatchAll_PreservesOrder(t *testing.T) {
	c := catalog.New([]model.Product{
		product("1", "Leche Entera 1L", 1.05, "Lácteos"),
		product("2", "Pan de molde", 1.30, "Panadería"),
	}, time.Time{})
	m := newTestMatcher(nil, nil, DefaultOptions())

	results := m.MatchAll(c, []model.TicketLineItem{
		{Name: "PAN DE MOLDE"},
		{Name: "XY"},
		{Name: "LECHE ENTERA"},
	})

	require.Len(t, results, 3)
	assert.Equal(t, "2", results[0].MatchedProduct.ID)
	assert.False(t, results[1].Matched())
	assert.Equal(t, "1", results[2].MatchedProduct.ID)
}

func TestMatch_NilCatalog(t *testing.T) {
	m := newTestMatcher(fakeAssociations{"leche": "1"}, nil, DefaultOptions())

	result := m.Match(nil, model.TicketLineItem{Name: "LECHE", Price: floatPtr(1)})

	assert.False(t, result.Matched())
}

func TestIsExcluded(t *testing.T) {
	m := newTestMatcher(nil, nil, DefaultOptions())

	tests := []struct {
		product model.Product
		want    bool
	}{
		{product: model.Product{CategoryL1: "Bebé"}, want: true},
		{product: model.Product{CategoryL1: "Cuidado facial y corporal"}, want: true},
		{product: model.Product{CategoryL1: "Hogar", CategoryL2: "Limpieza baño"}, want: true},
		{product: model.Product{CategoryL1: "Lácteos"}, want: false},
		{product: model.Product{CategoryL1: "Marisco y pescado"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.product.CategoryL1, func(t *testing.T) {
			assert.Equal(t, tt.want, m.IsExcluded(&tt.product))
		})
	}
}

func TestRelativeDifference(t *testing.T) {
	ratio, ok := RelativeDifference(1.0, 1.25)
	require.True(t, ok)
	assert.InDelta(t, 0.2, ratio, 1e-9)

	ratio, ok = RelativeDifference(2, 2)
	require.True(t, ok)
	assert.Zero(t, ratio)

	_, ok = RelativeDifference(0, 0)
	assert.False(t, ok)
}

func TestPriceScore(t *testing.T) {
	assert.Equal(t, 5, priceScore(0.01))
	assert.Equal(t, 3, priceScore(0.07))
	assert.Equal(t, 1, priceScore(0.15))
	assert.Equal(t, 0, priceScore(0.20))
}

// Package matcher resolves extracted ticket line items to catalog products.
//
// Each item is resolved in two steps. A stored association wins whenever
// the product it points to still exists and is eligible. Otherwise every
// eligible product is scored on lexical overlap with the item name and on
// price proximity, and the best candidate is accepted, offered for review
// or discarded.
package matcher

import (
	"log/slog"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/Veraticus/cesta/internal/catalog"
	"github.com/Veraticus/cesta/internal/common"
	"github.com/Veraticus/cesta/internal/model"
	"github.com/Veraticus/cesta/internal/textnorm"
)

// AssociationScore is the MatchScore reported for association matches.
const AssociationScore = 100

const (
	minTermLength  = 4
	longTermLength = 6
	leadingWords   = 3

	shortTermPoints = 1
	longTermPoints  = 3
	containsBonus   = 5
	leadingBonus    = 3
)

// priceTiers maps relative price difference thresholds to price scores.
var priceTiers = []struct {
	below  float64
	points int
}{
	{0.05, 5},
	{0.10, 3},
	{0.20, 1},
}

// AssociationLookup resolves ticket item text to a stored association.
type AssociationLookup interface {
	Get(itemText string) (model.Association, bool)
}

// PriceLookup supplies a fallback price for products the catalog lists
// without one.
type PriceLookup interface {
	LatestPrice(productID string) (float64, bool)
}

// Options tunes the matcher.
type Options struct {
	ExcludedCategories []string
	MaxProductsPerItem int
	MaxSuggestions     int
	MinTotalScore      int
	PriceMismatchRatio float64
}

// DefaultOptions returns the standard matching parameters.
func DefaultOptions() Options {
	return Options{
		MaxProductsPerItem: 2,
		MaxSuggestions:     5,
		MinTotalScore:      3,
		PriceMismatchRatio: 0.10,
	}
}

// Matcher scores ticket line items against a catalog. It holds no
// per-ticket state and is safe for concurrent use.
type Matcher struct {
	associations AssociationLookup
	prices       PriceLookup
	logger       *slog.Logger
	excluded     []string
	opts         Options
}

// New creates a matcher. Either lookup may be nil.
func New(associations AssociationLookup, prices PriceLookup, opts Options, logger *slog.Logger) *Matcher {
	defaults := DefaultOptions()
	if opts.MaxProductsPerItem <= 0 {
		opts.MaxProductsPerItem = defaults.MaxProductsPerItem
	}
	if opts.MaxSuggestions <= 0 {
		opts.MaxSuggestions = defaults.MaxSuggestions
	}
	if opts.MinTotalScore <= 0 {
		opts.MinTotalScore = defaults.MinTotalScore
	}
	if opts.PriceMismatchRatio <= 0 {
		opts.PriceMismatchRatio = defaults.PriceMismatchRatio
	}

	excluded := make([]string, 0, len(opts.ExcludedCategories))
	for _, c := range opts.ExcludedCategories {
		if n := strings.TrimSpace(textnorm.Normalize(c)); n != "" {
			excluded = append(excluded, n)
		}
	}

	return &Matcher{
		associations: associations,
		prices:       prices,
		logger:       common.LoggerOrDefault(logger).With("component", "matcher"),
		excluded:     excluded,
		opts:         opts,
	}
}

// IsExcluded reports whether a product sits in a non-food category.
// A category is excluded when its first or second level starts with one
// of the configured names, compared without case or diacritics.
func (m *Matcher) IsExcluded(p *model.Product) bool {
	return m.excludedNormalized(textnorm.Normalize(p.CategoryL1), textnorm.Normalize(p.CategoryL2))
}

func (m *Matcher) excludedNormalized(l1, l2 string) bool {
	for _, prefix := range m.excluded {
		if strings.HasPrefix(l1, prefix) || strings.HasPrefix(l2, prefix) {
			return true
		}
	}
	return false
}

// MatchAll matches every item in order.
func (m *Matcher) MatchAll(c *catalog.Catalog, items []model.TicketLineItem) []model.MatchResult {
	results := make([]model.MatchResult, 0, len(items))
	for _, item := range items {
		results = append(results, m.Match(c, item))
	}
	return results
}

// Match resolves a single item. It never fails: an item that cannot be
// resolved comes back unmatched.
func (m *Matcher) Match(c *catalog.Catalog, item model.TicketLineItem) model.MatchResult {
	if result, ok := m.matchAssociation(c, item); ok {
		return result
	}
	return m.matchHeuristic(c, item)
}

func (m *Matcher) matchAssociation(c *catalog.Catalog, item model.TicketLineItem) (model.MatchResult, bool) {
	if m.associations == nil {
		return model.MatchResult{}, false
	}

	assoc, ok := m.associations.Get(item.Name)
	if !ok {
		return model.MatchResult{}, false
	}

	product, ok := c.ByID(assoc.ProductID)
	if !ok {
		m.logger.Debug("Skipping dangling association",
			"key", assoc.Key,
			"product_id", assoc.ProductID)
		return model.MatchResult{}, false
	}
	if m.IsExcluded(product) {
		m.logger.Debug("Skipping association to excluded category",
			"key", assoc.Key,
			"product_id", assoc.ProductID,
			"category", product.CategoryL1)
		return model.MatchResult{}, false
	}

	result := newResult(item)
	result.MatchedProduct = product
	result.MatchScore = AssociationScore
	result.Source = model.MatchSourceAssociation

	if ratio, ok := m.priceRatio(item, product); ok {
		result.HasPriceMatch = ratio < m.opts.PriceMismatchRatio
		result.PriceMismatch = ratio > m.opts.PriceMismatchRatio
	}

	return result, true
}

type candidate struct {
	pos        int
	nameScore  int
	priceScore int
	ratio      float64
	hasRatio   bool
}

func (c candidate) total() int {
	return c.nameScore + c.priceScore
}

func (m *Matcher) matchHeuristic(c *catalog.Catalog, item model.TicketLineItem) model.MatchResult {
	result := newResult(item)

	words := textnorm.Words(item.Name)
	terms := searchTerms(words)
	if len(terms) == 0 {
		m.logger.Debug("No usable search terms", "item", item.Name)
		return result
	}
	itemKey := strings.Join(words, " ")

	var candidates []candidate
	for pos := 0; pos < c.Len(); pos++ {
		norm := c.NormalizedAt(pos)
		if m.excludedNormalized(norm.CategoryL1, norm.CategoryL2) {
			continue
		}

		cand := candidate{pos: pos, nameScore: nameScore(terms, itemKey, norm.Name)}
		if ratio, ok := m.priceRatio(item, c.At(pos)); ok {
			cand.ratio, cand.hasRatio = ratio, true
			cand.priceScore = priceScore(ratio)
		}
		if cand.total() >= m.opts.MinTotalScore {
			candidates = append(candidates, cand)
		}
	}

	if len(candidates) == 0 {
		return result
	}

	// Stable sort keeps catalog order among equal scores.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].total() > candidates[j].total()
	})

	best := candidates[0]
	if best.nameScore == 0 {
		result.NeedsReview = true
		result.Suggestions = m.suggestions(c, item)
		return result
	}

	result.MatchedProduct = c.At(best.pos)
	result.MatchScore = best.total()
	result.Source = model.MatchSourceHeuristic
	result.HasPriceMatch = best.hasRatio && best.ratio < m.opts.PriceMismatchRatio

	for _, cand := range candidates[1:] {
		if len(result.Alternates) >= m.opts.MaxProductsPerItem-1 {
			break
		}
		if cand.nameScore > 0 {
			result.Alternates = append(result.Alternates, *c.At(cand.pos))
		}
	}

	return result
}

// suggestions ranks eligible priced products by how close their price is
// to the ticket price.
func (m *Matcher) suggestions(c *catalog.Catalog, item model.TicketLineItem) []model.Product {
	type scored struct {
		pos   int
		ratio float64
	}

	var pool []scored
	for pos := 0; pos < c.Len(); pos++ {
		norm := c.NormalizedAt(pos)
		if m.excludedNormalized(norm.CategoryL1, norm.CategoryL2) {
			continue
		}
		if ratio, ok := m.priceRatio(item, c.At(pos)); ok {
			pool = append(pool, scored{pos: pos, ratio: ratio})
		}
	}

	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].ratio < pool[j].ratio
	})

	n := min(len(pool), m.opts.MaxSuggestions)
	out := make([]model.Product, 0, n)
	for _, s := range pool[:n] {
		out = append(out, *c.At(s.pos))
	}
	return out
}

// effectivePrice is the catalog price, or the last recorded price when the
// catalog lists none.
func (m *Matcher) effectivePrice(p *model.Product) (float64, bool) {
	if p.HasPrice() {
		return p.Price, true
	}
	if m.prices != nil {
		return m.prices.LatestPrice(p.ID)
	}
	return 0, false
}

// priceRatio is the difference between the ticket and product prices
// relative to the larger of the two.
func (m *Matcher) priceRatio(item model.TicketLineItem, p *model.Product) (float64, bool) {
	if item.Price == nil {
		return 0, false
	}
	price, ok := m.effectivePrice(p)
	if !ok {
		return 0, false
	}
	return RelativeDifference(*item.Price, price)
}

// RelativeDifference returns |a-b| / max(a, b). It reports false when
// neither value is positive.
func RelativeDifference(a, b float64) (float64, bool) {
	larger := math.Max(a, b)
	if larger <= 0 {
		return 0, false
	}
	return math.Abs(a-b) / larger, true
}

func priceScore(ratio float64) int {
	for _, tier := range priceTiers {
		if ratio < tier.below {
			return tier.points
		}
	}
	return 0
}

// searchTerms keeps the words long enough to carry meaning, dropping
// pure numbers and repeats.
func searchTerms(words []string) []string {
	seen := make(map[string]bool, len(words))
	var terms []string
	for _, w := range words {
		if utf8.RuneCountInString(w) < minTermLength || textnorm.IsDigits(w) || seen[w] {
			continue
		}
		seen[w] = true
		terms = append(terms, w)
	}
	return terms
}

func nameScore(terms []string, itemKey, name string) int {
	score := 0
	for _, term := range terms {
		if !strings.Contains(name, term) {
			continue
		}
		if utf8.RuneCountInString(term) >= longTermLength {
			score += longTermPoints
		} else {
			score += shortTermPoints
		}
	}

	if strings.Contains(name, itemKey) {
		score += containsBonus
	}
	if leading := leadingPortion(name); leading != "" && strings.Contains(itemKey, leading) {
		score += leadingBonus
	}

	return score
}

func leadingPortion(name string) string {
	fields := strings.Fields(name)
	if len(fields) > leadingWords {
		fields = fields[:leadingWords]
	}
	return strings.Join(fields, " ")
}

func newResult(item model.TicketLineItem) model.MatchResult {
	return model.MatchResult{
		IngredientName: item.Name,
		TicketPrice:    item.Price,
		Suggestions:    []model.Product{},
	}
}

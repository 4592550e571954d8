// Package engine ties the catalog, search index, ticket extractor, matcher
// and persistent stores together behind the operations callers use.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/Veraticus/cesta/internal/catalog"
	"github.com/Veraticus/cesta/internal/common"
	"github.com/Veraticus/cesta/internal/matcher"
	"github.com/Veraticus/cesta/internal/model"
	"github.com/Veraticus/cesta/internal/search"
	"github.com/google/uuid"
)

// Config holds the tuning passed down to the search engine and matcher.
type Config struct {
	Search  search.Options
	Matcher matcher.Options
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Search:  search.DefaultOptions(),
		Matcher: matcher.DefaultOptions(),
	}
}

// snapshot pairs a catalog with the search engine built over it. Both are
// swapped together so readers never see an index over another catalog.
type snapshot struct {
	catalog *catalog.Catalog
	search  *search.Engine
}

// Engine is safe for concurrent use. Search and match operations read the
// current snapshot without locking; reloads build a new snapshot and swap
// it in.
type Engine struct {
	extractor    Extractor
	associations AssociationStore
	prices       PriceHistory
	matcher      *matcher.Matcher
	logger       *slog.Logger
	current      atomic.Pointer[snapshot]
	newID        func() string
	config       Config
	reloadMu     sync.Mutex
}

// New creates an engine with no catalog loaded.
func New(extractor Extractor, associations AssociationStore, prices PriceHistory, config Config, logger *slog.Logger) *Engine {
	logger = common.LoggerOrDefault(logger)
	return &Engine{
		extractor:    extractor,
		associations: associations,
		prices:       prices,
		matcher:      matcher.New(associations, prices, config.Matcher, logger),
		logger:       logger.With("component", "engine"),
		newID:        func() string { return uuid.NewString() },
		config:       config,
	}
}

// LoadCatalog indexes c and makes it the current snapshot. The query cache
// of the previous snapshot is discarded with it.
func (e *Engine) LoadCatalog(c *catalog.Catalog) error {
	if c == nil {
		return fmt.Errorf("load catalog: %w", common.ErrCatalogUnavailable)
	}

	e.reloadMu.Lock()
	defer e.reloadMu.Unlock()

	next := &snapshot{
		catalog: c,
		search:  search.NewEngine(c, e.config.Search, e.logger),
	}
	previous := e.current.Swap(next)

	attrs := []any{"products", c.Len(), "updated_at", c.UpdatedAt()}
	if previous != nil {
		attrs = append(attrs, "previous_products", previous.catalog.Len())
	}
	e.logger.Info("Catalog loaded", attrs...)
	return nil
}

// Catalog returns the current catalog, or nil when none is loaded.
func (e *Engine) Catalog() *catalog.Catalog {
	if s := e.current.Load(); s != nil {
		return s.catalog
	}
	return nil
}

// Products returns the current catalog's products, or nil when none is
// loaded.
func (e *Engine) Products() []model.Product {
	return e.Catalog().Products()
}

// Search returns up to limit products ranked for query. A limit of zero
// uses the configured default.
func (e *Engine) Search(query string, limit int) []model.Product {
	s := e.current.Load()
	if s == nil {
		e.logger.Warn("Search without catalog", "query", query, "error", common.ErrCatalogUnavailable)
		return []model.Product{}
	}
	return s.search.Search(query, limit)
}

// Rank is Search with scores attached.
func (e *Engine) Rank(query string, limit int) []search.Hit {
	s := e.current.Load()
	if s == nil {
		e.logger.Warn("Search without catalog", "query", query, "error", common.ErrCatalogUnavailable)
		return []search.Hit{}
	}
	return s.search.Rank(query, limit)
}

// ExtractLineItems runs only the extraction step over ticket text.
func (e *Engine) ExtractLineItems(ticketText string) []model.TicketLineItem {
	return e.extractor.Extract(ticketText)
}

// MatchTicket extracts line items from ticket text and resolves each one.
// It always returns a result; without a catalog every item is unmatched.
func (e *Engine) MatchTicket(ticketText string) model.TicketMatch {
	result := model.TicketMatch{
		TicketID:  e.newID(),
		LineItems: e.extractor.Extract(ticketText),
	}
	logger := e.logger.With("ticket_id", result.TicketID)

	s := e.current.Load()
	if s == nil {
		logger.Warn("Matching ticket without catalog", "error", common.ErrCatalogUnavailable)
		result.Matches = e.matcher.MatchAll(nil, result.LineItems)
		return result
	}

	result.CatalogAvailable = true
	result.Matches = e.matcher.MatchAll(s.catalog, result.LineItems)

	logger.Info("Ticket matched",
		"items", len(result.LineItems),
		"matched", result.MatchedCount())
	return result
}

// GetPriceHistory returns a product's price series, limited to the last
// sinceDays days when sinceDays is set.
func (e *Engine) GetPriceHistory(productID string, sinceDays *int) []model.PricePoint {
	return e.prices.History(productID, sinceDays)
}

// GetPriceTrend summarizes the series GetPriceHistory returns.
func (e *Engine) GetPriceTrend(productID string, sinceDays *int) (model.PriceTrend, error) {
	return e.prices.Trend(productID, sinceDays)
}

// SnapshotPrices records today's price for every priced catalog product.
func (e *Engine) SnapshotPrices(ctx context.Context) (int, error) {
	products := e.Products()
	if products == nil {
		return 0, fmt.Errorf("snapshot prices: %w", common.ErrCatalogUnavailable)
	}
	return e.prices.Snapshot(ctx, products), nil
}

// RecordAssociation stores a user confirmation that ticketItemText refers
// to productID. A nil productID deletes the association instead.
func (e *Engine) RecordAssociation(ctx context.Context, ticketItemText string, productID *string) error {
	return e.RecordAssociationWithSource(ctx, ticketItemText, productID, model.SourceUser)
}

// RecordAssociationWithSource is RecordAssociation with an explicit source.
// Products in excluded categories are skipped without error.
func (e *Engine) RecordAssociationWithSource(ctx context.Context, ticketItemText string, productID *string, source model.AssociationSource) error {
	if strings.TrimSpace(ticketItemText) == "" {
		return common.NewUserError("ticket item text is required", nil)
	}

	if productID == nil {
		if e.associations.Delete(ctx, ticketItemText) {
			e.logger.Info("Association deleted", "item", ticketItemText)
		}
		return nil
	}

	c := e.Catalog()
	if c == nil {
		return fmt.Errorf("record association: %w", common.ErrCatalogUnavailable)
	}

	product, ok := c.ByID(*productID)
	if !ok {
		return fmt.Errorf("record association for %q: %w: %s", ticketItemText, common.ErrProductNotFound, *productID)
	}

	if e.matcher.IsExcluded(product) {
		e.logger.Info("Skipping association to excluded category",
			"item", ticketItemText,
			"product_id", product.ID,
			"category", product.CategoryL1)
		return nil
	}

	a := e.associations.Put(ctx, ticketItemText, product, source)
	e.logger.Info("Association recorded",
		"key", a.Key,
		"product_id", a.ProductID,
		"source", a.Source)
	return nil
}

// ListAssociations returns every stored association ordered by key.
func (e *Engine) ListAssociations() []model.Association {
	return e.associations.List()
}

// IsExcluded reports whether p sits in a category ineligible for matching.
func (e *Engine) IsExcluded(p *model.Product) bool {
	return e.matcher.IsExcluded(p)
}

// CachedQueries returns the number of cached results held by the current
// search engine.
func (e *Engine) CachedQueries() int {
	if s := e.current.Load(); s != nil {
		return s.search.CachedQueries()
	}
	return 0
}

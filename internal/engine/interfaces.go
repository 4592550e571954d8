package engine

import (
	"context"

	"github.com/Veraticus/cesta/internal/matcher"
	"github.com/Veraticus/cesta/internal/model"
)

// Extractor turns raw ticket text into candidate line items.
type Extractor interface {
	Extract(text string) []model.TicketLineItem
}

// AssociationStore defines the learned-association state the engine reads
// during matching and updates on confirmation.
type AssociationStore interface {
	matcher.AssociationLookup
	Put(ctx context.Context, itemText string, product *model.Product, source model.AssociationSource) model.Association
	Delete(ctx context.Context, itemText string) bool
	List() []model.Association
}

// PriceHistory defines the price snapshot state the engine reads and feeds.
type PriceHistory interface {
	matcher.PriceLookup
	History(productID string, sinceDays *int) []model.PricePoint
	Trend(productID string, sinceDays *int) (model.PriceTrend, error)
	Snapshot(ctx context.Context, products []model.Product) int
}

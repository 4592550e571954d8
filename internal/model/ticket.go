package model

// TicketLineItem is one candidate product line extracted from a ticket.
type TicketLineItem struct {
	Price   *float64
	RawLine string
	Name    string
}

// MatchSource tells how a MatchResult was resolved.
type MatchSource string

const (
	// MatchSourceNone is used for unmatched items and review suggestions.
	MatchSourceNone MatchSource = ""
	// MatchSourceAssociation means a stored association resolved the item.
	MatchSourceAssociation MatchSource = "association"
	// MatchSourceHeuristic means lexical and price scoring resolved the item.
	MatchSourceHeuristic MatchSource = "heuristic"
)

// MatchResult is the outcome of matching one ticket line item.
type MatchResult struct {
	TicketPrice    *float64
	MatchedProduct *Product
	IngredientName string
	Source         MatchSource
	Suggestions    []Product
	Alternates     []Product
	MatchScore     int
	HasPriceMatch  bool
	PriceMismatch  bool
	NeedsReview    bool
}

// Matched reports whether a product was accepted for the item.
func (r *MatchResult) Matched() bool {
	return r.MatchedProduct != nil
}

// TicketMatch is the full result of processing one ticket.
type TicketMatch struct {
	TicketID         string
	LineItems        []TicketLineItem
	Matches          []MatchResult
	CatalogAvailable bool
}

// MatchedCount returns the number of items with an accepted product.
func (t *TicketMatch) MatchedCount() int {
	n := 0
	for i := range t.Matches {
		if t.Matches[i].Matched() {
			n++
		}
	}
	return n
}

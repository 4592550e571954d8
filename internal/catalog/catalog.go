// Package catalog holds the immutable product snapshot the engine searches
// and matches against.
package catalog

import (
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/cesta/internal/model"
	"github.com/Veraticus/cesta/internal/textnorm"
)

// Normalized holds the normalized text of one product. Name is the
// normalized words joined by single spaces.
type Normalized struct {
	Name       string
	CategoryL1 string
	CategoryL2 string
}

// Catalog is an immutable snapshot of all products. A reload builds a new
// Catalog rather than mutating an existing one.
type Catalog struct {
	updatedAt  time.Time
	byID       map[string]int
	products   []model.Product
	normalized []Normalized
}

// New builds a catalog from products. Products without an id are dropped
// and duplicate ids keep their first occurrence.
func New(products []model.Product, updatedAt time.Time) *Catalog {
	c := &Catalog{
		updatedAt: updatedAt,
		byID:      make(map[string]int, len(products)),
		products:  make([]model.Product, 0, len(products)),
	}

	for _, p := range products {
		if p.ID == "" {
			slog.Warn("Skipping product without id", "name", p.Name)
			continue
		}
		if _, dup := c.byID[p.ID]; dup {
			slog.Warn("Skipping duplicate product id", "id", p.ID, "name", p.Name)
			continue
		}
		c.byID[p.ID] = len(c.products)
		c.products = append(c.products, p)
		c.normalized = append(c.normalized, Normalized{
			Name:       strings.Join(textnorm.Words(p.Name), " "),
			CategoryL1: textnorm.Normalize(p.CategoryL1),
			CategoryL2: textnorm.Normalize(p.CategoryL2),
		})
	}

	return c
}

// Len returns the number of products.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.products)
}

// At returns the product at position i. Positions are stable for the
// lifetime of the snapshot.
func (c *Catalog) At(i int) *model.Product {
	return &c.products[i]
}

// NormalizedAt returns the normalized text of the product at position i.
func (c *Catalog) NormalizedAt(i int) Normalized {
	return c.normalized[i]
}

// Products returns the products in catalog order. Callers must not modify
// the returned slice.
func (c *Catalog) Products() []model.Product {
	if c == nil {
		return nil
	}
	return c.products
}

// ByID looks up a product by id.
func (c *Catalog) ByID(id string) (*model.Product, bool) {
	if c == nil {
		return nil, false
	}
	i, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	return &c.products[i], true
}

// UpdatedAt is the sync time recorded in the product dump.
func (c *Catalog) UpdatedAt() time.Time {
	return c.updatedAt
}

// Categories returns the L1 -> L2 tree in first-seen order.
func (c *Catalog) Categories() []model.CategoryNode {
	var nodes []model.CategoryNode
	l1Index := make(map[string]int)
	l2Index := make(map[string]map[string]int)

	for _, p := range c.Products() {
		i, ok := l1Index[p.CategoryL1]
		if !ok {
			i = len(nodes)
			l1Index[p.CategoryL1] = i
			l2Index[p.CategoryL1] = make(map[string]int)
			nodes = append(nodes, model.CategoryNode{Name: p.CategoryL1})
		}
		node := &nodes[i]
		node.ProductCount++

		j, ok := l2Index[p.CategoryL1][p.CategoryL2]
		if !ok {
			j = len(node.Subcategories)
			l2Index[p.CategoryL1][p.CategoryL2] = j
			node.Subcategories = append(node.Subcategories, model.SubcategoryNode{Name: p.CategoryL2})
		}
		node.Subcategories[j].ProductCount++
	}

	return nodes
}

// Subcategory returns the products of an L2 category grouped by L3, both in
// first-seen order. It returns nil when no product belongs to l2.
func (c *Catalog) Subcategory(l2 string) []model.ProductGroup {
	var groups []model.ProductGroup
	index := make(map[string]int)

	for _, p := range c.Products() {
		if p.CategoryL2 != l2 {
			continue
		}
		i, ok := index[p.CategoryL3]
		if !ok {
			i = len(groups)
			index[p.CategoryL3] = i
			groups = append(groups, model.ProductGroup{Name: p.CategoryL3})
		}
		groups[i].Products = append(groups[i].Products, p)
	}

	return groups
}

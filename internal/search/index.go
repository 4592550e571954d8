// Package search implements the inverted token index over product names and
// the ranked query engine that serves it.
package search

import (
	"strings"

	"github.com/Veraticus/cesta/internal/catalog"
	"github.com/Veraticus/cesta/internal/textnorm"
)

// Index maps normalized words and word prefixes to the catalog positions
// whose names contain them. An Index is immutable once built and only ever
// references the catalog it was built from.
type Index struct {
	catalog   *catalog.Catalog
	tokens    map[string][]int
	names     []string
	prefixMin int
	prefixMax int
}

// BuildIndex tokenizes every product name in c. Each word is registered
// in full and as every prefix from prefixMin to min(prefixMax, len(word)).
func BuildIndex(c *catalog.Catalog, prefixMin, prefixMax int) *Index {
	idx := &Index{
		catalog:   c,
		tokens:    make(map[string][]int),
		names:     make([]string, c.Len()),
		prefixMin: prefixMin,
		prefixMax: prefixMax,
	}

	for pos := 0; pos < c.Len(); pos++ {
		name := c.NormalizedAt(pos).Name
		idx.names[pos] = name
		for _, w := range strings.Fields(name) {
			idx.add(w, pos)
			for _, prefix := range textnorm.Prefixes(w, prefixMin, prefixMax) {
				idx.add(prefix, pos)
			}
		}
	}

	return idx
}

// add registers pos under token. Positions arrive in increasing order, so
// checking the tail is enough to keep each set free of duplicates.
func (idx *Index) add(token string, pos int) {
	set := idx.tokens[token]
	if n := len(set); n > 0 && set[n-1] == pos {
		return
	}
	idx.tokens[token] = append(set, pos)
}

// Lookup resolves a query token: the exact token first, then its prefixes
// from the longest indexed length down to the shortest. It returns the
// token that matched and its position set.
func (idx *Index) Lookup(token string) (string, []int) {
	if set, ok := idx.tokens[token]; ok {
		return token, set
	}
	r := []rune(token)
	for n := min(idx.prefixMax, len(r)); n >= idx.prefixMin; n-- {
		prefix := string(r[:n])
		if set, ok := idx.tokens[prefix]; ok {
			return prefix, set
		}
	}
	return "", nil
}

// TokenCount returns the number of distinct tokens.
func (idx *Index) TokenCount() int {
	return len(idx.tokens)
}

// Catalog returns the catalog the index was built from.
func (idx *Index) Catalog() *catalog.Catalog {
	return idx.catalog
}

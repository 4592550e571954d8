package search

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/Veraticus/cesta/internal/catalog"
	"github.com/Veraticus/cesta/internal/common"
	"github.com/Veraticus/cesta/internal/model"
	"github.com/Veraticus/cesta/internal/textnorm"
	"golang.org/x/sync/singleflight"
)

// MinQueryLength is the shortest normalized query that reaches the index.
const MinQueryLength = 2

// Options tunes the query engine.
type Options struct {
	DefaultLimit   int
	CandidateLimit int
	CacheSize      int
	PrefixMin      int
	PrefixMax      int
	PrefixBoost    int
}

// DefaultOptions returns the stock tuning.
func DefaultOptions() Options {
	return Options{
		DefaultLimit:   20,
		CandidateLimit: 50,
		CacheSize:      1000,
		PrefixMin:      2,
		PrefixMax:      8,
		PrefixBoost:    3,
	}
}

// Hit is one ranked search result.
type Hit struct {
	Product *model.Product
	Score   int
}

// Engine answers free-text queries against one index. Each Engine owns its
// cache, so swapping in a new Engine after a catalog reload also drops
// every cached result.
type Engine struct {
	index  *Index
	cache  *queryCache
	logger *slog.Logger
	group  singleflight.Group
	opts   Options
}

// NewEngine indexes c and returns an engine over it.
func NewEngine(c *catalog.Catalog, opts Options, logger *slog.Logger) *Engine {
	def := DefaultOptions()
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = def.DefaultLimit
	}
	if opts.CandidateLimit < opts.DefaultLimit {
		opts.CandidateLimit = max(def.CandidateLimit, opts.DefaultLimit)
	}
	if opts.PrefixMin <= 0 {
		opts.PrefixMin = def.PrefixMin
	}
	if opts.PrefixMax < opts.PrefixMin {
		opts.PrefixMax = max(def.PrefixMax, opts.PrefixMin)
	}

	logger = common.LoggerOrDefault(logger).With("component", "search")
	idx := BuildIndex(c, opts.PrefixMin, opts.PrefixMax)
	logger.Debug("Built search index", "products", c.Len(), "tokens", idx.TokenCount())

	return &Engine{
		index:  idx,
		cache:  newQueryCache(opts.CacheSize),
		logger: logger,
		opts:   opts,
	}
}

// Catalog returns the catalog this engine searches.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.index.Catalog()
}

// Search returns up to limit products ranked for query. A limit of zero or
// less means the default limit. Queries shorter than two normalized
// characters return nothing.
func (e *Engine) Search(query string, limit int) []model.Product {
	hits := e.Rank(query, limit)
	if len(hits) == 0 {
		return nil
	}
	out := make([]model.Product, len(hits))
	for i, h := range hits {
		out[i] = *h.Product
	}
	return out
}

// Rank is Search with scores attached.
func (e *Engine) Rank(query string, limit int) []Hit {
	key := strings.Join(textnorm.Words(query), " ")
	if len([]rune(key)) < MinQueryLength {
		return nil
	}
	if limit <= 0 {
		limit = e.opts.DefaultLimit
	}

	hits, ok := e.cache.get(key)
	if !ok {
		v, _, _ := e.group.Do(key, func() (any, error) {
			if cached, hit := e.cache.get(key); hit {
				return cached, nil
			}
			ranked := e.rank(key)
			e.cache.put(key, ranked)
			return ranked, nil
		})
		hits = v.([]Hit)
	}

	if len(hits) > limit {
		hits = hits[:limit]
	}
	return append([]Hit(nil), hits...)
}

// rank scores every candidate for the normalized query key.
func (e *Engine) rank(key string) []Hit {
	tokens := strings.Fields(key)
	scores := make(map[int]int)
	seen := make(map[string]bool, len(tokens))

	for _, token := range tokens {
		if seen[token] {
			continue
		}
		seen[token] = true
		if _, set := e.index.Lookup(token); set != nil {
			for _, pos := range set {
				scores[pos]++
			}
		}
	}

	positions := make([]int, 0, len(scores))
	for pos, score := range scores {
		if strings.HasPrefix(e.index.names[pos], key) {
			scores[pos] = score + e.opts.PrefixBoost
		}
		positions = append(positions, pos)
	}

	sort.Slice(positions, func(i, j int) bool {
		a, b := positions[i], positions[j]
		if scores[a] != scores[b] {
			return scores[a] > scores[b]
		}
		return a < b
	})

	if len(positions) > e.opts.CandidateLimit {
		positions = positions[:e.opts.CandidateLimit]
	}

	hits := make([]Hit, len(positions))
	for i, pos := range positions {
		hits[i] = Hit{Product: e.index.Catalog().At(pos), Score: scores[pos]}
	}

	e.logger.Debug("Ranked query", "query", key, "candidates", len(scores), "returned", len(hits))
	return hits
}

// CachedQueries returns the number of cached query results.
func (e *Engine) CachedQueries() int {
	return e.cache.size()
}

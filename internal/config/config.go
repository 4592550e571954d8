package config

import (
	"fmt"
	"time"
	_ "time/tzdata" // Europe/Madrid must resolve on hosts without zoneinfo

	"github.com/Veraticus/cesta/internal/common"
	"github.com/spf13/viper"
)

// DefaultExcludedCategories lists the non-food category prefixes that are
// never eligible for ticket matching. Values are compared after
// normalization.
var DefaultExcludedCategories = []string{
	"cuidado",
	"mascotas",
	"bebe",
	"parafarmacia",
	"fitoterapia",
	"limpieza",
	"maquillaje",
	"higiene",
}

// Config is the typed view over every setting the engine reads.
type Config struct {
	Logging      LoggingConfig
	Database     DatabaseConfig
	Catalog      CatalogConfig
	Search       SearchConfig
	Ticket       TicketConfig
	Matcher      MatcherConfig
	PriceHistory PriceHistoryConfig
}

// LoggingConfig configures slog.
type LoggingConfig struct {
	Level  string
	Format string
}

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path string
}

// CatalogConfig locates the synced product dump.
type CatalogConfig struct {
	Path string
}

// SearchConfig tunes the inverted index and query engine.
type SearchConfig struct {
	DefaultLimit   int
	CandidateLimit int
	CacheSize      int
	PrefixMin      int
	PrefixMax      int
	PrefixBoost    int
}

// TicketConfig tunes line extraction.
type TicketConfig struct {
	PatternsFile string
	MaxItems     int
}

// MatcherConfig tunes ingredient matching.
type MatcherConfig struct {
	ExcludedCategories []string
	MaxProductsPerItem int
	MaxSuggestions     int
	MinTotalScore      int
	PriceMismatchRatio float64
}

// PriceHistoryConfig tunes the daily snapshot job.
type PriceHistoryConfig struct {
	Timezone  string
	Interval  time.Duration
	MaxPoints int
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("database.path", "$HOME/.local/share/cesta/cesta.db")
	v.SetDefault("catalog.path", "$HOME/.local/share/cesta/productos.json")

	v.SetDefault("search.default_limit", 20)
	v.SetDefault("search.candidate_limit", 50)
	v.SetDefault("search.cache_size", 1000)
	v.SetDefault("search.prefix_min", 2)
	v.SetDefault("search.prefix_max", 8)
	v.SetDefault("search.prefix_boost", 3)

	v.SetDefault("ticket.max_items", 30)
	v.SetDefault("ticket.patterns_file", "")

	v.SetDefault("matcher.max_products_per_item", 2)
	v.SetDefault("matcher.max_suggestions", 5)
	v.SetDefault("matcher.min_total_score", 3)
	v.SetDefault("matcher.price_mismatch_ratio", 0.10)
	v.SetDefault("matcher.excluded_categories", DefaultExcludedCategories)

	v.SetDefault("pricehistory.max_points", 365)
	v.SetDefault("pricehistory.interval", 24*time.Hour)
	v.SetDefault("pricehistory.timezone", "Europe/Madrid")
}

// Default returns the configuration produced by SetDefaults alone.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := Load(v)
	if err != nil {
		panic(fmt.Sprintf("default configuration is invalid: %v", err))
	}
	return cfg
}

// Load reads and validates the configuration held by v. Unset keys fall
// back to the defaults.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	cfg := &Config{
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
		Database: DatabaseConfig{Path: ExpandPath(v.GetString("database.path"))},
		Catalog:  CatalogConfig{Path: ExpandPath(v.GetString("catalog.path"))},
		Search: SearchConfig{
			DefaultLimit:   v.GetInt("search.default_limit"),
			CandidateLimit: v.GetInt("search.candidate_limit"),
			CacheSize:      v.GetInt("search.cache_size"),
			PrefixMin:      v.GetInt("search.prefix_min"),
			PrefixMax:      v.GetInt("search.prefix_max"),
			PrefixBoost:    v.GetInt("search.prefix_boost"),
		},
		Ticket: TicketConfig{
			MaxItems:     v.GetInt("ticket.max_items"),
			PatternsFile: ExpandPath(v.GetString("ticket.patterns_file")),
		},
		Matcher: MatcherConfig{
			MaxProductsPerItem: v.GetInt("matcher.max_products_per_item"),
			MaxSuggestions:     v.GetInt("matcher.max_suggestions"),
			MinTotalScore:      v.GetInt("matcher.min_total_score"),
			PriceMismatchRatio: v.GetFloat64("matcher.price_mismatch_ratio"),
			ExcludedCategories: v.GetStringSlice("matcher.excluded_categories"),
		},
		PriceHistory: PriceHistoryConfig{
			MaxPoints: v.GetInt("pricehistory.max_points"),
			Interval:  v.GetDuration("pricehistory.interval"),
			Timezone:  v.GetString("pricehistory.timezone"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	positive := map[string]int{
		"search.default_limit":          c.Search.DefaultLimit,
		"search.candidate_limit":        c.Search.CandidateLimit,
		"search.cache_size":             c.Search.CacheSize,
		"search.prefix_min":             c.Search.PrefixMin,
		"ticket.max_items":              c.Ticket.MaxItems,
		"matcher.max_products_per_item": c.Matcher.MaxProductsPerItem,
		"matcher.max_suggestions":       c.Matcher.MaxSuggestions,
		"pricehistory.max_points":       c.PriceHistory.MaxPoints,
	}
	for key, value := range positive {
		if value <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %d", common.ErrInvalidConfig, key, value)
		}
	}

	if c.Search.CandidateLimit < c.Search.DefaultLimit {
		return fmt.Errorf("%w: search.candidate_limit (%d) is below search.default_limit (%d)",
			common.ErrInvalidConfig, c.Search.CandidateLimit, c.Search.DefaultLimit)
	}
	if c.Search.PrefixMin > c.Search.PrefixMax {
		return fmt.Errorf("%w: search.prefix_min (%d) exceeds search.prefix_max (%d)",
			common.ErrInvalidConfig, c.Search.PrefixMin, c.Search.PrefixMax)
	}
	if c.Matcher.PriceMismatchRatio <= 0 || c.Matcher.PriceMismatchRatio >= 1 {
		return fmt.Errorf("%w: matcher.price_mismatch_ratio must be in (0,1), got %v",
			common.ErrInvalidConfig, c.Matcher.PriceMismatchRatio)
	}
	if c.PriceHistory.Interval <= 0 {
		return fmt.Errorf("%w: pricehistory.interval must be positive", common.ErrInvalidConfig)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Database.Path == "" {
		return fmt.Errorf("%w: database.path", common.ErrMissingConfig)
	}
	return nil
}

// Location resolves the price history timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.PriceHistory.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: pricehistory.timezone %q: %w", common.ErrInvalidConfig, c.PriceHistory.Timezone, err)
	}
	return loc, nil
}

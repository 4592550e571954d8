// Package pricehistory records one price per product per calendar day and
// serves the resulting series.
package pricehistory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Veraticus/cesta/internal/common"
	"github.com/Veraticus/cesta/internal/model"
	"github.com/Veraticus/cesta/internal/service"
)

// DefaultMaxPoints is the longest series kept per product.
const DefaultMaxPoints = 365

// Options tunes a Store.
type Options struct {
	Location  *time.Location
	MaxPoints int
}

// Store holds every product's daily series in memory and persists each
// snapshot pass. Snapshot passes are serialized; reads run concurrently.
type Store struct {
	repo      service.PriceHistoryRepository
	logger    *slog.Logger
	loc       *time.Location
	series    map[string][]model.PricePoint
	now       func() time.Time
	retry     service.RetryOptions
	maxPoints int
	writeMu   sync.Mutex
	mu        sync.RWMutex
}

// NewStore creates a store. A nil repo keeps history in memory only.
func NewStore(repo service.PriceHistoryRepository, opts Options, logger *slog.Logger) *Store {
	if opts.MaxPoints <= 0 {
		opts.MaxPoints = DefaultMaxPoints
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Store{
		repo:      repo,
		logger:    common.LoggerOrDefault(logger).With("component", "pricehistory"),
		loc:       opts.Location,
		series:    make(map[string][]model.PricePoint),
		now:       time.Now,
		retry:     common.DefaultRetryOptions(),
		maxPoints: opts.MaxPoints,
	}
}

// Load replaces the in-memory series with the repository contents.
func (s *Store) Load(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}

	history, err := s.repo.LoadPriceHistory(ctx)
	if err != nil {
		return fmt.Errorf("failed to load price history: %w", err)
	}

	for id, points := range history {
		history[id] = s.trim(points)
	}

	s.mu.Lock()
	s.series = history
	s.mu.Unlock()

	s.logger.Debug("Loaded price history", "products", len(history))
	return nil
}

// Today returns the current calendar day in the store timezone.
func (s *Store) Today() string {
	return s.now().In(s.loc).Format(model.DateLayout)
}

// Snapshot appends today's price for every product with a known price,
// unless the product already has a point for today, then trims every
// touched series and persists the pass. It returns the number of points
// appended.
func (s *Store) Snapshot(ctx context.Context, products []model.Product) int {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	today := s.Today()
	appended := make(map[string]float64)

	s.mu.Lock()
	for i := range products {
		p := &products[i]
		if !p.HasPrice() {
			continue
		}
		points := s.series[p.ID]
		if n := len(points); n > 0 && points[n-1].Date == today {
			continue
		}
		s.series[p.ID] = s.trim(append(points, model.PricePoint{Date: today, Price: p.Price}))
		appended[p.ID] = p.Price
	}
	s.mu.Unlock()

	if s.repo != nil && len(appended) > 0 {
		err := common.WithRetry(ctx, func() error {
			return s.repo.AppendPricePoints(ctx, today, appended, s.maxPoints)
		}, s.retry)
		if err != nil {
			common.LogError(s.logger, fmt.Errorf("%w: %w", common.ErrPersistence, err),
				"Failed to persist price snapshot", common.Fields{"date": today, "points": len(appended)})
		}
	}

	s.logger.Info("Price snapshot complete", "date", today, "appended", len(appended), "products", len(products))
	return len(appended)
}

// trim keeps the most recent maxPoints points.
func (s *Store) trim(points []model.PricePoint) []model.PricePoint {
	if len(points) <= s.maxPoints {
		return points
	}
	return append([]model.PricePoint(nil), points[len(points)-s.maxPoints:]...)
}

// History returns a copy of a product's series, oldest first. A non-nil
// sinceDays keeps only points on or after today minus that many days.
func (s *Store) History(productID string, sinceDays *int) []model.PricePoint {
	s.mu.RLock()
	points := s.series[productID]
	s.mu.RUnlock()

	cutoff := ""
	if sinceDays != nil && *sinceDays >= 0 {
		cutoff = s.now().In(s.loc).AddDate(0, 0, -*sinceDays).Format(model.DateLayout)
	}

	out := make([]model.PricePoint, 0, len(points))
	for _, p := range points {
		if p.Date >= cutoff {
			out = append(out, p)
		}
	}
	return out
}

// LatestPrice returns the most recent recorded price of a product.
func (s *Store) LatestPrice(productID string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	points := s.series[productID]
	if len(points) == 0 {
		return 0, false
	}
	return points[len(points)-1].Price, true
}

// Trend summarizes the series returned by History.
func (s *Store) Trend(productID string, sinceDays *int) (model.PriceTrend, error) {
	points := s.History(productID, sinceDays)
	if len(points) == 0 {
		return model.PriceTrend{}, fmt.Errorf("price history for %s: %w", productID, common.ErrNotFound)
	}

	first, last := points[0], points[len(points)-1]
	trend := model.PriceTrend{
		ProductID: productID,
		FirstDate: first.Date,
		LastDate:  last.Date,
		First:     first.Price,
		Last:      last.Price,
		Min:       first.Price,
		Max:       first.Price,
		Points:    len(points),
	}
	for _, p := range points[1:] {
		trend.Min = min(trend.Min, p.Price)
		trend.Max = max(trend.Max, p.Price)
	}
	if first.Price > 0 {
		trend.ChangeRatio = (last.Price - first.Price) / first.Price
	}
	return trend, nil
}

// Products returns the number of products with a series.
func (s *Store) Products() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.series)
}

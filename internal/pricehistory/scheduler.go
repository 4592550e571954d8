package pricehistory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Veraticus/cesta/internal/common"
	"github.com/Veraticus/cesta/internal/model"
)

// DefaultInterval is the time between snapshot passes.
const DefaultInterval = 24 * time.Hour

// ProductsFunc returns the products of the currently loaded catalog, or nil
// when none is loaded.
type ProductsFunc func() []model.Product

// Scheduler runs a snapshot pass when started and then on a fixed interval.
type Scheduler struct {
	store    *Store
	products ProductsFunc
	logger   *slog.Logger
	cancel   context.CancelFunc
	done     chan struct{}
	interval time.Duration
	mu       sync.RWMutex
}

// NewScheduler creates a snapshot scheduler.
func NewScheduler(store *Store, products ProductsFunc, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		store:    store,
		products: products,
		logger:   common.LoggerOrDefault(logger).With("component", "pricehistory-scheduler"),
		interval: interval,
	}
}

// Start runs one pass immediately and then keeps running passes until
// Stop is called or ctx ends.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		s.tick(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick(ctx)
			}
		}
	}()
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	products := s.products()
	if products == nil {
		s.logger.Warn("Skipping price snapshot", "error", common.ErrCatalogUnavailable)
		return
	}
	s.store.Snapshot(ctx, products)
}

package pricehistory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/cesta/internal/common"
	"github.com/Veraticus/cesta/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	loaded  map[string][]model.PricePoint
	failErr error
	appends []map[string]float64
	dates   []string
	mu      sync.Mutex
}

func (r *fakeRepo) LoadPriceHistory(_ context.Context) (map[string][]model.PricePoint, error) {
	if r.failErr != nil {
		return nil, r.failErr
	}
	return r.loaded, nil
}

func (r *fakeRepo) AppendPricePoints(_ context.Context, date string, prices map[string]float64, _ int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return r.failErr
	}
	r.dates = append(r.dates, date)
	r.appends = append(r.appends, prices)
	return nil
}

type clock struct {
	t time.Time
}

func (c *clock) now() time.Time { return c.t }

func newTestStore(repo *fakeRepo, maxPoints int) (*Store, *clock) {
	c := &clock{t: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
	var s *Store
	if repo == nil {
		s = NewStore(nil, Options{MaxPoints: maxPoints, Location: time.UTC}, nil)
	} else {
		s = NewStore(repo, Options{MaxPoints: maxPoints, Location: time.UTC}, nil)
	}
	s.now = c.now
	s.retry.InitialDelay = time.Millisecond
	return s, c
}

var products = []model.Product{
	{ID: "1", Name: "Leche Entera 1L", Price: 1.05},
	{ID: "2", Name: "Champú Suave", Price: 3.2},
	{ID: "3", Name: "Sin precio", Price: 0},
}

func TestStore_SnapshotOncePerDay(t *testing.T) {
	repo := &fakeRepo{}
	s, c := newTestStore(repo, 365)
	ctx := context.Background()

	assert.Equal(t, 2, s.Snapshot(ctx, products), "unpriced products are skipped")
	assert.Equal(t, 0, s.Snapshot(ctx, products), "same day appends nothing")

	assert.Equal(t, []model.PricePoint{{Date: "2025-03-01", Price: 1.05}}, s.History("1", nil))
	assert.Empty(t, s.History("3", nil))
	require.Len(t, repo.appends, 1, "empty passes are not persisted")
	assert.Equal(t, map[string]float64{"1": 1.05, "2": 3.2}, repo.appends[0])

	c.t = c.t.Add(24 * time.Hour)
	assert.Equal(t, 2, s.Snapshot(ctx, products))
	assert.Len(t, s.History("1", nil), 2)
	assert.Equal(t, []string{"2025-03-01", "2025-03-02"}, repo.dates)
}

func TestStore_SnapshotTrims(t *testing.T) {
	s, c := newTestStore(nil, 365)
	ctx := context.Background()
	start := c.t

	for i := 0; i < 400; i++ {
		c.t = start.AddDate(0, 0, i)
		s.Snapshot(ctx, products[:1])
	}

	history := s.History("1", nil)
	require.Len(t, history, 365)
	assert.Equal(t, start.AddDate(0, 0, 35).Format(model.DateLayout), history[0].Date)
	assert.Equal(t, start.AddDate(0, 0, 399).Format(model.DateLayout), history[364].Date)
}

func TestStore_Timezone(t *testing.T) {
	madrid, err := time.LoadLocation("Europe/Madrid")
	require.NoError(t, err)

	s := NewStore(nil, Options{Location: madrid}, nil)
	// 23:30 UTC on 1 March is already 2 March in Madrid.
	s.now = func() time.Time { return time.Date(2025, 3, 1, 23, 30, 0, 0, time.UTC) }
	assert.Equal(t, "2025-03-02", s.Today())
}

func TestStore_HistorySinceDays(t *testing.T) {
	s, c := newTestStore(nil, 365)
	ctx := context.Background()
	start := c.t

	for i := 0; i < 10; i++ {
		c.t = start.AddDate(0, 0, i)
		s.Snapshot(ctx, []model.Product{{ID: "1", Price: float64(i + 1)}})
	}

	tests := []struct {
		days *int
		name string
		want int
	}{
		{name: "all", days: nil, want: 10},
		{name: "last three days", days: intPtr(3), want: 4},
		{name: "today only", days: intPtr(0), want: 1},
		{name: "negative means all", days: intPtr(-1), want: 10},
		{name: "beyond series", days: intPtr(100), want: 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, s.History("1", tt.days), tt.want)
		})
	}
	assert.Empty(t, s.History("unknown", nil))
}

func TestStore_Trend(t *testing.T) {
	s, c := newTestStore(nil, 365)
	ctx := context.Background()
	start := c.t

	for i, price := range []float64{2.00, 1.50, 2.50, 2.20} {
		c.t = start.AddDate(0, 0, i)
		s.Snapshot(ctx, []model.Product{{ID: "1", Price: price}})
	}

	trend, err := s.Trend("1", nil)
	require.NoError(t, err)
	assert.Equal(t, 4, trend.Points)
	assert.InDelta(t, 2.00, trend.First, 1e-9)
	assert.InDelta(t, 2.20, trend.Last, 1e-9)
	assert.InDelta(t, 1.50, trend.Min, 1e-9)
	assert.InDelta(t, 2.50, trend.Max, 1e-9)
	assert.InDelta(t, 0.10, trend.ChangeRatio, 1e-9)
	assert.Equal(t, "2025-03-01", trend.FirstDate)

	_, err = s.Trend("missing", nil)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestStore_LatestPrice(t *testing.T) {
	s, _ := newTestStore(nil, 365)
	_, ok := s.LatestPrice("1")
	assert.False(t, ok)

	s.Snapshot(context.Background(), products)
	price, ok := s.LatestPrice("1")
	require.True(t, ok)
	assert.InDelta(t, 1.05, price, 1e-9)
}

func TestStore_PersistenceFailureKeepsMemory(t *testing.T) {
	repo := &fakeRepo{failErr: errors.New("read-only database")}
	s, _ := newTestStore(repo, 365)

	assert.Equal(t, 2, s.Snapshot(context.Background(), products))
	assert.Len(t, s.History("1", nil), 1)
}

func TestStore_Load(t *testing.T) {
	repo := &fakeRepo{loaded: map[string][]model.PricePoint{
		"1": {{Date: "2025-02-27", Price: 1.0}, {Date: "2025-02-28", Price: 1.02}, {Date: "2025-03-01", Price: 1.05}},
	}}
	s, _ := newTestStore(repo, 2)

	require.NoError(t, s.Load(context.Background()))
	assert.Equal(t, 1, s.Products())
	assert.Equal(t, []model.PricePoint{{Date: "2025-02-28", Price: 1.02}, {Date: "2025-03-01", Price: 1.05}}, s.History("1", nil))

	// Loaded history already has today's point.
	assert.Equal(t, 1, s.Snapshot(context.Background(), products))

	repo.failErr = errors.New("no such table")
	assert.Error(t, s.Load(context.Background()))
}

func TestStore_ConcurrentReadsDuringSnapshot(t *testing.T) {
	s, c := newTestStore(nil, 30)
	ctx := context.Background()
	start := c.t

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 60; i++ {
			c.t = start.AddDate(0, 0, i)
			s.Snapshot(ctx, products)
		}
	}()
	for range make([]struct{}, 4) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range make([]struct{}, 100) {
				_ = s.History("1", nil)
				_, _ = s.LatestPrice("2")
			}
		}()
	}
	wg.Wait()
	assert.Len(t, s.History("1", nil), 30)
}

func intPtr(v int) *int { return &v }

package pricehistory

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Veraticus/cesta/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestScheduler_RunsAtStart(t *testing.T) {
	s, _ := newTestStore(nil, 365)

	var calls atomic.Int32
	sched := NewScheduler(s, func() []model.Product {
		calls.Add(1)
		return products
	}, time.Hour, nil)

	sched.Start(context.Background())
	assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	sched.Stop()

	assert.Len(t, s.History("1", nil), 1)
}

func TestScheduler_Ticks(t *testing.T) {
	s, _ := newTestStore(nil, 365)

	var calls atomic.Int32
	sched := NewScheduler(s, func() []model.Product {
		calls.Add(1)
		return products
	}, 10*time.Millisecond, nil)

	sched.Start(context.Background())
	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	sched.Stop()

	// Every tick fell on the same fake day.
	assert.Len(t, s.History("1", nil), 1)
}

func TestScheduler_SkipsWithoutCatalog(t *testing.T) {
	s, _ := newTestStore(nil, 365)

	var calls atomic.Int32
	sched := NewScheduler(s, func() []model.Product {
		calls.Add(1)
		return nil
	}, time.Hour, nil)

	sched.Start(context.Background())
	assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	sched.Stop()

	assert.Zero(t, s.Products())
}

func TestScheduler_StopsWithContext(t *testing.T) {
	s, _ := newTestStore(nil, 365)
	ctx, cancel := context.WithCancel(context.Background())

	sched := NewScheduler(s, func() []model.Product { return products }, time.Hour, nil)
	sched.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		sched.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after context cancellation")
	}
}

func TestScheduler_StopWithoutStart(t *testing.T) {
	sched := NewScheduler(NewStore(nil, Options{}, nil), func() []model.Product { return nil }, 0, nil)
	sched.Stop()
	assert.Equal(t, DefaultInterval, sched.interval)
}

// Package association keeps the learned mapping from ticket item text to
// confirmed catalog products.
package association

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Veraticus/cesta/internal/common"
	"github.com/Veraticus/cesta/internal/model"
	"github.com/Veraticus/cesta/internal/service"
	"github.com/Veraticus/cesta/internal/textnorm"
)

// Store is an in-memory association map that writes through to a
// repository. Reads never touch the repository. A failed write is logged
// and the in-memory state is kept, so the running process stays correct.
type Store struct {
	repo    service.AssociationRepository
	logger  *slog.Logger
	entries map[string]model.Association
	retry   service.RetryOptions
	now     func() time.Time
	mu      sync.RWMutex
}

// NewStore creates a store. A nil repo keeps associations in memory only.
func NewStore(repo service.AssociationRepository, logger *slog.Logger) *Store {
	return &Store{
		repo:    repo,
		logger:  common.LoggerOrDefault(logger).With("component", "associations"),
		entries: make(map[string]model.Association),
		retry:   common.DefaultRetryOptions(),
		now:     time.Now,
	}
}

// Load replaces the in-memory map with the repository contents.
func (s *Store) Load(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}

	stored, err := s.repo.GetAssociations(ctx)
	if err != nil {
		return fmt.Errorf("failed to load associations: %w", err)
	}

	entries := make(map[string]model.Association, len(stored))
	for _, a := range stored {
		entries[textnorm.Key(a.Key)] = a
	}

	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()

	s.logger.Debug("Loaded associations", "count", len(entries))
	return nil
}

// Get looks up the association for a ticket item text.
func (s *Store) Get(itemText string) (model.Association, bool) {
	key := textnorm.Key(itemText)

	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.entries[key]
	return a, ok
}

// Put records that itemText refers to product, overwriting any earlier
// association for the same key.
func (s *Store) Put(ctx context.Context, itemText string, product *model.Product, source model.AssociationSource) model.Association {
	if source == "" {
		source = model.SourceUser
	}
	a := model.Association{
		Key:                 textnorm.Key(itemText),
		ProductID:           product.ID,
		OriginalProductName: product.Name,
		SavedAt:             s.now(),
		Source:              source,
	}

	s.mu.Lock()
	s.entries[a.Key] = a
	s.mu.Unlock()

	s.persist(ctx, "save", a.Key, func() error {
		return s.repo.SaveAssociation(ctx, &a)
	})
	return a
}

// Delete removes the association for itemText. It reports whether one
// existed.
func (s *Store) Delete(ctx context.Context, itemText string) bool {
	key := textnorm.Key(itemText)

	s.mu.Lock()
	_, existed := s.entries[key]
	delete(s.entries, key)
	s.mu.Unlock()

	if existed {
		s.persist(ctx, "delete", key, func() error {
			return s.repo.DeleteAssociation(ctx, key)
		})
	}
	return existed
}

// List returns every association ordered by key.
func (s *Store) List() []model.Association {
	s.mu.RLock()
	out := make([]model.Association, 0, len(s.entries))
	for _, a := range s.entries {
		out = append(out, a)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Len returns the number of associations.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Store) persist(ctx context.Context, op, key string, write func() error) {
	if s.repo == nil {
		return
	}
	if err := common.WithRetry(ctx, write, s.retry); err != nil {
		common.LogError(s.logger, fmt.Errorf("%w: %w", common.ErrPersistence, err),
			"Failed to persist association", common.Fields{"op": op, "key": key})
	}
}

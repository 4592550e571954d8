package association

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/cesta/internal/model"
	"github.com/Veraticus/cesta/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	saved   map[string]model.Association
	failErr error
	deletes []string
	mu      sync.Mutex
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{saved: make(map[string]model.Association)}
}

func (r *fakeRepo) GetAssociations(_ context.Context) ([]model.Association, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Association, 0, len(r.saved))
	for _, a := range r.saved {
		out = append(out, a)
	}
	return out, r.failErr
}

func (r *fakeRepo) SaveAssociation(_ context.Context, a *model.Association) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return r.failErr
	}
	r.saved[a.Key] = *a
	return nil
}

func (r *fakeRepo) DeleteAssociation(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return r.failErr
	}
	r.deletes = append(r.deletes, key)
	delete(r.saved, key)
	return nil
}

var _ service.AssociationRepository = (*fakeRepo)(nil)

var leche = &model.Product{ID: "4241", Name: "Leche entera Hacendado"}

func TestStore_PutAndGet(t *testing.T) {
	repo := newFakeRepo()
	s := NewStore(repo, nil)
	ctx := context.Background()

	a := s.Put(ctx, "  LECHE ENTERA ", leche, "")
	assert.Equal(t, "leche entera", a.Key)
	assert.Equal(t, model.SourceUser, a.Source)
	assert.Equal(t, "Leche entera Hacendado", a.OriginalProductName)

	got, ok := s.Get("Leche Entera")
	require.True(t, ok)
	assert.Equal(t, "4241", got.ProductID)
	assert.Contains(t, repo.saved, "leche entera")
}

func TestStore_PutOverwrites(t *testing.T) {
	s := NewStore(newFakeRepo(), nil)
	ctx := context.Background()

	s.Put(ctx, "leche entera", leche, model.SourceSystem)
	s.Put(ctx, "leche entera", &model.Product{ID: "9", Name: "Leche entera sin lactosa"}, model.SourceUser)

	got, ok := s.Get("leche entera")
	require.True(t, ok)
	assert.Equal(t, "9", got.ProductID)
	assert.Equal(t, model.SourceUser, got.Source)
	assert.Equal(t, 1, s.Len())
}

func TestStore_Delete(t *testing.T) {
	repo := newFakeRepo()
	s := NewStore(repo, nil)
	ctx := context.Background()

	s.Put(ctx, "pan", &model.Product{ID: "1", Name: "Pan"}, "")
	assert.True(t, s.Delete(ctx, "PAN"))
	assert.False(t, s.Delete(ctx, "pan"))

	_, ok := s.Get("pan")
	assert.False(t, ok)
	assert.Equal(t, []string{"pan"}, repo.deletes, "missing keys are not deleted twice")
}

func TestStore_PersistenceFailureKeepsMemory(t *testing.T) {
	repo := newFakeRepo()
	repo.failErr = errors.New("disk full")
	s := NewStore(repo, nil)
	s.retry.InitialDelay = time.Millisecond

	s.Put(context.Background(), "leche entera", leche, "")

	got, ok := s.Get("leche entera")
	require.True(t, ok, "in-memory state survives a failed write")
	assert.Equal(t, "4241", got.ProductID)
	assert.Empty(t, repo.saved)
}

func TestStore_Load(t *testing.T) {
	repo := newFakeRepo()
	repo.saved["leche entera"] = model.Association{Key: "leche entera", ProductID: "4241"}
	repo.saved["pan"] = model.Association{Key: "pan", ProductID: "1"}

	s := NewStore(repo, nil)
	require.NoError(t, s.Load(context.Background()))
	assert.Equal(t, 2, s.Len())

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, "leche entera", list[0].Key)
	assert.Equal(t, "pan", list[1].Key)

	repo.failErr = errors.New("locked")
	assert.Error(t, s.Load(context.Background()))
	assert.Equal(t, 2, s.Len(), "failed load keeps the previous map")
}

func TestStore_MemoryOnly(t *testing.T) {
	s := NewStore(nil, nil)
	ctx := context.Background()

	require.NoError(t, s.Load(ctx))
	s.Put(ctx, "pan", &model.Product{ID: "1", Name: "Pan"}, "")
	assert.True(t, s.Delete(ctx, "pan"))
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := NewStore(newFakeRepo(), nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for range make([]struct{}, 20) {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.Put(ctx, "leche entera", leche, "")
		}()
		go func() {
			defer wg.Done()
			_, _ = s.Get("leche entera")
			_ = s.List()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, s.Len())
}

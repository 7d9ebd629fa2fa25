package lookup

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"bandroom/internal/models"
	"bandroom/internal/testutil"
)

// fakeRepo is an in-memory CacheEntryRepository used where tests care about
// stored state rather than call expectations.
type fakeRepo struct {
	mu      sync.Mutex
	entries map[string]*models.CacheEntry
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{entries: make(map[string]*models.CacheEntry)}
}

func (r *fakeRepo) FindByFingerprint(_ context.Context, fingerprint string) (*models.CacheEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries[fingerprint], nil
}

func (r *fakeRepo) Upsert(_ context.Context, entry *models.CacheEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[entry.Fingerprint] = entry
	return nil
}

func (r *fakeRepo) DeleteByFingerprint(_ context.Context, fingerprint string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, fingerprint)
	return nil
}

func (r *fakeRepo) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	for fp, entry := range r.entries {
		if entry.CreatedAt.Before(cutoff) {
			delete(r.entries, fp)
			deleted++
		}
	}
	return deleted, nil
}

func (r *fakeRepo) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.entries)), nil
}

func (r *fakeRepo) CountByKind(_ context.Context) (map[models.OperationKind]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[models.OperationKind]int64)
	for _, entry := range r.entries {
		counts[entry.OperationKind]++
	}
	return counts, nil
}

func (r *fakeRepo) SampleEntrySize(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, entry := range r.entries {
		return int64(len(entry.Payload)), nil
	}
	return 0, nil
}

func (r *fakeRepo) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *fakeRepo) backdate(age time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, entry := range r.entries {
		entry.CreatedAt = entry.CreatedAt.Add(-age)
	}
}

var lookupFields = map[string]string{"title": "imagine", "artist": "john lennon"}

func TestResultCache_SetThenGet(t *testing.T) {
	repo := newFakeRepo()
	c := NewResultCache(repo, nil)

	stored := models.SongResult{Title: "Imagine", Artist: "John Lennon", Chords: "C - Cmaj7 - F"}
	require.NoError(t, c.Set(context.Background(), models.KindMetadataLookup, lookupFields, &stored))

	var got models.SongResult
	found, err := c.Get(context.Background(), models.KindMetadataLookup, lookupFields, time.Hour, &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, stored, got)
}

func TestResultCache_UpsertKeepsOneEntry(t *testing.T) {
	repo := newFakeRepo()
	c := NewResultCache(repo, nil)
	ctx := context.Background()

	first := models.SongResult{Title: "Imagine", Chords: "C"}
	second := models.SongResult{Title: "Imagine", Chords: "C - Cmaj7 - F"}
	require.NoError(t, c.Set(ctx, models.KindMetadataLookup, lookupFields, &first))
	require.NoError(t, c.Set(ctx, models.KindMetadataLookup, lookupFields, &second))

	assert.Equal(t, 1, repo.len())

	var got models.SongResult
	found, err := c.Get(ctx, models.KindMetadataLookup, lookupFields, time.Hour, &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, second.Chords, got.Chords)
}

func TestResultCache_ExpiredEntryIsMissAndDeleted(t *testing.T) {
	repo := newFakeRepo()
	c := NewResultCache(repo, nil)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, models.KindMetadataLookup, lookupFields, &models.SongResult{Title: "Imagine"}))
	repo.backdate(2 * time.Hour)

	var got models.SongResult
	found, err := c.Get(ctx, models.KindMetadataLookup, lookupFields, time.Hour, &got)
	require.NoError(t, err)
	assert.False(t, found)

	// The stale entry is deleted off the request path
	assert.Eventually(t, func() bool { return repo.len() == 0 },
		time.Second, 10*time.Millisecond)
}

func TestResultCache_AgeExactlyAtMaxAgeIsStale(t *testing.T) {
	repo := newFakeRepo()
	c := NewResultCache(repo, nil)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, models.KindMetadataLookup, lookupFields, &models.SongResult{Title: "Imagine"}))
	repo.backdate(time.Hour)

	var got models.SongResult
	found, err := c.Get(ctx, models.KindMetadataLookup, lookupFields, time.Hour, &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestResultCache_StorageErrorDegradesToMiss(t *testing.T) {
	repo := new(testutil.MockCacheEntryRepository)
	repo.On("FindByFingerprint", mock.Anything, mock.Anything).
		Return(nil, errors.New("connection reset"))
	c := NewResultCache(repo, nil)

	var got models.SongResult
	found, err := c.Get(context.Background(), models.KindMetadataLookup, lookupFields, time.Hour, &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestResultCache_SetSwallowsStorageError(t *testing.T) {
	repo := new(testutil.MockCacheEntryRepository)
	repo.On("Upsert", mock.Anything, mock.Anything).
		Return(errors.New("connection reset"))
	c := NewResultCache(repo, nil)

	err := c.Set(context.Background(), models.KindMetadataLookup, lookupFields, &models.SongResult{Title: "Imagine"})
	assert.NoError(t, err)
}

func TestResultCache_InvalidInput(t *testing.T) {
	c := NewResultCache(newFakeRepo(), nil)

	var got models.SongResult
	_, err := c.Get(context.Background(), models.KindMetadataLookup,
		map[string]string{"title": "Imagine"}, time.Hour, &got)
	assert.ErrorIs(t, err, ErrInvalidInput)

	err = c.Set(context.Background(), models.OperationKind("bogus"), lookupFields, &got)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestResultCache_UndecodablePayloadIsMiss(t *testing.T) {
	repo := newFakeRepo()
	c := NewResultCache(repo, nil)
	ctx := context.Background()

	fp, normalized, err := Normalize(models.KindMetadataLookup, lookupFields)
	require.NoError(t, err)
	require.NoError(t, repo.Upsert(ctx, &models.CacheEntry{
		Fingerprint:   fp,
		OperationKind: models.KindMetadataLookup,
		InputSnapshot: normalized,
		Payload:       []byte("{not json"),
		CreatedAt:     time.Now().UTC(),
	}))

	var got models.SongResult
	found, err := c.Get(ctx, models.KindMetadataLookup, lookupFields, time.Hour, &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestResultCache_SweepExpired(t *testing.T) {
	repo := newFakeRepo()
	c := NewResultCache(repo, nil)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, models.KindMetadataLookup, lookupFields, &models.SongResult{Title: "Imagine"}))
	require.NoError(t, c.Set(ctx, models.KindFreeTextSearch, map[string]string{"query": "blues"}, []models.SearchHit{}))
	repo.backdate(200 * time.Hour)
	require.NoError(t, c.Set(ctx, models.KindAIFallback, lookupFields, &models.SongResult{Title: "Imagine"}))

	deleted, err := c.SweepExpired(ctx, 168*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
	assert.Equal(t, 1, repo.len())
}

func TestResultCache_SweepSurfacesStorageError(t *testing.T) {
	repo := new(testutil.MockCacheEntryRepository)
	repo.On("DeleteOlderThan", mock.Anything, mock.Anything).
		Return(int64(0), errors.New("connection reset"))
	c := NewResultCache(repo, nil)

	_, err := c.SweepExpired(context.Background(), time.Hour)
	assert.Error(t, err)
}

func TestResultCache_Stats(t *testing.T) {
	repo := newFakeRepo()
	c := NewResultCache(repo, nil)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, models.KindMetadataLookup, lookupFields, &models.SongResult{Title: "Imagine"}))
	require.NoError(t, c.Set(ctx, models.KindFreeTextSearch, map[string]string{"query": "blues"}, []models.SearchHit{{Title: "x"}}))

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalEntries)
	assert.Equal(t, int64(1), stats.CountsByKind[models.KindMetadataLookup])
	assert.Equal(t, int64(1), stats.CountsByKind[models.KindFreeTextSearch])
	assert.Greater(t, stats.EstimatedSizeMB, 0.0)
}

func TestResultCache_HotLayerReadThrough(t *testing.T) {
	repo := newFakeRepo()
	hot := new(testutil.MockCache)
	hot.On("Get", mock.Anything, mock.Anything).Return(nil, nil)
	hot.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	hot.On("Delete", mock.Anything, mock.Anything).Return(nil)
	c := NewResultCache(repo, hot)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, models.KindMetadataLookup, lookupFields, &models.SongResult{Title: "Imagine"}))

	var got models.SongResult
	found, err := c.Get(ctx, models.KindMetadataLookup, lookupFields, time.Hour, &got)
	require.NoError(t, err)
	require.True(t, found)

	// The durable hit populates the hot layer with the remaining TTL
	assert.Eventually(t, func() bool {
		for _, call := range hot.Calls {
			if call.Method == "Set" {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)
}

package lookup

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"bandroom/internal/cache"
	"bandroom/internal/models"
	"bandroom/internal/repositories"
)

// ResultCache persists lookup results keyed by fingerprint. The Mongo-backed
// repository is the source of record; an optional byte-level hot cache sits
// in front of it and is populated read-through.
//
// On the request path the cache is strictly an optimization: storage errors
// degrade to a miss on read and are dropped with a log entry on write. The
// ops-facing Sweep and Stats calls do surface storage errors.
type ResultCache struct {
	repo repositories.CacheEntryRepository
	hot  cache.Cache // nil when no hot cache is configured
}

// NewResultCache creates a ResultCache. hot may be nil.
func NewResultCache(repo repositories.CacheEntryRepository, hot cache.Cache) *ResultCache {
	return &ResultCache{
		repo: repo,
		hot:  hot,
	}
}

// CacheStats is the diagnostic summary returned by Stats.
type CacheStats struct {
	TotalEntries    int64                          `json:"total_entries"`
	CountsByKind    map[models.OperationKind]int64 `json:"counts_by_kind"`
	EstimatedSizeMB float64                        `json:"estimated_size_mb"`
}

// Get looks up a fresh entry and decodes its payload into target. It
// returns false on a miss, a stale entry (which is deleted asynchronously),
// or any storage failure. The only returned error is ErrInvalidInput.
func (c *ResultCache) Get(ctx context.Context, kind models.OperationKind, fields map[string]string, maxAge time.Duration, target any) (bool, error) {
	fingerprint, _, err := Normalize(kind, fields)
	if err != nil {
		return false, err
	}

	if c.hotGet(ctx, fingerprint, target) {
		slog.Debug("Cache HIT (hot)", "kind", kind, "fingerprint", fingerprint[:10])
		return true, nil
	}

	entry, err := c.repo.FindByFingerprint(ctx, fingerprint)
	if err != nil {
		slog.Error("Cache read failed, treating as miss", "kind", kind, "error", err)
		return false, nil
	}
	if entry == nil {
		slog.Debug("Cache MISS", "kind", kind, "fingerprint", fingerprint[:10])
		return false, nil
	}

	age := time.Since(entry.CreatedAt)
	if age >= maxAge {
		slog.Info("Cache EXPIRED", "kind", kind, "fingerprint", fingerprint[:10], "age", age)
		c.deleteAsync(fingerprint)
		return false, nil
	}

	if err := json.Unmarshal(entry.Payload, target); err != nil {
		// A payload that no longer decodes is as good as absent
		slog.Error("Cache payload undecodable, treating as miss", "kind", kind, "error", err)
		c.deleteAsync(fingerprint)
		return false, nil
	}

	slog.Info("Cache HIT", "kind", kind, "fingerprint", fingerprint[:10])
	c.hotSet(fingerprint, entry.Payload, maxAge-age)
	return true, nil
}

// Set upserts the payload under its fingerprint with createdAt = now.
// Failures are logged and swallowed: a caching failure must never fail the
// request that produced the payload. The only returned error is
// ErrInvalidInput.
func (c *ResultCache) Set(ctx context.Context, kind models.OperationKind, fields map[string]string, payload any) error {
	fingerprint, normalized, err := Normalize(kind, fields)
	if err != nil {
		return err
	}

	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Cache payload marshal failed, dropping write", "kind", kind, "error", err)
		return nil
	}

	entry := &models.CacheEntry{
		Fingerprint:   fingerprint,
		OperationKind: kind,
		InputSnapshot: normalized,
		Payload:       data,
		CreatedAt:     time.Now().UTC(),
	}

	if err := c.repo.Upsert(ctx, entry); err != nil {
		slog.Error("Cache write failed, dropping", "kind", kind, "error", err)
		return nil
	}

	// A replaced entry may still be hot with the old payload
	if c.hot != nil {
		if err := c.hot.Delete(ctx, hotKey(fingerprint)); err != nil {
			slog.Debug("Hot cache invalidation failed", "error", err)
		}
	}

	slog.Info("Cache STORED", "kind", kind, "fingerprint", fingerprint[:10])
	return nil
}

// SweepExpired deletes every entry older than the global retention window,
// regardless of per-kind TTLs, and returns the number deleted. Meant for a
// periodic maintenance task, not request-serving code; storage errors are
// surfaced.
func (c *ResultCache) SweepExpired(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-maxAge)
	deleted, err := c.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	slog.Info("Cleared expired cache entries", "deleted", deleted, "cutoff", cutoff)
	return deleted, nil
}

// Stats returns diagnostic counts and an approximate size estimate.
func (c *ResultCache) Stats(ctx context.Context) (*CacheStats, error) {
	total, err := c.repo.Count(ctx)
	if err != nil {
		return nil, err
	}

	byKind, err := c.repo.CountByKind(ctx)
	if err != nil {
		return nil, err
	}

	sampleSize, err := c.repo.SampleEntrySize(ctx)
	if err != nil {
		return nil, err
	}

	return &CacheStats{
		TotalEntries:    total,
		CountsByKind:    byKind,
		EstimatedSizeMB: float64(total*sampleSize) / (1024 * 1024),
	}, nil
}

func hotKey(fingerprint string) string {
	return "lookup:" + fingerprint
}

// hotGet tries the hot cache; any failure is a miss
func (c *ResultCache) hotGet(ctx context.Context, fingerprint string, target any) bool {
	if c.hot == nil {
		return false
	}
	data, err := c.hot.Get(ctx, hotKey(fingerprint))
	if err != nil {
		slog.Debug("Hot cache read failed", "error", err)
		return false
	}
	if data == nil {
		return false
	}
	return json.Unmarshal(data, target) == nil
}

// hotSet populates the hot cache with the remaining freshness window
func (c *ResultCache) hotSet(fingerprint string, payload []byte, ttl time.Duration) {
	if c.hot == nil || ttl <= 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.hot.Set(ctx, hotKey(fingerprint), payload, ttl); err != nil {
			slog.Debug("Hot cache populate failed", "error", err)
		}
	}()
}

// deleteAsync removes a stale entry without blocking the request that
// noticed it
func (c *ResultCache) deleteAsync(fingerprint string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.repo.DeleteByFingerprint(ctx, fingerprint); err != nil {
			slog.Error("Stale cache entry delete failed", "fingerprint", fingerprint[:10], "error", err)
		}
		if c.hot != nil {
			if err := c.hot.Delete(ctx, hotKey(fingerprint)); err != nil {
				slog.Debug("Hot cache delete failed", "error", err)
			}
		}
	}()
}

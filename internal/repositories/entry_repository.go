package repositories

import (
	"context"
	"time"

	"bandroom/internal/models"
)

// CacheEntryRepository defines persistence for cached lookup results. One
// live entry per fingerprint: Upsert replaces, never duplicates.
type CacheEntryRepository interface {
	// FindByFingerprint returns the entry for a fingerprint, or nil when
	// no entry exists
	FindByFingerprint(ctx context.Context, fingerprint string) (*models.CacheEntry, error)

	// Upsert inserts or replaces the entry for its fingerprint
	Upsert(ctx context.Context, entry *models.CacheEntry) error

	// DeleteByFingerprint removes a single entry; deleting a missing
	// fingerprint is not an error
	DeleteByFingerprint(ctx context.Context, fingerprint string) error

	// DeleteOlderThan removes every entry created before cutoff and
	// returns the number deleted
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	// Count returns the total number of entries
	Count(ctx context.Context) (int64, error)

	// CountByKind returns entry counts grouped by operation kind
	CountByKind(ctx context.Context) (map[models.OperationKind]int64, error)

	// SampleEntrySize returns the approximate byte size of one stored
	// entry, 0 when the store is empty
	SampleEntrySize(ctx context.Context) (int64, error)
}

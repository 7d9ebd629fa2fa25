package repositories

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bandroom/internal/models"
)

// mongoEntryRepository implements CacheEntryRepository using MongoDB
type mongoEntryRepository struct {
	collection *mongo.Collection
}

// NewMongoEntryRepository creates a new MongoDB-backed cache entry repository
func NewMongoEntryRepository(db *models.Database) CacheEntryRepository {
	return &mongoEntryRepository{
		collection: db.DB.Collection(models.LookupCacheCollection),
	}
}

// FindByFingerprint returns the entry for a fingerprint, or nil when absent
func (r *mongoEntryRepository) FindByFingerprint(ctx context.Context, fingerprint string) (*models.CacheEntry, error) {
	var entry models.CacheEntry
	err := r.collection.FindOne(ctx, bson.M{"fingerprint": fingerprint}).Decode(&entry)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find cache entry: %w", err)
	}
	return &entry, nil
}

// Upsert inserts or replaces the entry keyed by its fingerprint
func (r *mongoEntryRepository) Upsert(ctx context.Context, entry *models.CacheEntry) error {
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"fingerprint": entry.Fingerprint}, entry, opts)
	if err != nil {
		return fmt.Errorf("failed to upsert cache entry: %w", err)
	}
	return nil
}

// DeleteByFingerprint removes a single entry
func (r *mongoEntryRepository) DeleteByFingerprint(ctx context.Context, fingerprint string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"fingerprint": fingerprint})
	if err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// DeleteOlderThan removes every entry created before cutoff
func (r *mongoEntryRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{
		"created_at": bson.M{"$lt": cutoff},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired cache entries: %w", err)
	}
	return result.DeletedCount, nil
}

// Count returns the total number of entries
func (r *mongoEntryRepository) Count(ctx context.Context) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count cache entries: %w", err)
	}
	return count, nil
}

// CountByKind returns entry counts grouped by operation kind
func (r *mongoEntryRepository) CountByKind(ctx context.Context) (map[models.OperationKind]int64, error) {
	pipeline := []bson.M{
		{"$group": bson.M{"_id": "$operation_kind", "count": bson.M{"$sum": 1}}},
		{"$sort": bson.M{"count": -1}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate cache entries: %w", err)
	}
	defer cursor.Close(ctx)

	counts := make(map[models.OperationKind]int64)
	for cursor.Next(ctx) {
		var row struct {
			Kind  models.OperationKind `bson:"_id"`
			Count int64                `bson:"count"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("failed to decode aggregation row: %w", err)
		}
		counts[row.Kind] = row.Count
	}

	return counts, cursor.Err()
}

// SampleEntrySize returns the approximate byte size of one stored entry
func (r *mongoEntryRepository) SampleEntrySize(ctx context.Context) (int64, error) {
	var entry models.CacheEntry
	err := r.collection.FindOne(ctx, bson.M{}).Decode(&entry)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to sample cache entry: %w", err)
	}

	doc, err := bson.Marshal(entry)
	if err != nil {
		return 0, fmt.Errorf("failed to size sample entry: %w", err)
	}
	return int64(len(doc)), nil
}

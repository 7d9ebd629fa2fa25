// Package testutil provides shared mocks for unit tests.
package testutil

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"bandroom/internal/models"
	"bandroom/internal/services"
)

// MockCacheEntryRepository is a mock implementation of
// repositories.CacheEntryRepository.
type MockCacheEntryRepository struct {
	mock.Mock
}

func (m *MockCacheEntryRepository) FindByFingerprint(ctx context.Context, fingerprint string) (*models.CacheEntry, error) {
	args := m.Called(ctx, fingerprint)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CacheEntry), args.Error(1)
}

func (m *MockCacheEntryRepository) Upsert(ctx context.Context, entry *models.CacheEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockCacheEntryRepository) DeleteByFingerprint(ctx context.Context, fingerprint string) error {
	args := m.Called(ctx, fingerprint)
	return args.Error(0)
}

func (m *MockCacheEntryRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCacheEntryRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCacheEntryRepository) CountByKind(ctx context.Context) (map[models.OperationKind]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[models.OperationKind]int64), args.Error(1)
}

func (m *MockCacheEntryRepository) SampleEntrySize(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockMetadataSource is a mock implementation of services.MetadataSource.
type MockMetadataSource struct {
	mock.Mock
}

func (m *MockMetadataSource) SourceName() string {
	return "mock-metadata"
}

func (m *MockMetadataSource) LookupTrack(ctx context.Context, title, artist string) (*services.TrackMetadata, error) {
	args := m.Called(ctx, title, artist)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.TrackMetadata), args.Error(1)
}

func (m *MockMetadataSource) SearchTracks(ctx context.Context, query string, limit int) ([]models.SearchHit, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SearchHit), args.Error(1)
}

func (m *MockMetadataSource) Health(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockLyricsSource is a mock implementation of services.LyricsSource.
type MockLyricsSource struct {
	mock.Mock
}

func (m *MockLyricsSource) SourceName() string {
	return "mock-lyrics"
}

func (m *MockLyricsSource) FetchLyrics(ctx context.Context, title, artist string) (*services.LyricsResult, error) {
	args := m.Called(ctx, title, artist)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.LyricsResult), args.Error(1)
}

// MockRecognitionSource is a mock implementation of
// services.RecognitionSource.
type MockRecognitionSource struct {
	mock.Mock
}

func (m *MockRecognitionSource) SourceName() string {
	return "mock-recognition"
}

func (m *MockRecognitionSource) Recognize(ctx context.Context, audio []byte) (*models.RecognizedTrack, error) {
	args := m.Called(ctx, audio)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RecognizedTrack), args.Error(1)
}

// MockGenerativeSource is a mock implementation of services.GenerativeSource.
type MockGenerativeSource struct {
	mock.Mock
}

func (m *MockGenerativeSource) SourceName() string {
	return "mock-generative"
}

func (m *MockGenerativeSource) GenerateSong(ctx context.Context, title, artist string, partial *models.SongResult) (*services.GeneratedSong, error) {
	args := m.Called(ctx, title, artist, partial)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.GeneratedSong), args.Error(1)
}

func (m *MockGenerativeSource) SearchSongs(ctx context.Context, query string, limit int) ([]models.SearchHit, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SearchHit), args.Error(1)
}

func (m *MockGenerativeSource) GenerateRepertoire(ctx context.Context, genre string, count int) ([]models.RepertoireEntry, error) {
	args := m.Called(ctx, genre, count)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.RepertoireEntry), args.Error(1)
}

func (m *MockGenerativeSource) GenerateNotation(ctx context.Context, song *models.SongResult, instrument, notationType string) (string, error) {
	args := m.Called(ctx, song, instrument, notationType)
	return args.String(0), args.Error(1)
}

// MockCache is a mock implementation of cache.Cache.
type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockCache) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockCache) Health(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

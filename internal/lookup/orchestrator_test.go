package lookup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"bandroom/internal/config"
	"bandroom/internal/models"
	"bandroom/internal/services"
	"bandroom/internal/testutil"
)

func testPolicy() *config.CachePolicy {
	policy := config.DefaultCachePolicy()
	// Mocks resolve instantly; short waits keep failure tests fast
	policy.ParallelFetchSeconds = 1
	policy.GenerativeFastSeconds = 1
	policy.GenerativeThoroughSeconds = 1
	return policy
}

func unavailableErr() error {
	return &services.SourceError{Source: "test", Operation: "op", Err: services.ErrUnavailable}
}

func TestLookupSong_CacheHit(t *testing.T) {
	repo := newFakeRepo()
	cache := NewResultCache(repo, nil)

	stored := models.SongResult{
		Title:  "Imagine",
		Artist: "John Lennon",
		Lyrics: "Imagine all the people",
		Chords: "C - Cmaj7 - F",
		Key:    "C",
		Genre:  "Rock",
		Tempo:  76,
		Source: models.SourceAuthoritativeMetadata,
	}
	require.NoError(t, cache.Set(context.Background(), models.KindMetadataLookup,
		map[string]string{"title": "Imagine", "artist": "John Lennon"}, &stored))

	// No sources wired at all: a hit must short-circuit the pipeline
	svc := NewLookupService(cache, nil, nil, nil, nil, testPolicy())
	got, err := svc.LookupSong(context.Background(), "Imagine", "John Lennon")
	require.NoError(t, err)
	assert.Equal(t, stored, *got)
}

func TestLookupSong_AuthoritativePlusGenerative(t *testing.T) {
	metadata := new(testutil.MockMetadataSource)
	metadata.On("LookupTrack", mock.Anything, mock.Anything, mock.Anything).
		Return(&services.TrackMetadata{
			Title:            "Imagine",
			Artist:           "John Lennon",
			Album:            "Imagine",
			ReleaseDate:      "1971-09-09",
			Popularity:       85,
			DurationMs:       183000,
			HasAudioFeatures: true,
			Tempo:            76,
			Key:              "C",
		}, nil)

	lyrics := new(testutil.MockLyricsSource)
	lyrics.On("FetchLyrics", mock.Anything, mock.Anything, mock.Anything).
		Return(&services.LyricsResult{Lyrics: "Imagine all the people", Artist: "John Lennon"}, nil)

	generative := new(testutil.MockGenerativeSource)
	generative.On("GenerateSong", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&services.GeneratedSong{
			Lyrics: "should not replace real lyrics",
			Chords: "C - Cmaj7 - F",
			Key:    "G",
			Genre:  "Rock",
			Tempo:  80,
		}, nil)

	svc := NewLookupService(NewResultCache(newFakeRepo(), nil), metadata, lyrics, nil, generative, testPolicy())
	got, err := svc.LookupSong(context.Background(), "imagine", "john lennon")
	require.NoError(t, err)

	// Chords always come from the generative tier; real lyrics win
	assert.Equal(t, "C - Cmaj7 - F", got.Chords)
	assert.Equal(t, "Imagine all the people", got.Lyrics)
	assert.Equal(t, "Imagine", got.Title)
	assert.Equal(t, "Imagine", got.Album)
	assert.Equal(t, 85, got.Popularity)
	// Audio-analysis key beats the generative guess
	assert.Equal(t, "C", got.Key)
	assert.Equal(t, 76, got.Tempo)
	assert.Equal(t, models.SourceGenerativeFallback, got.Source)
}

func TestLookupSong_GenerativeOnly(t *testing.T) {
	metadata := new(testutil.MockMetadataSource)
	metadata.On("LookupTrack", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, unavailableErr())
	lyrics := new(testutil.MockLyricsSource)
	lyrics.On("FetchLyrics", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, unavailableErr())
	generative := new(testutil.MockGenerativeSource)
	generative.On("GenerateSong", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&services.GeneratedSong{
			Lyrics: "[Verse 1]\nGenerated lyrics here",
			Chords: "G - D - Em - C",
			Key:    "G",
			Genre:  "Folk",
			Tempo:  95,
		}, nil)

	repo := newFakeRepo()
	svc := NewLookupService(NewResultCache(repo, nil), metadata, lyrics, nil, generative, testPolicy())
	got, err := svc.LookupSong(context.Background(), "Some Song", "Some Artist")
	require.NoError(t, err)

	assert.Equal(t, models.SourceGenerativeFallback, got.Source)
	assert.Equal(t, "G - D - Em - C", got.Chords)
	assert.Equal(t, "G", got.Key)
	assert.Equal(t, "Folk", got.Genre)
	assert.Equal(t, 95, got.Tempo)
	assert.Equal(t, "Some Song", got.Title)

	// Persisted asynchronously under the short-TTL generative kind
	assert.Eventually(t, func() bool { return repo.len() == 1 },
		time.Second, 10*time.Millisecond)
	counts, err := repo.CountByKind(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[models.KindAIFallback])
}

func TestLookupSong_TotalFailure(t *testing.T) {
	metadata := new(testutil.MockMetadataSource)
	metadata.On("LookupTrack", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, unavailableErr())
	lyrics := new(testutil.MockLyricsSource)
	lyrics.On("FetchLyrics", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, unavailableErr())
	generative := new(testutil.MockGenerativeSource)
	generative.On("GenerateSong", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, unavailableErr())

	repo := newFakeRepo()
	svc := NewLookupService(NewResultCache(repo, nil), metadata, lyrics, nil, generative, testPolicy())
	got, err := svc.LookupSong(context.Background(), "Obscure Song", "Nobody")
	require.NoError(t, err)

	// Every field populated even under total source failure
	assert.Equal(t, models.SourceStaticPlaceholder, got.Source)
	assert.Contains(t, got.Lyrics, "Obscure Song")
	assert.Contains(t, got.Lyrics, "Nobody")
	assert.Equal(t, "C - G - Am - F", got.Chords)
	assert.Equal(t, models.DefaultKey, got.Key)
	assert.Equal(t, models.DefaultTempo, got.Tempo)
	assert.NotEmpty(t, got.Genre)

	// Placeholder results are never persisted
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, repo.len())
}

func TestLookupSong_NoSourcesConfigured(t *testing.T) {
	svc := NewLookupService(NewResultCache(newFakeRepo(), nil), nil, nil, nil, nil, testPolicy())
	got, err := svc.LookupSong(context.Background(), "Anything", "Anyone")
	require.NoError(t, err)
	assert.Equal(t, models.SourceStaticPlaceholder, got.Source)
	assert.NotEmpty(t, got.Lyrics)
	assert.NotEmpty(t, got.Chords)
}

func TestLookupSong_InvalidInput(t *testing.T) {
	svc := NewLookupService(NewResultCache(newFakeRepo(), nil), nil, nil, nil, nil, testPolicy())

	_, err := svc.LookupSong(context.Background(), "", "Queen")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.LookupSong(context.Background(), "Bohemian Rhapsody", "  ")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSearchSongs_MetadataSufficient(t *testing.T) {
	hits := []models.SearchHit{
		{Title: "One", Artist: "A", Popularity: 9},
		{Title: "Two", Artist: "B", Popularity: 8},
		{Title: "Three", Artist: "C", Popularity: 7},
	}
	metadata := new(testutil.MockMetadataSource)
	metadata.On("SearchTracks", mock.Anything, "blues", models.MaxSearchHits).Return(hits, nil)
	generative := new(testutil.MockGenerativeSource)

	svc := NewLookupService(NewResultCache(newFakeRepo(), nil), metadata, nil, nil, generative, testPolicy())
	got, err := svc.SearchSongs(context.Background(), "blues")
	require.NoError(t, err)
	assert.Equal(t, hits, got)

	// Three hits meet the threshold, so the generative source stays idle
	generative.AssertNotCalled(t, "SearchSongs", mock.Anything, mock.Anything, mock.Anything)
}

func TestSearchSongs_GenerativeTopUp(t *testing.T) {
	metadata := new(testutil.MockMetadataSource)
	metadata.On("SearchTracks", mock.Anything, mock.Anything, mock.Anything).
		Return([]models.SearchHit{{Title: "Only One", Artist: "A", Popularity: 5}}, nil)

	genHits := make([]models.SearchHit, 7)
	for i := range genHits {
		genHits[i] = models.SearchHit{Title: "Gen", Artist: "B", Popularity: 5}
	}
	generative := new(testutil.MockGenerativeSource)
	generative.On("SearchSongs", mock.Anything, mock.Anything, models.MaxSearchHits-1).
		Return(genHits, nil)

	svc := NewLookupService(NewResultCache(newFakeRepo(), nil), metadata, nil, nil, generative, testPolicy())
	got, err := svc.SearchSongs(context.Background(), "something obscure")
	require.NoError(t, err)

	assert.Len(t, got, models.MaxSearchHits)
	assert.Equal(t, "Only One", got[0].Title)
}

func TestSearchSongs_TotalFailure(t *testing.T) {
	metadata := new(testutil.MockMetadataSource)
	metadata.On("SearchTracks", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, unavailableErr())
	generative := new(testutil.MockGenerativeSource)
	generative.On("SearchSongs", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, unavailableErr())

	repo := newFakeRepo()
	svc := NewLookupService(NewResultCache(repo, nil), metadata, nil, nil, generative, testPolicy())
	got, err := svc.SearchSongs(context.Background(), "mystery query")
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, "mystery query", got[0].Title)
	assert.Equal(t, "Unknown Artist", got[0].Artist)
	assert.Equal(t, 1, got[0].Popularity)

	// Placeholder hits are never persisted
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, repo.len())
}

func TestSearchSongs_CachedOnSecondCall(t *testing.T) {
	metadata := new(testutil.MockMetadataSource)
	metadata.On("SearchTracks", mock.Anything, mock.Anything, mock.Anything).
		Return([]models.SearchHit{
			{Title: "One", Artist: "A", Popularity: 9},
			{Title: "Two", Artist: "B", Popularity: 8},
			{Title: "Three", Artist: "C", Popularity: 7},
		}, nil).Once()

	repo := newFakeRepo()
	svc := NewLookupService(NewResultCache(repo, nil), metadata, nil, nil, nil, testPolicy())

	first, err := svc.SearchSongs(context.Background(), "blues")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return repo.len() == 1 },
		time.Second, 10*time.Millisecond)

	second, err := svc.SearchSongs(context.Background(), "Blues ")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	metadata.AssertNumberOfCalls(t, "SearchTracks", 1)
}

func TestRecognizeAudio(t *testing.T) {
	recognition := new(testutil.MockRecognitionSource)
	recognition.On("Recognize", mock.Anything, mock.Anything).
		Return(&models.RecognizedTrack{Title: "Imagine", Artist: "John Lennon"}, nil)

	svc := NewLookupService(NewResultCache(newFakeRepo(), nil), nil, nil, recognition, nil, testPolicy())
	got, err := svc.RecognizeAudio(context.Background(), []byte("audio-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "Imagine", got.Title)
}

func TestRecognizeAudio_Failures(t *testing.T) {
	// Missing adapter
	svc := NewLookupService(NewResultCache(newFakeRepo(), nil), nil, nil, nil, nil, testPolicy())
	_, err := svc.RecognizeAudio(context.Background(), []byte("x"))
	assert.ErrorIs(t, err, services.ErrNotRecognized)

	// Source unavailable collapses to not-recognized
	recognition := new(testutil.MockRecognitionSource)
	recognition.On("Recognize", mock.Anything, mock.Anything).
		Return(nil, errors.New("boom"))
	svc = NewLookupService(NewResultCache(newFakeRepo(), nil), nil, nil, recognition, nil, testPolicy())
	_, err = svc.RecognizeAudio(context.Background(), []byte("x"))
	assert.ErrorIs(t, err, services.ErrNotRecognized)
}

func TestGenerateRepertoire(t *testing.T) {
	entries := []models.RepertoireEntry{
		{Title: "Sweet Home Chicago", Artist: "Robert Johnson", Key: "E", Tempo: 96, Chords: "E A B7", Genre: "blues"},
	}
	generative := new(testutil.MockGenerativeSource)
	generative.On("GenerateRepertoire", mock.Anything, "blues", 5).Return(entries, nil)

	repo := newFakeRepo()
	svc := NewLookupService(NewResultCache(repo, nil), nil, nil, nil, generative, testPolicy())
	got, err := svc.GenerateRepertoire(context.Background(), "blues", 5)
	require.NoError(t, err)
	assert.Equal(t, entries, got)

	assert.Eventually(t, func() bool { return repo.len() == 1 },
		time.Second, 10*time.Millisecond)
}

func TestGenerateRepertoire_FallsBackToDefaultList(t *testing.T) {
	generative := new(testutil.MockGenerativeSource)
	generative.On("GenerateRepertoire", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, unavailableErr())

	svc := NewLookupService(NewResultCache(newFakeRepo(), nil), nil, nil, nil, generative, testPolicy())
	got, err := svc.GenerateRepertoire(context.Background(), "jazz", 3)
	require.NoError(t, err)

	require.Len(t, got, 3)
	for _, entry := range got {
		assert.Equal(t, "jazz", entry.Genre)
		assert.NotEmpty(t, entry.Title)
		assert.NotEmpty(t, entry.Chords)
	}
}

func TestGenerateNotation(t *testing.T) {
	song := &models.SongResult{Title: "Imagine", Artist: "John Lennon", Key: "C", Tempo: 76, Chords: "C - Cmaj7 - F"}

	generative := new(testutil.MockGenerativeSource)
	generative.On("GenerateNotation", mock.Anything, song, "guitar", "chords").
		Return("[Intro] C Cmaj7 | down down up", nil)

	svc := NewLookupService(NewResultCache(newFakeRepo(), nil), nil, nil, nil, generative, testPolicy())
	got, err := svc.GenerateNotation(context.Background(), song, "guitar", "chords")
	require.NoError(t, err)
	assert.Equal(t, "[Intro] C Cmaj7 | down down up", got)
}

func TestGenerateNotation_FallsBackToChords(t *testing.T) {
	song := &models.SongResult{Title: "Imagine", Artist: "John Lennon", Chords: "C - Cmaj7 - F"}

	generative := new(testutil.MockGenerativeSource)
	generative.On("GenerateNotation", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", unavailableErr())

	svc := NewLookupService(NewResultCache(newFakeRepo(), nil), nil, nil, nil, generative, testPolicy())
	got, err := svc.GenerateNotation(context.Background(), song, "drums", "rhythm")
	require.NoError(t, err)
	assert.Equal(t, song.Chords, got)
}

func TestSweepExpired_UsesPolicyDefault(t *testing.T) {
	repo := newFakeRepo()
	cache := NewResultCache(repo, nil)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, models.KindMetadataLookup, lookupFields, &models.SongResult{Title: "Old"}))
	repo.backdate(200 * time.Hour)

	svc := NewLookupService(cache, nil, nil, nil, nil, testPolicy())
	deleted, err := svc.SweepExpired(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

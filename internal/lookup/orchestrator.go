package lookup

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"bandroom/internal/config"
	"bandroom/internal/models"
	"bandroom/internal/services"
)

// minSearchHits is the threshold below which the metadata source's search
// results are topped up from the generative source.
const minSearchHits = 3

// LookupService is the multi-source lookup engine. Sources are optional:
// any nil slot simply contributes nothing and the pipeline degrades through
// its fallback tiers, ending at the static placeholder which cannot fail.
type LookupService struct {
	cache       *ResultCache
	metadata    services.MetadataSource
	lyrics      services.LyricsSource
	recognition services.RecognitionSource
	generative  services.GenerativeSource
	policy      *config.CachePolicy
}

// NewLookupService creates the lookup engine. Any source may be nil.
func NewLookupService(
	cache *ResultCache,
	metadata services.MetadataSource,
	lyrics services.LyricsSource,
	recognition services.RecognitionSource,
	generative services.GenerativeSource,
	policy *config.CachePolicy,
) *LookupService {
	if policy == nil {
		policy = config.DefaultCachePolicy()
	}
	return &LookupService{
		cache:       cache,
		metadata:    metadata,
		lyrics:      lyrics,
		recognition: recognition,
		generative:  generative,
		policy:      policy,
	}
}

// LookupSong resolves a (title, artist) pair into a fully populated
// SongResult. It never fails for "not found": under total source failure it
// still returns a titled, attributed, chorded, lyric-bearing placeholder.
// The only possible error is ErrInvalidInput.
func (s *LookupService) LookupSong(ctx context.Context, title, artist string) (*models.SongResult, error) {
	fields := map[string]string{"title": title, "artist": artist}

	// Authoritative results live under metadata-lookup with the long TTL;
	// generative results under ai-fallback with the short one. Check both.
	var cached models.SongResult
	found, err := s.cache.Get(ctx, models.KindMetadataLookup, fields, hours(s.policy.MetadataLookupHours), &cached)
	if err != nil {
		return nil, err
	}
	if !found {
		found, _ = s.cache.Get(ctx, models.KindAIFallback, fields, hours(s.policy.AIFallbackHours), &cached)
	}
	if found {
		return &cached, nil
	}

	meta, lyr := s.parallelFetch(ctx, title, artist)

	// Merge starts from zero values so the generative overlay can tell
	// which fields are still missing; defaults are backfilled at the end
	result := &models.SongResult{Title: title, Artist: artist}
	if meta != nil {
		result.Title = meta.Title
		result.Artist = meta.Artist
		result.Album = meta.Album
		result.ReleaseDate = meta.ReleaseDate
		result.Popularity = meta.Popularity
		result.PreviewURL = meta.PreviewURL
		result.DurationMs = meta.DurationMs
		if meta.HasAudioFeatures {
			result.Tempo = meta.Tempo
			result.Key = meta.Key
		}
	}
	if lyr != nil {
		result.Lyrics = lyr.Lyrics
		if result.Artist == "" || (meta == nil && lyr.Artist != "") {
			result.Artist = lyr.Artist
		}
	}

	// Metadata and lyrics sources never supply chords, so the generative
	// tier is needed whenever chords or lyrics are still missing
	usedGenerative := false
	if result.Chords == "" || result.Lyrics == "" {
		if gen := s.generativeFetch(ctx, title, artist, result); gen != nil {
			usedGenerative = true
			if gen.Chords != "" {
				result.Chords = gen.Chords
			}
			if result.Lyrics == "" {
				result.Lyrics = gen.Lyrics
			}
			if result.Key == "" {
				result.Key = gen.Key
			}
			if result.Genre == "" {
				result.Genre = gen.Genre
			}
			if result.Tempo == 0 {
				result.Tempo = gen.Tempo
			}
		}
	}

	// Terminal tier: pure local computation, cannot fail
	usedPlaceholder := false
	if result.Chords == "" || result.Lyrics == "" {
		usedPlaceholder = true
		ph := placeholderSong(result.Title, result.Artist)
		if result.Lyrics == "" {
			result.Lyrics = ph.Lyrics
		}
		if result.Chords == "" {
			result.Chords = ph.Chords
		}
		if result.Genre == "" {
			result.Genre = ph.Genre
		}
	}

	switch {
	case usedPlaceholder:
		result.Source = models.SourceStaticPlaceholder
	case usedGenerative:
		result.Source = models.SourceGenerativeFallback
	case meta != nil:
		result.Source = models.SourceAuthoritativeMetadata
	default:
		result.Source = models.SourceLyrics
	}
	result.FillDefaults()

	// Placeholder results are not persisted: caching a failure artifact
	// would pin it for the whole TTL window
	if !usedPlaceholder {
		kind := models.KindMetadataLookup
		if usedGenerative {
			kind = models.KindAIFallback
		}
		s.persistAsync(kind, fields, result)
	}

	return result, nil
}

// SearchSongs resolves a free-text query into at most MaxSearchHits
// displayable hits, topping up thin metadata results from the generative
// source and falling back to a single placeholder hit on total failure.
func (s *LookupService) SearchSongs(ctx context.Context, query string) ([]models.SearchHit, error) {
	fields := map[string]string{"query": query}

	var cached []models.SearchHit
	found, err := s.cache.Get(ctx, models.KindFreeTextSearch, fields, hours(s.policy.FreeTextSearchHours), &cached)
	if err != nil {
		return nil, err
	}
	if found {
		return cached, nil
	}

	var hits []models.SearchHit
	if s.metadata != nil {
		searchCtx, cancel := context.WithTimeout(ctx, s.policy.ParallelFetchTimeout())
		metaHits, err := s.metadata.SearchTracks(searchCtx, query, models.MaxSearchHits)
		cancel()
		if err != nil {
			slog.Warn("Metadata search unavailable", "query", query, "error", err)
		} else {
			hits = metaHits
		}
	}

	if len(hits) < minSearchHits && s.generative != nil {
		genCtx, cancel := context.WithTimeout(ctx, s.policy.GenerativeFastTimeout())
		genHits, err := s.generative.SearchSongs(genCtx, query, models.MaxSearchHits-len(hits))
		cancel()
		if err != nil {
			slog.Warn("Generative search unavailable", "query", query, "error", err)
		} else {
			hits = append(hits, genHits...)
		}
	}

	if len(hits) > models.MaxSearchHits {
		hits = hits[:models.MaxSearchHits]
	}
	if len(hits) == 0 {
		return placeholderHits(query), nil
	}

	s.persistAsync(models.KindFreeTextSearch, fields, hits)
	return hits, nil
}

// RecognizeAudio forwards opaque audio bytes to the fingerprinting source.
// Every failure mode, including a missing adapter, surfaces as
// ErrNotRecognized.
func (s *LookupService) RecognizeAudio(ctx context.Context, audio []byte) (*models.RecognizedTrack, error) {
	if s.recognition == nil {
		return nil, services.ErrNotRecognized
	}

	track, err := s.recognition.Recognize(ctx, audio)
	if err != nil {
		if !errors.Is(err, services.ErrNotRecognized) {
			slog.Warn("Recognition source unavailable", "error", err)
		}
		return nil, services.ErrNotRecognized
	}
	return track, nil
}

// GenerateRepertoire produces a set list for a genre, cached for a week,
// falling back to the built-in default list.
func (s *LookupService) GenerateRepertoire(ctx context.Context, genre string, count int) ([]models.RepertoireEntry, error) {
	if count <= 0 {
		count = 10
	}
	fields := map[string]string{"genre": genre, "count": strconv.Itoa(count)}

	var cached []models.RepertoireEntry
	found, err := s.cache.Get(ctx, models.KindRepertoireGeneration, fields, hours(s.policy.RepertoireHours), &cached)
	if err != nil {
		return nil, err
	}
	if found {
		return cached, nil
	}

	if s.generative != nil {
		genCtx, cancel := context.WithTimeout(ctx, s.policy.GenerativeThoroughTimeout())
		entries, err := s.generative.GenerateRepertoire(genCtx, genre, count)
		cancel()
		if err != nil {
			slog.Warn("Generative repertoire unavailable", "genre", genre, "error", err)
		} else if len(entries) > 0 {
			s.persistAsync(models.KindRepertoireGeneration, fields, entries)
			return entries, nil
		}
	}

	return placeholderRepertoire(genre, count), nil
}

// GenerateNotation renders instrument-specific notation for a resolved
// song, cached per (song, instrument), falling back to the song's plain
// chord sequence.
func (s *LookupService) GenerateNotation(ctx context.Context, song *models.SongResult, instrument, notationType string) (string, error) {
	fields := map[string]string{
		"title":      song.Title,
		"artist":     song.Artist,
		"instrument": instrument,
	}

	var cached string
	found, err := s.cache.Get(ctx, models.KindNotationGeneration, fields, hours(s.policy.NotationHours), &cached)
	if err != nil {
		return "", err
	}
	if found {
		return cached, nil
	}

	if s.generative != nil {
		genCtx, cancel := context.WithTimeout(ctx, s.policy.GenerativeFastTimeout())
		notation, err := s.generative.GenerateNotation(genCtx, song, instrument, notationType)
		cancel()
		if err != nil {
			slog.Warn("Generative notation unavailable", "instrument", instrument, "error", err)
		} else {
			s.persistAsync(models.KindNotationGeneration, fields, notation)
			return notation, nil
		}
	}

	return song.Chords, nil
}

// SweepExpired removes entries older than maxAge, or the policy's global
// retention window when maxAge is zero. Ops-facing: storage errors surface.
func (s *LookupService) SweepExpired(ctx context.Context, maxAge time.Duration) (int64, error) {
	if maxAge <= 0 {
		maxAge = hours(s.policy.SweepMaxAgeHours)
	}
	return s.cache.SweepExpired(ctx, maxAge)
}

// CacheStats returns cache diagnostics. Ops-facing: storage errors surface.
func (s *LookupService) CacheStats(ctx context.Context) (*CacheStats, error) {
	return s.cache.Stats(ctx)
}

// parallelFetch launches the metadata and lyrics fetches concurrently and
// waits a bounded time for both. Each result lands in its own buffered
// channel, so a late straggler is simply abandoned, never joined.
func (s *LookupService) parallelFetch(ctx context.Context, title, artist string) (*services.TrackMetadata, *services.LyricsResult) {
	wait := s.policy.ParallelFetchTimeout()
	fetchCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	metaCh := make(chan *services.TrackMetadata, 1)
	lyricsCh := make(chan *services.LyricsResult, 1)

	go func() {
		if s.metadata == nil {
			metaCh <- nil
			return
		}
		meta, err := s.metadata.LookupTrack(fetchCtx, title, artist)
		if err != nil {
			slog.Debug("Metadata source unavailable", "title", title, "error", err)
			metaCh <- nil
			return
		}
		metaCh <- meta
	}()

	go func() {
		if s.lyrics == nil {
			lyricsCh <- nil
			return
		}
		lyr, err := s.lyrics.FetchLyrics(fetchCtx, title, artist)
		if err != nil {
			slog.Debug("Lyrics source unavailable", "title", title, "error", err)
			lyricsCh <- nil
			return
		}
		lyricsCh <- lyr
	}()

	// Small grace on top of the context deadline so adapters get to
	// resolve into their unavailable form before we stop listening
	timer := time.NewTimer(wait + 500*time.Millisecond)
	defer timer.Stop()

	var meta *services.TrackMetadata
	var lyr *services.LyricsResult
	for pending := 2; pending > 0; {
		select {
		case meta = <-metaCh:
			pending--
		case lyr = <-lyricsCh:
			pending--
		case <-timer.C:
			slog.Warn("Parallel fetch timed out, proceeding without slow sources", "title", title)
			pending = 0
		}
	}
	return meta, lyr
}

// generativeFetch runs the generative source under the thorough timeout; a
// timeout is indistinguishable from any other unavailability.
func (s *LookupService) generativeFetch(ctx context.Context, title, artist string, partial *models.SongResult) *services.GeneratedSong {
	if s.generative == nil {
		return nil
	}

	genCtx, cancel := context.WithTimeout(ctx, s.policy.GenerativeThoroughTimeout())
	defer cancel()

	gen, err := s.generative.GenerateSong(genCtx, title, artist, partial)
	if err != nil {
		slog.Warn("Generative source unavailable", "title", title, "error", err)
		return nil
	}
	return gen
}

// persistAsync writes through to the cache without blocking the response
func (s *LookupService) persistAsync(kind models.OperationKind, fields map[string]string, payload any) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.cache.Set(ctx, kind, fields, payload); err != nil {
			slog.Error("Cache persist failed", "kind", kind, "error", err)
		}
	}()
}

func hours(n int) time.Duration {
	return time.Duration(n) * time.Hour
}

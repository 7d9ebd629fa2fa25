package services

import (
	"context"
	"errors"

	"bandroom/internal/models"
)

// ErrUnavailable collapses every adapter failure mode the orchestrator does
// not distinguish: missing credentials, transport errors, non-success
// responses, empty matches, and malformed bodies. Adapters resolve to either
// a well-formed result or an error wrapping this sentinel.
var ErrUnavailable = errors.New("source unavailable")

// ErrNotRecognized is returned by the recognition source when the
// fingerprinting service found no match for the audio.
var ErrNotRecognized = errors.New("audio not recognized")

// MetadataSource is an authoritative track-metadata provider. It corrects
// title/artist and supplies enrichment fields, plus tempo and key when
// audio-analysis data is available.
type MetadataSource interface {
	// SourceName returns the name of this source
	SourceName() string

	// LookupTrack finds the best match for a (title, artist) pair
	LookupTrack(ctx context.Context, title, artist string) (*TrackMetadata, error)

	// SearchTracks runs a free-text search, returning up to limit hits
	SearchTracks(ctx context.Context, query string, limit int) ([]models.SearchHit, error)

	// Health checks if the source is reachable
	Health(ctx context.Context) error
}

// LyricsSource is a best-effort full-lyrics provider.
type LyricsSource interface {
	SourceName() string

	// FetchLyrics returns the lyrics text for a (title, artist) pair,
	// with section markers cleaned onto their own lines
	FetchLyrics(ctx context.Context, title, artist string) (*LyricsResult, error)
}

// RecognitionSource identifies a track from raw audio bytes.
type RecognitionSource interface {
	SourceName() string

	// Recognize forwards the audio to a fingerprinting service and
	// returns its coarse guess
	Recognize(ctx context.Context, audio []byte) (*models.RecognizedTrack, error)
}

// GenerativeSource produces structured guesses from a text model. It is the
// second-to-last fallback tier; only the static placeholder sits below it.
type GenerativeSource interface {
	SourceName() string

	// GenerateSong completes a partial result with lyrics, chords, key,
	// genre, and tempo
	GenerateSong(ctx context.Context, title, artist string, partial *models.SongResult) (*GeneratedSong, error)

	// SearchSongs suggests real songs matching a free-text query
	SearchSongs(ctx context.Context, query string, limit int) ([]models.SearchHit, error)

	// GenerateRepertoire suggests a set list for a genre
	GenerateRepertoire(ctx context.Context, genre string, count int) ([]models.RepertoireEntry, error)

	// GenerateNotation renders instrument-specific notation for a song
	GenerateNotation(ctx context.Context, song *models.SongResult, instrument, notationType string) (string, error)
}

// TrackMetadata is the metadata source's view of a track.
type TrackMetadata struct {
	Title       string
	Artist      string
	Album       string
	ReleaseDate string
	Popularity  int // raw 0-100 scale
	PreviewURL  string
	DurationMs  int

	// Audio-analysis fields, meaningful only when HasAudioFeatures is set
	HasAudioFeatures bool
	Tempo            int
	Key              string
}

// LyricsResult is the lyrics source's response.
type LyricsResult struct {
	Lyrics string
	Artist string // corrected artist name, when the source knows better
	URL    string
}

// GeneratedSong is the generative source's structured guess.
type GeneratedSong struct {
	Lyrics string
	Chords string
	Key    string
	Genre  string
	Tempo  int
}

// SourceError represents an error from a source adapter
type SourceError struct {
	Source    string
	Operation string
	Message   string
	Err       error
}

func (e *SourceError) Error() string {
	msg := e.Source + " " + e.Operation + " failed"
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += " - " + e.Err.Error()
	}
	return msg
}

func (e *SourceError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrUnavailable
}

// unavailable builds a SourceError that unwraps to ErrUnavailable.
func unavailable(source, operation, message string) error {
	return &SourceError{
		Source:    source,
		Operation: operation,
		Message:   message,
		Err:       ErrUnavailable,
	}
}

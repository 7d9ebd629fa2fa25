package models

import "time"

// OperationKind tags a cacheable lookup operation. The kind is part of the
// cache fingerprint, so identical inputs for different operations never
// collide.
type OperationKind string

const (
	KindMetadataLookup       OperationKind = "metadata-lookup"
	KindFreeTextSearch       OperationKind = "free-text-search"
	KindAIFallback           OperationKind = "ai-fallback"
	KindRepertoireGeneration OperationKind = "repertoire-generation"
	KindNotationGeneration   OperationKind = "notation-generation"
)

// Valid reports whether k is one of the known operation kinds.
func (k OperationKind) Valid() bool {
	switch k {
	case KindMetadataLookup, KindFreeTextSearch, KindAIFallback,
		KindRepertoireGeneration, KindNotationGeneration:
		return true
	}
	return false
}

// Source identifies which fallback tier produced a result. It is always set
// and drives the cache TTL the caller chooses.
type Source string

const (
	SourceAuthoritativeMetadata Source = "authoritative-metadata"
	SourceLyrics                Source = "lyrics-source"
	SourceGenerativeFallback    Source = "generative-fallback"
	SourceStaticPlaceholder     Source = "static-placeholder"
)

// Defaults backfilled into every SongResult before it leaves the
// orchestrator. A caller never sees an unset field.
const (
	DefaultKey   = "C"
	DefaultGenre = "Unknown"
	DefaultTempo = 120
)

// SongResult is the canonical payload produced by the lookup pipeline.
type SongResult struct {
	Title  string `bson:"title" json:"title"`
	Artist string `bson:"artist" json:"artist"`
	Lyrics string `bson:"lyrics" json:"lyrics"`
	Chords string `bson:"chords" json:"chords"`
	Key    string `bson:"key" json:"key"`
	Genre  string `bson:"genre" json:"genre"`
	Tempo  int    `bson:"tempo" json:"tempo"`
	Source Source `bson:"source" json:"source"`

	// Enrichment fields, present only when an authoritative source
	// supplied them.
	Album       string `bson:"album,omitempty" json:"album,omitempty"`
	Popularity  int    `bson:"popularity,omitempty" json:"popularity,omitempty"`
	ReleaseDate string `bson:"release_date,omitempty" json:"release_date,omitempty"`
	PreviewURL  string `bson:"preview_url,omitempty" json:"preview_url,omitempty"`
	DurationMs  int    `bson:"duration_ms,omitempty" json:"duration_ms,omitempty"`
}

// NewSongResult creates a SongResult with every defaulted field populated.
func NewSongResult(title, artist string) *SongResult {
	return &SongResult{
		Title:  title,
		Artist: artist,
		Key:    DefaultKey,
		Genre:  DefaultGenre,
		Tempo:  DefaultTempo,
	}
}

// FillDefaults backfills any field still at its zero value. The orchestrator
// calls this last so a partially merged result never escapes with an empty
// key, genre, or tempo.
func (s *SongResult) FillDefaults() {
	if s.Key == "" {
		s.Key = DefaultKey
	}
	if s.Genre == "" {
		s.Genre = DefaultGenre
	}
	if s.Tempo <= 0 {
		s.Tempo = DefaultTempo
	}
}

// SearchHit is a single free-text search result. Popularity is normalized to
// a 1-10 scale regardless of what the underlying source reports.
type SearchHit struct {
	Title      string `bson:"title" json:"title"`
	Artist     string `bson:"artist" json:"artist"`
	Genre      string `bson:"genre" json:"genre"`
	Year       string `bson:"year" json:"year"`
	Popularity int    `bson:"popularity" json:"popularity"`
}

// MaxSearchHits caps every search response, whatever the sources returned.
const MaxSearchHits = 8

// RecognizedTrack is the coarse guess returned by the audio-fingerprint
// service.
type RecognizedTrack struct {
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	Album       string `json:"album,omitempty"`
	ReleaseDate string `json:"release_date,omitempty"`
}

// RepertoireEntry is one suggested song in a generated set list.
type RepertoireEntry struct {
	Title  string `bson:"title" json:"title"`
	Artist string `bson:"artist" json:"artist"`
	Key    string `bson:"key" json:"key"`
	Tempo  int    `bson:"tempo" json:"tempo"`
	Chords string `bson:"chords" json:"chords"`
	Genre  string `bson:"genre" json:"genre"`
}

// CacheEntry is the persisted shape of one cached lookup result, one
// document per fingerprint.
type CacheEntry struct {
	Fingerprint   string            `bson:"fingerprint"`
	OperationKind OperationKind     `bson:"operation_kind"`
	InputSnapshot map[string]string `bson:"input_snapshot"`
	Payload       []byte            `bson:"payload"`
	CreatedAt     time.Time         `bson:"created_at"`
}

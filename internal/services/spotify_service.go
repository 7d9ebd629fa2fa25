package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2/clientcredentials"

	"bandroom/internal/models"
)

// spotifyService implements MetadataSource for Spotify
type spotifyService struct {
	client      *resty.Client
	tokenSource *clientcredentials.Config
	accessToken string
	tokenExpiry time.Time
	mu          sync.RWMutex
}

// Spotify API endpoints
const (
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyAPIURL   = "https://api.spotify.com/v1"
)

// sharpKeyNames maps Spotify's numeric pitch-class codes (0-11) to key
// names. Enharmonic spellings always prefer sharps.
var sharpKeyNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NewSpotifyService creates a new Spotify metadata source
func NewSpotifyService(clientID, clientSecret string) MetadataSource {
	tokenSource := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotifyTokenURL,
	}

	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second)

	return &spotifyService{
		client:      client,
		tokenSource: tokenSource,
	}
}

// SourceName returns the source name
func (s *spotifyService) SourceName() string {
	return "spotify"
}

// LookupTrack finds the best match for a (title, artist) pair and enriches
// it with audio-analysis tempo and key when available
func (s *spotifyService) LookupTrack(ctx context.Context, title, artist string) (*TrackMetadata, error) {
	if err := s.ensureValidToken(ctx); err != nil {
		return nil, err
	}

	query := fmt.Sprintf("track:%q artist:%q", title, artist)
	tracks, err := s.searchRaw(ctx, query, 1)
	if err != nil {
		return nil, err
	}
	if len(tracks) == 0 {
		return nil, unavailable("spotify", "lookup_track", "no matching track")
	}

	track := tracks[0]
	meta := s.convertTrack(&track)

	// Audio features are best-effort enrichment; a failure here never
	// fails the lookup
	if features, err := s.audioFeatures(ctx, track.ID); err != nil {
		slog.Debug("Spotify audio features unavailable", "trackID", track.ID, "error", err)
	} else if features != nil {
		meta.HasAudioFeatures = true
		meta.Tempo = int(features.Tempo)
		if features.Key >= 0 && features.Key < 12 {
			meta.Key = sharpKeyNames[features.Key]
		}
	}

	return meta, nil
}

// SearchTracks runs a free-text search, normalizing popularity to 1-10
func (s *spotifyService) SearchTracks(ctx context.Context, query string, limit int) ([]models.SearchHit, error) {
	if err := s.ensureValidToken(ctx); err != nil {
		return nil, err
	}

	if limit <= 0 || limit > models.MaxSearchHits {
		limit = models.MaxSearchHits
	}

	tracks, err := s.searchRaw(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	hits := make([]models.SearchHit, 0, len(tracks))
	for i := range tracks {
		track := &tracks[i]
		artist := ""
		if len(track.Artists) > 0 {
			artist = track.Artists[0].Name
		}
		year := track.Album.ReleaseDate
		if len(year) > 4 {
			year = year[:4]
		}
		hits = append(hits, models.SearchHit{
			Title:      track.Name,
			Artist:     artist,
			Genre:      "Popular", // search responses carry no genre
			Year:       year,
			Popularity: normalizePopularity(track.Popularity),
		})
	}

	return hits, nil
}

// Health checks Spotify API health
func (s *spotifyService) Health(ctx context.Context) error {
	return s.ensureValidToken(ctx)
}

// searchRaw performs a track search against the Spotify API
func (s *spotifyService) searchRaw(ctx context.Context, query string, limit int) ([]spotifyTrack, error) {
	s.mu.RLock()
	token := s.accessToken
	s.mu.RUnlock()

	var searchResult spotifySearchResult
	resp, err := s.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParams(map[string]string{
			"q":     query,
			"type":  "track",
			"limit": fmt.Sprintf("%d", limit),
		}).
		SetResult(&searchResult).
		Get(fmt.Sprintf("%s/search", spotifyAPIURL))

	if err != nil {
		return nil, &SourceError{
			Source:    "spotify",
			Operation: "search",
			Message:   "request failed",
			Err:       err,
		}
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, unavailable("spotify", "search", fmt.Sprintf("API returned status %d", resp.StatusCode()))
	}

	return searchResult.Tracks.Items, nil
}

// audioFeatures fetches audio-analysis data for a track
func (s *spotifyService) audioFeatures(ctx context.Context, trackID string) (*spotifyAudioFeatures, error) {
	s.mu.RLock()
	token := s.accessToken
	s.mu.RUnlock()

	var features spotifyAudioFeatures
	resp, err := s.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(&features).
		Get(fmt.Sprintf("%s/audio-features/%s", spotifyAPIURL, trackID))

	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("audio features returned status %d", resp.StatusCode())
	}

	return &features, nil
}

// ensureValidToken ensures we have a valid access token
func (s *spotifyService) ensureValidToken(ctx context.Context) error {
	s.mu.RLock()
	if s.accessToken != "" && time.Now().Before(s.tokenExpiry) {
		s.mu.RUnlock()
		return nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring write lock
	if s.accessToken != "" && time.Now().Before(s.tokenExpiry) {
		return nil
	}

	token, err := s.tokenSource.Token(ctx)
	if err != nil {
		return &SourceError{
			Source:    "spotify",
			Operation: "auth",
			Message:   "failed to get access token",
			Err:       err,
		}
	}

	s.accessToken = token.AccessToken
	s.tokenExpiry = token.Expiry

	slog.Info("Spotify access token refreshed", "expires_at", token.Expiry)

	return nil
}

// convertTrack converts a Spotify API track to TrackMetadata
func (s *spotifyService) convertTrack(track *spotifyTrack) *TrackMetadata {
	artist := ""
	if len(track.Artists) > 0 {
		artist = track.Artists[0].Name
	}

	return &TrackMetadata{
		Title:       track.Name,
		Artist:      artist,
		Album:       track.Album.Name,
		ReleaseDate: track.Album.ReleaseDate,
		Popularity:  track.Popularity,
		PreviewURL:  track.PreviewURL,
		DurationMs:  track.DurationMs,
	}
}

// normalizePopularity converts Spotify's 0-100 popularity to the 1-10 scale
// used in search hits
func normalizePopularity(popularity int) int {
	scaled := popularity / 10
	if scaled < 1 {
		return 1
	}
	if scaled > 10 {
		return 10
	}
	return scaled
}

// Spotify API response structures
type spotifyTrack struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	DurationMs int    `json:"duration_ms"`
	Popularity int    `json:"popularity"`
	PreviewURL string `json:"preview_url"`
	Artists    []struct {
		Name string `json:"name"`
	} `json:"artists"`
	Album struct {
		Name        string `json:"name"`
		ReleaseDate string `json:"release_date"`
	} `json:"album"`
}

type spotifySearchResult struct {
	Tracks struct {
		Items []spotifyTrack `json:"items"`
	} `json:"tracks"`
}

type spotifyAudioFeatures struct {
	Tempo float64 `json:"tempo"`
	Key   int     `json:"key"`
	Mode  int     `json:"mode"`
}

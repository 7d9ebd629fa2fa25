package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePopularity(t *testing.T) {
	tests := []struct {
		raw  int
		want int
	}{
		{0, 1},
		{5, 1},
		{10, 1},
		{55, 5},
		{85, 8},
		{100, 10},
		{250, 10},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizePopularity(tt.raw), "raw=%d", tt.raw)
	}
}

func TestConvertTrack(t *testing.T) {
	track := &spotifyTrack{
		ID:         "abc123",
		Name:       "Imagine",
		DurationMs: 183000,
		Popularity: 85,
		PreviewURL: "https://p.scdn.co/preview/abc123",
	}
	track.Artists = []struct {
		Name string `json:"name"`
	}{{Name: "John Lennon"}}
	track.Album.Name = "Imagine"
	track.Album.ReleaseDate = "1971-09-09"

	svc := &spotifyService{}
	meta := svc.convertTrack(track)

	assert.Equal(t, "Imagine", meta.Title)
	assert.Equal(t, "John Lennon", meta.Artist)
	assert.Equal(t, "Imagine", meta.Album)
	assert.Equal(t, "1971-09-09", meta.ReleaseDate)
	assert.Equal(t, 85, meta.Popularity)
	assert.Equal(t, 183000, meta.DurationMs)
	assert.False(t, meta.HasAudioFeatures)
}

func TestConvertTrack_NoArtists(t *testing.T) {
	svc := &spotifyService{}
	meta := svc.convertTrack(&spotifyTrack{Name: "Orphan Track"})
	assert.Equal(t, "", meta.Artist)
}

func TestSourceError(t *testing.T) {
	err := unavailable("spotify", "search", "API returned status 429")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "spotify")
	assert.Contains(t, err.Error(), "search")
	assert.Contains(t, err.Error(), "429")
}

package services

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// geniusService implements LyricsSource using the Genius API for matching
// and the song page for the lyrics text itself (the API does not serve
// lyrics bodies).
type geniusService struct {
	client      *resty.Client
	accessToken string
}

const geniusAPIURL = "https://api.genius.com"

// NewGeniusService creates a new Genius lyrics source
func NewGeniusService(accessToken string) LyricsSource {
	client := resty.New().
		SetTimeout(15 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)

	return &geniusService{
		client:      client,
		accessToken: accessToken,
	}
}

// SourceName returns the source name
func (g *geniusService) SourceName() string {
	return "genius"
}

// FetchLyrics searches Genius for the song and extracts the lyrics text from
// its page
func (g *geniusService) FetchLyrics(ctx context.Context, title, artist string) (*LyricsResult, error) {
	hit, err := g.searchSong(ctx, title, artist)
	if err != nil {
		return nil, err
	}

	lyrics, err := g.fetchPageLyrics(ctx, hit.URL)
	if err != nil {
		return nil, err
	}

	return &LyricsResult{
		Lyrics: cleanupLyrics(lyrics),
		Artist: hit.PrimaryArtist.Name,
		URL:    hit.URL,
	}, nil
}

// searchSong finds the best Genius hit for a (title, artist) pair
func (g *geniusService) searchSong(ctx context.Context, title, artist string) (*geniusHit, error) {
	var searchResult geniusSearchResponse
	resp, err := g.client.R().
		SetContext(ctx).
		SetAuthToken(g.accessToken).
		SetQueryParam("q", strings.TrimSpace(title+" "+artist)).
		SetResult(&searchResult).
		Get(geniusAPIURL + "/search")

	if err != nil {
		return nil, &SourceError{
			Source:    "genius",
			Operation: "search",
			Message:   "request failed",
			Err:       err,
		}
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, unavailable("genius", "search", fmt.Sprintf("API returned status %d", resp.StatusCode()))
	}

	// Prefer the first hit whose primary artist matches; fall back to the
	// top hit
	var first *geniusHit
	artistLower := strings.ToLower(artist)
	for i := range searchResult.Response.Hits {
		hit := &searchResult.Response.Hits[i].Result
		if first == nil {
			first = hit
		}
		if strings.Contains(strings.ToLower(hit.PrimaryArtist.Name), artistLower) {
			return hit, nil
		}
	}
	if first == nil {
		return nil, unavailable("genius", "search", "no hits for query")
	}
	return first, nil
}

// fetchPageLyrics pulls the song page and extracts the lyrics containers
func (g *geniusService) fetchPageLyrics(ctx context.Context, songURL string) (string, error) {
	resp, err := g.client.R().
		SetContext(ctx).
		Get(songURL)

	if err != nil {
		return "", &SourceError{
			Source:    "genius",
			Operation: "fetch_page",
			Message:   "request failed",
			Err:       err,
		}
	}
	if resp.StatusCode() != http.StatusOK {
		return "", unavailable("genius", "fetch_page", fmt.Sprintf("page returned status %d", resp.StatusCode()))
	}

	lyrics := extractLyricsContainers(resp.String())
	if strings.TrimSpace(lyrics) == "" {
		return "", unavailable("genius", "fetch_page", "no lyrics containers in page")
	}
	return lyrics, nil
}

var (
	lyricsContainerPattern = regexp.MustCompile(`(?s)<div[^>]+data-lyrics-container="true"[^>]*>(.*?)</div>`)
	brPattern              = regexp.MustCompile(`<br\s*/?>`)
	tagPattern             = regexp.MustCompile(`<[^>]+>`)
)

// extractLyricsContainers collects the text of every lyrics container div,
// turning <br> into newlines and dropping the remaining markup
func extractLyricsContainers(html string) string {
	matches := lyricsContainerPattern.FindAllStringSubmatch(html, -1)
	var b strings.Builder
	for _, m := range matches {
		text := brPattern.ReplaceAllString(m[1], "\n")
		text = tagPattern.ReplaceAllString(text, "")
		b.WriteString(text)
		b.WriteString("\n")
	}

	text := b.String()
	text = strings.ReplaceAll(text, "&amp;", "&")
	text = strings.ReplaceAll(text, "&#x27;", "'")
	text = strings.ReplaceAll(text, "&quot;", `"`)
	return text
}

// cleanupLyrics puts section markers like [Verse 1] and [Chorus] on their
// own lines and trims runaway blank lines
func cleanupLyrics(lyrics string) string {
	lyrics = strings.ReplaceAll(lyrics, "[", "\n[")
	lyrics = strings.ReplaceAll(lyrics, "]", "]\n")

	lines := strings.Split(lyrics, "\n")
	out := make([]string, 0, len(lines))
	blank := 0
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if strings.TrimSpace(line) == "" {
			blank++
			if blank > 1 {
				continue
			}
			line = ""
		} else {
			blank = 0
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// Genius API response structures
type geniusSearchResponse struct {
	Response struct {
		Hits []struct {
			Result geniusHit `json:"result"`
		} `json:"hits"`
	} `json:"response"`
}

type geniusHit struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	PrimaryArtist struct {
		Name string `json:"name"`
	} `json:"primary_artist"`
}

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"

	"bandroom/internal/models"
)

// openaiService implements GenerativeSource against the OpenAI chat
// completions API. Responses are free text that usually, but not always,
// contains the JSON we asked for; parsing is two-stage (strict, then
// extract-then-parse) and any remaining failure resolves to ErrUnavailable.
type openaiService struct {
	client *resty.Client
	apiKey string
	model  string
}

const (
	openaiAPIURL       = "https://api.openai.com/v1/chat/completions"
	defaultOpenAIModel = "gpt-4o-mini"
)

// NewOpenAIService creates a new generative source
func NewOpenAIService(apiKey string) GenerativeSource {
	// No resty-level timeout: callers bound each call with a context
	// deadline (fast vs thorough variants)
	client := resty.New()

	return &openaiService{
		client: client,
		apiKey: apiKey,
		model:  defaultOpenAIModel,
	}
}

// SourceName returns the source name
func (o *openaiService) SourceName() string {
	return "openai"
}

// GenerateSong asks the model to complete a partial result with lyrics,
// chords, key, genre, and tempo
func (o *openaiService) GenerateSong(ctx context.Context, title, artist string, partial *models.SongResult) (*GeneratedSong, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Song: %q by %q\n", title, artist)
	if partial != nil {
		fmt.Fprintf(&b, "Known data: key=%s genre=%s tempo=%d album=%s\n",
			partial.Key, partial.Genre, partial.Tempo, partial.Album)
		if partial.Lyrics != "" {
			b.WriteString("Lyrics are already available; do not rewrite them.\n")
		} else {
			b.WriteString("Lyrics are NOT available; write realistic lyrics.\n")
		}
	}
	b.WriteString(`
Produce a professional chord transcription:
1. Complete lyrics with chord symbols placed inline above the words,
   organized into [Intro], [Verse], [Chorus], [Bridge] sections.
2. The main chord progression of the song.
3. Confirm or correct the key, genre, and BPM.

Respond ONLY with a valid JSON object:
{
  "lyrics_with_chords": "full lyrics with inline chords",
  "chords": "main chord sequence, e.g. C - G - Am - F",
  "key": "musical key, e.g. C",
  "genre": "specific genre",
  "tempo": 120
}`)

	content, err := o.complete(ctx, "generate_song",
		"You are a professional musician who writes precise chord charts and arrangements.",
		b.String())
	if err != nil {
		return nil, err
	}

	var payload struct {
		LyricsWithChords string          `json:"lyrics_with_chords"`
		Chords           string          `json:"chords"`
		Key              string          `json:"key"`
		Genre            string          `json:"genre"`
		Tempo            json.RawMessage `json:"tempo"`
	}
	if err := parseModelJSON(content, extractJSONObject, &payload); err != nil {
		return nil, unavailable("openai", "generate_song", "unparseable model response")
	}

	return &GeneratedSong{
		Lyrics: payload.LyricsWithChords,
		Chords: payload.Chords,
		Key:    payload.Key,
		Genre:  payload.Genre,
		Tempo:  parseLooseInt(payload.Tempo),
	}, nil
}

// SearchSongs asks the model for real songs matching a free-text query
func (o *openaiService) SearchSongs(ctx context.Context, query string, limit int) ([]models.SearchHit, error) {
	if limit <= 0 || limit > models.MaxSearchHits {
		limit = models.MaxSearchHits
	}

	prompt := fmt.Sprintf(`Based on the search %q, find up to %d real songs that
match by name, artist, genre, or description.

Respond ONLY with a JSON array:
[
  {"title": "Exact Song Name", "artist": "Artist Name", "genre": "Genre", "year": "1975", "popularity": 8}
]
Popularity is a 1-10 scale. Prioritize well-known songs.`, query, limit)

	content, err := o.complete(ctx, "search_songs",
		"You are a music expert who finds songs from free-text queries.",
		prompt)
	if err != nil {
		return nil, err
	}

	var hits []models.SearchHit
	if err := parseModelJSON(content, extractJSONArray, &hits); err != nil {
		return nil, unavailable("openai", "search_songs", "unparseable model response")
	}

	if len(hits) > limit {
		hits = hits[:limit]
	}
	for i := range hits {
		if hits[i].Popularity < 1 {
			hits[i].Popularity = 1
		}
		if hits[i].Popularity > 10 {
			hits[i].Popularity = 10
		}
	}
	return hits, nil
}

// GenerateRepertoire asks the model for a set list suited to live shows
func (o *openaiService) GenerateRepertoire(ctx context.Context, genre string, count int) ([]models.RepertoireEntry, error) {
	prompt := fmt.Sprintf(`Create a repertoire of %d %s songs for a live band.
For each song give the real title, original artist, suggested key, approximate
BPM, and main chords. Prioritize popular songs the audience will recognize.

Respond with one song per line in exactly this format:
"Title - Artist | Key: X | BPM: Y | Chords: C F G Am"`, count, genre)

	content, err := o.complete(ctx, "generate_repertoire",
		"You are a music curator who builds set lists for live bands.",
		prompt)
	if err != nil {
		return nil, err
	}

	entries := parseRepertoireLines(content, genre, count)
	if len(entries) == 0 {
		return nil, unavailable("openai", "generate_repertoire", "no parseable songs in response")
	}
	return entries, nil
}

// GenerateNotation renders instrument-specific notation text for a song
func (o *openaiService) GenerateNotation(ctx context.Context, song *models.SongResult, instrument, notationType string) (string, error) {
	flavor := map[string]string{
		"chords": "Provide the full chord chart with section markers and the strumming or comping pattern.",
		"notes":  "Provide the main melodic line and note names, bar by bar.",
		"rhythm": "Provide the rhythmic pattern, accents, and fills, section by section.",
		"lyrics": "Provide the lyrics with breath marks and the melody's register notes.",
	}[notationType]
	if flavor == "" {
		flavor = "Provide basic notation for this instrument."
	}

	prompt := fmt.Sprintf(`Song: %q by %q (key %s, %d BPM, chords: %s)
Instrument: %s
%s
Respond with the notation text only.`,
		song.Title, song.Artist, song.Key, song.Tempo, song.Chords, instrument, flavor)

	content, err := o.complete(ctx, "generate_notation",
		"You are a professional arranger writing parts for individual band members.",
		prompt)
	if err != nil {
		return "", err
	}

	notation := strings.TrimSpace(content)
	if notation == "" {
		return "", unavailable("openai", "generate_notation", "empty model response")
	}
	return notation, nil
}

// complete performs one chat-completions round trip and returns the
// assistant message content
func (o *openaiService) complete(ctx context.Context, operation, system, user string) (string, error) {
	body := map[string]any{
		"model": o.model,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
		"temperature": 0.7,
	}

	var result openaiResponse
	resp, err := o.client.R().
		SetContext(ctx).
		SetAuthToken(o.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&result).
		Post(openaiAPIURL)

	if err != nil {
		// Timeouts land here; they are indistinguishable from any other
		// transport failure by design
		return "", &SourceError{
			Source:    "openai",
			Operation: operation,
			Message:   "request failed",
			Err:       err,
		}
	}
	if resp.StatusCode() != http.StatusOK {
		return "", unavailable("openai", operation, fmt.Sprintf("API returned status %d", resp.StatusCode()))
	}
	if len(result.Choices) == 0 {
		return "", unavailable("openai", operation, "no choices in response")
	}

	return result.Choices[0].Message.Content, nil
}

// parseModelJSON attempts a strict parse of content into target, then an
// extraction pass for JSON wrapped in prose.
func parseModelJSON(content string, extract func(string) string, target any) error {
	content = strings.TrimSpace(content)
	if err := json.Unmarshal([]byte(content), target); err == nil {
		return nil
	}
	fragment := extract(content)
	if fragment == "" {
		return fmt.Errorf("no JSON fragment in model response")
	}
	if err := json.Unmarshal([]byte(fragment), target); err != nil {
		slog.Debug("Model JSON fragment failed to parse", "error", err)
		return err
	}
	return nil
}

// parseLooseInt accepts a JSON number or a numeric string, returning 0 when
// neither parses
func parseLooseInt(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return v
		}
	}
	return 0
}

// parseRepertoireLines parses "Title - Artist | Key: X | BPM: Y | Chords: ..."
// lines, skipping anything that doesn't match
func parseRepertoireLines(content, genre string, limit int) []models.RepertoireEntry {
	var entries []models.RepertoireEntry

	for _, line := range strings.Split(content, "\n") {
		line = strings.Trim(strings.TrimSpace(line), `"`)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !strings.Contains(line, "|") || !strings.Contains(line, "-") {
			continue
		}

		parts := strings.Split(line, "|")
		titleArtist := strings.SplitN(parts[0], "-", 2)
		if len(titleArtist) != 2 {
			continue
		}

		entry := models.RepertoireEntry{
			Title:  strings.Trim(strings.TrimSpace(titleArtist[0]), `"'`),
			Artist: strings.Trim(strings.TrimSpace(titleArtist[1]), `"'`),
			Key:    models.DefaultKey,
			Tempo:  models.DefaultTempo,
			Chords: "C F G Am",
			Genre:  genre,
		}
		if entry.Title == "" || entry.Artist == "" {
			continue
		}

		for _, part := range parts[1:] {
			part = strings.TrimSpace(part)
			lower := strings.ToLower(part)
			switch {
			case strings.HasPrefix(lower, "key:"):
				if v := strings.TrimSpace(part[len("key:"):]); v != "" {
					entry.Key = strings.ToUpper(v[:1]) + v[1:]
				}
			case strings.HasPrefix(lower, "bpm:"):
				if v, err := strconv.Atoi(strings.TrimSpace(part[len("bpm:"):])); err == nil {
					entry.Tempo = v
				}
			case strings.HasPrefix(lower, "chords:"):
				if v := strings.TrimSpace(part[len("chords:"):]); v != "" {
					entry.Chords = v
				}
			}
		}

		entries = append(entries, entry)
		if len(entries) >= limit {
			break
		}
	}

	return entries
}

// OpenAI API response structure
type openaiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

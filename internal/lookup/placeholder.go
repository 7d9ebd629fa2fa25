package lookup

import (
	"fmt"

	"bandroom/internal/models"
)

// placeholderChords is the generic progression used whenever every source
// tier has failed.
const placeholderChords = "C - G - Am - F"

// placeholderSong builds the guaranteed terminal fallback: a minimal
// verse/chorus shape embedding the requested title and artist. Pure local
// computation, so this tier cannot fail.
func placeholderSong(title, artist string) *models.SongResult {
	lyrics := fmt.Sprintf(`[Verse 1]
     C              G              Am             F
This is the song %q
     C              G              F              G
By %s

[Chorus]
     F              C              G              Am
%s, %s
     F              C              G              C
A song for our band to play

Full lyrics are not available right now`, title, artist, title, title)

	return &models.SongResult{
		Title:  title,
		Artist: artist,
		Lyrics: lyrics,
		Chords: placeholderChords,
		Key:    models.DefaultKey,
		Genre:  "Popular",
		Tempo:  models.DefaultTempo,
		Source: models.SourceStaticPlaceholder,
	}
}

// placeholderHits echoes the query back as a single displayable hit so
// search callers never receive an empty list or an error.
func placeholderHits(query string) []models.SearchHit {
	return []models.SearchHit{
		{
			Title:      query,
			Artist:     "Unknown Artist",
			Genre:      models.DefaultGenre,
			Year:       "",
			Popularity: 1,
		},
	}
}

// defaultRepertoire is the deterministic set list returned when the
// generative source cannot produce one.
var defaultRepertoire = []models.RepertoireEntry{
	{Title: "Imagine", Artist: "John Lennon", Key: "C", Tempo: 76},
	{Title: "Yesterday", Artist: "The Beatles", Key: "F", Tempo: 98},
	{Title: "Let It Be", Artist: "The Beatles", Key: "C", Tempo: 73},
	{Title: "Wonderwall", Artist: "Oasis", Key: "Em", Tempo: 87},
	{Title: "Redemption Song", Artist: "Bob Marley", Key: "G", Tempo: 76},
	{Title: "Tears in Heaven", Artist: "Eric Clapton", Key: "A", Tempo: 80},
	{Title: "Mad World", Artist: "Gary Jules", Key: "Em", Tempo: 84},
	{Title: "Black", Artist: "Pearl Jam", Key: "E", Tempo: 69},
	{Title: "Creep", Artist: "Radiohead", Key: "G", Tempo: 92},
	{Title: "Hallelujah", Artist: "Leonard Cohen", Key: "C", Tempo: 60},
}

// placeholderRepertoire returns up to count entries from the default set
// list, stamped with the requested genre.
func placeholderRepertoire(genre string, count int) []models.RepertoireEntry {
	if count <= 0 || count > len(defaultRepertoire) {
		count = len(defaultRepertoire)
	}

	entries := make([]models.RepertoireEntry, count)
	for i := 0; i < count; i++ {
		entry := defaultRepertoire[i]
		entry.Chords = "C F G Am Dm G7"
		entry.Genre = genre
		entries[i] = entry
	}
	return entries
}

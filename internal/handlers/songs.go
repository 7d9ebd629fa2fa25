package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"bandroom/internal/lookup"
	"bandroom/internal/models"
	"bandroom/internal/services"
	"bandroom/internal/transpose"
)

// LookupSongRequest represents the request to resolve a song by title and artist
type LookupSongRequest struct {
	Title  string `json:"title" binding:"required"`
	Artist string `json:"artist" binding:"required"`
}

// TransposeRequest represents the request to transpose chord text between keys
type TransposeRequest struct {
	Text    string `json:"text" binding:"required"`
	FromKey string `json:"from_key" binding:"required"`
	ToKey   string `json:"to_key" binding:"required"`
}

// TransposeResponse echoes the keys along with the transposed text
type TransposeResponse struct {
	Text    string `json:"text"`
	FromKey string `json:"from_key"`
	ToKey   string `json:"to_key"`
}

// RepertoireRequest represents the request for a generated set list
type RepertoireRequest struct {
	Genre string `json:"genre" binding:"required"`
	Count int    `json:"count,omitempty"`
}

// NotationRequest represents the request for instrument-specific notation
type NotationRequest struct {
	Title        string `json:"title" binding:"required"`
	Artist       string `json:"artist" binding:"required"`
	Instrument   string `json:"instrument" binding:"required"`
	NotationType string `json:"notation_type,omitempty"`
}

// NotationResponse carries the rendered notation plus the song it was built from
type NotationResponse struct {
	Song       *models.SongResult `json:"song"`
	Instrument string             `json:"instrument"`
	Notation   string             `json:"notation"`
}

// maxAudioBytes caps uploaded recognition clips at 10 MB
const maxAudioBytes = 10 << 20

// SongHandler handles song lookup, search, recognition, and tooling requests
type SongHandler struct {
	lookupService *lookup.LookupService
}

// NewSongHandler creates a new song handler
func NewSongHandler(lookupService *lookup.LookupService) *SongHandler {
	return &SongHandler{lookupService: lookupService}
}

// LookupSong handles POST /api/v1/songs/lookup
func (h *SongHandler) LookupSong(c *gin.Context) {
	var req LookupSongRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	song, err := h.lookupService.LookupSong(c.Request.Context(), req.Title, req.Artist)
	if err != nil {
		// The pipeline degrades through its fallback tiers, so the only
		// error it surfaces is malformed input
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid lookup input",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, song)
}

// SearchSongs handles GET /api/v1/songs/search?q=...
func (h *SongHandler) SearchSongs(c *gin.Context) {
	query := c.Query("q")

	hits, err := h.lookupService.SearchSongs(c.Request.Context(), query)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid search query",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"query":   query,
		"results": hits,
	})
}

// RecognizeAudio handles POST /api/v1/songs/recognize with a multipart
// "audio" file
func (h *SongHandler) RecognizeAudio(c *gin.Context) {
	file, _, err := c.Request.FormFile("audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Missing audio file",
		})
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(io.LimitReader(file, maxAudioBytes))
	if err != nil || len(audio) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Unreadable audio file",
		})
		return
	}

	track, err := h.lookupService.RecognizeAudio(c.Request.Context(), audio)
	if err != nil {
		if errors.Is(err, services.ErrNotRecognized) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Audio not recognized",
			})
			return
		}
		slog.Error("Audio recognition failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Recognition failed",
		})
		return
	}

	c.JSON(http.StatusOK, track)
}

// TransposeChords handles POST /api/v1/songs/transpose. Unknown keys leave
// the text untouched rather than failing.
func (h *SongHandler) TransposeChords(c *gin.Context) {
	var req TransposeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, TransposeResponse{
		Text:    transpose.Text(req.Text, req.FromKey, req.ToKey),
		FromKey: req.FromKey,
		ToKey:   req.ToKey,
	})
}

// GenerateRepertoire handles POST /api/v1/repertoire
func (h *SongHandler) GenerateRepertoire(c *gin.Context) {
	var req RepertoireRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	entries, err := h.lookupService.GenerateRepertoire(c.Request.Context(), req.Genre, req.Count)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid repertoire input",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"genre": req.Genre,
		"songs": entries,
	})
}

// GenerateNotation handles POST /api/v1/notation. The song is resolved
// through the full lookup pipeline first so notation always has chords and a
// key to work from.
func (h *SongHandler) GenerateNotation(c *gin.Context) {
	var req NotationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	song, err := h.lookupService.LookupSong(c.Request.Context(), req.Title, req.Artist)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid lookup input",
			"details": err.Error(),
		})
		return
	}

	notation, err := h.lookupService.GenerateNotation(c.Request.Context(), song, req.Instrument, req.NotationType)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid notation input",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, NotationResponse{
		Song:       song,
		Instrument: req.Instrument,
		Notation:   notation,
	})
}

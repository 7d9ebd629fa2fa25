package services

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"bandroom/internal/models"
)

// auddService implements RecognitionSource using the AUdD fingerprinting
// API. The audio bytes are forwarded opaquely; nothing here decodes or
// analyzes them.
type auddService struct {
	client   *resty.Client
	apiToken string
}

const auddAPIURL = "https://api.audd.io/"

// NewAuddService creates a new AUdD recognition source
func NewAuddService(apiToken string) RecognitionSource {
	client := resty.New().
		SetTimeout(20 * time.Second)

	return &auddService{
		client:   client,
		apiToken: apiToken,
	}
}

// SourceName returns the source name
func (a *auddService) SourceName() string {
	return "audd"
}

// Recognize forwards the audio chunk to AUdD and returns its coarse guess
func (a *auddService) Recognize(ctx context.Context, audio []byte) (*models.RecognizedTrack, error) {
	if len(audio) == 0 {
		return nil, unavailable("audd", "recognize", "empty audio payload")
	}

	var result auddResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetFileReader("file", "audio.mp3", bytes.NewReader(audio)).
		SetFormData(map[string]string{
			"api_token": a.apiToken,
		}).
		SetResult(&result).
		Post(auddAPIURL)

	if err != nil {
		return nil, &SourceError{
			Source:    "audd",
			Operation: "recognize",
			Message:   "request failed",
			Err:       err,
		}
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, unavailable("audd", "recognize", fmt.Sprintf("API returned status %d", resp.StatusCode()))
	}
	if result.Status != "success" {
		return nil, unavailable("audd", "recognize", "API status "+result.Status)
	}

	// A successful call with a null result means no match, which is a
	// distinct outcome the caller surfaces as NotRecognized
	if result.Result == nil {
		return nil, ErrNotRecognized
	}

	return &models.RecognizedTrack{
		Title:       result.Result.Title,
		Artist:      result.Result.Artist,
		Album:       result.Result.Album,
		ReleaseDate: result.Result.ReleaseDate,
	}, nil
}

// AUdD API response structures
type auddResponse struct {
	Status string `json:"status"`
	Result *struct {
		Title       string `json:"title"`
		Artist      string `json:"artist"`
		Album       string `json:"album"`
		ReleaseDate string `json:"release_date"`
	} `json:"result"`
}

package resolve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"RoomFM/logger"
	"RoomFM/model"
)

// ErrNotFound is returned when the catalog has no match for a lookup.
var ErrNotFound = errors.New("track not found in catalog")

// Client resolves (title, artist) pairs against the music catalog API.
// It implements playlist.Resolver.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a catalog client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type catalogSong struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	URL      string `json:"url"`
	CoverURL string `json:"coverUrl"`
	Duration int    `json:"duration"` // seconds
}

type searchResponse struct {
	Code  int           `json:"code"`
	Msg   string        `json:"msg,omitempty"`
	Songs []catalogSong `json:"songs"`
}

// Resolve looks up the best catalog match for title and artist and returns
// it as a playable track. A miss returns ErrNotFound.
func (c *Client) Resolve(ctx context.Context, title, artist string) (*model.Track, error) {
	q := url.Values{}
	q.Set("title", title)
	q.Set("artist", artist)
	q.Set("limit", "1")
	endpoint := fmt.Sprintf("%s/songs/search?%s", c.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("catalog returned status %d: %s", resp.StatusCode, string(body))
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode catalog response: %w", err)
	}
	if result.Code != 0 && result.Code != 200 {
		return nil, fmt.Errorf("catalog error: %s (code: %d)", result.Msg, result.Code)
	}
	if len(result.Songs) == 0 || result.Songs[0].URL == "" {
		return nil, ErrNotFound
	}

	song := result.Songs[0]
	logger.Debug("Resolved track",
		logger.String("title", title),
		logger.String("artist", artist),
		logger.String("songId", song.ID))

	return &model.Track{
		SongID:     song.ID,
		Title:      song.Title,
		Artist:     song.Artist,
		URL:        song.URL,
		CoverImage: song.CoverURL,
		Duration:   song.Duration,
	}, nil
}

package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"RoomFM/core/playlist"
	"RoomFM/logger"
	"RoomFM/model"
)

// ClientConfig contains configuration for the suggestion client.
type ClientConfig struct {
	APIBaseURL  string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
}

// Client asks an OpenAI-compatible chat model for themed song suggestions.
// It implements playlist.Suggester.
type Client struct {
	mu         sync.RWMutex
	config     *ClientConfig
	httpClient *http.Client
}

// NewClient creates a suggestion client.
func NewClient(config *ClientConfig) *Client {
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// UpdateConfig swaps the endpoint settings. In-flight requests keep the
// config they started with; the next request uses the new one.
func (c *Client) UpdateConfig(config *ClientConfig) {
	c.mu.Lock()
	c.config = config
	c.mu.Unlock()
}

func (c *Client) currentConfig() *ClientConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config
}

const suggesterSystemPrompt = `You are a radio programmer building playlists for themed listening rooms.

Given a theme, reply with EXACTLY three lines and nothing else:

titles: <title 1>;<title 2>;<title 3>;...
artists: <artist 1>;<artist 2>;<artist 3>;...
introduction: <two or three sentences introducing the playlist to listeners>

Rules:
- The titles and artists lines must have the same number of entries, separated by semicolons.
- Entry N of artists is the performer of entry N of titles.
- Suggest only real, well-known recordings.
- Never repeat a title the user says the playlist already has.
- No numbering, no markdown, no commentary outside the three lines.`

// SuggestSongs asks the model for req.Count suggestions matching the theme.
func (c *Client) SuggestSongs(ctx context.Context, req playlist.SuggestionRequest) (*playlist.SuggestionResult, error) {
	content, err := c.chat(ctx, buildUserMessage(req))
	if err != nil {
		return nil, fmt.Errorf("suggestion request failed: %w", err)
	}

	result, err := ParseSuggestions(content)
	if err != nil {
		logger.Warn("Failed to parse suggestion response",
			logger.String("content", content),
			logger.ErrorField(err))
		return nil, err
	}

	logger.Debug("Received song suggestions",
		logger.Int("requested", req.Count),
		logger.Int("received", len(result.Suggestions)))
	return result, nil
}

func buildUserMessage(req playlist.SuggestionRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Suggest %d songs for a listening room.\n", req.Count)
	if req.Prompt != "" {
		fmt.Fprintf(&b, "Theme: %s\n", req.Prompt)
	}
	if req.Genre != "" {
		fmt.Fprintf(&b, "Genre: %s\n", req.Genre)
	}
	if req.Occasion != "" {
		fmt.Fprintf(&b, "Occasion: %s\n", req.Occasion)
	}
	if len(req.ExistingTitles) > 0 {
		fmt.Fprintf(&b, "The playlist already has these titles, do not suggest them again: %s\n",
			strings.Join(req.ExistingTitles, "; "))
	}
	return b.String()
}

func (c *Client) chat(ctx context.Context, userMessage string) (string, error) {
	cfg := c.currentConfig()
	reqBody := model.OpenAIChatRequest{
		Model: cfg.Model,
		Messages: []model.OpenAIChatMessage{
			{Role: "system", Content: suggesterSystemPrompt},
			{Role: "user", Content: userMessage},
		},
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		Stream:      false,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", cfg.APIBaseURL+"/chat/completions", bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var chatResp model.OpenAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no response choices returned")
	}
	return chatResp.Choices[0].Message.Content, nil
}

// ParseSuggestions extracts suggestions and the introduction from the
// model's three-line response. Titles without a matching artist entry get
// an empty artist. Lines the model adds around the expected three are
// ignored.
func ParseSuggestions(content string) (*playlist.SuggestionResult, error) {
	var titles, artists []string
	introduction := ""

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		lower := strings.ToLower(line)
		switch {
		case strings.HasPrefix(lower, "titles:"):
			titles = splitEntries(line[len("titles:"):])
		case strings.HasPrefix(lower, "artists:"):
			artists = splitEntries(line[len("artists:"):])
		case strings.HasPrefix(lower, "introduction:"):
			introduction = strings.TrimSpace(line[len("introduction:"):])
		}
	}

	if len(titles) == 0 {
		return nil, fmt.Errorf("no titles line in suggestion response")
	}

	suggestions := make([]model.Suggestion, 0, len(titles))
	for i, title := range titles {
		artist := ""
		if i < len(artists) {
			artist = artists[i]
		}
		suggestions = append(suggestions, model.Suggestion{Title: title, Artist: artist})
	}

	return &playlist.SuggestionResult{
		Suggestions:  suggestions,
		Introduction: introduction,
	}, nil
}

func splitEntries(s string) []string {
	parts := strings.Split(s, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

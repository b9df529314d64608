package moderation

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

	"RoomFM/model"
)

// LLMScorerConfig contains configuration for the LLM scorer.
type LLMScorerConfig struct {
	APIBaseURL  string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
}

// LLMScorer rates tracks with an OpenAI-compatible chat model.
type LLMScorer struct {
	mu         sync.RWMutex
	config     *LLMScorerConfig
	httpClient *http.Client
}

// NewLLMScorer creates an LLM-backed scorer.
func NewLLMScorer(config *LLMScorerConfig) *LLMScorer {
	return &LLMScorer{
		config: config,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// UpdateConfig swaps the endpoint settings for subsequent scores.
func (s *LLMScorer) UpdateConfig(config *LLMScorerConfig) {
	s.mu.Lock()
	s.config = config
	s.mu.Unlock()
}

func (s *LLMScorer) currentConfig() *LLMScorerConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

const scorerSystemPrompt = `You are the moderation judge for themed music listening rooms.

Given a room description and one submitted track, rate how well the track
fits the room, 0 to 100. 100 is a perfect fit, 0 is completely unsuitable
or offensive.

Respond with a single JSON object and nothing else:

{"score": <0-100>, "reasoning": "<one or two sentences>"}`

type scorerVerdict struct {
	Score     int    `json:"score"`
	Reasoning string `json:"reasoning"`
}

// Score asks the model for a fit score. Transport, API and parse failures
// all surface as ErrScorerUnavailable.
func (s *LLMScorer) Score(ctx context.Context, req ScoreRequest) (int, string, error) {
	userMessage := fmt.Sprintf("Room description: %s\nTrack: %q by %q",
		req.RoomDescription, req.Track.Title, req.Track.Artist)

	content, err := s.chat(ctx, userMessage)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %v", ErrScorerUnavailable, err)
	}

	var verdict scorerVerdict
	if err := json.Unmarshal([]byte(extractJSON(content)), &verdict); err != nil {
		return 0, "", fmt.Errorf("%w: unparseable verdict: %v", ErrScorerUnavailable, err)
	}
	return verdict.Score, verdict.Reasoning, nil
}

func (s *LLMScorer) chat(ctx context.Context, userMessage string) (string, error) {
	cfg := s.currentConfig()
	reqBody := model.OpenAIChatRequest{
		Model: cfg.Model,
		Messages: []model.OpenAIChatMessage{
			{Role: "system", Content: scorerSystemPrompt},
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

	resp, err := s.httpClient.Do(req)
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

// extractJSON strips markdown code fences some models wrap around JSON.
func extractJSON(content string) string {
	content = strings.TrimSpace(content)
	if start := strings.Index(content, "{"); start >= 0 {
		if end := strings.LastIndex(content, "}"); end > start {
			return content[start : end+1]
		}
	}
	return content
}

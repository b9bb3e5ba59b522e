package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Scoring call parameters are fixed: low temperature for deterministic
// assessments, bounded output size.
const (
	chatTemperature = 0.3
	chatMaxTokens   = 1000
)

// OpenAIConfig holds the configuration for an OpenAI-compatible endpoint.
type OpenAIConfig struct {
	BaseURL string // e.g. https://api.openai.com
	Model   string // e.g. gpt-4
	APIKey  string
}

// OpenAIClient implements port.Scorer against the chat-completions API.
type OpenAIClient struct {
	cfg        OpenAIConfig
	httpClient *http.Client
}

// NewOpenAIClient creates a new chat-completions scorer.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	return &OpenAIClient{
		cfg:        cfg,
		httpClient: &http.Client{},
	}
}

// ModelName returns the model identifier used for scoring and cache keys.
func (c *OpenAIClient) ModelName() string {
	return c.cfg.Model
}

// Chat sends a system and user prompt and returns the raw response text.
func (c *OpenAIClient) Chat(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	payload := map[string]interface{}{
		"model": c.cfg.Model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userPrompt},
		},
		"temperature": chatTemperature,
		"max_tokens":  chatMaxTokens,
	}

	body, err := c.post(ctx, "/v1/chat/completions", payload)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	var resp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("chat completion decode: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: empty response")
	}

	return resp.Choices[0].Message.Content, nil
}

// post is a helper for POST requests to the API (with bearer token).
func (c *OpenAIClient) post(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(body))
	}

	return io.ReadAll(resp.Body)
}

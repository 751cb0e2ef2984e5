package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nyashahama/love-letters-backend/internal/outbound"
)

const anthropicDefaultBaseURL = "https://api.anthropic.com"

// anthropicClient is the Writer backed by the Anthropic Messages API.
type anthropicClient struct {
	apiKey  string
	model   string
	baseURL string
	http    *outbound.Client
}

// NewAnthropicClient returns a Writer that calls the Anthropic API.
// An empty baseURL means the public endpoint.
func NewAnthropicClient(apiKey, model, baseURL string, hc *outbound.Client) Writer {
	if baseURL == "" {
		baseURL = anthropicDefaultBaseURL
	}
	return &anthropicClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
	}
}

// NewAnthropicHTTPClient is the outbound client the Anthropic writer is meant to use.
func NewAnthropicHTTPClient(timeout time.Duration, opts ...outbound.Option) *outbound.Client {
	return outbound.New("anthropic", timeout, opts...)
}

// ─── ANTHROPIC API SHAPES ─────────────────────────────────────────────────────

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// ─── IMPLEMENTATION ───────────────────────────────────────────────────────────

func (c *anthropicClient) Write(ctx context.Context, p Prompt) (string, error) {
	// Anthropic caps temperature at 1.0.
	temp := p.Temperature
	if temp > 1 {
		temp = 1
	}

	bodyBytes, err := json.Marshal(anthropicRequest{
		Model:       c.model,
		MaxTokens:   p.MaxTokens,
		Temperature: temp,
		System:      p.System,
		Messages: []anthropicMessage{
			{Role: "user", Content: p.User},
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/messages",
		bytes.NewReader(bodyBytes),
	)
	if err != nil {
		return "", fmt.Errorf("anthropic: build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("anthropic: http request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB cap
	if err != nil {
		return "", fmt.Errorf("anthropic: read response body: %w", err)
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return "", fmt.Errorf("anthropic: unmarshal response (status %d): %w", resp.StatusCode, err)
	}

	if parsed.Error != nil {
		return "", fmt.Errorf("anthropic: API error %s: %s", parsed.Error.Type, parsed.Error.Message)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("anthropic: unexpected status %d: %.200s", resp.StatusCode, string(respBytes))
	}

	for _, block := range parsed.Content {
		if block.Type == "text" {
			if text := strings.TrimSpace(block.Text); text != "" {
				return text, nil
			}
		}
	}

	return "", fmt.Errorf("anthropic: %w", ErrEmptyCompletion)
}

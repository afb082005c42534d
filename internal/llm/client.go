// Package llm wraps the external generation provider. The client performs a
// single request per call; bounded retries, backoff and the per-attempt
// deadline live in the Do wrapper so every caller gets the same policy.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Usage is the canonical token-usage shape. Provider-specific response shapes
// are normalized into it at the client boundary, before anything is persisted.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Result is one completed generation call.
type Result struct {
	Text  string
	Model string
	Usage Usage
}

// Client is the external generation provider boundary.
type Client interface {
	// Generate performs a single completion request. Transient failures are
	// returned as-is; callers go through Do for retry semantics.
	Generate(ctx context.Context, system, user string) (*Result, error)
	Provider() string
	Model() string
}

// HTTPError is a non-2xx provider response.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("provider http %d: %s", e.StatusCode, e.Body)
}

// OpenAIConfig configures the OpenAI-compatible client.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

type openAIClient struct {
	log        *slog.Logger
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewOpenAIClient creates a client for the OpenAI chat completions API (or
// any compatible endpoint via BaseURL).
func NewOpenAIClient(log *slog.Logger, cfg OpenAIConfig) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("missing OpenAI API key")
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &openAIClient{
		log:     log.With("component", "llm"),
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		model:   model,
		// Slightly above the per-attempt deadline so the context, not the
		// transport, is what cancels a slow call.
		httpClient: &http.Client{Timeout: timeout + 5*time.Second},
	}, nil
}

func (c *openAIClient) Provider() string { return "openai" }
func (c *openAIClient) Model() string    { return c.model }

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage json.RawMessage `json:"usage"`
}

func (c *openAIClient) Generate(ctx context.Context, system, user string) (*Result, error) {
	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(reqBody); err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("provider returned no choices")
	}

	model := parsed.Model
	if model == "" {
		model = c.model
	}

	return &Result{
		Text:  parsed.Choices[0].Message.Content,
		Model: model,
		Usage: NormalizeUsage(c.Provider(), parsed.Usage),
	}, nil
}

// stubClient returns canned output for local development without an API key.
type stubClient struct {
	model string
}

// NewStubClient creates a provider stub that echoes a fixed narrative shape
// after a short simulated delay.
func NewStubClient() Client {
	return &stubClient{model: "stub"}
}

func (s *stubClient) Provider() string { return "stub" }
func (s *stubClient) Model() string    { return s.model }

func (s *stubClient) Generate(ctx context.Context, system, user string) (*Result, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(200 * time.Millisecond):
	}
	return &Result{
		Text: "Today was a steady day of small wins and honest effort.\n\n" +
			"Themes: consistency, focus\nHighlights: shipped the draft, morning run",
		Model: s.model,
		Usage: Usage{PromptTokens: 40, CompletionTokens: 30, TotalTokens: 70},
	}, nil
}

package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/supportstack/failwatch/internal/utils"
)

const (
	defaultBaseURL     = "https://api.openai.com"
	defaultModel       = "gpt-4o-mini"
	defaultMaxTokens   = 300
	defaultTemperature = 0.2
	defaultTimeout     = 15 * time.Second
)

const systemPrompt = "You are an operations analyst. Restate the failure " +
	"statistics below in two or three plain sentences. Use only the numbers " +
	"provided; do not speculate about causes or invent figures."

// OpenAIConfig configures the chat-completions summarizer. Any
// OpenAI-compatible endpoint works via BaseURL.
type OpenAIConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// Validate checks required fields and fills defaults in place.
func (c *OpenAIConfig) Validate() error {
	if c.APIKey == "" {
		return utils.InvalidInput("summarizer.config", "api key is required")
	}
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return utils.InvalidInput("summarizer.config", fmt.Sprintf("invalid base URL: %v", err))
	}
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = defaultMaxTokens
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return utils.InvalidInput("summarizer.config", "temperature must be between 0 and 2")
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	return nil
}

// OpenAIProvider calls a chat-completions endpoint to summarize statistics.
type OpenAIProvider struct {
	cfg    OpenAIConfig
	client *http.Client
	base   *url.URL
}

// NewOpenAIProvider validates the config and builds the HTTP client.
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, utils.InvalidInput("summarizer.config", fmt.Sprintf("invalid base URL: %v", err))
	}
	return &OpenAIProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		base:   base,
	}, nil
}

func (p *OpenAIProvider) Name() string { return "openai" }

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

// Summarize posts the statistics block to the chat-completions endpoint.
// Transport failures, non-2xx statuses, and empty completions all surface as
// ErrSummarizerUnavailable so the report builder falls back uniformly.
func (p *OpenAIProvider) Summarize(ctx context.Context, statsText string) (string, error) {
	payload := chatRequest{
		Model:       p.cfg.Model,
		MaxTokens:   p.cfg.MaxTokens,
		Temperature: p.cfg.Temperature,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: statsText},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", utils.SummarizerUnavailable("summarizer.marshal", err)
	}

	endpoint := p.base.JoinPath("/v1/chat/completions")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return "", utils.SummarizerUnavailable("summarizer.request", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", utils.SummarizerUnavailable("summarizer.call", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", utils.SummarizerUnavailable("summarizer.call",
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", utils.SummarizerUnavailable("summarizer.read", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", utils.SummarizerUnavailable("summarizer.decode", err)
	}
	if len(parsed.Choices) == 0 {
		return "", utils.SummarizerUnavailable("summarizer.decode",
			fmt.Errorf("response contains no choices"))
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", utils.SummarizerUnavailable("summarizer.decode",
			fmt.Errorf("empty completion"))
	}
	return content, nil
}

// Package openai implements the OpenAI-backed recommendation provider.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/remedy/internal/incident"
	"github.com/linnemanlabs/remedy/internal/llm"
)

const endpoint = "https://api.openai.com/v1/chat/completions"

// Client calls the OpenAI chat completions API for recommendations.
type Client struct {
	apiKey     string
	model      string
	opts       llm.Options
	logger     log.Logger
	httpClient *http.Client
	url        string
}

// New creates the OpenAI provider. An empty apiKey is legal: the provider
// then reports "no result" on every call, which routes the orchestrator to
// its fixed fallback.
func New(apiKey, model string, opts llm.Options, logger log.Logger) *Client {
	if logger == nil {
		logger = log.Nop()
	}
	return &Client{
		apiKey:     apiKey,
		model:      model,
		opts:       opts.WithDefaults(),
		logger:     logger,
		httpClient: &http.Client{Timeout: llm.RequestTimeout},
		url:        endpoint,
	}
}

// Name identifies the provider in logs and metrics.
func (c *Client) Name() string { return "openai" }

type request struct {
	Model          string    `json:"model"`
	Messages       []message `json:"messages"`
	MaxTokens      int       `json:"max_tokens"`
	Temperature    float64   `json:"temperature"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type response struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Recommend builds the incident prompt and retries the API up to the fixed
// budget. All-attempts failure and an unparsable response both return
// (nil, nil): no result.
func (c *Client) Recommend(ctx context.Context, r *incident.Report) (*incident.Recommendation, error) {
	if c.apiKey == "" {
		c.logger.Warn(ctx, "openai api key missing")
		return nil, nil
	}

	req := request{
		Model: c.model,
		Messages: []message{
			{Role: "system", Content: llm.SystemPrompt},
			{Role: "user", Content: llm.BuildPrompt(r)},
		},
		MaxTokens:   c.opts.MaxTokens,
		Temperature: c.opts.Temperature,
	}
	req.ResponseFormat.Type = "json_object"

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		content, err := c.send(ctx, body)
		if err != nil {
			c.logger.Warn(ctx, "openai request failed", "attempt", attempt, "error", err)
			continue
		}
		return llm.ParseRecommendation(content), nil
	}
	return nil, nil
}

func (c *Client) send(ctx context.Context, body []byte) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openai api error %d: %s", resp.StatusCode, string(respBody))
	}

	var out response
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("openai response has no choices")
	}
	return out.Choices[0].Message.Content, nil
}

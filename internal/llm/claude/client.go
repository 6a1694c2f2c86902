// Package claude implements the Anthropic-backed recommendation provider.
package claude

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/remedy/internal/incident"
	"github.com/linnemanlabs/remedy/internal/llm"
)

// Client calls the Anthropic Messages API for recommendations.
type Client struct {
	client anthropic.Client
	apiKey string
	model  string
	opts   llm.Options
	logger log.Logger
}

// New creates the Claude provider. An empty API key is legal: the provider
// then reports "no result" on every call.
func New(apiKey, model string, opts llm.Options, logger log.Logger) *Client {
	if logger == nil {
		logger = log.Nop()
	}
	return &Client{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		apiKey: apiKey,
		model:  model,
		opts:   opts.WithDefaults(),
		logger: logger,
	}
}

// Name identifies the provider in logs and metrics.
func (c *Client) Name() string { return "claude" }

// Recommend builds the incident prompt and retries the API up to the fixed
// budget, returning (nil, nil) on total failure or an unparsable response.
func (c *Client) Recommend(ctx context.Context, r *incident.Report) (*incident.Recommendation, error) {
	if c.apiKey == "" {
		c.logger.Warn(ctx, "claude api key missing")
		return nil, nil
	}

	prompt := llm.BuildPrompt(r)
	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		content, err := c.send(ctx, prompt)
		if err != nil {
			c.logger.Warn(ctx, "claude request failed", "attempt", attempt, "error", err)
			continue
		}
		return llm.ParseRecommendation(content), nil
	}
	return nil, nil
}

func (c *Client) send(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, llm.RequestTimeout)
	defer cancel()

	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   int64(c.opts.MaxTokens),
		Temperature: anthropic.Float(c.opts.Temperature),
		System: []anthropic.TextBlockParam{
			{Text: llm.SystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}

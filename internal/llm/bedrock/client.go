// Package bedrock implements the AWS Bedrock-backed recommendation provider.
package bedrock

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/remedy/internal/incident"
	"github.com/linnemanlabs/remedy/internal/llm"
)

// Client calls the Bedrock invoke-model API for recommendations.
type Client struct {
	region     string
	modelID    string
	opts       llm.Options
	logger     log.Logger
	httpClient *http.Client
	baseURL    string // overridden in tests
}

// New creates the Bedrock provider. Missing region or model id is legal: the
// provider then reports "no result" on every call.
func New(region, modelID string, opts llm.Options, logger log.Logger) *Client {
	if logger == nil {
		logger = log.Nop()
	}
	return &Client{
		region:     region,
		modelID:    modelID,
		opts:       opts.WithDefaults(),
		logger:     logger,
		httpClient: &http.Client{Timeout: llm.RequestTimeout},
	}
}

// Name identifies the provider in logs and metrics.
func (c *Client) Name() string { return "bedrock" }

type request struct {
	ModelID     string `json:"modelId"`
	ContentType string `json:"contentType"`
	Accept      string `json:"accept"`
	Body        string `json:"body"`
}

type modelBody struct {
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"maxTokens"`
	Temperature float64 `json:"temperature"`
}

type response struct {
	Completion string `json:"completion"`
	OutputText string `json:"outputText"`
}

// Recommend builds the incident prompt and retries the API up to the fixed
// budget, returning (nil, nil) on total failure or an unparsable response.
func (c *Client) Recommend(ctx context.Context, r *incident.Report) (*incident.Recommendation, error) {
	if c.region == "" || c.modelID == "" {
		c.logger.Warn(ctx, "bedrock region or model id missing")
		return nil, nil
	}

	inner, err := json.Marshal(modelBody{
		Prompt:      llm.SystemPrompt + "\n\n" + llm.BuildPrompt(r),
		MaxTokens:   c.opts.MaxTokens,
		Temperature: c.opts.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal model body: %w", err)
	}
	body, err := json.Marshal(request{
		ModelID:     c.modelID,
		ContentType: "application/json",
		Accept:      "application/json",
		Body:        string(inner),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		content, err := c.send(ctx, body)
		if err != nil {
			c.logger.Warn(ctx, "bedrock request failed", "attempt", attempt, "error", err)
			continue
		}
		return llm.ParseRecommendation(content), nil
	}
	return nil, nil
}

func (c *Client) invokeURL() string {
	if c.baseURL != "" {
		return c.baseURL + "/model/" + url.PathEscape(c.modelID) + "/invoke"
	}
	return fmt.Sprintf("https://bedrock-runtime.%s.amazonaws.com/model/%s/invoke",
		c.region, url.PathEscape(c.modelID))
}

func (c *Client) send(ctx context.Context, body []byte) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.invokeURL(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

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
		return "", fmt.Errorf("bedrock api error %d: %s", resp.StatusCode, string(respBody))
	}

	var out response
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if out.Completion != "" {
		return out.Completion, nil
	}
	return out.OutputText, nil
}

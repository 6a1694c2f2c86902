package cfg

import (
	"errors"
	"flag"
	"fmt"
)

// Modes of operation. Demo serves canned evidence; live queries real
// Kubernetes, Loki and Prometheus endpoints.
const (
	ModeDemo = "demo"
	ModeLive = "live"
)

// Providers selectable via -provider.
var providers = map[string]bool{
	"mock":    true,
	"openai":  true,
	"bedrock": true,
	"claude":  true,
}

// Config adds remedy-specific configuration fields to the
// common cfg.Registerable and cfg.Validatable interfaces
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
	Mode                  string

	DatabaseURL     string
	RedisURL        string
	CacheTTLSeconds int

	KubeAPIEndpoint    string
	KubeToken          string
	LokiEndpoint       string
	LokiTenantID       string
	PrometheusEndpoint string
	PrometheusTenantID string

	Provider       string
	OpenAIAPIKey   string
	OpenAIModel    string
	BedrockRegion  string
	BedrockModelID string
	ClaudeAPIKey   string
	ClaudeModel    string
	LLMMaxTokens   int
	LLMTemperature float64
	LLMMaxRetries  int

	CollectorTimeoutSeconds int
	PipelineWorkers         int
	PipelineQueueSize       int

	SlackWebhookURL string
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.Mode, "mode", ModeDemo, "operating mode: demo (canned evidence) or live (real collectors)")

	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL (empty = in-memory store)")
	fs.StringVar(&c.RedisURL, "redis-url", "", "Redis connection URL for the incident cache (empty = in-process cache)")
	fs.IntVar(&c.CacheTTLSeconds, "cache-ttl-seconds", 3600, "incident cache entry TTL in seconds (1..86400)")

	fs.StringVar(&c.KubeAPIEndpoint, "kube-api-endpoint", "", "Kubernetes API server URL for evidence collection")
	fs.StringVar(&c.KubeToken, "kube-token", "", "bearer token for the Kubernetes API")
	fs.StringVar(&c.LokiEndpoint, "loki-endpoint", "", "Loki endpoint for log evidence collection")
	fs.StringVar(&c.LokiTenantID, "loki-tenant-id", "", "Loki tenant ID for multi-tenant setups")
	fs.StringVar(&c.PrometheusEndpoint, "prometheus-endpoint", "", "Prometheus endpoint for metric evidence collection")
	fs.StringVar(&c.PrometheusTenantID, "prometheus-tenant-id", "", "Prometheus tenant ID for multi-tenant setups")

	fs.StringVar(&c.Provider, "provider", "mock", "recommendation provider: mock, openai, bedrock or claude")
	fs.StringVar(&c.OpenAIAPIKey, "openai-api-key", "", "API key for the OpenAI provider")
	fs.StringVar(&c.OpenAIModel, "openai-model", "gpt-4o-mini", "OpenAI model to use")
	fs.StringVar(&c.BedrockRegion, "bedrock-region", "", "AWS region for the Bedrock provider")
	fs.StringVar(&c.BedrockModelID, "bedrock-model-id", "", "Bedrock model id to invoke")
	fs.StringVar(&c.ClaudeAPIKey, "claude-api-key", "", "API key for the Claude provider")
	fs.StringVar(&c.ClaudeModel, "claude-model", "claude-sonnet-4-20250514", "Claude model to use")
	fs.IntVar(&c.LLMMaxTokens, "llm-max-tokens", 512, "max tokens per provider completion (1..8192)")
	fs.Float64Var(&c.LLMTemperature, "llm-temperature", 0.2, "provider sampling temperature (0..1)")
	fs.IntVar(&c.LLMMaxRetries, "llm-max-retries", 2, "retries per provider call after the first attempt (0..10)")

	fs.IntVar(&c.CollectorTimeoutSeconds, "collector-timeout-seconds", 30, "per-collector timeout in seconds (1..300)")
	fs.IntVar(&c.PipelineWorkers, "pipeline-workers", 8, "concurrent pipeline workers (1..64)")
	fs.IntVar(&c.PipelineQueueSize, "pipeline-queue-size", 64, "pending pipeline queue capacity (1..4096)")

	fs.StringVar(&c.SlackWebhookURL, "slack-webhook-url", "", "Slack webhook URL for notifications")
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	if c.Mode != ModeDemo && c.Mode != ModeLive {
		errs = append(errs, fmt.Errorf("invalid MODE %q (must be demo or live)", c.Mode))
	}

	if c.CacheTTLSeconds <= 0 || c.CacheTTLSeconds > 86400 {
		errs = append(errs, fmt.Errorf("invalid CACHE_TTL_SECONDS %d (must be 1..86400)", c.CacheTTLSeconds))
	}

	if !providers[c.Provider] {
		errs = append(errs, fmt.Errorf("invalid PROVIDER %q (must be mock, openai, bedrock or claude)", c.Provider))
	}
	switch c.Provider {
	case "openai":
		if c.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required for the openai provider"))
		}
	case "bedrock":
		if c.BedrockRegion == "" {
			errs = append(errs, errors.New("BEDROCK_REGION is required for the bedrock provider"))
		}
		if c.BedrockModelID == "" {
			errs = append(errs, errors.New("BEDROCK_MODEL_ID is required for the bedrock provider"))
		}
	case "claude":
		if c.ClaudeAPIKey == "" {
			errs = append(errs, errors.New("CLAUDE_API_KEY is required for the claude provider"))
		}
		if c.ClaudeModel == "" {
			errs = append(errs, errors.New("CLAUDE_MODEL is required for the claude provider"))
		}
	}

	if c.LLMMaxTokens <= 0 || c.LLMMaxTokens > 8192 {
		errs = append(errs, fmt.Errorf("invalid LLM_MAX_TOKENS %d (must be 1..8192)", c.LLMMaxTokens))
	}
	if c.LLMTemperature < 0 || c.LLMTemperature > 1 {
		errs = append(errs, fmt.Errorf("invalid LLM_TEMPERATURE %g (must be 0..1)", c.LLMTemperature))
	}
	if c.LLMMaxRetries < 0 || c.LLMMaxRetries > 10 {
		errs = append(errs, fmt.Errorf("invalid LLM_MAX_RETRIES %d (must be 0..10)", c.LLMMaxRetries))
	}

	if c.CollectorTimeoutSeconds <= 0 || c.CollectorTimeoutSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid COLLECTOR_TIMEOUT_SECONDS %d (must be 1..300)", c.CollectorTimeoutSeconds))
	}
	if c.PipelineWorkers <= 0 || c.PipelineWorkers > 64 {
		errs = append(errs, fmt.Errorf("invalid PIPELINE_WORKERS %d (must be 1..64)", c.PipelineWorkers))
	}
	if c.PipelineQueueSize <= 0 || c.PipelineQueueSize > 4096 {
		errs = append(errs, fmt.Errorf("invalid PIPELINE_QUEUE_SIZE %d (must be 1..4096)", c.PipelineQueueSize))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

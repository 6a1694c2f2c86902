// Package llm holds what the recommendation providers share: the prompt
// built from an incident report, the tolerant response parser, and the
// request/retry defaults. The concrete backends live in the subpackages.
package llm

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/linnemanlabs/remedy/internal/incident"
)

// Per-attempt request bound. Each retry attempt is independent and gets the
// full budget; there is no backoff between attempts.
const RequestTimeout = 15 * time.Second

// maxPromptEvidence caps how many evidence items the prompt embeds.
const maxPromptEvidence = 15

// defaultConfidence is substituted when a backend omits a confidence or
// returns a non-numeric one.
const defaultConfidence = 0.4

// SystemPrompt constrains every backend to non-destructive suggestions.
const SystemPrompt = "You are a cautious SRE advisor. " +
	"Never output destructive commands (delete, wipe, drop, scale-to-zero). " +
	"Prefer safe, read-only investigation steps first (kubectl get/describe/logs). " +
	"Return only JSON that matches the requested schema."

// Options tunes a remote provider. Zero values select the defaults.
type Options struct {
	MaxTokens   int     // default 512
	Temperature float64 // default 0.2
	MaxRetries  int     // extra attempts after the first, default 2
}

// WithDefaults fills unset fields.
func (o Options) WithDefaults() Options {
	if o.MaxTokens <= 0 {
		o.MaxTokens = 512
	}
	if o.Temperature <= 0 {
		o.Temperature = 0.2
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	} else if o.MaxRetries == 0 {
		o.MaxRetries = 2
	}
	return o
}

// BuildPrompt embeds incident type, severity, summary, and the first
// evidence items into the user prompt, asking for the fixed JSON schema.
func BuildPrompt(r *incident.Report) string {
	var evidence strings.Builder
	items := r.Evidence
	if len(items) > maxPromptEvidence {
		items = items[:maxPromptEvidence]
	}
	for _, item := range items {
		evidence.WriteString("- ")
		evidence.WriteString(item.Detail)
		evidence.WriteString("\n")
	}

	return fmt.Sprintf("Summarize the incident and propose safe, read-only remediation steps. "+
		"Do not suggest destructive commands. Prefer kubectl get/describe/logs first. "+
		"Provide JSON with keys: "+
		"root_cause_hypotheses (list of {hypothesis, confidence}), "+
		"recommended_actions (list of {action, risk, confidence}). "+
		"risk must be one of low, medium, high; confidence must be between 0 and 1.\n"+
		"Incident type: %s\nSeverity: %s\nIncident summary: %s\nEvidence:\n%s",
		r.IncidentType, r.Severity, r.Summary, evidence.String())
}

type responseBody struct {
	Hypotheses []struct {
		Hypothesis string `json:"hypothesis"`
		Confidence any    `json:"confidence"`
	} `json:"root_cause_hypotheses"`
	Actions []struct {
		Action     string `json:"action"`
		Risk       any    `json:"risk"`
		Confidence any    `json:"confidence"`
	} `json:"recommended_actions"`
}

// ParseRecommendation extracts a structured recommendation from raw backend
// text. It tolerates JSON wrapped in explanatory prose by parsing the
// substring between the first '{' and the last '}'. Unknown risks become
// low; confidences are clamped to [0,1] and default to 0.4. It returns nil
// when nothing parses or the action list ends up empty - hypotheses alone
// are not a result.
func ParseRecommendation(content string) *incident.Recommendation {
	var body responseBody
	if err := json.Unmarshal([]byte(extractJSON(content)), &body); err != nil {
		return nil
	}

	var hypotheses []incident.Hypothesis
	for _, h := range body.Hypotheses {
		if h.Hypothesis == "" {
			continue
		}
		hypotheses = append(hypotheses, incident.Hypothesis{
			Hypothesis: h.Hypothesis,
			Confidence: clampConfidence(h.Confidence),
		})
	}

	var actions []incident.Action
	for _, a := range body.Actions {
		if a.Action == "" {
			continue
		}
		actions = append(actions, incident.Action{
			Action:     a.Action,
			Risk:       normalizeRisk(a.Risk),
			Confidence: clampConfidence(a.Confidence),
		})
	}
	if len(actions) == 0 {
		return nil
	}
	return &incident.Recommendation{Actions: actions, Hypotheses: hypotheses}
}

// extractJSON returns the substring from the first '{' to the last '}', or
// the input unchanged when no braces are present.
func extractJSON(content string) string {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end == -1 || end < start {
		return content
	}
	return content[start : end+1]
}

func normalizeRisk(value any) string {
	switch strings.ToLower(strings.TrimSpace(fmt.Sprint(value))) {
	case incident.RiskLow:
		return incident.RiskLow
	case incident.RiskMedium:
		return incident.RiskMedium
	case incident.RiskHigh:
		return incident.RiskHigh
	default:
		return incident.RiskLow
	}
}

func clampConfidence(value any) float64 {
	var c float64
	switch v := value.(type) {
	case float64:
		c = v
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return defaultConfidence
		}
		c = parsed
	default:
		return defaultConfidence
	}
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

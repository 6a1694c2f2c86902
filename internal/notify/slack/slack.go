// Package slack sends incident lifecycle notifications to Slack via
// incoming webhooks.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/linnemanlabs/remedy/internal/incident"
)

const (
	maxActions  = 5
	httpTimeout = 10 * time.Second
)

// Notifier posts incident lifecycle events to a Slack webhook.
type Notifier struct {
	webhookURL string
	client     *http.Client
}

// New creates a new Slack notifier. If webhookURL is empty, every method is
// a no-op.
func New(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: httpTimeout},
	}
}

// IncidentCreated announces a freshly ingested incident.
func (n *Notifier) IncidentCreated(ctx context.Context, r *incident.Report) error {
	return n.post(ctx, map[string]any{
		"blocks": []map[string]any{
			headerBlock("New Incident", r),
			{"type": "divider"},
			fieldsBlock(r),
			contextBlock(r),
		},
	})
}

// RecommendationReady announces that recommended actions are available.
func (n *Notifier) RecommendationReady(ctx context.Context, r *incident.Report) error {
	return n.post(ctx, map[string]any{
		"blocks": []map[string]any{
			headerBlock("Recommendation Ready", r),
			{"type": "divider"},
			fieldsBlock(r),
			{"type": "divider"},
			actionsBlock(r),
			contextBlock(r),
		},
	})
}

// ValidationComplete announces that the incident finished the pipeline.
func (n *Notifier) ValidationComplete(ctx context.Context, r *incident.Report) error {
	return n.post(ctx, map[string]any{
		"blocks": []map[string]any{
			headerBlock("Validation Complete", r),
			{"type": "divider"},
			fieldsBlock(r),
			{"type": "divider"},
			actionsBlock(r),
			contextBlock(r),
		},
	})
}

func (n *Notifier) post(ctx context.Context, msg map[string]any) error {
	if n.webhookURL == "" {
		return nil
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req) //nolint:gosec // G704: webhookURL is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func headerBlock(title string, r *incident.Report) map[string]any {
	text := fmt.Sprintf("%s %s: %s", severityEmoji(r.Severity), title, r.Summary)

	return map[string]any{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": text,
		},
	}
}

func fieldsBlock(r *incident.Report) map[string]any {
	fields := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Status:* %s", r.Status),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Severity:* %s", r.Severity),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Type:* %s", r.IncidentType),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Namespace:* %s", r.Namespace()),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Evidence:* %d", len(r.Evidence)),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Hypotheses:* %d", len(r.Hypotheses)),
		},
	}

	return map[string]any{
		"type":   "section",
		"fields": fields,
	}
}

func actionsBlock(r *incident.Report) map[string]any {
	var sb strings.Builder
	for i, a := range r.Actions {
		if i >= maxActions {
			sb.WriteString(fmt.Sprintf("_…and %d more._", len(r.Actions)-maxActions))
			break
		}
		sb.WriteString(fmt.Sprintf("%d. %s _(risk %s, confidence %.2f)_\n", i+1, a.Action, a.Risk, a.Confidence))
	}
	text := sb.String()
	if text == "" {
		text = "_No recommended actions._"
	}

	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Recommended actions*\n\n%s", text),
		},
	}
}

func contextBlock(r *incident.Report) map[string]any {
	ts := r.UpdatedAt
	if ts.IsZero() {
		ts = r.CreatedAt
	}

	elements := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("remedy • incident %s • %s", r.IncidentID, ts.UTC().Format("2006-01-02 15:04 UTC")),
		},
	}

	return map[string]any{
		"type":     "context",
		"elements": elements,
	}
}

func severityEmoji(severity string) string {
	switch strings.ToLower(severity) {
	case "critical", "error":
		return "\U0001f534" // red circle
	case "warning":
		return "\U0001f7e1" // yellow circle
	default:
		return "\U0001f7e2" // green circle
	}
}

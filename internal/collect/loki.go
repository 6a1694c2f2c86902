package collect

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/linnemanlabs/remedy/internal/incident"
)

const (
	lokiSource    = "loki"
	lokiLookback  = time.Hour
	lokiLineLimit = 10
)

// Loki surfaces recent error-ish log lines for the incident's namespace via
// a LogQL range query.
type Loki struct {
	endpoint   string
	tenantID   string
	httpClient *http.Client
}

// NewLoki creates the Loki log collector with the given endpoint and tenant ID.
func NewLoki(endpoint, tenantID string) *Loki {
	return &Loki{
		endpoint:   endpoint,
		tenantID:   tenantID,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Name identifies the collector in metrics and evidence sources.
func (l *Loki) Name() string { return lokiSource }

type lokiResponse struct {
	Status string `json:"status"`
	Data   struct {
		Result []struct {
			Stream map[string]string `json:"stream"`
			Values [][]string        `json:"values"`
		} `json:"result"`
	} `json:"data"`
}

// Collect queries the last hour of error-matching lines in the namespace.
func (l *Loki) Collect(ctx context.Context, r *incident.Report) incident.Findings {
	ns := r.Namespace()
	logql := fmt.Sprintf(`{namespace=%q} |~ "(?i)(error|panic|fail|backoff)"`, ns)

	now := time.Now().UTC()
	u, err := url.Parse(l.endpoint)
	if err != nil {
		return errEvidence(lokiSource, fmt.Sprintf("Invalid Loki endpoint: %v", err))
	}
	u.Path = "/loki/api/v1/query_range"
	q := u.Query()
	q.Set("query", logql)
	q.Set("start", now.Add(-lokiLookback).Format(time.RFC3339Nano))
	q.Set("end", now.Format(time.RFC3339Nano))
	q.Set("limit", fmt.Sprint(lokiLineLimit))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return errEvidence(lokiSource, fmt.Sprintf("Failed to build Loki request: %v", err))
	}
	if l.tenantID != "" {
		req.Header.Set("X-Scope-OrgID", l.tenantID)
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return errEvidence(lokiSource, fmt.Sprintf("Loki query failed: %v", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errEvidence(lokiSource, fmt.Sprintf("Failed to read Loki response: %v", err))
	}
	if resp.StatusCode != http.StatusOK {
		return errEvidence(lokiSource, fmt.Sprintf("Loki returned %d: %s", resp.StatusCode, truncate(string(body), 256)))
	}

	var lr lokiResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return errEvidence(lokiSource, fmt.Sprintf("Failed to decode Loki response: %v", err))
	}
	if lr.Status != "success" {
		return errEvidence(lokiSource, fmt.Sprintf("Loki query unsuccessful: %s", lr.Status))
	}

	var f incident.Findings
	count := 0
	for _, stream := range lr.Data.Result {
		pod := stream.Stream["pod"]
		for _, entry := range stream.Values {
			if len(entry) < 2 || count >= lokiLineLimit {
				continue
			}
			count++
			detail := fmt.Sprintf("Logs %s/%s: %s", ns, pod, truncate(entry[1], 300))
			f.Evidence = append(f.Evidence, incident.Evidence{
				Source:   lokiSource,
				Detail:   detail,
				Severity: incident.SeverityWarning,
			})
		}
	}
	if count == 0 {
		f.Evidence = append(f.Evidence, incident.Evidence{
			Source:   lokiSource,
			Detail:   fmt.Sprintf("No error-level log lines in namespace %s over the last hour", ns),
			Severity: incident.SeverityInfo,
		})
	}
	f.Links = append(f.Links, fmt.Sprintf("logcli query '%s' --since=1h", logql))
	return f
}

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
	promSource      = "prometheus"
	promResultLimit = 10
)

// Prometheus probes restart and availability metrics for the incident's
// namespace with instant PromQL queries.
type Prometheus struct {
	endpoint   string
	tenantID   string
	httpClient *http.Client
}

// NewPrometheus creates the metrics collector with the given endpoint and
// tenant ID.
func NewPrometheus(endpoint, tenantID string) *Prometheus {
	return &Prometheus{
		endpoint:   endpoint,
		tenantID:   tenantID,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Name identifies the collector in metrics and evidence sources.
func (p *Prometheus) Name() string { return promSource }

type promResponse struct {
	Status string `json:"status"`
	Data   struct {
		Result []struct {
			Metric map[string]string `json:"metric"`
			Value  []any             `json:"value"`
		} `json:"result"`
	} `json:"data"`
}

// Collect runs fixed read-only probes: container restarts over the last hour
// and scrape targets currently down in the namespace.
func (p *Prometheus) Collect(ctx context.Context, r *incident.Report) incident.Findings {
	ns := r.Namespace()

	probes := []struct {
		label string
		query string
	}{
		{
			"container restarts (1h)",
			fmt.Sprintf(`sum by (pod) (increase(kube_pod_container_status_restarts_total{namespace=%q}[1h])) > 0`, ns),
		},
		{
			"targets down",
			fmt.Sprintf(`up{namespace=%q} == 0`, ns),
		},
	}

	var f incident.Findings
	for _, probe := range probes {
		f.Evidence = append(f.Evidence, p.instantQuery(ctx, probe.label, probe.query)...)
	}
	f.Links = append(f.Links, p.endpoint+"/graph")
	return f
}

func (p *Prometheus) instantQuery(ctx context.Context, label, query string) []incident.Evidence {
	u, err := url.Parse(p.endpoint)
	if err != nil {
		return errEvidence(promSource, fmt.Sprintf("Invalid Prometheus endpoint: %v", err)).Evidence
	}
	u.Path = "/api/v1/query"
	q := u.Query()
	q.Set("query", query)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return errEvidence(promSource, fmt.Sprintf("Failed to build Prometheus request: %v", err)).Evidence
	}
	if p.tenantID != "" {
		req.Header.Set("X-Scope-OrgID", p.tenantID)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return errEvidence(promSource, fmt.Sprintf("Prometheus query failed: %v", err)).Evidence
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errEvidence(promSource, fmt.Sprintf("Failed to read Prometheus response: %v", err)).Evidence
	}
	if resp.StatusCode != http.StatusOK {
		return errEvidence(promSource, fmt.Sprintf("Prometheus returned %d: %s", resp.StatusCode, truncate(string(body), 256))).Evidence
	}

	var pr promResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		return errEvidence(promSource, fmt.Sprintf("Failed to decode Prometheus response: %v", err)).Evidence
	}
	if pr.Status != "success" {
		return errEvidence(promSource, fmt.Sprintf("Prometheus query unsuccessful: %s", truncate(string(body), 256))).Evidence
	}

	if len(pr.Data.Result) == 0 {
		return []incident.Evidence{{
			Source:   promSource,
			Detail:   fmt.Sprintf("Probe %q matched no series", label),
			Severity: incident.SeverityInfo,
		}}
	}

	results := pr.Data.Result
	if len(results) > promResultLimit {
		results = results[:promResultLimit]
	}
	var out []incident.Evidence
	for _, res := range results {
		value := ""
		if len(res.Value) == 2 {
			value, _ = res.Value[1].(string)
		}
		subject := res.Metric["pod"]
		if subject == "" {
			subject = res.Metric["instance"]
		}
		out = append(out, incident.Evidence{
			Source:   promSource,
			Detail:   fmt.Sprintf("Probe %q: %s value=%s", label, subject, value),
			Severity: incident.SeverityWarning,
		})
	}
	return out
}

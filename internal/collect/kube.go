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
	kubeSource     = "k8s"
	maxKubeEvents  = 20
	kubeHTTPLimit  = 4 << 20 // 4MB response cap
	kubeMaxTimeout = 30 * time.Second
)

// Kube gathers pod and event evidence from the Kubernetes API in the
// incident's namespace. Queries are read-only list calls over the REST API;
// the token is a service-account bearer token with list-only RBAC.
type Kube struct {
	endpoint   string
	token      string
	httpClient *http.Client
}

// NewKube creates the Kubernetes collector for the given API endpoint.
func NewKube(endpoint, token string) *Kube {
	return &Kube{
		endpoint:   endpoint,
		token:      token,
		httpClient: &http.Client{Timeout: kubeMaxTimeout},
	}
}

// Name identifies the collector in metrics and evidence sources.
func (k *Kube) Name() string { return kubeSource }

type podList struct {
	Items []struct {
		Metadata struct {
			Name string `json:"name"`
		} `json:"metadata"`
		Status struct {
			Phase             string `json:"phase"`
			ContainerStatuses []struct {
				RestartCount int `json:"restartCount"`
				State        struct {
					Waiting *struct {
						Reason string `json:"reason"`
					} `json:"waiting"`
				} `json:"state"`
			} `json:"containerStatuses"`
		} `json:"status"`
	} `json:"items"`
}

type eventItem struct {
	Type    string `json:"type"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

type eventList struct {
	Items []eventItem `json:"items"`
}

// Collect lists pods and warning events in the report's namespace.
func (k *Kube) Collect(ctx context.Context, r *incident.Report) incident.Findings {
	ns := r.Namespace()

	var f incident.Findings
	f.Evidence = append(f.Evidence, k.collectPods(ctx, ns)...)
	f.Evidence = append(f.Evidence, k.collectEvents(ctx, ns)...)
	f.Links = append(f.Links,
		fmt.Sprintf("kubectl get pods -n %s", ns),
		fmt.Sprintf("kubectl get events -n %s --sort-by=.lastTimestamp", ns),
		fmt.Sprintf("kubectl describe deployment -n %s", ns),
	)
	return f
}

func (k *Kube) collectPods(ctx context.Context, namespace string) []incident.Evidence {
	var pods podList
	if err := k.getJSON(ctx, "/api/v1/namespaces/"+url.PathEscape(namespace)+"/pods", &pods); err != nil {
		return []incident.Evidence{{
			Source:   kubeSource,
			Detail:   fmt.Sprintf("Failed to list pods: %v", err),
			Severity: incident.SeverityError,
		}}
	}

	var out []incident.Evidence
	for _, pod := range pods.Items {
		phase := pod.Status.Phase
		if phase == "" {
			phase = "unknown"
		}
		restarts := 0
		reason := ""
		for _, cs := range pod.Status.ContainerStatuses {
			restarts += cs.RestartCount
			if cs.State.Waiting != nil && cs.State.Waiting.Reason != "" {
				reason = cs.State.Waiting.Reason
			}
		}
		severity := incident.SeverityInfo
		if restarts > 0 || reason != "" {
			severity = incident.SeverityWarning
		}
		out = append(out, incident.Evidence{
			Source:   kubeSource,
			Detail:   fmt.Sprintf("Pod %s status=%s restarts=%d reason=%s", pod.Metadata.Name, phase, restarts, reason),
			Severity: severity,
		})
	}
	return out
}

func (k *Kube) collectEvents(ctx context.Context, namespace string) []incident.Evidence {
	var events eventList
	if err := k.getJSON(ctx, "/api/v1/namespaces/"+url.PathEscape(namespace)+"/events", &events); err != nil {
		return []incident.Evidence{{
			Source:   kubeSource,
			Detail:   fmt.Sprintf("Failed to list events: %v", err),
			Severity: incident.SeverityError,
		}}
	}

	// Filter before capping so Normal events cannot crowd warnings out of
	// the window.
	var warnings []eventItem
	for _, ev := range events.Items {
		if ev.Type == "Warning" {
			warnings = append(warnings, ev)
		}
	}
	if len(warnings) > maxKubeEvents {
		warnings = warnings[len(warnings)-maxKubeEvents:]
	}
	out := make([]incident.Evidence, 0, len(warnings))
	for _, ev := range warnings {
		out = append(out, incident.Evidence{
			Source:   kubeSource,
			Detail:   fmt.Sprintf("Event %s: %s", ev.Reason, ev.Message),
			Severity: incident.SeverityWarning,
		})
	}
	return out
}

func (k *Kube) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.endpoint+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if k.token != "" {
		req.Header.Set("Authorization", "Bearer "+k.token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("kubernetes api: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, kubeHTTPLimit))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("kubernetes api returned %d: %s", resp.StatusCode, truncate(string(body), 256))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}

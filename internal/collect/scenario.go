package collect

import (
	"context"
	"fmt"

	"github.com/linnemanlabs/remedy/internal/incident"
)

const scenarioSource = "scenario"

// Scenario is the demo-mode collector: instead of querying live systems it
// serves a fixed evidence table keyed by incident type, so demos and
// integration tests exercise the full pipeline with deterministic input.
// It is only registered when the service runs with -mode demo.
type Scenario struct{}

// NewScenario creates the fixed-scenario collector.
func NewScenario() *Scenario { return &Scenario{} }

// Name identifies the collector in metrics and evidence sources.
func (s *Scenario) Name() string { return scenarioSource }

type cannedScenario struct {
	evidence []incident.Evidence
	links    []string
}

var scenarios = map[string]cannedScenario{
	"crashloop": {
		evidence: []incident.Evidence{
			{Source: scenarioSource, Detail: "Pod app-a-6f7d status=Running restarts=7 reason=CrashLoopBackOff", Severity: incident.SeverityWarning},
			{Source: scenarioSource, Detail: "Event BackOff: Back-off restarting failed container app-a", Severity: incident.SeverityWarning},
			{Source: scenarioSource, Detail: "Logs app-a-6f7d/app-a: fatal: APP_A_REQUIRED is empty", Severity: incident.SeverityWarning},
		},
		links: []string{"kubectl logs deployment/app-a --previous"},
	},
	"rollout_failure": {
		evidence: []incident.Evidence{
			{Source: scenarioSource, Detail: "Pod app-b-9c21 status=Pending restarts=0 reason=ImagePullBackOff", Severity: incident.SeverityWarning},
			{Source: scenarioSource, Detail: "Event Failed: Failed to pull image \"demo-app-b:doesnotexist\"", Severity: incident.SeverityWarning},
			{Source: scenarioSource, Detail: "Deployment app-b replicas desired=2 available=0", Severity: incident.SeverityWarning},
		},
		links: []string{"kubectl rollout status deployment/app-b"},
	},
	"high_latency": {
		evidence: []incident.Evidence{
			{Source: scenarioSource, Detail: "Probe \"p99 latency\": app-a value=2.41s threshold=0.5s", Severity: incident.SeverityWarning},
			{Source: scenarioSource, Detail: "ConfigMap app-a-config LATENCY_MODE=on", Severity: incident.SeverityInfo},
		},
		links: []string{"kubectl get configmap app-a-config -o yaml"},
	},
}

// Collect returns the canned evidence for the report's incident type, or a
// single info entry for types outside the table.
func (s *Scenario) Collect(_ context.Context, r *incident.Report) incident.Findings {
	sc, ok := scenarios[r.IncidentType]
	if !ok {
		return incident.Findings{Evidence: []incident.Evidence{{
			Source:   scenarioSource,
			Detail:   fmt.Sprintf("No canned scenario for incident type %q", r.IncidentType),
			Severity: incident.SeverityInfo,
		}}}
	}
	return incident.Findings{
		Evidence: append([]incident.Evidence(nil), sc.evidence...),
		Links:    append([]string(nil), sc.links...),
	}
}

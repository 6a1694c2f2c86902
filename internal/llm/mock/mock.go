// Package mock implements a deterministic recommendation provider for demos
// and tests. It never fails and never calls out.
package mock

import (
	"context"

	"github.com/linnemanlabs/remedy/internal/incident"
)

// Provider returns a fixed recommendation regardless of incident content.
type Provider struct{}

// New creates the mock provider.
func New() *Provider { return &Provider{} }

// Name identifies the provider in logs and metrics.
func (*Provider) Name() string { return "mock" }

// Recommend returns the canned recommendation.
func (*Provider) Recommend(_ context.Context, _ *incident.Report) (*incident.Recommendation, error) {
	return &incident.Recommendation{
		Hypotheses: []incident.Hypothesis{
			{Hypothesis: "Mock: recent rollout or resource pressure", Confidence: 0.45},
		},
		Actions: []incident.Action{
			{Action: "Check pod events and rollout status for the affected namespace", Risk: incident.RiskLow, Confidence: 0.5},
			{Action: "Verify image pull secrets and recent deployment changes", Risk: incident.RiskLow, Confidence: 0.4},
		},
	}, nil
}

package collect

import (
	"context"
	"strings"
	"testing"

	"github.com/linnemanlabs/remedy/internal/alert"
	"github.com/linnemanlabs/remedy/internal/incident"
)

func TestWorkload_Name(t *testing.T) {
	t.Parallel()

	if got := NewWorkload().Name(); got != "deployment" {
		t.Errorf("Name() = %q, want %q", got, "deployment")
	}
}

func TestWorkload_WithHint(t *testing.T) {
	t.Parallel()

	r := &incident.Report{RawAlert: &alert.Payload{
		Labels:      map[string]string{"namespace": "payments"},
		Annotations: map[string]string{"workload": "checkout-api"},
	}}

	f := NewWorkload().Collect(context.Background(), r)

	if len(f.Evidence) != 1 {
		t.Fatalf("evidence count = %d, want 1", len(f.Evidence))
	}
	if !strings.Contains(f.Evidence[0].Detail, "checkout-api") {
		t.Errorf("detail = %q, want workload name", f.Evidence[0].Detail)
	}
	if len(f.Links) != 2 {
		t.Fatalf("links count = %d, want 2", len(f.Links))
	}
	if f.Links[0] != "kubectl describe deployment checkout-api -n payments" {
		t.Errorf("Links[0] = %q", f.Links[0])
	}
	if f.Links[1] != "kubectl rollout status deployment/checkout-api -n payments" {
		t.Errorf("Links[1] = %q", f.Links[1])
	}
}

func TestWorkload_NoHint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		report *incident.Report
	}{
		{"no raw alert", &incident.Report{}},
		{"alert without annotation", &incident.Report{RawAlert: &alert.Payload{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := NewWorkload().Collect(context.Background(), tt.report)

			if len(f.Evidence) != 1 {
				t.Fatalf("evidence count = %d, want 1", len(f.Evidence))
			}
			if f.Evidence[0].Severity != incident.SeverityInfo {
				t.Errorf("severity = %q, want %q", f.Evidence[0].Severity, incident.SeverityInfo)
			}
			if !strings.Contains(f.Evidence[0].Detail, "No workload hint") {
				t.Errorf("detail = %q", f.Evidence[0].Detail)
			}
			if len(f.Links) != 0 {
				t.Errorf("Links = %v, want none", f.Links)
			}
		})
	}
}

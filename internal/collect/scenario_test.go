package collect

import (
	"context"
	"strings"
	"testing"

	"github.com/linnemanlabs/remedy/internal/incident"
)

func TestScenario_Name(t *testing.T) {
	t.Parallel()

	if got := NewScenario().Name(); got != "scenario" {
		t.Errorf("Name() = %q, want %q", got, "scenario")
	}
}

func TestScenario_KnownTypes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		incidentType string
		wantDetail   string
		wantLink     string
	}{
		{"crashloop", "CrashLoopBackOff", "kubectl logs deployment/app-a --previous"},
		{"rollout_failure", "ImagePullBackOff", "kubectl rollout status deployment/app-b"},
		{"high_latency", "p99 latency", "kubectl get configmap app-a-config -o yaml"},
	}

	s := NewScenario()
	for _, tt := range tests {
		t.Run(tt.incidentType, func(t *testing.T) {
			t.Parallel()

			f := s.Collect(context.Background(), &incident.Report{IncidentType: tt.incidentType})

			if len(f.Evidence) == 0 {
				t.Fatal("Collect returned no evidence")
			}
			found := false
			for _, ev := range f.Evidence {
				if ev.Source != "scenario" {
					t.Errorf("evidence source = %q, want %q", ev.Source, "scenario")
				}
				if strings.Contains(ev.Detail, tt.wantDetail) {
					found = true
				}
			}
			if !found {
				t.Errorf("no evidence mentions %q: %+v", tt.wantDetail, f.Evidence)
			}
			if len(f.Links) != 1 || f.Links[0] != tt.wantLink {
				t.Errorf("Links = %v, want [%q]", f.Links, tt.wantLink)
			}
		})
	}
}

func TestScenario_UnknownType(t *testing.T) {
	t.Parallel()

	f := NewScenario().Collect(context.Background(), &incident.Report{IncidentType: "disk_fire"})

	if len(f.Evidence) != 1 {
		t.Fatalf("evidence count = %d, want 1", len(f.Evidence))
	}
	ev := f.Evidence[0]
	if ev.Severity != incident.SeverityInfo {
		t.Errorf("severity = %q, want %q", ev.Severity, incident.SeverityInfo)
	}
	if !strings.Contains(ev.Detail, `"disk_fire"`) {
		t.Errorf("detail = %q, want mention of the unknown type", ev.Detail)
	}
	if len(f.Links) != 0 {
		t.Errorf("Links = %v, want none", f.Links)
	}
}

func TestScenario_ReturnsCopies(t *testing.T) {
	t.Parallel()

	s := NewScenario()
	r := &incident.Report{IncidentType: "crashloop"}

	first := s.Collect(context.Background(), r)
	first.Evidence[0].Detail = "mutated"
	first.Links[0] = "mutated"

	second := s.Collect(context.Background(), r)
	if second.Evidence[0].Detail == "mutated" {
		t.Error("mutating a returned evidence slice leaked into the canned table")
	}
	if second.Links[0] == "mutated" {
		t.Error("mutating a returned links slice leaked into the canned table")
	}
}

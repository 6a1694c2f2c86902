package collect

import (
	"context"
	"fmt"

	"github.com/linnemanlabs/remedy/internal/incident"
)

const workloadSource = "deployment"

// Workload surfaces the workload hint carried on the alert annotations. It
// is pure: no external calls.
type Workload struct{}

// NewWorkload creates the workload-hint collector.
func NewWorkload() *Workload { return &Workload{} }

// Name identifies the collector in metrics and evidence sources.
func (w *Workload) Name() string { return workloadSource }

// Collect reads the alert's workload annotation and emits rollout links for
// it, or a nudge to check recent deployments when the hint is absent.
func (w *Workload) Collect(_ context.Context, r *incident.Report) incident.Findings {
	var f incident.Findings

	workload := ""
	if r.RawAlert != nil {
		workload = r.RawAlert.Workload()
	}
	ns := r.Namespace()

	if workload == "" {
		f.Evidence = append(f.Evidence, incident.Evidence{
			Source:   workloadSource,
			Detail:   "No workload hint in alert; check recent deployments",
			Severity: incident.SeverityInfo,
		})
		return f
	}

	f.Evidence = append(f.Evidence, incident.Evidence{
		Source:   workloadSource,
		Detail:   "Workload hint from alert annotations: " + workload,
		Severity: incident.SeverityInfo,
	})
	f.Links = append(f.Links,
		fmt.Sprintf("kubectl describe deployment %s -n %s", workload, ns),
		fmt.Sprintf("kubectl rollout status deployment/%s -n %s", workload, ns),
	)
	return f
}

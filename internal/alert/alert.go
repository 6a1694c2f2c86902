// Package alert models the inbound alert payload and its classification.
package alert

// Payload is the raw alert as received from a monitoring webhook. Labels and
// annotations are free-form; the rest of the body is kept verbatim on the
// incident report for traceability.
type Payload struct {
	Labels      map[string]string `json:"labels"`
	Annotations map[string]string `json:"annotations"`
}

// Type returns the incident type derived from the alertname label.
func (p *Payload) Type() string {
	if v := p.Labels["alertname"]; v != "" {
		return v
	}
	return "alert"
}

// Severity returns the severity label, or "unknown" when absent.
func (p *Payload) Severity() string {
	if v := p.Labels["severity"]; v != "" {
		return v
	}
	return "unknown"
}

// Summary returns a human summary, preferring the summary annotation over
// description.
func (p *Payload) Summary() string {
	if v := p.Annotations["summary"]; v != "" {
		return v
	}
	if v := p.Annotations["description"]; v != "" {
		return v
	}
	return "Alert received"
}

// Namespace returns the namespace label, or "default" when absent.
func (p *Payload) Namespace() string {
	if v := p.Labels["namespace"]; v != "" {
		return v
	}
	return "default"
}

// Workload returns the workload annotation hint, if any.
func (p *Payload) Workload() string {
	return p.Annotations["workload"]
}

package incident

import (
	"time"

	"github.com/linnemanlabs/remedy/internal/alert"
)

// Status tracks where an incident is in its lifecycle. Transitions follow
// the fixed order new -> investigating -> recommended -> validated and never
// move backwards; validated is terminal.
type Status string

const (
	StatusNew           Status = "new"
	StatusInvestigating Status = "investigating"
	StatusRecommended   Status = "recommended"
	StatusValidated     Status = "validated"
)

var statusRank = map[Status]int{
	StatusNew:           0,
	StatusInvestigating: 1,
	StatusRecommended:   2,
	StatusValidated:     3,
}

// Evidence severities.
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Action risk levels.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// TimelineEvent marks a stage boundary in the incident's history.
type TimelineEvent struct {
	Stage     string    `json:"stage"`
	Status    string    `json:"status"` // started | completed
	Timestamp time.Time `json:"timestamp"`
}

// Evidence is a severity-tagged observation gathered during investigation.
type Evidence struct {
	Source   string `json:"source"`
	Detail   string `json:"detail"`
	Severity string `json:"severity"`
}

// Hypothesis is a candidate root cause with a confidence in [0,1].
type Hypothesis struct {
	Hypothesis string  `json:"hypothesis"`
	Confidence float64 `json:"confidence"`
}

// Action is a recommended remediation step.
type Action struct {
	Action     string  `json:"action"`
	Risk       string  `json:"risk"` // low | medium | high
	Confidence float64 `json:"confidence"`
}

// StageTiming bounds one pipeline stage's execution.
type StageTiming struct {
	Stage       string     `json:"stage"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// DurationMS returns the stage duration in milliseconds, or false when the
// stage has not completed. Never negative.
func (t *StageTiming) DurationMS() (int64, bool) {
	if t.CompletedAt == nil {
		return 0, false
	}
	ms := t.CompletedAt.Sub(t.StartedAt).Milliseconds()
	if ms < 0 {
		ms = 0
	}
	return ms, true
}

// Report is the central record tracking one incident through its lifecycle.
// It is created at ingestion and mutated only by the orchestrator; the
// timeline and evidence lists are append-only within a run.
type Report struct {
	IncidentID    string          `json:"incident_id"`
	CorrelationID string          `json:"correlation_id"`
	Status        Status          `json:"status"`
	IncidentType  string          `json:"incident_type"`
	Severity      string          `json:"severity"`
	Summary       string          `json:"summary"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Timeline      []TimelineEvent `json:"timeline"`
	Evidence      []Evidence      `json:"evidence"`
	Hypotheses    []Hypothesis    `json:"root_cause_hypotheses"`
	Actions       []Action        `json:"recommended_actions"`
	StageTimings  []StageTiming   `json:"stage_timings"`
	Links         []string        `json:"links"`
	RawAlert      *alert.Payload  `json:"raw_alert"`
}

// AdvanceStatus moves the report to next if that is a forward transition.
// Backward or repeated transitions are ignored so a re-run can never regress
// a persisted status.
func (r *Report) AdvanceStatus(next Status) {
	if statusRank[next] > statusRank[r.Status] {
		r.Status = next
	}
}

// Clone returns a deep copy so stored reports cannot be mutated through
// shared slices.
func (r *Report) Clone() *Report {
	cp := *r
	cp.Timeline = append([]TimelineEvent(nil), r.Timeline...)
	cp.Evidence = append([]Evidence(nil), r.Evidence...)
	cp.Hypotheses = append([]Hypothesis(nil), r.Hypotheses...)
	cp.Actions = append([]Action(nil), r.Actions...)
	cp.StageTimings = append([]StageTiming(nil), r.StageTimings...)
	cp.Links = append([]string(nil), r.Links...)
	if r.RawAlert != nil {
		ra := *r.RawAlert
		cp.RawAlert = &ra
	}
	return &cp
}

// Namespace returns the namespace hint from the raw alert, defaulting to
// "default" when the alert carries none.
func (r *Report) Namespace() string {
	if r.RawAlert == nil {
		return "default"
	}
	return r.RawAlert.Namespace()
}

// Summary is the denormalized listing row for an incident, with per-stage
// latency derived from the timing ledger.
type Summary struct {
	IncidentID          string    `json:"incident_id"`
	CorrelationID       string    `json:"correlation_id"`
	Status              string    `json:"status"`
	IncidentType        string    `json:"incident_type"`
	Severity            string    `json:"severity"`
	Summary             string    `json:"summary"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
	TimeToTriageMS      *int64    `json:"time_to_triage_ms,omitempty"`
	TimeToInvestigateMS *int64    `json:"time_to_investigate_ms,omitempty"`
	TimeToRecommendMS   *int64    `json:"time_to_recommend_ms,omitempty"`
}

// Summarize builds the listing row for a report.
func Summarize(r *Report) Summary {
	s := Summary{
		IncidentID:    r.IncidentID,
		CorrelationID: r.CorrelationID,
		Status:        string(r.Status),
		IncidentType:  r.IncidentType,
		Severity:      r.Severity,
		Summary:       r.Summary,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	for i := range r.StageTimings {
		t := &r.StageTimings[i]
		ms, ok := t.DurationMS()
		if !ok {
			continue
		}
		v := ms
		switch t.Stage {
		case StageTriage:
			s.TimeToTriageMS = &v
		case StageInvestigation:
			s.TimeToInvestigateMS = &v
		case StageRecommendation:
			s.TimeToRecommendMS = &v
		}
	}
	return s
}

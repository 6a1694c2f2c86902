package incidentapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/linnemanlabs/remedy/internal/alert"
	"github.com/linnemanlabs/remedy/internal/incident"
)

func (a *API) handleIngestAlert(w http.ResponseWriter, r *http.Request) {
	var payload alert.Payload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}

	report, err := a.svc.Ingest(r.Context(), &payload, r.Header.Get("X-Correlation-Id"))
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to ingest alert")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"incident_id":    report.IncidentID,
		"correlation_id": report.CorrelationID,
		"status":         report.Status,
	})
}

func (a *API) handleReanalyze(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	refresh := r.URL.Query().Get("refresh_evidence") == "true"

	report, err := a.svc.Reanalyze(r.Context(), id, refresh)
	if err != nil {
		if errors.Is(err, incident.ErrNotFound) {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}
		a.logger.Error(r.Context(), err, "failed to reanalyze incident", "id", id)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// demoScenarios maps demo request types to alert payloads with the shape a
// real alertmanager webhook would carry.
var demoScenarios = map[string]alert.Payload{
	"crashloop": {
		Labels: map[string]string{
			"alertname": "crashloop",
			"severity":  "critical",
			"namespace": "payments",
		},
		Annotations: map[string]string{
			"summary":  "Pod checkout-api-6f7d9 is crash looping",
			"workload": "checkout-api",
		},
	},
	"rollout_failure": {
		Labels: map[string]string{
			"alertname": "rollout_failure",
			"severity":  "warning",
			"namespace": "payments",
		},
		Annotations: map[string]string{
			"summary":  "Deployment checkout-api rollout is stuck",
			"workload": "checkout-api",
		},
	},
	"high_latency": {
		Labels: map[string]string{
			"alertname": "high_latency",
			"severity":  "warning",
			"namespace": "payments",
		},
		Annotations: map[string]string{
			"summary":  "p99 latency above SLO for checkout-api",
			"workload": "checkout-api",
		},
	},
}

func (a *API) handleDemoIncident(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IncidentType string `json:"incident_type"`
		Namespace    string `json:"namespace"`
		Workload     string `json:"workload"`
		Severity     string `json:"severity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}

	canned, ok := demoScenarios[req.IncidentType]
	if !ok {
		http.Error(w, `{"error":"unknown incident type"}`, http.StatusBadRequest)
		return
	}

	// Copy the canned payload so request overrides never touch the table.
	payload := alert.Payload{
		Labels:      make(map[string]string, len(canned.Labels)),
		Annotations: make(map[string]string, len(canned.Annotations)),
	}
	for k, v := range canned.Labels {
		payload.Labels[k] = v
	}
	for k, v := range canned.Annotations {
		payload.Annotations[k] = v
	}
	if req.Namespace != "" {
		payload.Labels["namespace"] = req.Namespace
	}
	if req.Severity != "" {
		payload.Labels["severity"] = req.Severity
	}
	if req.Workload != "" {
		payload.Annotations["workload"] = req.Workload
	}

	report, err := a.svc.Ingest(r.Context(), &payload, r.Header.Get("X-Correlation-Id"))
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to ingest demo incident")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"incident_id":    report.IncidentID,
		"correlation_id": report.CorrelationID,
		"status":         report.Status,
	})
}

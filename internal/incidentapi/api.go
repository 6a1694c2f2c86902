// Package incidentapi exposes the incident pipeline over HTTP.
package incidentapi

import (
	"context"
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"
	"github.com/linnemanlabs/remedy/internal/alert"
	"github.com/linnemanlabs/remedy/internal/incident"
)

// IncidentService defines the business operations incidentapi needs.
type IncidentService interface {
	Ingest(ctx context.Context, payload *alert.Payload, correlationID string) (*incident.Report, error)
	Get(ctx context.Context, id string) (*incident.Report, bool, error)
	List(ctx context.Context) ([]incident.Summary, error)
	Reanalyze(ctx context.Context, id string, refreshEvidence bool) (*incident.Report, error)
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger   log.Logger
	svc      IncidentService
	demoMode bool
}

// New creates a new API handler. demoMode additionally exposes the canned
// incident endpoint.
func New(logger log.Logger, svc IncidentService, demoMode bool) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("incident service is required"))
	}
	return &API{
		logger:   logger,
		svc:      svc,
		demoMode: demoMode,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/alerts", a.handleIngestAlert)
		r.Get("/incidents", a.handleListIncidents)
		r.Get("/incidents/{id}", a.handleGetIncident)
		r.Post("/incidents/{id}/reanalyze", a.handleReanalyze)
		if a.demoMode {
			r.Post("/demo/incidents", a.handleDemoIncident)
		}
	})
}

func (a *API) handleGetIncident(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("remedy.incident.id", id))

	report, ok, err := a.svc.Get(r.Context(), id)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to get incident", "id", id)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}

	span.SetAttributes(attribute.String("remedy.incident.status", string(report.Status)))

	writeJSON(w, http.StatusOK, report)
}

func (a *API) handleListIncidents(w http.ResponseWriter, r *http.Request) {
	summaries, err := a.svc.List(r.Context())
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to list incidents")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if summaries == nil {
		summaries = []incident.Summary{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"incidents": summaries,
		"count":     len(summaries),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

package incident

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"
	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/linnemanlabs/remedy/internal/alert"
	"github.com/linnemanlabs/remedy/internal/work"
)

var tracer = otel.Tracer("github.com/linnemanlabs/remedy/internal/incident")

// Pipeline stage names, also used as timeline and timing-ledger keys.
const (
	StageIngestion      = "ingestion"
	StageTriage         = "triage"
	StageInvestigation  = "investigation"
	StageAnalysis       = "analysis"
	StageRecommendation = "recommendation"
	StageValidation     = "validation"
)

// Fixed fallbacks installed when the provider chain yields no result.
var (
	fallbackAction = Action{
		Action:     "Review recent deployment changes and check pod events for failures",
		Risk:       RiskLow,
		Confidence: 0.4,
	}
	validationFallbackAction = Action{
		Action:     "Run kubectl get events to confirm status",
		Risk:       RiskLow,
		Confidence: 0.4,
	}
)

// DefaultCollectorTimeout bounds a single collector call during the
// investigation fan-out.
const DefaultCollectorTimeout = 30 * time.Second

// ServiceConfig carries the orchestrator's dependencies.
type ServiceConfig struct {
	Store      Store
	Provider   Provider
	Collectors []Collector
	Notifier   Notifier // optional
	Pool       *work.Pool
	Logger     log.Logger // optional
	Metrics    *Metrics   // optional

	// CollectorTimeout bounds each collector call; zero means
	// DefaultCollectorTimeout.
	CollectorTimeout time.Duration
}

// Service is the incident orchestrator. It owns report lifecycle: ingestion,
// the staged pipeline, re-analysis, and reads.
type Service struct {
	store            Store
	provider         Provider
	collectors       []Collector
	notifier         Notifier
	pool             *work.Pool
	logger           log.Logger
	metrics          *Metrics
	collectorTimeout time.Duration
}

// NewService creates the orchestrator. It panics when a required dependency
// is missing so miswiring fails at startup, not mid-pipeline.
func NewService(c ServiceConfig) *Service {
	if c.Store == nil {
		panic(xerrors.New("incident store is required"))
	}
	if c.Provider == nil {
		panic(xerrors.New("recommendation provider is required"))
	}
	if c.Pool == nil {
		panic(xerrors.New("worker pool is required"))
	}
	if c.Logger == nil {
		c.Logger = log.Nop()
	}
	if c.Metrics == nil {
		c.Metrics = NewMetrics(prometheus.NewRegistry(), nil)
	}
	if c.CollectorTimeout <= 0 {
		c.CollectorTimeout = DefaultCollectorTimeout
	}
	return &Service{
		store:            c.Store,
		provider:         c.Provider,
		collectors:       c.Collectors,
		notifier:         c.Notifier,
		pool:             c.Pool,
		logger:           c.Logger,
		metrics:          c.Metrics,
		collectorTimeout: c.CollectorTimeout,
	}
}

// Ingest classifies the alert, persists a fresh report in status new, and
// schedules the pipeline run. It returns the created report immediately; the
// caller never blocks on pipeline completion. When the worker queue is full
// the run is dropped with a log line and the report stays at new.
func (s *Service) Ingest(ctx context.Context, payload *alert.Payload, correlationID string) (*Report, error) {
	if correlationID == "" {
		correlationID = ulid.Make().String()
	}

	now := time.Now().UTC()
	report := &Report{
		IncidentID:    ulid.Make().String(),
		CorrelationID: correlationID,
		Status:        StatusNew,
		IncidentType:  payload.Type(),
		Severity:      payload.Severity(),
		Summary:       payload.Summary(),
		CreatedAt:     now,
		UpdatedAt:     now,
		Timeline: []TimelineEvent{
			{Stage: StageIngestion, Status: "completed", Timestamp: now},
		},
		RawAlert: payload,
	}

	if err := s.store.Save(ctx, report); err != nil {
		return nil, fmt.Errorf("save new incident: %w", err)
	}
	s.metrics.IngestsTotal.WithLabelValues(report.IncidentType).Inc()

	// The run gets its own copy so the caller can't observe mid-pipeline
	// mutation through the returned report.
	run := report.Clone()
	if err := s.pool.Submit(func(runCtx context.Context) {
		s.runPipeline(runCtx, run)
	}); err != nil {
		s.metrics.PipelineRejected.Inc()
		s.logger.Warn(ctx, "pipeline run not scheduled",
			"incident_id", report.IncidentID,
			"error", err,
		)
	}

	return report, nil
}

// Get retrieves a report by id.
func (s *Service) Get(ctx context.Context, id string) (*Report, bool, error) {
	return s.store.Get(ctx, id)
}

// List returns incident summaries ordered by most recently updated first.
func (s *Service) List(ctx context.Context) ([]Summary, error) {
	return s.store.List(ctx)
}

// Reanalyze re-runs analysis, recommendation, and validation against a
// persisted report, optionally refreshing evidence first. It is synchronous
// and returns the updated report, or ErrNotFound for an unknown id.
func (s *Service) Reanalyze(ctx context.Context, id string, refreshEvidence bool) (*Report, error) {
	report, ok, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load incident: %w", err)
	}
	if !ok {
		return nil, ErrNotFound
	}

	if refreshEvidence {
		if err := s.investigate(ctx, report); err != nil {
			return nil, err
		}
	}
	if err := s.analyze(ctx, report); err != nil {
		return nil, err
	}
	if err := s.recommend(ctx, report); err != nil {
		return nil, err
	}
	if err := s.validate(ctx, report); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "manual analysis complete", "incident_id", report.IncidentID)
	return report, nil
}

// runPipeline executes the stages in fixed order. The first stage error
// aborts the run: the report stays at whatever stage last persisted, with no
// rollback and no retry.
func (s *Service) runPipeline(ctx context.Context, report *Report) {
	ctx, span := tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("remedy.incident.id", report.IncidentID),
		attribute.String("remedy.incident.type", report.IncidentType),
	))
	defer span.End()

	L := s.logger.With("incident_id", report.IncidentID, "incident_type", report.IncidentType)

	defer func() {
		if p := recover(); p != nil {
			s.metrics.PipelinesTotal.WithLabelValues("panic").Inc()
			L.Error(ctx, nil, "pipeline panicked", "panic", p)
		}
	}()

	stages := []struct {
		name string
		fn   func(context.Context, *Report) error
	}{
		{StageTriage, s.triage},
		{StageInvestigation, s.investigate},
		{StageAnalysis, s.analyze},
		{StageRecommendation, s.recommend},
		{StageValidation, s.validate},
	}

	for _, st := range stages {
		if err := st.fn(ctx, report); err != nil {
			s.metrics.PipelinesTotal.WithLabelValues("aborted").Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			L.Error(ctx, err, "pipeline aborted", "stage", st.name)
			return
		}
	}

	span.SetAttributes(attribute.String("remedy.incident.status", string(report.Status)))
	s.metrics.PipelinesTotal.WithLabelValues("complete").Inc()
	L.Info(ctx, "pipeline complete",
		"status", report.Status,
		"evidence", len(report.Evidence),
		"actions", len(report.Actions),
	)
}

// runStage wraps one stage: timing entry and timeline marker before the
// mutation, completion timestamp and persistence after it. The completion
// timestamp is recorded just before the save so the durable blob carries it.
func (s *Service) runStage(ctx context.Context, r *Report, name string, mutate func(context.Context, *Report) error) error {
	ctx, span := tracer.Start(ctx, "pipeline."+name, trace.WithAttributes(
		attribute.String("remedy.incident.id", r.IncidentID),
		attribute.String("remedy.stage", name),
	))
	defer span.End()

	started := time.Now().UTC()
	r.StageTimings = append(r.StageTimings, StageTiming{Stage: name, StartedAt: started})
	r.Timeline = append(r.Timeline, TimelineEvent{Stage: name, Status: "started", Timestamp: started})

	if err := mutate(ctx, r); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%s: %w", name, err)
	}

	completed := time.Now().UTC()
	r.UpdatedAt = completed
	r.StageTimings[len(r.StageTimings)-1].CompletedAt = &completed
	r.Timeline = append(r.Timeline, TimelineEvent{Stage: name, Status: "completed", Timestamp: completed})

	if err := s.store.Save(ctx, r); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("save after %s: %w", name, err)
	}

	s.metrics.StageDuration.WithLabelValues(name).Observe(completed.Sub(started).Seconds())
	return nil
}

func (s *Service) triage(ctx context.Context, r *Report) error {
	err := s.runStage(ctx, r, StageTriage, func(_ context.Context, r *Report) error {
		r.Evidence = append(r.Evidence,
			Evidence{Source: "triage", Detail: "Incident severity: " + r.Severity, Severity: SeverityInfo},
			Evidence{Source: "triage", Detail: "Incident type: " + r.IncidentType, Severity: SeverityInfo},
		)
		r.AdvanceStatus(StatusInvestigating)
		return nil
	})
	if err != nil {
		return err
	}
	s.notify(ctx, "created", r, Notifier.IncidentCreated)
	return nil
}

func (s *Service) investigate(ctx context.Context, r *Report) error {
	return s.runStage(ctx, r, StageInvestigation, func(ctx context.Context, r *Report) error {
		for _, f := range s.fanOut(ctx, r) {
			r.Evidence = append(r.Evidence, f.Evidence...)
			r.Links = append(r.Links, f.Links...)
		}
		s.metrics.EvidencePerRun.Observe(float64(len(r.Evidence)))
		return nil
	})
}

func (s *Service) analyze(ctx context.Context, r *Report) error {
	return s.runStage(ctx, r, StageAnalysis, func(_ context.Context, r *Report) error {
		r.Hypotheses = deriveHypotheses(r.Evidence)
		return nil
	})
}

func (s *Service) recommend(ctx context.Context, r *Report) error {
	err := s.runStage(ctx, r, StageRecommendation, func(ctx context.Context, r *Report) error {
		rec := s.callProvider(ctx, r)
		if rec == nil {
			s.metrics.ProviderFallbacks.Inc()
			r.Actions = []Action{fallbackAction}
		} else {
			r.Actions = rec.Actions
			if rec.Hypotheses != nil {
				r.Hypotheses = rec.Hypotheses
			}
		}
		r.AdvanceStatus(StatusRecommended)
		return nil
	})
	if err != nil {
		return err
	}
	s.notify(ctx, "recommendation_ready", r, Notifier.RecommendationReady)
	return nil
}

func (s *Service) validate(ctx context.Context, r *Report) error {
	err := s.runStage(ctx, r, StageValidation, func(_ context.Context, r *Report) error {
		if len(r.Actions) == 0 {
			r.Actions = append(r.Actions, validationFallbackAction)
		}
		r.AdvanceStatus(StatusValidated)
		return nil
	})
	if err != nil {
		return err
	}
	s.notify(ctx, "validation_complete", r, Notifier.ValidationComplete)
	return nil
}

// callProvider invokes the active provider and normalizes every failure
// mode (error, no result, empty action list) to nil so the caller installs
// the fixed fallback.
func (s *Service) callProvider(ctx context.Context, r *Report) *Recommendation {
	name := s.provider.Name()
	rec, err := s.provider.Recommend(ctx, r)
	switch {
	case err != nil:
		s.metrics.ProviderCalls.WithLabelValues(name, "error").Inc()
		s.logger.Warn(ctx, "provider failed",
			"provider", name,
			"incident_id", r.IncidentID,
			"error", err,
		)
		return nil
	case rec == nil || len(rec.Actions) == 0:
		s.metrics.ProviderCalls.WithLabelValues(name, "empty").Inc()
		s.logger.Warn(ctx, "provider returned no result",
			"provider", name,
			"incident_id", r.IncidentID,
		)
		return nil
	default:
		s.metrics.ProviderCalls.WithLabelValues(name, "ok").Inc()
		return rec
	}
}

// fanOut dispatches all collectors concurrently against the same report
// snapshot and joins them. Merged findings keep registration order.
func (s *Service) fanOut(ctx context.Context, r *Report) []Findings {
	results := make([]Findings, len(s.collectors))

	var wg sync.WaitGroup
	for i, c := range s.collectors {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			results[i] = collectOne(ctx, c, r, s.collectorTimeout)
			s.metrics.CollectorDuration.WithLabelValues(c.Name()).Observe(time.Since(start).Seconds())
			for _, ev := range results[i].Evidence {
				if ev.Severity == SeverityError {
					s.metrics.CollectorFailures.WithLabelValues(c.Name()).Inc()
					break
				}
			}
		}()
	}
	wg.Wait()

	return results
}

// notify delivers one lifecycle event best-effort: failures are logged and
// counted, never fatal.
func (s *Service) notify(ctx context.Context, event string, r *Report, fn func(Notifier, context.Context, *Report) error) {
	if s.notifier == nil {
		return
	}
	if err := fn(s.notifier, ctx, r); err != nil {
		s.metrics.NotifyFailures.WithLabelValues(event).Inc()
		s.logger.Warn(ctx, "notification failed",
			"event", event,
			"incident_id", r.IncidentID,
			"error", err,
		)
	}
}

package incident

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the incident pipeline.
type Metrics struct {
	IngestsTotal       *prometheus.CounterVec
	PipelinesTotal     *prometheus.CounterVec
	PipelineRejected   prometheus.Counter
	StageDuration      *prometheus.HistogramVec
	CollectorDuration  *prometheus.HistogramVec
	CollectorFailures  *prometheus.CounterVec
	ProviderCalls      *prometheus.CounterVec
	ProviderFallbacks  prometheus.Counter
	NotifyFailures     *prometheus.CounterVec
	EvidencePerRun     prometheus.Histogram
	QueueDepth         prometheus.GaugeFunc
}

// NewMetrics registers and returns pipeline metrics on the given registerer.
// queueDepth reports the current pipeline queue backlog; pass nil for none.
func NewMetrics(reg prometheus.Registerer, queueDepth func() float64) *Metrics {
	m := &Metrics{
		IngestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "remedy_ingests_total",
			Help: "Total alert ingestions by incident type.",
		}, []string{"incident_type"}),
		PipelinesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "remedy_pipelines_total",
			Help: "Total pipeline runs by outcome.",
		}, []string{"outcome"}),
		PipelineRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "remedy_pipeline_rejected_total",
			Help: "Pipeline runs rejected because the worker queue was full.",
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "remedy_stage_duration_seconds",
			Help:    "Duration of pipeline stages in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms .. ~20s
		}, []string{"stage"}),
		CollectorDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "remedy_collector_duration_seconds",
			Help:    "Duration of evidence collector calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms .. ~25s
		}, []string{"collector"}),
		CollectorFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "remedy_collector_failures_total",
			Help: "Collector calls that produced error-severity evidence.",
		}, []string{"collector"}),
		ProviderCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "remedy_provider_calls_total",
			Help: "Recommendation provider invocations by provider and outcome.",
		}, []string{"provider", "outcome"}),
		ProviderFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "remedy_provider_fallbacks_total",
			Help: "Runs that fell back to the fixed recommendation.",
		}),
		NotifyFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "remedy_notify_failures_total",
			Help: "Failed lifecycle notifications by event.",
		}, []string{"event"}),
		EvidencePerRun: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "remedy_evidence_per_run",
			Help:    "Evidence items on a report after investigation.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1 .. 512
		}),
	}

	reg.MustRegister(
		m.IngestsTotal,
		m.PipelinesTotal,
		m.PipelineRejected,
		m.StageDuration,
		m.CollectorDuration,
		m.CollectorFailures,
		m.ProviderCalls,
		m.ProviderFallbacks,
		m.NotifyFailures,
		m.EvidencePerRun,
	)

	if queueDepth != nil {
		m.QueueDepth = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "remedy_pipeline_queue_depth",
			Help: "Pipeline runs waiting in the worker queue.",
		}, queueDepth)
		reg.MustRegister(m.QueueDepth)
	}

	return m
}

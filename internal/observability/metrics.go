package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service. Every method
// is safe on a nil receiver so components can run without instrumentation.
type Metrics struct {
	registry *prometheus.Registry
	stages   *stageWindow

	ActiveSessions     prometheus.Gauge
	SessionEvents      *prometheus.CounterVec
	WSMessages         *prometheus.CounterVec
	ContextResolutions *prometheus.CounterVec
	CapabilityErrors   *prometheus.CounterVec
	PipelineRequests   *prometheus.CounterVec
	RankerFallbacks    prometheus.Counter
	SuggestionsServed  prometheus.Histogram
	StageLatency       *prometheus.HistogramVec
	MemoryInteractions prometheus.Gauge
}

func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		stages:   newStageWindow(256),
		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of active sessions.",
		}),
		SessionEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Session events by type.",
		}, []string{"event"}),
		WSMessages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "WebSocket messages by direction and type.",
		}, []string{"direction", "type"}),
		ContextResolutions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "context_resolutions_total",
			Help:      "Context resolutions by deciding tier and label.",
		}, []string{"source", "label"}),
		CapabilityErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capability_errors_total",
			Help:      "Failed calls to external capabilities.",
		}, []string{"capability"}),
		PipelineRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_requests_total",
			Help:      "Processed utterances by outcome.",
		}, []string{"outcome"}),
		RankerFallbacks: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ranker_fallbacks_total",
			Help:      "Rankings that degraded to raw candidates.",
		}),
		SuggestionsServed: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "suggestions_returned",
			Help:      "Number of suggestions returned per utterance.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8},
		}),
		StageLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_latency_ms",
			Help:      "Pipeline stage latency in milliseconds.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"stage"}),
		MemoryInteractions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "memory_interactions",
			Help:      "Interactions currently held in memory.",
		}),
	}
}

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	ms := float64(d.Microseconds()) / 1000
	m.StageLatency.WithLabelValues(stage).Observe(ms)
	m.stages.Observe(stage, ms)
}

func (m *Metrics) ObserveResolution(source, label string) {
	if m == nil {
		return
	}
	m.ContextResolutions.WithLabelValues(source, label).Inc()
	m.stages.ObserveIndicator("context_" + source)
}

func (m *Metrics) CapabilityError(capability string) {
	if m == nil {
		return
	}
	m.CapabilityErrors.WithLabelValues(capability).Inc()
}

func (m *Metrics) PipelineOutcome(outcome string, suggestions int) {
	if m == nil {
		return
	}
	m.PipelineRequests.WithLabelValues(outcome).Inc()
	if outcome == "ok" {
		m.SuggestionsServed.Observe(float64(suggestions))
	}
}

func (m *Metrics) RankerFallback() {
	if m == nil {
		return
	}
	m.RankerFallbacks.Inc()
	m.stages.ObserveIndicator("ranker_fallback")
}

func (m *Metrics) SetMemorySize(n int) {
	if m == nil {
		return
	}
	m.MemoryInteractions.Set(float64(n))
}

func (m *Metrics) SessionEvent(event string, active int) {
	if m == nil {
		return
	}
	m.SessionEvents.WithLabelValues(event).Inc()
	m.ActiveSessions.Set(float64(active))
}

func (m *Metrics) WSMessage(direction, msgType string) {
	if m == nil {
		return
	}
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// SnapshotStages reports rolling per-stage latency percentiles.
func (m *Metrics) SnapshotStages() StageSnapshot {
	if m == nil {
		return newStageWindow(0).Snapshot()
	}
	return m.stages.Snapshot()
}

// Handler serves this instance's registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ResetStages clears the rolling latency window.
func (m *Metrics) ResetStages() {
	if m == nil {
		return
	}
	m.stages.Reset()
}

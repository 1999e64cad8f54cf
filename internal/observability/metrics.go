package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service. Methods are
// nil-receiver safe so tests can run without registering collectors.
type Metrics struct {
	TurnsTotal     prometheus.Counter
	StageLatency   *prometheus.HistogramVec
	StageErrors    *prometheus.CounterVec
	SessionEvents  *prometheus.CounterVec
	SummaryEvents  *prometheus.CounterVec
	SessionExpired prometheus.Gauge
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		TurnsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Completed persona reply turns.",
		}),
		StageLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_latency_ms",
			Help:      "Reply pipeline stage latency in milliseconds.",
			Buckets:   []float64{50, 100, 250, 500, 1000, 2000, 5000, 10000},
		}, []string{"stage"}),
		StageErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_errors_total",
			Help:      "Reply pipeline stage failures by stage and severity.",
		}, []string{"stage", "severity"}),
		SessionEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Session lifecycle events by type.",
		}, []string{"event"}),
		SummaryEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summary_events_total",
			Help:      "Rolling summarizer events by outcome.",
		}, []string{"event"}),
		SessionExpired: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_expired",
			Help:      "Whether the session is currently expired (0 or 1).",
		}),
	}
}

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageLatency.WithLabelValues(stage).Observe(float64(d.Milliseconds()))
}

func (m *Metrics) IncStageError(stage, severity string) {
	if m == nil {
		return
	}
	m.StageErrors.WithLabelValues(stage, severity).Inc()
}

func (m *Metrics) IncSessionEvent(event string) {
	if m == nil {
		return
	}
	m.SessionEvents.WithLabelValues(event).Inc()
}

func (m *Metrics) IncSummaryEvent(event string) {
	if m == nil {
		return
	}
	m.SummaryEvents.WithLabelValues(event).Inc()
}

func (m *Metrics) IncTurns() {
	if m == nil {
		return
	}
	m.TurnsTotal.Inc()
}

func (m *Metrics) SetExpired(expired bool) {
	if m == nil {
		return
	}
	if expired {
		m.SessionExpired.Set(1)
	} else {
		m.SessionExpired.Set(0)
	}
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

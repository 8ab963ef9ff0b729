package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	ActiveSessions   prometheus.Gauge
	SessionEvents    *prometheus.CounterVec
	CleanupRuns      *prometheus.CounterVec
	RecordsPersisted prometheus.Counter
	RecordsRemoved   prometheus.Counter
	StoreLatency     prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of active tenant sessions.",
		}),
		SessionEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Session events by type.",
		}, []string{"event"}),
		CleanupRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleanup_runs_total",
			Help:      "Lifecycle cleanup runs by result.",
		}, []string{"result"}),
		RecordsPersisted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_persisted_total",
			Help:      "Session-local training records persisted to the backend.",
		}),
		RecordsRemoved: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_removed_total",
			Help:      "Session-local training records removed from the live model.",
		}),
		StoreLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_operation_ms",
			Help:      "Persistence backend round-trip latency in milliseconds.",
			Buckets:   []float64{10, 50, 100, 200, 500, 1000, 2000, 5000},
		}),
	}
}

func (m *Metrics) ObserveStoreLatency(d time.Duration) {
	m.StoreLatency.Observe(float64(d.Milliseconds()))
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

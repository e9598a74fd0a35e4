package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the service's Prometheus collectors. Construct one per
// process with New and hand it to the API server and session manager.
type Metrics struct {
	registry *prometheus.Registry

	SessionsStarted prometheus.Counter
	SessionsLive    prometheus.Gauge
	Actions         *prometheus.CounterVec
	DroneDeliveries *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		SessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "medtrack_sessions_started_total",
			Help: "Dashboard sessions created since start.",
		}),
		SessionsLive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "medtrack_sessions_live",
			Help: "Currently live dashboard sessions.",
		}),
		Actions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "medtrack_actions_total",
			Help: "User actions processed, by action.",
		}, []string{"action"}),
		DroneDeliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "medtrack_drone_deliveries_total",
			Help: "Drone delivery runs, by outcome.",
		}, []string{"outcome"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "medtrack_request_duration_seconds",
			Help:    "HTTP request latency by route and status class.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}

// Registry exposes the underlying registry for the /metrics handler
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordAction bumps the per-action counter
func (m *Metrics) RecordAction(action string) {
	m.Actions.WithLabelValues(action).Inc()
}

// RecordDelivery bumps the delivery counter with "completed", "cancelled"
// or "rejected"
func (m *Metrics) RecordDelivery(outcome string) {
	m.DroneDeliveries.WithLabelValues(outcome).Inc()
}

// ObserveRequest records one request's latency
func (m *Metrics) ObserveRequest(route, status string, d time.Duration) {
	m.RequestDuration.WithLabelValues(route, status).Observe(d.Seconds())
}

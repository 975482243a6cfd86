package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"NewsBroadcaster/internal/domain"
	"NewsBroadcaster/internal/ports"
)

// Metrics records delivery and pipeline outcomes.
type Metrics struct {
	registry *prometheus.Registry

	// deliveries counts send attempts per gateway and status
	deliveries *prometheus.CounterVec
	// sendDuration tracks how long one gateway call takes
	sendDuration *prometheus.HistogramVec
	// stages counts message lifecycles by their final stage
	stages *prometheus.CounterVec
}

var (
	_ ports.DeliveryObserver = (*Metrics)(nil)
	_ ports.StageObserver    = (*Metrics)(nil)
)

// New registers the collectors on a fresh registry together with the Go
// runtime and process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		deliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "newsbroadcaster",
				Name:      "sms_deliveries_total",
				Help:      "SMS send attempts by gateway and outcome",
			},
			[]string{"gateway", "status"},
		),
		sendDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "newsbroadcaster",
				Name:      "sms_send_duration_seconds",
				Help:      "Latency of a single gateway send",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
			},
			[]string{"gateway"},
		),
		stages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "newsbroadcaster",
				Name:      "pipeline_runs_total",
				Help:      "Message lifecycles by final stage",
			},
			[]string{"stage"},
		),
	}
	registry.MustRegister(m.deliveries, m.sendDuration, m.stages)
	return m
}

// ObserveDelivery records one send attempt.
func (m *Metrics) ObserveDelivery(gateway string, status domain.DeliveryStatus, took time.Duration) {
	m.deliveries.WithLabelValues(gateway, string(status)).Inc()
	if took > 0 {
		m.sendDuration.WithLabelValues(gateway).Observe(took.Seconds())
	}
}

// ObserveStage records the final stage of one message lifecycle.
func (m *Metrics) ObserveStage(stage domain.Stage) {
	m.stages.WithLabelValues(string(stage)).Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

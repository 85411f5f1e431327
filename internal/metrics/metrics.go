// Package metrics exposes the adapter's Prometheus instrumentation:
// datagram/event counters and the current probe statuses as gauges.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"notifyadapter/internal/notify"
	"notifyadapter/internal/state"
)

const namespace = "adapter"

type Metrics struct {
	registry *prometheus.Registry

	datagrams   prometheus.Counter
	parseErrors prometheus.Counter
	events      *prometheus.CounterVec

	healthz prometheus.Gauge
	livez   prometheus.Gauge
	readyz  prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		datagrams: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "datagrams_total",
			Help:      "Total number of datagrams received on the notify socket",
		}),
		parseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_errors_total",
			Help:      "Total number of datagrams dropped as unparseable",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Total number of events applied by the state machine",
		}, []string{"event"}),
		healthz: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "healthz",
			Help:      "Current healthz status (1 = ok)",
		}),
		livez: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "livez",
			Help:      "Current livez status (1 = ok)",
		}),
		readyz: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "readyz",
			Help:      "Current readyz status (1 = ok)",
		}),
	}
	m.registry.MustRegister(m.datagrams, m.parseErrors, m.events, m.healthz, m.livez, m.readyz)
	return m
}

// Registry returns the registry backing the /metrics endpoint.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveDatagram() {
	if m != nil {
		m.datagrams.Inc()
	}
}

func (m *Metrics) ObserveParseError() {
	if m != nil {
		m.parseErrors.Inc()
	}
}

func (m *Metrics) ObserveEvent(ev notify.Event) {
	if m != nil {
		m.events.WithLabelValues(string(ev)).Inc()
	}
}

func (m *Metrics) ObserveStatus(snap state.Snapshot) {
	if m == nil {
		return
	}
	m.healthz.Set(boolGauge(snap.Healthz))
	m.livez.Set(boolGauge(snap.Livez))
	m.readyz.Set(boolGauge(snap.Readyz))
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

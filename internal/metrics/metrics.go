// Package metrics exposes the bridge's Prometheus collectors on a private registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "alarm_bridge"

// Outbound call targets used as the "target" label.
const (
	TargetChat   = "chat"
	TargetCamera = "camera"
	TargetState  = "state"
)

// Metrics groups the collectors updated by the policy engine and transports.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	events           *prometheus.CounterVec
	panicTransitions prometheus.Counter
	notifications    prometheus.Counter
	capturesSent     prometheus.Counter
	outboundFailures *prometheus.CounterVec
	rejectedRequests *prometheus.CounterVec
	armed            prometheus.Gauge
	panicking        prometheus.Gauge
}

// New creates the collectors and registers them with a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Classified sensor events by kind.",
		}, []string{"kind"}),
		panicTransitions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "panic_transitions_total",
			Help:      "Idle to Panicking transitions.",
		}),
		notifications: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Alerts posted to the chat channel.",
		}),
		capturesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "captures_forwarded_total",
			Help:      "Camera captures and snapshots uploaded to the chat channel.",
		}),
		outboundFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbound_failures_total",
			Help:      "Failed calls to collaborators by target.",
		}, []string{"target"}),
		rejectedRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejected_requests_total",
			Help:      "HTTP requests rejected by authentication, by reason.",
		}, []string{"reason"}),
		armed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "armed",
			Help:      "1 when the alarm is armed.",
		}),
		panicking: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "panicking",
			Help:      "1 while a panic window is open.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.events,
		m.panicTransitions,
		m.notifications,
		m.capturesSent,
		m.outboundFailures,
		m.rejectedRequests,
		m.armed,
		m.panicking,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}

	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}

	return m.registry
}

// Event counts a classified event.
func (m *Metrics) Event(kind string) {
	if m == nil {
		return
	}

	m.events.WithLabelValues(kind).Inc()
}

// PanicStarted counts an Idle to Panicking transition.
func (m *Metrics) PanicStarted() {
	if m == nil {
		return
	}

	m.panicTransitions.Inc()
}

// Notified counts a posted alert.
func (m *Metrics) Notified() {
	if m == nil {
		return
	}

	m.notifications.Inc()
}

// CaptureSent counts an uploaded capture or snapshot.
func (m *Metrics) CaptureSent() {
	if m == nil {
		return
	}

	m.capturesSent.Inc()
}

// OutboundFailed counts a failed call to target.
func (m *Metrics) OutboundFailed(target string) {
	if m == nil {
		return
	}

	m.outboundFailures.WithLabelValues(target).Inc()
}

// Rejected counts an HTTP request refused for reason.
func (m *Metrics) Rejected(reason string) {
	if m == nil {
		return
	}

	m.rejectedRequests.WithLabelValues(reason).Inc()
}

// SetArmed mirrors the arm flag.
func (m *Metrics) SetArmed(armed bool) {
	if m == nil {
		return
	}

	m.armed.Set(boolToFloat(armed))
}

// SetPanicking mirrors the panic window.
func (m *Metrics) SetPanicking(panicking bool) {
	if m == nil {
		return
	}

	m.panicking.Set(boolToFloat(panicking))
}

func boolToFloat(v bool) float64 {
	if v {
		return 1
	}

	return 0
}

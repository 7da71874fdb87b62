package observability

import (
	"context"
	"net/http"
	"strconv"

	"github.com/aretw0/statecraft/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "statecraft"

// Metrics holds the runtime collectors. Labels use the definition id rather
// than the instance id so spawned children do not create one series each.
type Metrics struct {
	registry *prometheus.Registry

	transitions     *prometheus.CounterVec
	dropped         *prometheus.CounterVec
	timers          *prometheus.CounterVec
	childrenSpawned *prometheus.CounterVec
	childrenStopped *prometheus.CounterVec
	liveChildren    *prometheus.GaugeVec
}

// NewMetrics creates the collectors on a private registry that also carries
// the Go and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Committed transitions by machine kind and states.",
		}, []string{"kind", "from", "to"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Events that matched no transition.",
		}, []string{"kind", "event"}),
		timers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "timers_fired_total",
			Help:      "Delayed transitions fired while their state was still active.",
		}, []string{"kind", "state"}),
		childrenSpawned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "children_spawned_total",
			Help:      "Child machines spawned by a parent.",
		}, []string{"parent"}),
		childrenStopped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "children_stopped_total",
			Help:      "Child machines removed from a parent.",
		}, []string{"parent", "forced"}),
		liveChildren: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_children",
			Help:      "Child machines currently owned by a parent.",
		}, []string{"parent"}),
	}

	m.registry.MustRegister(
		m.transitions,
		m.dropped,
		m.timers,
		m.childrenSpawned,
		m.childrenStopped,
		m.liveChildren,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the registry, e.g. for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Hooks returns lifecycle hooks that feed the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransition: func(_ context.Context, e *domain.TransitionEvent) {
			m.transitions.WithLabelValues(e.Kind, e.From, e.To).Inc()
		},
		OnEventDropped: func(_ context.Context, e *domain.DroppedEvent) {
			m.dropped.WithLabelValues(e.Kind, e.Event).Inc()
		},
		OnTimerFired: func(_ context.Context, e *domain.TimerEvent) {
			m.timers.WithLabelValues(e.Kind, e.State).Inc()
		},
		OnChildSpawned: func(_ context.Context, e *domain.ChildEvent) {
			m.childrenSpawned.WithLabelValues(e.Parent).Inc()
			m.liveChildren.WithLabelValues(e.Parent).Inc()
		},
		OnChildStopped: func(_ context.Context, e *domain.ChildEvent) {
			m.childrenStopped.WithLabelValues(e.Parent, strconv.FormatBool(e.Forced)).Inc()
			m.liveChildren.WithLabelValues(e.Parent).Dec()
		},
	}
}

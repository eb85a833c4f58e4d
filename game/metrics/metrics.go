// Package metrics exposes Prometheus collectors for agents and matches.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "magic_maze"

// Recorder owns a private registry so several servers, or tests, can run in
// one process. A nil *Recorder discards every observation.
type Recorder struct {
	registry *prometheus.Registry

	ticks         *prometheus.CounterVec
	rebuilds      *prometheus.CounterVec
	actions       *prometheus.CounterVec
	blocks        *prometheus.CounterVec
	nudges        *prometheus.CounterVec
	matches       *prometheus.CounterVec
	activeMatches prometheus.Gauge
}

// NewRecorder creates and registers every collector.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "agent",
			Name:      "ticks_total",
			Help:      "Behaviour tree ticks run by each agent.",
		}, []string{"agent"}),
		rebuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "agent",
			Name:      "rebuilds_total",
			Help:      "Decision tree rebuilds per agent.",
		}, []string{"agent"}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "agent",
			Name:      "actions_total",
			Help:      "Actions attempted by each agent, by type and result.",
		}, []string{"agent", "action", "result"}),
		blocks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "agent",
			Name:      "blocks_total",
			Help:      "Blocked actions each agent tried to resolve.",
		}, []string{"agent"}),
		nudges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "agent",
			Name:      "nudges_total",
			Help:      "Do-something tokens placed by each agent.",
		}, []string{"agent", "action"}),
		matches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "match",
			Name:      "finished_total",
			Help:      "Finished matches by outcome.",
		}, []string{"outcome"}),
		activeMatches: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "match",
			Name:      "active",
			Help:      "Matches currently running.",
		}),
	}
	r.registry.MustRegister(
		r.ticks, r.rebuilds, r.actions, r.blocks, r.nudges, r.matches, r.activeMatches,
		collectors.NewGoCollector(),
	)
	return r
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) Tick(agent string) {
	if r != nil {
		r.ticks.WithLabelValues(agent).Inc()
	}
}

func (r *Recorder) Rebuild(agent string) {
	if r != nil {
		r.rebuilds.WithLabelValues(agent).Inc()
	}
}

// Action counts one attempted action.
func (r *Recorder) Action(agent, action string, ok bool) {
	if r == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	r.actions.WithLabelValues(agent, action, result).Inc()
}

func (r *Recorder) Block(agent string) {
	if r != nil {
		r.blocks.WithLabelValues(agent).Inc()
	}
}

func (r *Recorder) Nudge(agent, action string) {
	if r != nil {
		r.nudges.WithLabelValues(agent, action).Inc()
	}
}

// MatchStarted and MatchFinished track the active gauge and outcomes.
func (r *Recorder) MatchStarted() {
	if r != nil {
		r.activeMatches.Inc()
	}
}

func (r *Recorder) MatchFinished(outcome string) {
	if r == nil {
		return
	}
	r.activeMatches.Dec()
	r.matches.WithLabelValues(outcome).Inc()
}

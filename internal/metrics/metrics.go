// Package metrics exposes the engine's Prometheus collectors. A single Set is
// created at startup and threaded into the runtime; tests pass nil-safe
// no-op sets by registering against a private registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Set bundles every collector the engine updates.
type Set struct {
	Registry *prometheus.Registry

	EventsTotal    *prometheus.CounterVec
	NodesTotal     *prometheus.CounterVec
	NodeErrors     *prometheus.CounterVec
	FlowsCompleted prometheus.Counter
	ActiveChannels prometheus.Gauge
	OutboundHTTP   *prometheus.HistogramVec
}

// New builds a Set backed by its own registry.
func New() *Set {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Set{
		Registry: reg,
		EventsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voxflow",
			Name:      "events_total",
			Help:      "Call events handled, by flow.",
		}, []string{"flow"}),
		NodesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voxflow",
			Name:      "nodes_executed_total",
			Help:      "Flow nodes executed, by node type.",
		}, []string{"type"}),
		NodeErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voxflow",
			Name:      "node_errors_total",
			Help:      "Node executions that ended in an error, by node type.",
		}, []string{"type"}),
		FlowsCompleted: f.NewCounter(prometheus.CounterOpts{
			Namespace: "voxflow",
			Name:      "flows_completed_total",
			Help:      "Flows that reached their end node.",
		}),
		ActiveChannels: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "voxflow",
			Name:      "active_channels",
			Help:      "Channels currently between start and end.",
		}),
		OutboundHTTP: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "voxflow",
			Name:      "outbound_http_seconds",
			Help:      "Latency of outbound HTTP requests issued by flow nodes.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
	}
}

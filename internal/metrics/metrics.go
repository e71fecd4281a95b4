// Package metrics exposes sync and publish counters on the default
// prometheus registry, which the server serves at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SyncLayers counts reconciled layers by outcome.
	SyncLayers = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "layersync",
		Name:      "sync_layers_total",
		Help:      "Layers processed by reconciliation, by status.",
	}, []string{"status"})

	// SyncDuration observes reconciliation run durations.
	SyncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "layersync",
		Name:      "sync_duration_seconds",
		Help:      "Duration of reconciliation runs.",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
	})

	// Publishes counts upload pipeline runs by result.
	Publishes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "layersync",
		Name:      "publish_total",
		Help:      "Upload pipeline runs, by result.",
	}, []string{"result"})

	// Cleanups counts compensating cleanups and cascading deletes.
	Cleanups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "layersync",
		Name:      "cleanup_total",
		Help:      "Remote cleanups, by kind.",
	}, []string{"kind"})
)

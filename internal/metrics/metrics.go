// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	Webhooks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "filtarr",
			Name:      "webhooks_total",
			Help:      "Webhook deliveries by source and outcome.",
		},
		[]string{"source", "result"},
	)

	Decisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "filtarr",
			Name:      "decisions_total",
			Help:      "Terminal reconcile decisions by source and action.",
		},
		[]string{"source", "action"},
	)

	ReconcileFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "filtarr",
			Name:      "reconcile_failures_total",
			Help:      "Reconciles abandoned after an upstream failure, by stage.",
		},
		[]string{"source", "stage"},
	)

	UpstreamLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "filtarr",
			Name:      "upstream_request_duration_seconds",
			Help:      "Latency of requests to qBittorrent, Radarr and Sonarr.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"client", "operation"},
	)

	QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "filtarr",
			Name:      "queue_depth",
			Help:      "Grabs waiting for the reconcile worker.",
		},
	)
)

var registerOnce sync.Once

// Register registers the filtarr collectors into the default registry.
// Calling it more than once is a no-op.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(Webhooks, Decisions, ReconcileFailures, UpstreamLatency, QueueDepth)
	})
}

// ObserveUpstream records the duration of an upstream call started at start.
func ObserveUpstream(client, operation string, start time.Time) {
	UpstreamLatency.WithLabelValues(client, operation).Observe(time.Since(start).Seconds())
}

// Package metrics exposes dispatch counters and latencies as Prometheus
// collectors. A trigger is a short-lived process, so collected values are
// pushed to a Pushgateway instead of being scraped.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Default histogram buckets for dispatch duration (in milliseconds)
var defaultBuckets = []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000}

// PrometheusMetrics wraps the dispatch collectors and their registry.
// All methods are safe on a nil receiver.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	dispatchesTotal  *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	payloadBytes     *prometheus.HistogramVec
}

// NewPrometheus creates the dispatch collectors under namespace.
func NewPrometheus(namespace string, buckets []float64) *PrometheusMetrics {
	if len(buckets) == 0 {
		buckets = defaultBuckets
	}

	pm := &PrometheusMetrics{
		registry: prometheus.NewRegistry(),

		dispatchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dispatches_total",
				Help:      "Total number of function dispatches by backend and outcome",
			},
			[]string{"backend", "status"},
		),

		dispatchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "dispatch_duration_milliseconds",
				Help:      "Duration of function dispatches in milliseconds",
				Buckets:   buckets,
			},
			[]string{"backend"},
		),

		payloadBytes: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "payload_bytes",
				Help:      "Size of serialized dispatch payloads",
				Buckets:   prometheus.ExponentialBuckets(256, 4, 8),
			},
			[]string{"backend"},
		),
	}

	pm.registry.MustRegister(pm.dispatchesTotal, pm.dispatchDuration, pm.payloadBytes)
	return pm
}

// RecordDispatch records one dispatch outcome. status is "success" or the
// failure's error kind.
func (pm *PrometheusMetrics) RecordDispatch(backend, status string, duration time.Duration) {
	if pm == nil {
		return
	}
	if backend == "" {
		backend = "unresolved"
	}
	pm.dispatchesTotal.WithLabelValues(backend, status).Inc()
	pm.dispatchDuration.WithLabelValues(backend).Observe(float64(duration.Milliseconds()))
}

// RecordPayloadSize records the serialized payload size sent to a backend.
func (pm *PrometheusMetrics) RecordPayloadSize(backend string, n int) {
	if pm == nil {
		return
	}
	pm.payloadBytes.WithLabelValues(backend).Observe(float64(n))
}

// Registry returns the underlying registry.
func (pm *PrometheusMetrics) Registry() *prometheus.Registry {
	if pm == nil {
		return nil
	}
	return pm.registry
}

// Push sends the collected metrics to a Pushgateway under job, replacing
// the job's previous group.
func (pm *PrometheusMetrics) Push(ctx context.Context, url, job string) error {
	if pm == nil || url == "" {
		return nil
	}
	if err := push.New(url, job).Gatherer(pm.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}

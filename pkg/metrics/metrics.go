// Package metrics exposes Prometheus metrics for query synthesis, retrieval
// and history persistence.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/papercomputeco/graphchat/pkg/history"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "graphchat"

// Collector holds all Prometheus metrics for the application. It satisfies
// cypher.Observer and worker.Observer.
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Query loop metrics
	SynthesisRounds   *prometheus.HistogramVec
	ExecutionAttempts prometheus.Histogram
	ExecutionNoResult prometheus.Counter

	// Retrieval metrics
	PipelineSelections *prometheus.CounterVec
	PipelineDuration   *prometheus.HistogramVec

	// History metrics
	TurnsPersisted       *prometheus.CounterVec
	HistoryAppendFailure *prometheus.CounterVec
}

// NewCollector creates a collector on its own registry, so separate
// instances never collide.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	loopBuckets := []float64{1, 2, 3, 4, 5}

	c := &Collector{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		SynthesisRounds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "cypher_synthesis_rounds",
				Help:      "Validation rounds used per query synthesis",
				Buckets:   loopBuckets,
			},
			[]string{"state"},
		),
		ExecutionAttempts: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "cypher_execution_attempts",
				Help:      "Execution attempts per query",
				Buckets:   loopBuckets,
			},
		),
		ExecutionNoResult: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cypher_execution_no_result_total",
				Help:      "Queries that still failed after every repair attempt",
			},
		),
		PipelineSelections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pipeline_selections_total",
				Help:      "Retrieval pipeline selections by the router",
			},
			[]string{"pipeline"},
		),
		PipelineDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "pipeline_duration_seconds",
				Help:      "Time to retrieve and compose an answer",
				Buckets:   prometheus.ExponentialBuckets(0.25, 2, 8),
			},
			[]string{"pipeline", "status"},
		),
		TurnsPersisted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "history_turns_persisted_total",
				Help:      "Conversation turns appended to history",
			},
			[]string{"source"},
		),
		HistoryAppendFailure: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "history_append_failures_total",
				Help:      "Conversation turns that could not be persisted",
			},
			[]string{"source"},
		),
	}

	c.registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.SynthesisRounds,
		c.ExecutionAttempts,
		c.ExecutionNoResult,
		c.PipelineSelections,
		c.PipelineDuration,
		c.TurnsPersisted,
		c.HistoryAppendFailure,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// RecordHTTPRequest records one HTTP request.
func (c *Collector) RecordHTTPRequest(method, route string, status int, d time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// SynthesisFinished implements cypher.Observer.
func (c *Collector) SynthesisFinished(rounds int, state string) {
	c.SynthesisRounds.WithLabelValues(state).Observe(float64(rounds))
}

// ExecutionFinished implements cypher.Observer.
func (c *Collector) ExecutionFinished(attempts int, found bool) {
	c.ExecutionAttempts.Observe(float64(attempts))
	if !found {
		c.ExecutionNoResult.Inc()
	}
}

// PipelineSelected counts a routing decision.
func (c *Collector) PipelineSelected(source history.Source) {
	c.PipelineSelections.WithLabelValues(string(source)).Inc()
}

// PipelineFinished records how long a pipeline run took.
func (c *Collector) PipelineFinished(source history.Source, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.PipelineDuration.WithLabelValues(string(source), status).Observe(d.Seconds())
}

// TurnPersisted implements worker.Observer.
func (c *Collector) TurnPersisted(source history.Source) {
	c.TurnsPersisted.WithLabelValues(string(source)).Inc()
}

// HistoryAppendFailed implements worker.Observer.
func (c *Collector) HistoryAppendFailed(source history.Source) {
	c.HistoryAppendFailure.WithLabelValues(string(source)).Inc()
}

// Mirage - Personalized Virtual Media Libraries
// Copyright 2026 Mirage contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/miragelib/mirage

// Package metrics provides Prometheus instrumentation for Mirage.
//
// Instrumented concerns:
//   - Generation runs (count, duration, per-target outcome)
//   - Candidate retrieval and sampling
//   - Filesystem reconciliation (artifacts created/deleted, write errors)
//   - Image downloads
//   - Media-server API circuit breaker
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Run metrics

	// RunsTotal counts completed generation runs by final status.
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mirage_runs_total",
			Help: "Total number of generation runs by status",
		},
		[]string{"status"}, // completed, failed, cancelled
	)

	// RunDuration observes end-to-end duration of one target's run.
	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mirage_run_duration_seconds",
			Help:    "Duration of one target generation run in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	// TargetsProcessed counts per-target outcomes within sweep runs.
	TargetsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mirage_targets_processed_total",
			Help: "Total number of per-target pipeline executions by outcome",
		},
		[]string{"outcome"}, // completed, failed, skipped
	)

	// Recommendation metrics

	// CandidatesRetrieved observes candidate pool sizes returned by the source.
	CandidatesRetrieved = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mirage_candidates_retrieved",
			Help:    "Number of candidates retrieved per pipeline run",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000},
		},
	)

	// VectorFallbacksTotal counts pipeline runs that used the popularity
	// fallback because no taste vector was available.
	VectorFallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mirage_vector_fallbacks_total",
			Help: "Total pipeline runs that fell back to popularity ranking",
		},
	)

	// Reconciliation metrics

	// ArtifactsCreated counts artifacts written to disk by kind.
	ArtifactsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mirage_artifacts_created_total",
			Help: "Total virtual library artifacts created by kind",
		},
		[]string{"kind"}, // pointer, sidecar, poster, backdrop, placeholder
	)

	// ArtifactsDeleted counts stale artifacts removed from disk.
	ArtifactsDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mirage_artifacts_deleted_total",
			Help: "Total stale virtual library artifacts deleted",
		},
	)

	// ArtifactErrors counts per-artifact write/delete/download failures.
	ArtifactErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mirage_artifact_errors_total",
			Help: "Total per-artifact failures by operation",
		},
		[]string{"operation"}, // write, delete, download
	)

	// ArtifactCacheHits counts writes skipped because the cached content hash
	// matched the planned artifact.
	ArtifactCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mirage_artifact_cache_hits_total",
			Help: "Total artifact writes skipped due to unchanged content hash",
		},
	)

	// ImageDownloads counts poster/backdrop downloads by result.
	ImageDownloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mirage_image_downloads_total",
			Help: "Total image downloads by result",
		},
		[]string{"result"}, // success, failure, cached
	)

	// Media-server provider metrics

	// ProviderRequests counts media-server API calls by result.
	ProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mirage_provider_requests_total",
			Help: "Total media-server API requests by result",
		},
		[]string{"result"}, // success, failure, rejected
	)

	// CircuitBreakerState tracks breaker state (0=closed, 1=half-open, 2=open).
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mirage_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// CircuitBreakerTransitions counts breaker state transitions.
	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mirage_circuit_breaker_transitions_total",
			Help: "Total circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// HTTP metrics

	// HTTPRequestsTotal counts ops API requests by method, path and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mirage_http_requests_total",
			Help: "Total HTTP requests by method, path and status",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes ops API request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mirage_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// HTTPActiveRequests tracks in-flight ops API requests.
	HTTPActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mirage_http_active_requests",
			Help: "Number of in-flight HTTP requests",
		},
	)

	// Database metrics

	// DBQueryDuration observes DuckDB query latency.
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mirage_db_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// DBQueryErrors counts DuckDB query failures.
	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mirage_db_query_errors_total",
			Help: "Total DuckDB query errors",
		},
		[]string{"operation"},
	)
)

// RecordAPIRequest records one completed HTTP request.
func RecordAPIRequest(method, path, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(start bool) {
	if start {
		HTTPActiveRequests.Inc()
		return
	}
	HTTPActiveRequests.Dec()
}

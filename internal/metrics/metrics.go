// MachineMate - Gym Machine Identification Backend
// Copyright 2026 MachineMate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/machinemate/machinemate

// Package metrics defines Prometheus metrics for the MachineMate backend.
// All metrics are registered with the default registry via promauto and
// exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, route pattern and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "machinemate_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration observes request latency by route pattern.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "machinemate_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// IdentifyRequestsTotal counts identification attempts by terminal outcome.
	// Outcomes: identified, unmapped, mocked, unavailable, no_result.
	IdentifyRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "machinemate_identify_requests_total",
			Help: "Total identification attempts by outcome",
		},
		[]string{"outcome", "variant"},
	)

	// IdentifyConfidence observes final confidence scores of identifications.
	IdentifyConfidence = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "machinemate_identify_confidence",
			Help:    "Distribution of final identification confidence scores",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.49, 0.6, 0.7, 0.8, 0.9, 0.95, 1.0},
		},
	)

	// VLMRequestsTotal counts upstream vision model calls by result.
	// Results: ok, client_error, server_error, transport_error, breaker_open.
	VLMRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "machinemate_vlm_requests_total",
			Help: "Total upstream vision model requests by result",
		},
		[]string{"result"},
	)

	// VLMRequestDuration observes upstream call latency.
	VLMRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "machinemate_vlm_request_duration_seconds",
			Help:    "Upstream vision model request latency in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		},
	)

	// CircuitBreakerState tracks breaker state (0 closed, 1 half-open, 2 open).
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "machinemate_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// TraceStoreEntries tracks the current number of stored traces.
	TraceStoreEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "machinemate_trace_store_entries",
			Help: "Current number of entries in the trace store",
		},
	)

	// DBQueryDuration observes DuckDB query latency by operation.
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "machinemate_db_query_duration_seconds",
			Help:    "Database query latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"operation"},
	)
)

// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Scan cycle metrics
	ScanCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concertwatch_scan_cycles_total",
			Help: "Total number of scan cycles by result",
		},
		[]string{"result"}, // "completed", "aborted"
	)

	ScanCycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "concertwatch_scan_cycle_duration_seconds",
			Help:    "Duration of scan cycles in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
	)

	ScanTicksSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "concertwatch_scan_ticks_skipped_total",
			Help: "Scan ticks skipped because a cycle was still running",
		},
	)

	ScanInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "concertwatch_scan_in_progress",
			Help: "1 while a scan cycle is running",
		},
	)

	ScanLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "concertwatch_scan_last_success_timestamp",
			Help: "Unix time of the last completed scan cycle",
		},
	)

	ArtistsScanned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concertwatch_artists_scanned_total",
			Help: "Artists processed by scan cycles",
		},
		[]string{"result"}, // "ok", "failed"
	)

	// Source metrics
	SourceRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concertwatch_source_requests_total",
			Help: "Event source lookups by source and result",
		},
		[]string{"source", "result"}, // result: "hit", "empty", "error", "skipped"
	)

	SourceRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "concertwatch_source_request_duration_seconds",
			Help:    "Event source lookup latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	SourceCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concertwatch_source_cache_total",
			Help: "Source response cache lookups",
		},
		[]string{"source", "result"}, // "hit", "miss", "error"
	)

	// Filter metrics
	RecordsDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concertwatch_records_dropped_total",
			Help: "Source records dropped during normalization",
		},
		[]string{"reason"}, // "country", "unparsable_date", "past", "beyond_horizon", "duplicate"
	)

	// Notification metrics
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concertwatch_notifications_total",
			Help: "Concert notifications by result",
		},
		[]string{"result"}, // "sent", "failed", "skipped_known", "skipped_before_activation"
	)

	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concertwatch_deliveries_total",
			Help: "Messages handed to a delivery channel",
		},
		[]string{"channel", "result"}, // result: "success", "failure"
	)

	DeliveryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "concertwatch_delivery_duration_seconds",
			Help:    "Delivery channel latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"channel"},
	)

	// Cleanup metrics
	CleanupRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concertwatch_cleanup_runs_total",
			Help: "Notification history cleanup runs by result",
		},
		[]string{"result"},
	)

	CleanupDeletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "concertwatch_cleanup_deleted_total",
			Help: "Notification records deleted by cleanup",
		},
	)

	// Database metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table", "error_type"},
	)

	// Event bus metrics
	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concertwatch_events_published_total",
			Help: "Events published on the in-process bus",
		},
		[]string{"topic", "result"},
	)

	// API metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)
)

// RecordScanCycle records the outcome of one scan cycle.
func RecordScanCycle(duration time.Duration, aborted bool) {
	ScanCycleDuration.Observe(duration.Seconds())
	if aborted {
		ScanCyclesTotal.WithLabelValues("aborted").Inc()
		return
	}
	ScanCyclesTotal.WithLabelValues("completed").Inc()
	ScanLastSuccess.Set(float64(time.Now().Unix()))
}

// RecordArtistScanned records one artist processed by a cycle.
func RecordArtistScanned(err error) {
	if err != nil {
		ArtistsScanned.WithLabelValues("failed").Inc()
		return
	}
	ArtistsScanned.WithLabelValues("ok").Inc()
}

// RecordSourceRequest records a source lookup. result is derived from the
// error and the number of records returned.
func RecordSourceRequest(source string, duration time.Duration, records int, err error) {
	SourceRequestDuration.WithLabelValues(source).Observe(duration.Seconds())
	switch {
	case err != nil:
		SourceRequestsTotal.WithLabelValues(source, "error").Inc()
	case records == 0:
		SourceRequestsTotal.WithLabelValues(source, "empty").Inc()
	default:
		SourceRequestsTotal.WithLabelValues(source, "hit").Inc()
	}
}

// RecordSourceSkipped records a source that was not consulted because a
// higher-priority source already answered.
func RecordSourceSkipped(source string) {
	SourceRequestsTotal.WithLabelValues(source, "skipped").Inc()
}

// RecordCacheLookup records a response cache lookup.
func RecordCacheLookup(source, result string) {
	SourceCacheTotal.WithLabelValues(source, result).Inc()
}

// RecordRecordDropped records a source record dropped by the filter.
func RecordRecordDropped(reason string) {
	RecordsDroppedTotal.WithLabelValues(reason).Inc()
}

// RecordNotification records notification outcomes.
func RecordNotification(result string, count int) {
	if count <= 0 {
		return
	}
	NotificationsTotal.WithLabelValues(result).Add(float64(count))
}

// RecordDelivery records a message handed to a delivery channel.
func RecordDelivery(channel string, duration time.Duration, success bool) {
	DeliveryDuration.WithLabelValues(channel).Observe(duration.Seconds())
	result := "success"
	if !success {
		result = "failure"
	}
	DeliveriesTotal.WithLabelValues(channel, result).Inc()
}

// RecordCleanup records a cleanup run.
func RecordCleanup(deleted int64, err error) {
	if deleted > 0 {
		CleanupDeletedTotal.Add(float64(deleted))
	}
	if err != nil {
		CleanupRunsTotal.WithLabelValues("error").Inc()
		return
	}
	CleanupRunsTotal.WithLabelValues("success").Inc()
}

// RecordDBQuery records a database query metric.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table, dbErrorType(err)).Inc()
	}
}

// dbErrorType keeps the error_type label bounded.
func dbErrorType(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	}
	msg := err.Error()
	if len(msg) > 50 {
		msg = msg[:50]
	}
	return msg
}

// RecordEventPublished records a publish on the event bus.
func RecordEventPublished(topic string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	EventsPublishedTotal.WithLabelValues(topic, result).Inc()
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

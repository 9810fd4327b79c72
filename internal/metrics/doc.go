// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

/*
Package metrics provides Prometheus metrics for the monitoring engine.

Collectors are registered on the default registry through promauto and are
exposed by the admin API at /metrics:

	curl http://localhost:8080/metrics

# Available Metrics

Scan cycles:
  - concertwatch_scan_cycles_total{result}
  - concertwatch_scan_cycle_duration_seconds
  - concertwatch_scan_ticks_skipped_total
  - concertwatch_scan_in_progress
  - concertwatch_artists_scanned_total{result}

Sources and filtering:
  - concertwatch_source_requests_total{source,result}
  - concertwatch_source_request_duration_seconds{source}
  - concertwatch_source_cache_total{source,result}
  - concertwatch_records_dropped_total{reason}

Notifications:
  - concertwatch_notifications_total{result}
  - concertwatch_deliveries_total{channel,result}
  - concertwatch_cleanup_deleted_total

Infrastructure:
  - duckdb_query_duration_seconds, duckdb_query_errors_total
  - api_requests_total, api_request_duration_seconds
  - circuit_breaker_* for the Ticketmaster client

# Usage

Components call the Record* helpers rather than touching collectors:

	start := time.Now()
	records, err := src.Fetch(ctx, artist)
	metrics.RecordSourceRequest(src.Name(), time.Since(start), len(records), err)
*/
package metrics

// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

/*
Package database is the DuckDB-backed repository for subscribers, tracked
artists and concert notification records.

The notification table carries a UNIQUE (subscriber_id, concert_key)
constraint. InsertNotification relies on it for insert-if-absent semantics,
which is what makes a scan cycle idempotent: re-running a cycle cannot send
the same concert twice to the same subscriber once a record exists.

Schema changes are applied through append-only versioned migrations tracked
in schema_migrations.

Every method applies a 30 second timeout when the caller's context has no
deadline, and records latency and errors through metrics.RecordDBQuery.
*/
package database

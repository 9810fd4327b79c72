// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

// Package dispatcher deduplicates concerts against the notification history
// and delivers the new ones to a subscriber.
//
// For each concert the dispatcher skips it when it is dated before the
// subscriber's activation day (UTC, day precision) or when a notification
// record already exists for (subscriber, concert key). The remaining
// concerts are sent in batches of at most the configured size. Records are
// inserted only after the notifier confirms a batch, using insert-if-absent
// semantics, so a repeat run never sends the same concert twice and a
// failed send is retried by the next scan cycle.
package dispatcher

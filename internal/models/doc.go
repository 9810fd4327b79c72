// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

// Package models defines the data types shared across ConcertWatch.
//
// Source records enter as RawEvent and are normalized by the filter into
// Concert before anything downstream sees them. Subscriber, TrackedArtist and
// NotificationRecord mirror the persisted tables. APIResponse and APIError
// form the admin API envelope.
package models

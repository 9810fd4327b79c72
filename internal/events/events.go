// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

// Package events is the in-process event bus.
//
// It wraps a Watermill GoChannel pub/sub. Producers publish JSON payloads on
// two topics:
//   - concert.notified: one per newly stored notification record
//   - scan.completed: one CycleReport per scan cycle
//
// Publishing never fails the caller's operation: errors are logged and
// counted. The Recorder keeps the most recent events for the admin API.
package events

import (
	"time"

	"github.com/goccy/go-json"
)

// Topics.
const (
	TopicConcertNotified = "concert.notified"
	TopicScanCompleted   = "scan.completed"
)

// Topics returns every topic the bus carries.
func Topics() []string {
	return []string{TopicConcertNotified, TopicScanCompleted}
}

// ConcertNotified is the payload of a concert.notified event.
type ConcertNotified struct {
	SubscriberID string    `json:"subscriber_id"`
	ConcertKey   string    `json:"concert_key"`
	Artist       string    `json:"artist"`
	Date         string    `json:"date"`
	SentAt       time.Time `json:"sent_at"`
}

// Event is one message as kept by the Recorder.
type Event struct {
	ID            string          `json:"id"`
	Topic         string          `json:"topic"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	ReceivedAt    time.Time       `json:"received_at"`
	Payload       json.RawMessage `json:"payload"`
}

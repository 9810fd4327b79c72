// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

package models

import (
	"time"
)

// Subscriber is a notification recipient. ID is the opaque chat handle used
// by the delivery channel (a Telegram chat ID for the Telegram channel).
// Concerts dated before ActivatedAt are never notified.
type Subscriber struct {
	ID          string    `json:"id"`
	Username    string    `json:"username,omitempty"`
	ActivatedAt time.Time `json:"activated_at"`
	CreatedAt   time.Time `json:"created_at"`
	Artists     []string  `json:"artists"`
}

// TrackedArtist links a subscriber to an artist name exactly as entered.
type TrackedArtist struct {
	SubscriberID string    `json:"subscriber_id"`
	Name         string    `json:"name"`
	AddedAt      time.Time `json:"added_at"`
}

// NotificationRecord marks a concert as already notified to a subscriber.
// At most one record exists per (SubscriberID, ConcertKey).
type NotificationRecord struct {
	ID           string    `json:"id"`
	SubscriberID string    `json:"subscriber_id"`
	ConcertKey   string    `json:"concert_key"`
	ArtistName   string    `json:"artist_name"`
	ConcertDate  time.Time `json:"concert_date"`
	SentAt       time.Time `json:"sent_at"`
}

// CycleReport summarizes one scan cycle.
type CycleReport struct {
	ID         string    `json:"id"`
	Trigger    string    `json:"trigger"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Artists    int       `json:"artists"`
	Failed     int       `json:"failed"`
	Concerts   int       `json:"concerts"`
	Notified   int       `json:"notified"`
	Aborted    bool      `json:"aborted"`
	Error      string    `json:"error,omitempty"`
}

// Duration returns how long the cycle ran.
func (r CycleReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

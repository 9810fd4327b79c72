// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/concertwatch/internal/events"
	"github.com/tomtom215/concertwatch/internal/matcher"
	"github.com/tomtom215/concertwatch/internal/models"
	"github.com/tomtom215/concertwatch/internal/reference"
	"github.com/tomtom215/concertwatch/internal/scheduler"
)

// Store is the persistence surface used by the handlers. It is satisfied
// by *database.DB.
type Store interface {
	Ping(ctx context.Context) error
	UpsertSubscriber(ctx context.Context, sub models.Subscriber) (*models.Subscriber, error)
	GetSubscriber(ctx context.Context, id string) (*models.Subscriber, error)
	ListSubscribers(ctx context.Context) ([]models.Subscriber, error)
	DeleteSubscriber(ctx context.Context, id string) error
	AddTrackedArtist(ctx context.Context, subscriberID, name string) (bool, error)
	RemoveTrackedArtist(ctx context.Context, subscriberID, name string) error
	ListNotifications(ctx context.Context, subscriberID string, limit int) ([]models.NotificationRecord, error)
	CountNotifications(ctx context.Context, subscriberID string) (int64, error)
	GetCurrentSchemaVersion(ctx context.Context) (int, error)
}

// ScanController is satisfied by *scheduler.Scheduler.
type ScanController interface {
	TriggerScan() error
	Status() scheduler.Status
}

// CycleReporter exposes the latest cycle report. Satisfied by
// *monitor.Monitor.
type CycleReporter interface {
	LastReport() (models.CycleReport, bool)
}

// Resolver is satisfied by *matcher.Matcher.
type Resolver interface {
	Resolve(rawName string) (matcher.MatchResult, bool)
}

// ConcertFinder previews the concerts a scan would find for one artist.
// Satisfied by *monitor.Monitor.
type ConcertFinder interface {
	Preview(ctx context.Context, rawName string) (models.ConcertPreview, error)
}

// EventLog is satisfied by *events.Recorder.
type EventLog interface {
	Recent(limit int) []events.Event
}

// Deps lists the handler dependencies. Only Store is required; endpoints
// whose dependency is missing answer 503.
type Deps struct {
	Store    Store
	Scans    ScanController
	Cycles   CycleReporter
	Finder   ConcertFinder
	Resolver Resolver
	Catalog  reference.Provider
	Events   EventLog
	// Stream serves the live event feed; *websocket.Hub satisfies it.
	Stream http.Handler
	// Settings is a non-secret summary of the effective configuration,
	// shown by the status endpoint.
	Settings map[string]interface{}
}

// Handler serves the admin API.
//
// Handler methods are split across files:
//   - handlers.go: Handler struct and constructor (this file)
//   - handlers_health.go: liveness and readiness probes
//   - handlers_engine.go: status, scan trigger, resolve, concert preview,
//     events, event stream
//   - handlers_subscribers.go: subscriber, artist and history endpoints
type Handler struct {
	store     Store
	scans     ScanController
	cycles    CycleReporter
	finder    ConcertFinder
	resolver  Resolver
	catalog   reference.Provider
	events    EventLog
	stream    http.Handler
	settings  map[string]interface{}
	startTime time.Time
}

// NewHandler creates a Handler.
func NewHandler(d Deps) *Handler {
	return &Handler{
		store:     d.Store,
		scans:     d.Scans,
		cycles:    d.Cycles,
		finder:    d.Finder,
		resolver:  d.Resolver,
		catalog:   d.Catalog,
		events:    d.Events,
		stream:    d.Stream,
		settings:  d.Settings,
		startTime: time.Now(),
	}
}

func (h *Handler) catalogVersion() string {
	if h.catalog == nil {
		return ""
	}
	if c := h.catalog.Snapshot(); c != nil {
		return c.Version()
	}
	return ""
}

// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/concertwatch/internal/events"
	"github.com/tomtom215/concertwatch/internal/logging"
	"github.com/tomtom215/concertwatch/internal/models"
	"github.com/tomtom215/concertwatch/internal/scheduler"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 1000
)

// StatusResponse is returned by GET /api/v1/status.
type StatusResponse struct {
	Scheduler      *scheduler.Status      `json:"scheduler,omitempty"`
	LastCycle      *models.CycleReport    `json:"last_cycle,omitempty"`
	CatalogVersion string                 `json:"catalog_version,omitempty"`
	SchemaVersion  int                    `json:"schema_version,omitempty"`
	LogLevel       string                 `json:"log_level"`
	UptimeSeconds  float64                `json:"uptime_seconds"`
	Settings       map[string]interface{} `json:"settings,omitempty"`
}

// ResolveRequest holds the query of GET /api/v1/artists/resolve.
type ResolveRequest struct {
	Name string `validate:"required,notblank_name,max=100"`
}

// Status reports scheduler state, the last cycle and the catalog and
// schema versions.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	resp := StatusResponse{
		CatalogVersion: h.catalogVersion(),
		LogLevel:       logging.GetLevel().String(),
		UptimeSeconds:  time.Since(h.startTime).Seconds(),
		Settings:       h.settings,
	}
	if v, err := h.store.GetCurrentSchemaVersion(r.Context()); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Failed to read schema version")
	} else {
		resp.SchemaVersion = v
	}
	if h.scans != nil {
		st := h.scans.Status()
		resp.Scheduler = &st
	}
	if h.cycles != nil {
		if report, ok := h.cycles.LastReport(); ok {
			resp.LastCycle = &report
		}
	}
	respondSuccess(w, http.StatusOK, resp, start)
}

// TriggerScan starts a cycle in the background: 202 when started, 409 when
// a cycle is already running.
func (h *Handler) TriggerScan(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if h.scans == nil {
		respondError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "Scheduler is not available", nil)
		return
	}

	err := h.scans.TriggerScan()
	switch {
	case err == nil:
		respondSuccess(w, http.StatusAccepted, map[string]interface{}{"triggered": true}, start)
	case errors.Is(err, scheduler.ErrScanInProgress):
		respondError(w, http.StatusConflict, ErrCodeConflict, "A scan is already in progress", nil)
	case errors.Is(err, scheduler.ErrNotRunning):
		respondError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "Scheduler is not running", nil)
	default:
		respondError(w, http.StatusInternalServerError, ErrCodeInternal, "Failed to trigger scan", err)
	}
}

// ResolveArtist maps ?name= to its canonical identity, or 404 on a miss.
func (h *Handler) ResolveArtist(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if h.resolver == nil {
		respondError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "Matcher is not available", nil)
		return
	}

	req := ResolveRequest{Name: r.URL.Query().Get("name")}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr, nil)
		return
	}

	result, ok := h.resolver.Resolve(req.Name)
	if !ok {
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "No matching artist", nil)
		return
	}
	respondSuccess(w, http.StatusOK, result, start)
}

// FindConcerts resolves the name query and returns the concerts a scan
// would find for it now. Nothing is sent or recorded.
func (h *Handler) FindConcerts(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if h.finder == nil {
		respondError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "Concert search is not available", nil)
		return
	}

	req := ResolveRequest{Name: r.URL.Query().Get("name")}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr, nil)
		return
	}

	preview, err := h.finder.Preview(r.Context(), req.Name)
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeInternal, "Concert search failed", err)
		return
	}
	respondSuccess(w, http.StatusOK, preview, start)
}

// Events lists recent bus events, newest first.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	list := []events.Event{}
	if h.events != nil {
		if recent := h.events.Recent(getIntParam(r, "limit", defaultEventLimit, maxEventLimit)); recent != nil {
			list = recent
		}
	}
	respondSuccess(w, http.StatusOK, list, start)
}

// EventStream upgrades to a WebSocket carrying bus events as they happen.
func (h *Handler) EventStream(w http.ResponseWriter, r *http.Request) {
	if h.stream == nil {
		respondError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "Event stream is not available", nil)
		return
	}
	h.stream.ServeHTTP(w, r)
}

// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/concertwatch/internal/models"
)

// readyTimeout bounds the readiness database ping.
const readyTimeout = 2 * time.Second

// HealthLive answers liveness probes. It never touches dependencies.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, models.HealthStatus{Status: "ok"}, time.Now())
}

// HealthReady answers readiness probes: 200 when the database answers a
// ping, 503 otherwise.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	health := models.HealthStatus{
		Status:         "ready",
		Database:       "ok",
		CatalogVersion: h.catalogVersion(),
	}

	if h.store == nil {
		health.Status, health.Database = "not_ready", "unconfigured"
	} else if err := h.store.Ping(ctx); err != nil {
		health.Status, health.Database = "not_ready", "unreachable"
	}

	if health.Status != "ready" {
		respondJSON(w, http.StatusServiceUnavailable, &models.APIResponse{
			Status: "error",
			Data:   health,
			Metadata: models.Metadata{
				Timestamp:   time.Now(),
				QueryTimeMS: time.Since(start).Milliseconds(),
			},
			Error: &models.APIError{Code: ErrCodeUnavailable, Message: "Database is not reachable"},
		})
		return
	}
	respondSuccess(w, http.StatusOK, health, start)
}

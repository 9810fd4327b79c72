// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

package api

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/concertwatch/internal/database"
	"github.com/tomtom215/concertwatch/internal/models"
)

const (
	defaultNotificationLimit = 100
	maxNotificationLimit     = 1000
)

// UpsertSubscriberRequest is the body of POST /api/v1/subscribers.
type UpsertSubscriberRequest struct {
	ID       string `json:"id" validate:"required,notblank_name,max=64"`
	Username string `json:"username" validate:"omitempty,max=64"`
}

// AddArtistRequest is the body of POST /api/v1/subscribers/{id}/artists.
type AddArtistRequest struct {
	Name string `json:"name" validate:"required,notblank_name,min=1,max=100"`
}

// NotificationHistory is returned by the notifications endpoint.
type NotificationHistory struct {
	Total         int64                       `json:"total"`
	Notifications []models.NotificationRecord `json:"notifications"`
}

// ListSubscribers returns every subscriber with tracked artists.
func (h *Handler) ListSubscribers(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	subs, err := h.store.ListSubscribers(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeInternal, "Failed to list subscribers", err)
		return
	}
	if subs == nil {
		subs = []models.Subscriber{}
	}
	respondSuccess(w, http.StatusOK, subs, start)
}

// UpsertSubscriber creates a subscriber or updates its username. An existing
// subscriber keeps its activation time.
func (h *Handler) UpsertSubscriber(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req UpsertSubscriberRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	sub, err := h.store.UpsertSubscriber(r.Context(), models.Subscriber{
		ID:       strings.TrimSpace(req.ID),
		Username: strings.TrimSpace(req.Username),
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeInternal, "Failed to save subscriber", err)
		return
	}
	respondSuccess(w, http.StatusOK, sub, start)
}

// GetSubscriber returns one subscriber with tracked artists.
func (h *Handler) GetSubscriber(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	sub, err := h.store.GetSubscriber(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(w, err, "Subscriber not found", "Failed to load subscriber")
		return
	}
	respondSuccess(w, http.StatusOK, sub, start)
}

// DeleteSubscriber removes a subscriber with its artists and history.
func (h *Handler) DeleteSubscriber(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := chi.URLParam(r, "id")
	if err := h.store.DeleteSubscriber(r.Context(), id); err != nil {
		respondStoreError(w, err, "Subscriber not found", "Failed to delete subscriber")
		return
	}
	respondSuccess(w, http.StatusOK, map[string]interface{}{"deleted": id}, start)
}

// AddArtist starts tracking an artist: 201 when added, 409 when the
// subscriber already tracks it.
func (h *Handler) AddArtist(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := chi.URLParam(r, "id")
	var req AddArtistRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	name := strings.TrimSpace(req.Name)
	added, err := h.store.AddTrackedArtist(r.Context(), id, name)
	if err != nil {
		respondStoreError(w, err, "Subscriber not found", "Failed to add artist")
		return
	}
	if !added {
		respondError(w, http.StatusConflict, ErrCodeConflict, "Artist is already tracked", nil)
		return
	}

	data := map[string]interface{}{"subscriber_id": id, "name": name}
	if h.resolver != nil {
		if res, ok := h.resolver.Resolve(name); ok {
			data["canonical"] = res.Identity.Canonical
		}
	}
	respondSuccess(w, http.StatusCreated, data, start)
}

// RemoveArtist stops tracking an artist. The name is matched after
// normalization.
func (h *Handler) RemoveArtist(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := chi.URLParam(r, "id")
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil || strings.TrimSpace(name) == "" {
		respondError(w, http.StatusBadRequest, ErrCodeValidation, "Invalid artist name", nil)
		return
	}

	if err := h.store.RemoveTrackedArtist(r.Context(), id, name); err != nil {
		respondStoreError(w, err, "Artist is not tracked", "Failed to remove artist")
		return
	}
	respondSuccess(w, http.StatusOK, map[string]interface{}{"subscriber_id": id, "removed": name}, start)
}

// Notifications returns a subscriber's notification history, newest first.
func (h *Handler) Notifications(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	if _, err := h.store.GetSubscriber(ctx, id); err != nil {
		respondStoreError(w, err, "Subscriber not found", "Failed to load subscriber")
		return
	}

	records, err := h.store.ListNotifications(ctx, id, getIntParam(r, "limit", defaultNotificationLimit, maxNotificationLimit))
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeInternal, "Failed to list notifications", err)
		return
	}
	total, err := h.store.CountNotifications(ctx, id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeInternal, "Failed to count notifications", err)
		return
	}
	if records == nil {
		records = []models.NotificationRecord{}
	}
	respondSuccess(w, http.StatusOK, NotificationHistory{Total: total, Notifications: records}, start)
}

// respondStoreError maps database.ErrNotFound to 404 and anything else to 500.
func respondStoreError(w http.ResponseWriter, err error, notFoundMsg, internalMsg string) {
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, http.StatusNotFound, ErrCodeNotFound, notFoundMsg, nil)
		return
	}
	respondError(w, http.StatusInternalServerError, ErrCodeInternal, internalMsg, err)
}

// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Router builds the HTTP routing tree.
type Router struct {
	handler *Handler
	config  *MiddlewareConfig
	logger  zerolog.Logger
}

// NewRouter creates a Router. A nil config uses DefaultMiddlewareConfig.
func NewRouter(handler *Handler, cfg *MiddlewareConfig, logger *zerolog.Logger) *Router {
	if cfg == nil {
		cfg = DefaultMiddlewareConfig()
	}
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "api").Logger()
	}
	return &Router{handler: handler, config: cfg, logger: l}
}

// SetupChi configures all routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// Applied to all routes in order
	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(RequestLogger(router.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(PrometheusMetrics)
	r.Use(CORS(router.config)) // global so OPTIONS preflight is answered

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(RateLimitByIP(router.config))
		r.Use(APISecurityHeaders())
		r.Use(BearerAuth(router.config.AdminToken))

		r.Get("/status", router.handler.Status)
		r.Post("/scan", router.handler.TriggerScan)
		r.Get("/artists/resolve", router.handler.ResolveArtist)
		r.Get("/artists/concerts", router.handler.FindConcerts)
		r.Get("/events", router.handler.Events)
		r.Get("/events/stream", router.handler.EventStream)

		r.Route("/subscribers", func(r chi.Router) {
			r.Get("/", router.handler.ListSubscribers)
			r.Post("/", router.handler.UpsertSubscriber)

			r.Get("/{id}", router.handler.GetSubscriber)
			r.Delete("/{id}", router.handler.DeleteSubscriber)
			r.Post("/{id}/artists", router.handler.AddArtist)
			r.Delete("/{id}/artists/{name}", router.handler.RemoveArtist)
			r.Get("/{id}/notifications", router.handler.Notifications)
		})
	})

	return r
}

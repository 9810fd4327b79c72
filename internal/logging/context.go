// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	correlationIDKey contextKey = "correlation_id"
	cycleIDKey       contextKey = "cycle_id"
	artistKey        contextKey = "artist"
)

// GenerateCorrelationID creates a short correlation ID (first 8 characters
// of a UUID).
func GenerateCorrelationID() string {
	return uuid.New().String()[:8]
}

// ContextWithCorrelationID returns a new context carrying id.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// ContextWithNewCorrelationID returns a context with a newly generated correlation ID.
func ContextWithNewCorrelationID(ctx context.Context) context.Context {
	return ContextWithCorrelationID(ctx, GenerateCorrelationID())
}

// CorrelationIDFromContext returns the correlation ID, or "" when absent.
func CorrelationIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithCycleID tags ctx with the scan cycle it belongs to.
func ContextWithCycleID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, cycleIDKey, id)
}

// CycleIDFromContext returns the scan cycle ID, or "" when absent.
func CycleIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(cycleIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithArtist tags ctx with the artist currently being processed.
func ContextWithArtist(ctx context.Context, artist string) context.Context {
	return context.WithValue(ctx, artistKey, artist)
}

// ArtistFromContext returns the artist tag, or "" when absent.
func ArtistFromContext(ctx context.Context) string {
	if a, ok := ctx.Value(artistKey).(string); ok {
		return a
	}
	return ""
}

// Ctx returns the global logger with the context values (correlation_id,
// cycle_id, artist) attached.
//
//	logging.Ctx(ctx).Warn().Msg("Access denied")
func Ctx(ctx context.Context) *zerolog.Logger {
	logger := decorate(ctx, Logger()).Logger()
	return &logger
}

// For returns base with the context values attached. Components that own a
// logger use it instead of Ctx to keep their component field.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func For(ctx context.Context, base zerolog.Logger) *zerolog.Logger {
	logger := decorate(ctx, base).Logger()
	return &logger
}

//nolint:gocritic // zerolog.Logger is designed to be passed by value
func decorate(ctx context.Context, logger zerolog.Logger) zerolog.Context {
	logCtx := logger.With()

	if id := CorrelationIDFromContext(ctx); id != "" {
		logCtx = logCtx.Str("correlation_id", id)
	}
	if id := CycleIDFromContext(ctx); id != "" {
		logCtx = logCtx.Str("cycle_id", id)
	}
	if a := ArtistFromContext(ctx); a != "" {
		logCtx = logCtx.Str("artist", a)
	}
	return logCtx
}

// WithComponent creates a child of the global logger with a component field.
func WithComponent(component string) zerolog.Logger {
	return With().Str("component", component).Logger()
}

// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

// Package logging provides centralized zerolog-based structured logging for ConcertWatch.
//
// The package exposes a global logger configured once from main, context helpers
// that carry a correlation ID, the scan cycle ID and the artist being processed,
// and an slog adapter used by the supervisor tree and the event bus.
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//
//	logging.Info().Str("artist", "Metallica").Msg("Scanning artist")
//	logging.Err(err).Msg("Cleanup failed")
//
//	ctx = logging.ContextWithCycleID(ctx, cycleID)
//	logging.For(ctx, logger).Info().Int("notified", n).Msg("Cycle complete")
//
// # Configuration
//
// Environment Variables:
//
//	LOG_LEVEL   - Minimum log level: trace, debug, info, warn, error (default: info)
//	LOG_FORMAT  - Output format: json, console (default: json)
//	LOG_CALLER  - Include caller file:line: true, false (default: false)
//
// Always terminate log chains with .Msg() or .Send(), and prefer structured
// fields over Msgf.
//
// # Thread Safety
//
// All exported functions are safe for concurrent use. The global logger is
// protected by a sync.RWMutex.
package logging

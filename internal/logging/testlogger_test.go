// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

package logging

import (
	"io"

	"github.com/rs/zerolog"
)

// newTestLogger creates a logger that writes JSON to w.
func newTestLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}

// captureGlobal points the global logger at w until the test resets it.
func captureGlobal(w io.Writer) {
	Init(Config{Level: "trace", Format: "json", Output: w})
}

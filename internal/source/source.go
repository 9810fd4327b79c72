// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/concertwatch/internal/models"
)

// Query describes one artist lookup.
type Query struct {
	// Artist is the canonical name when Canonical is true, otherwise the
	// subscriber's raw spelling.
	Artist    string
	Canonical bool
	// Country is the ISO alpha-2 target country.
	Country string
	// From and To bound the search, both inclusive at day precision.
	From time.Time
	To   time.Time
}

// Source produces raw event records for an artist. Returning no records is
// not an error.
type Source interface {
	Name() string
	Fetch(ctx context.Context, q Query) ([]models.RawEvent, error)
}

// Sentinel causes carried by TransportError.
var (
	ErrRateLimited   = errors.New("rate limited")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrCircuitOpen   = errors.New("circuit breaker open")
	ErrUpstream      = errors.New("upstream error")
	ErrSourcePanic   = errors.New("source panicked")
	ErrUnknownSource = errors.New("unknown source")
)

// TransportError is a failure talking to an external source. The adapter
// logs it and moves to the next source.
type TransportError struct {
	Source     string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Source, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func transportError(source string, status int, err error) *TransportError {
	return &TransportError{Source: source, StatusCode: status, Err: err}
}

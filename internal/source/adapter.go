// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

package source

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/concertwatch/internal/logging"
	"github.com/tomtom215/concertwatch/internal/metrics"
	"github.com/tomtom215/concertwatch/internal/models"
)

// Adapter queries sources in priority order and returns the records of the
// first one that has any. Source failures never reach the caller.
type Adapter struct {
	sources []Source
	logger  zerolog.Logger
}

// NewAdapter creates an Adapter over sources, highest priority first.
func NewAdapter(logger *zerolog.Logger, sources ...Source) *Adapter {
	a := &Adapter{sources: sources, logger: zerolog.Nop()}
	if logger != nil {
		a.logger = logger.With().Str("component", "source_adapter").Logger()
	}
	return a
}

// Select orders the named sources from all. Unknown names are an error.
func Select(order []string, all ...Source) ([]Source, error) {
	byName := make(map[string]Source, len(all))
	for _, s := range all {
		byName[s.Name()] = s
	}
	out := make([]Source, 0, len(order))
	for _, name := range order {
		s, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownSource, name)
		}
		out = append(out, s)
	}
	return out, nil
}

// Names returns the source names in priority order.
func (a *Adapter) Names() []string {
	names := make([]string, len(a.sources))
	for i, s := range a.sources {
		names[i] = s.Name()
	}
	return names
}

// Fetch returns the records of the first source with at least one record.
// Later sources are not queried once one answers. Errors and panics inside a
// source count as zero records. Fetch stops early when ctx is done.
func (a *Adapter) Fetch(ctx context.Context, q Query) []models.RawEvent {
	log := a.logger.With().Str("artist", q.Artist).Logger()
	if cid := logging.CorrelationIDFromContext(ctx); cid != "" {
		log = log.With().Str("correlation_id", cid).Logger()
	}

	for i, s := range a.sources {
		if ctx.Err() != nil {
			log.Debug().Err(ctx.Err()).Msg("Source lookup interrupted")
			return nil
		}

		start := time.Now()
		records, err := a.fetchOne(ctx, s, q)
		metrics.RecordSourceRequest(s.Name(), time.Since(start), len(records), err)

		if err != nil {
			log.Warn().Err(err).Str("source", s.Name()).Msg("Source lookup failed, trying next source")
			continue
		}
		if len(records) == 0 {
			log.Debug().Str("source", s.Name()).Msg("Source returned no records")
			continue
		}

		for _, skipped := range a.sources[i+1:] {
			metrics.RecordSourceSkipped(skipped.Name())
		}
		log.Debug().Str("source", s.Name()).Int("records", len(records)).Msg("Source answered")
		return records
	}
	return nil
}

func (a *Adapter) fetchOne(ctx context.Context, s Source, q Query) (records []models.RawEvent, err error) {
	defer func() {
		if r := recover(); r != nil {
			records = nil
			err = transportError(s.Name(), 0, fmt.Errorf("%w: %v", ErrSourcePanic, r))
		}
	}()
	return s.Fetch(ctx, q)
}

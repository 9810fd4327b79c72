// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

// Package filter turns heterogeneous source records into the strict
// Concert type: country and date-window filtering, city canonicalization,
// concert keys, de-duplication and ordering.
package filter

import (
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/concertwatch/internal/matcher"
	"github.com/tomtom215/concertwatch/internal/metrics"
	"github.com/tomtom215/concertwatch/internal/models"
)

// Drop reasons reported in concertwatch_records_dropped_total.
const (
	DropCountry        = "country"
	DropUnparsableDate = "unparsable_date"
	DropPast           = "past"
	DropBeyondHorizon  = "beyond_horizon"
	DropDuplicate      = "duplicate"
)

// UnknownCity is used when a record carries no city.
const UnknownCity = "TBA"

// Window selects the concerts worth notifying.
type Window struct {
	// Country is the ISO alpha-2 target country.
	Country string
	// Reference is "today". Only its calendar day is used.
	Reference time.Time
	// HorizonMonths is how far past Reference concerts are kept.
	HorizonMonths int
}

// Bounds returns the first and last day of the window, both inclusive.
func (w Window) Bounds() (from, to time.Time) {
	from = Day(w.Reference)
	return from, from.AddDate(0, w.HorizonMonths, 0)
}

// Filter normalizes records. The zero value is usable and logs nothing.
type Filter struct {
	logger zerolog.Logger
}

// New creates a Filter that logs dropped records at debug level.
func New(logger *zerolog.Logger) *Filter {
	f := &Filter{logger: zerolog.Nop()}
	if logger != nil {
		f.logger = logger.With().Str("component", "filter").Logger()
	}
	return f
}

// Normalize converts records for artist into concerts inside w. artist is
// the name used for keys and display, usually the canonical name. Records
// that collapse to the same key keep the first occurrence. The result is
// ordered by date, city, then venue.
func (f *Filter) Normalize(artist string, records []models.RawEvent, w Window) []models.Concert {
	from, to := w.Bounds()
	seen := make(map[string]bool, len(records))
	out := make([]models.Concert, 0, len(records))

	for _, r := range records {
		if !SameCountry(r.Country, w.Country) {
			f.drop(DropCountry, artist, r)
			continue
		}

		date, err := ParseDate(r.Date)
		if err != nil {
			f.drop(DropUnparsableDate, artist, r)
			continue
		}
		if date.Before(from) {
			f.drop(DropPast, artist, r)
			continue
		}
		if date.After(to) {
			f.drop(DropBeyondHorizon, artist, r)
			continue
		}

		city := CanonicalCity(r.City)
		if city == "" {
			city = UnknownCity
		}

		key := ConcertKey(artist, date, city)
		if seen[key] {
			f.drop(DropDuplicate, artist, r)
			continue
		}
		seen[key] = true

		out = append(out, models.Concert{
			Key:         key,
			Artist:      artist,
			Name:        strings.TrimSpace(r.Name),
			Venue:       strings.TrimSpace(r.Venue),
			City:        city,
			CountryCode: strings.ToUpper(strings.TrimSpace(w.Country)),
			Date:        date,
			Source:      r.Source,
			URL:         strings.TrimSpace(r.URL),
			SupportActs: append([]string(nil), r.SupportActs...),
			TicketInfo:  strings.TrimSpace(r.TicketInfo),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.City != b.City {
			return a.City < b.City
		}
		return a.Venue < b.Venue
	})
	return out
}

func (f *Filter) drop(reason, artist string, r models.RawEvent) {
	metrics.RecordRecordDropped(reason)
	f.logger.Debug().
		Str("reason", reason).
		Str("artist", artist).
		Str("source", r.Source).
		Str("date", r.Date).
		Str("city", r.City).
		Str("country", r.Country).
		Msg("Dropped source record")
}

// ConcertKey identifies a concert independently of source, venue and casing:
// slug(artist)_YYYY-MM-DD_slug(canonical city).
func ConcertKey(artist string, date time.Time, city string) string {
	return matcher.Slug(artist) + "_" + Day(date).Format(models.DateLayout) + "_" + matcher.Slug(CanonicalCity(city))
}

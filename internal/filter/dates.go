// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

package filter

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnparsableDate is returned when no known layout matches a date string.
var ErrUnparsableDate = errors.New("unparsable date")

// dateLayouts are tried in order. Day-first numeric layouts come before
// month-first ones; the sources this engine reads are European.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2-1-2006",
	"02.01.2006",
	"2.1.2006",
	"2006/01/02",
	"January 2, 2006",
	"January 2 2006",
	"2 January 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"2 Jan 2006",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

var italianMonths = strings.NewReplacer(
	"gennaio", "January",
	"febbraio", "February",
	"marzo", "March",
	"aprile", "April",
	"maggio", "May",
	"giugno", "June",
	"luglio", "July",
	"agosto", "August",
	"settembre", "September",
	"ottobre", "October",
	"novembre", "November",
	"dicembre", "December",
)

// ParseDate parses s with the supported layouts and returns the calendar day
// as a UTC midnight. Time-of-day and zone information is discarded.
func ParseDate(s string) (time.Time, error) {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrUnparsableDate)
	}

	candidates := []string{s}
	if translated := italianMonths.Replace(strings.ToLower(s)); translated != strings.ToLower(s) {
		candidates = append(candidates, translated)
	}

	for _, c := range candidates {
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, titleMonth(c)); err == nil {
				return Day(t), nil
			}
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrUnparsableDate, s)
}

// Day truncates t to its calendar day at UTC midnight, keeping the
// year/month/day as seen in t's own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// titleMonth upper-cases the first letter of alphabetic words so that
// "3 june 2026" parses with the "2 January 2006" layout.
func titleMonth(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if w != "" && w[0] >= 'a' && w[0] <= 'z' {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// maxSearchYears bounds Next for expressions that can never fire, such as
// "0 0 31 2 *".
const maxSearchYears = 5

// Schedule is a parsed 5-field cron expression:
// minute hour day-of-month month day-of-week.
//
// Supported syntax per field: * n n-m n,m */s n-m/s n/s.
// Day-of-week accepts 0-7 where both 0 and 7 mean Sunday.
type Schedule struct {
	expr    string
	minute  uint64
	hour    uint64
	dom     uint64
	month   uint64
	dow     uint64
	domStar bool
	dowStar bool
}

// ParseSchedule parses expr.
//
// Examples:
//   - "0 3 * * *" - daily at 03:00
//   - "30 2 * * 1" - Mondays at 02:30
//   - "*/15 * * * *" - every 15 minutes
func ParseSchedule(expr string) (*Schedule, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return nil, fmt.Errorf("cron expression must have 5 fields, got %d", len(fields))
	}

	s := &Schedule{
		expr:    strings.Join(fields, " "),
		domStar: strings.HasPrefix(fields[2], "*"),
		dowStar: strings.HasPrefix(fields[4], "*"),
	}

	specs := []struct {
		name     string
		dst      *uint64
		min, max int
	}{
		{"minute", &s.minute, 0, 59},
		{"hour", &s.hour, 0, 23},
		{"day-of-month", &s.dom, 1, 31},
		{"month", &s.month, 1, 12},
		{"day-of-week", &s.dow, 0, 7},
	}
	for i, spec := range specs {
		bits, err := parseField(fields[i], spec.min, spec.max)
		if err != nil {
			return nil, fmt.Errorf("invalid %s field %q: %w", spec.name, fields[i], err)
		}
		*spec.dst = bits
	}

	if s.dow&(1<<7) != 0 {
		s.dow = s.dow&^(1<<7) | 1
	}
	return s, nil
}

// String returns the normalized expression.
func (s *Schedule) String() string {
	return s.expr
}

// Next returns the first matching minute strictly after after, evaluated in
// loc (UTC when nil). It returns the zero time when nothing matches within
// a few years.
func (s *Schedule) Next(after time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t := after.In(loc).Truncate(time.Minute).Add(time.Minute)
	limit := t.AddDate(maxSearchYears, 0, 0)

	for t.Before(limit) {
		if !has(s.month, int(t.Month())) {
			t = time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, loc)
			continue
		}
		if !s.dayMatches(t) {
			t = time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, loc)
			continue
		}
		if !has(s.hour, t.Hour()) {
			t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour()+1, 0, 0, 0, loc)
			continue
		}
		if !has(s.minute, t.Minute()) {
			t = t.Add(time.Minute)
			continue
		}
		return t
	}
	return time.Time{}
}

// dayMatches applies the usual cron rule: when both day fields are
// restricted, either may match.
func (s *Schedule) dayMatches(t time.Time) bool {
	domOK := has(s.dom, t.Day())
	dowOK := has(s.dow, int(t.Weekday()))
	switch {
	case s.domStar && s.dowStar:
		return true
	case s.domStar:
		return dowOK
	case s.dowStar:
		return domOK
	default:
		return domOK || dowOK
	}
}

func has(bits uint64, v int) bool {
	return bits&(1<<uint(v)) != 0
}

// parseField returns a bitmask with bit v set for every value the field
// selects.
func parseField(field string, minVal, maxVal int) (uint64, error) {
	var bits uint64
	for _, part := range strings.Split(field, ",") {
		if part == "" {
			return 0, fmt.Errorf("empty list element")
		}
		lo, hi, step, err := parseRange(part, minVal, maxVal)
		if err != nil {
			return 0, err
		}
		for v := lo; v <= hi; v += step {
			bits |= 1 << uint(v)
		}
	}
	return bits, nil
}

func parseRange(part string, minVal, maxVal int) (lo, hi, step int, err error) {
	step = 1
	base := part
	if i := strings.IndexByte(part, '/'); i >= 0 {
		base = part[:i]
		step, err = strconv.Atoi(part[i+1:])
		if err != nil || step <= 0 {
			return 0, 0, 0, fmt.Errorf("invalid step %q", part[i+1:])
		}
	}

	switch {
	case base == "*":
		lo, hi = minVal, maxVal
	case strings.Contains(base, "-"):
		bounds := strings.SplitN(base, "-", 2)
		if lo, err = strconv.Atoi(bounds[0]); err != nil {
			return 0, 0, 0, fmt.Errorf("invalid range start %q", bounds[0])
		}
		if hi, err = strconv.Atoi(bounds[1]); err != nil {
			return 0, 0, 0, fmt.Errorf("invalid range end %q", bounds[1])
		}
	default:
		if lo, err = strconv.Atoi(base); err != nil {
			return 0, 0, 0, fmt.Errorf("invalid value %q", base)
		}
		hi = lo
		if step > 1 {
			hi = maxVal
		}
	}

	if lo < minVal || hi > maxVal || lo > hi {
		return 0, 0, 0, fmt.Errorf("range %d-%d outside %d-%d", lo, hi, minVal, maxVal)
	}
	return lo, hi, step, nil
}

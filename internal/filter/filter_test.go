// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

package filter

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/tomtom215/concertwatch/internal/metrics"
	"github.com/tomtom215/concertwatch/internal/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testWindow() Window {
	return Window{Country: "IT", Reference: time.Date(2026, 5, 1, 17, 30, 0, 0, time.UTC), HorizonMonths: 6}
}

func TestParseDate(t *testing.T) {
	want := date(2026, 6, 3)
	inputs := []string{
		"2026-06-03",
		"03/06/2026",
		"3/6/2026",
		"03-06-2026",
		"03.06.2026",
		"2026/06/03",
		"June 3, 2026",
		"3 June 2026",
		"Jun 3, 2026",
		"3 Jun 2026",
		"3 june 2026",
		"3 giugno 2026",
		"2026-06-03T21:00:00+02:00",
		"2026-06-03T21:00:00",
		"  2026-06-03 ",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			got, err := ParseDate(in)
			if err != nil {
				t.Fatalf("ParseDate(%q) error = %v", in, err)
			}
			if !got.Equal(want) {
				t.Errorf("ParseDate(%q) = %v, want %v", in, got, want)
			}
		})
	}

	for _, bad := range []string{"", "TBA", "next summer", "2026-13-45"} {
		if _, err := ParseDate(bad); !errors.Is(err, ErrUnparsableDate) {
			t.Errorf("ParseDate(%q) error = %v, want ErrUnparsableDate", bad, err)
		}
	}
}

func TestCountryCode(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"IT", "IT"},
		{"it", "IT"},
		{"Italy", "IT"},
		{"ITALIA", "IT"},
		{"United States", "US"},
		{"USA", "US"},
		{"UK", "GB"},
		{"Deutschland", "DE"},
		{"España", "ES"},
		{"Atlantis", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := CountryCode(tt.in); got != tt.want {
			t.Errorf("CountryCode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCanonicalCity(t *testing.T) {
	tests := map[string]string{
		"Milan":            "Milano",
		"ROME":             "Roma",
		"florence":         "Firenze",
		"Bologna":          "Bologna",
		" Reggio  Emilia ": "Reggio Emilia",
	}
	for in, want := range tests {
		if got := CanonicalCity(in); got != want {
			t.Errorf("CanonicalCity(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestConcertKey(t *testing.T) {
	d := date(2026, 6, 3)
	key := ConcertKey("Metallica", d, "Bologna")
	if key != "metallica_2026-06-03_bologna" {
		t.Errorf("ConcertKey() = %q", key)
	}
	if ConcertKey("METALLICA", d.Add(20*time.Hour), "bologna") != key {
		t.Error("key should ignore casing and time of day")
	}
	if ConcertKey("Linkin Park", date(2026, 6, 24), "Milan") != "linkin-park_2026-06-24_milano" {
		t.Errorf("exonym not canonicalized: %q", ConcertKey("Linkin Park", date(2026, 6, 24), "Milan"))
	}
}

func TestNormalize_Window(t *testing.T) {
	f := New(nil)
	w := testWindow()

	tests := []struct {
		name string
		date string
		keep bool
	}{
		{"reference day kept", "2026-05-01", true},
		{"day before dropped", "2026-04-30", false},
		{"horizon day kept", "2026-11-01", true},
		{"day after horizon dropped", "2026-11-02", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := f.Normalize("Muse", []models.RawEvent{{Date: tt.date, City: "Roma", Country: "IT"}}, w)
			if (len(got) == 1) != tt.keep {
				t.Errorf("kept = %v, want %v", len(got) == 1, tt.keep)
			}
		})
	}
}

func TestNormalize_Country(t *testing.T) {
	f := New(nil)
	records := []models.RawEvent{
		{Date: "2026-06-01", City: "New York", Country: "US"},
		{Date: "2026-06-02", City: "Roma", Country: "Italy"},
		{Date: "2026-06-03", City: "Torino", Country: "it"},
		{Date: "2026-06-04", City: "Nowhere", Country: ""},
	}

	dropped := metrics.RecordsDroppedTotal.WithLabelValues(DropCountry)
	before := testutil.ToFloat64(dropped)

	got := f.Normalize("Muse", records, testWindow())
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2: %+v", len(got), got)
	}
	for _, c := range got {
		if c.CountryCode != "IT" {
			t.Errorf("CountryCode = %q", c.CountryCode)
		}
	}
	if delta := testutil.ToFloat64(dropped) - before; delta != 2 {
		t.Errorf("country drops = %v, want 2", delta)
	}
}

func TestNormalize_DedupeAndOrder(t *testing.T) {
	logger := zerolog.Nop()
	f := New(&logger)

	records := []models.RawEvent{
		{Date: "2026-06-24", City: "Milano", Venue: "Ippodromo SNAI La Maura", Country: "IT", Source: models.SourceOfficial},
		{Date: "24/06/2026", City: "milan", Venue: "IPPODROMO SNAI LA MAURA", Country: "Italy", Source: models.SourceTicketmaster},
		{Date: "2026-06-20", City: "Roma", Venue: "Stadio Olimpico", Country: "IT"},
		{Date: "2026-06-20", City: "Firenze", Venue: "Visarno Arena", Country: "IT"},
		{Date: "not a date", City: "Roma", Country: "IT"},
		{Date: "2026-06-26", Country: "IT"},
	}

	got := f.Normalize("Linkin Park", records, testWindow())

	wantKeys := []string{
		"linkin-park_2026-06-20_firenze",
		"linkin-park_2026-06-20_roma",
		"linkin-park_2026-06-24_milano",
		"linkin-park_2026-06-26_tba",
	}
	if len(got) != len(wantKeys) {
		t.Fatalf("len = %d, want %d: %+v", len(got), len(wantKeys), got)
	}
	for i, k := range wantKeys {
		if got[i].Key != k {
			t.Errorf("got[%d].Key = %q, want %q", i, got[i].Key, k)
		}
	}
	if got[2].Source != models.SourceOfficial {
		t.Errorf("first occurrence should win, got source %q", got[2].Source)
	}
	if got[3].City != UnknownCity {
		t.Errorf("City = %q, want %q", got[3].City, UnknownCity)
	}
}

func TestNormalize_CopiesSupportActs(t *testing.T) {
	records := []models.RawEvent{{Date: "2026-06-03", City: "Bologna", Country: "IT", SupportActs: []string{"Gojira"}}}
	got := New(nil).Normalize("Metallica", records, testWindow())
	records[0].SupportActs[0] = "mutated"
	if got[0].SupportActs[0] != "Gojira" {
		t.Error("support acts share backing array with input")
	}
}

func TestWindow_Bounds(t *testing.T) {
	w := Window{Reference: time.Date(2026, 8, 31, 23, 0, 0, 0, time.UTC), HorizonMonths: 6}
	from, to := w.Bounds()
	if !from.Equal(date(2026, 8, 31)) {
		t.Errorf("from = %v", from)
	}
	// AddDate normalizes Feb 31 to Mar 3.
	if !to.Equal(date(2027, 3, 3)) {
		t.Errorf("to = %v", to)
	}
}

func TestCountryNames(t *testing.T) {
	names := CountryNames("it")
	if len(names) != 2 || names[0] != "italia" || names[1] != "italy" {
		t.Errorf("CountryNames(it) = %v", names)
	}
	if got := CountryNames("ZZ"); len(got) != 0 {
		t.Errorf("CountryNames(ZZ) = %v", got)
	}
}

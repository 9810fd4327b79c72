// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

package scheduler

import (
	"testing"
	"time"
)

func TestParseSchedule(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		wantErr bool
	}{
		{"daily at 3am", "0 3 * * *", false},
		{"every 15 minutes", "*/15 * * * *", false},
		{"weekdays range", "0 * * * 1-5", false},
		{"list", "0,15,30,45 * * * *", false},
		{"stepped range", "0-30/10 * * * *", false},
		{"sunday as 7", "0 9 * * 7", false},
		{"extra spaces", "  0   3 * *   * ", false},
		{"too few fields", "0 3 * *", true},
		{"too many fields", "0 3 * * * *", true},
		{"minute out of range", "60 * * * *", true},
		{"hour out of range", "0 24 * * *", true},
		{"day zero", "0 0 0 * *", true},
		{"inverted range", "5-1 * * * *", true},
		{"zero step", "*/0 * * * *", true},
		{"not a number", "a * * * *", true},
		{"empty list element", "1,,2 * * * *", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSchedule(tt.expr)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseSchedule(%q) error = %v, wantErr %v", tt.expr, err, tt.wantErr)
			}
		})
	}
}

func TestSchedule_String(t *testing.T) {
	s, err := ParseSchedule("  0   3 * *   * ")
	if err != nil {
		t.Fatal(err)
	}
	if s.String() != "0 3 * * *" {
		t.Errorf("String() = %q", s.String())
	}
}

func TestSchedule_Next(t *testing.T) {
	// 2026-05-01 is a Friday.
	base := time.Date(2026, 5, 1, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name  string
		expr  string
		after time.Time
		want  time.Time
	}{
		{"daily rolls to tomorrow", "0 3 * * *", base, time.Date(2026, 5, 2, 3, 0, 0, 0, time.UTC)},
		{"strictly after a match", "0 3 * * *", time.Date(2026, 5, 2, 3, 0, 0, 0, time.UTC), time.Date(2026, 5, 3, 3, 0, 0, 0, time.UTC)},
		{"seconds are ignored", "31 10 * * *", base.Add(20 * time.Second), time.Date(2026, 5, 1, 10, 31, 0, 0, time.UTC)},
		{"every 15 minutes", "*/15 * * * *", base, time.Date(2026, 5, 1, 10, 45, 0, 0, time.UTC)},
		{"next monday", "0 9 * * 1", base, time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)},
		{"sunday as 7", "0 9 * * 7", base, time.Date(2026, 5, 3, 9, 0, 0, 0, time.UTC)},
		{"first of next year", "0 0 1 * *", time.Date(2026, 12, 15, 0, 0, 0, 0, time.UTC), time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"day fields are ORed", "0 0 13 * 5", base, time.Date(2026, 5, 8, 0, 0, 0, 0, time.UTC)},
		{"specific month", "0 12 24 12 *", base, time.Date(2026, 12, 24, 12, 0, 0, 0, time.UTC)},
		{"never fires", "0 0 31 2 *", base, time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := ParseSchedule(tt.expr)
			if err != nil {
				t.Fatalf("ParseSchedule(%q) error = %v", tt.expr, err)
			}
			got := s.Next(tt.after, time.UTC)
			if !got.Equal(tt.want) {
				t.Errorf("Next(%s) = %s, want %s", tt.after, got, tt.want)
			}
		})
	}
}

func TestSchedule_NextInLocation(t *testing.T) {
	rome := time.FixedZone("CEST", 2*60*60)
	s, err := ParseSchedule("0 3 * * *")
	if err != nil {
		t.Fatal(err)
	}

	// 00:00 UTC is 02:00 local, so the 03:00 local run is an hour away.
	got := s.Next(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), rome)
	want := time.Date(2026, 5, 1, 1, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Next() = %s, want %s", got.UTC(), want)
	}
	if got.Location() != rome {
		t.Errorf("Next() location = %s, want %s", got.Location(), rome)
	}
}

func TestSchedule_NilLocationIsUTC(t *testing.T) {
	s, _ := ParseSchedule("0 3 * * *")
	got := s.Next(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), nil)
	if got.Hour() != 3 || got.Location() != time.UTC {
		t.Errorf("Next() = %s", got)
	}
}

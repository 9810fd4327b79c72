// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

package models

import (
	"time"
)

// Source tags identify where a record came from.
const (
	SourceVerified     = "verified"
	SourceOfficial     = "official"
	SourceTicketmaster = "ticketmaster"
)

// DateLayout is the canonical date-only layout used in keys and storage.
const DateLayout = "2006-01-02"

// ArtistIdentity is one canonical artist with its known spellings and pages.
type ArtistIdentity struct {
	Canonical   string   `json:"canonical" yaml:"canonical"`
	Aliases     []string `json:"aliases,omitempty" yaml:"aliases"`
	OfficialURL string   `json:"official_url,omitempty" yaml:"official_url"`
	TicketURL   string   `json:"ticket_url,omitempty" yaml:"ticket_url"`
}

// Names returns the canonical name followed by every alias.
func (a ArtistIdentity) Names() []string {
	names := make([]string, 0, len(a.Aliases)+1)
	names = append(names, a.Canonical)
	return append(names, a.Aliases...)
}

// RawEvent is a source record before normalization. Fields are kept exactly
// as the source produced them; Country may be a code or a country name and
// Date may use any of the formats the filter understands.
type RawEvent struct {
	Artist      string   `json:"artist" yaml:"artist"`
	Name        string   `json:"name,omitempty" yaml:"name"`
	Venue       string   `json:"venue,omitempty" yaml:"venue"`
	City        string   `json:"city,omitempty" yaml:"city"`
	Country     string   `json:"country,omitempty" yaml:"country"`
	Date        string   `json:"date" yaml:"date"`
	URL         string   `json:"url,omitempty" yaml:"url"`
	Source      string   `json:"source" yaml:"source"`
	SupportActs []string `json:"support_acts,omitempty" yaml:"support_acts"`
	TicketInfo  string   `json:"ticket_info,omitempty" yaml:"ticket_info"`
}

// Concert is a normalized, in-window event. Date is a UTC midnight.
type Concert struct {
	Key         string    `json:"key"`
	Artist      string    `json:"artist"`
	Name        string    `json:"name,omitempty"`
	Venue       string    `json:"venue,omitempty"`
	City        string    `json:"city"`
	CountryCode string    `json:"country_code"`
	Date        time.Time `json:"date"`
	Source      string    `json:"source"`
	URL         string    `json:"url,omitempty"`
	SupportActs []string  `json:"support_acts,omitempty"`
	TicketInfo  string    `json:"ticket_info,omitempty"`
}

// DateString returns the concert date as YYYY-MM-DD.
func (c Concert) DateString() string {
	return c.Date.Format(DateLayout)
}

// ConcertPreview is what a scan would find for one artist right now,
// without notifying anyone.
type ConcertPreview struct {
	Query     string    `json:"query"`
	Artist    string    `json:"artist"`
	Canonical bool      `json:"canonical"`
	Country   string    `json:"country"`
	From      time.Time `json:"from"`
	To        time.Time `json:"to"`
	Records   int       `json:"records"`
	Concerts  []Concert `json:"concerts"`
}

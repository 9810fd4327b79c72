// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

/*
ticketmaster.go - Ticketmaster Discovery API v2 client

Keyword search on events.json, falling back to an attraction lookup when the
keyword search finds nothing. Calls go through the shared Pacer and a circuit
breaker.

API Reference: https://developer.ticketmaster.com/products-and-docs/apis/discovery-api/v2/
*/

package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/concertwatch/internal/config"
	"github.com/tomtom215/concertwatch/internal/matcher"
	"github.com/tomtom215/concertwatch/internal/models"
)

const tmTimeLayout = "2006-01-02T15:04:05Z"

type tmEventsResponse struct {
	Embedded struct {
		Events []tmEvent `json:"events"`
	} `json:"_embedded"`
}

type tmEvent struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	URL   string `json:"url"`
	Dates struct {
		Start struct {
			LocalDate string `json:"localDate"`
			LocalTime string `json:"localTime"`
		} `json:"start"`
	} `json:"dates"`
	PriceRanges []struct {
		Min      float64 `json:"min"`
		Max      float64 `json:"max"`
		Currency string  `json:"currency"`
	} `json:"priceRanges"`
	Embedded struct {
		Venues      []tmVenue `json:"venues"`
		Attractions []struct {
			Name string `json:"name"`
		} `json:"attractions"`
	} `json:"_embedded"`
}

type tmVenue struct {
	Name string `json:"name"`
	City struct {
		Name string `json:"name"`
	} `json:"city"`
	Country struct {
		Name        string `json:"name"`
		CountryCode string `json:"countryCode"`
	} `json:"country"`
}

type tmAttractionsResponse struct {
	Embedded struct {
		Attractions []tmAttraction `json:"attractions"`
	} `json:"_embedded"`
}

type tmAttraction struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TicketmasterSource queries the Ticketmaster Discovery API.
type TicketmasterSource struct {
	baseURL   string
	apiKey    string
	pageSize  int
	retryWait time.Duration
	client    *http.Client
	pacer     *Pacer
	breaker   *breaker
	logger    zerolog.Logger
}

// NewTicketmasterSource creates the Ticketmaster client. Without an API key
// the source is disabled and returns no records.
func NewTicketmasterSource(cfg *config.TicketmasterConfig, pacer *Pacer, logger *zerolog.Logger) *TicketmasterSource {
	s := &TicketmasterSource{
		baseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		pageSize:  cfg.PageSize,
		retryWait: cfg.RetryWait,
		client:    &http.Client{Timeout: cfg.Timeout},
		pacer:     pacer,
		logger:    zerolog.Nop(),
	}
	if s.pageSize <= 0 {
		s.pageSize = 50
	}
	if logger != nil {
		s.logger = logger.With().Str("component", "ticketmaster").Logger()
	}
	s.breaker = newBreaker("ticketmaster-api", s.logger)
	return s
}

// Name implements Source.
func (s *TicketmasterSource) Name() string { return models.SourceTicketmaster }

// Enabled reports whether an API key is configured.
func (s *TicketmasterSource) Enabled() bool { return s.apiKey != "" }

// Fetch searches events for q.Artist in q.Country between q.From and q.To.
func (s *TicketmasterSource) Fetch(ctx context.Context, q Query) ([]models.RawEvent, error) {
	if !s.Enabled() {
		return nil, nil
	}

	records, err := s.breaker.execute(func() ([]models.RawEvent, error) {
		return s.search(ctx, q)
	})
	if errors.Is(err, ErrCircuitOpen) {
		return nil, transportError(s.Name(), 0, err)
	}
	return records, err
}

func (s *TicketmasterSource) search(ctx context.Context, q Query) ([]models.RawEvent, error) {
	params := s.eventParams(q)
	params.Set("keyword", q.Artist)

	events, err := s.events(ctx, params)
	if err != nil {
		return nil, err
	}

	if len(events) == 0 {
		attraction, err := s.findAttraction(ctx, q.Artist)
		if err != nil {
			return nil, err
		}
		if attraction == nil {
			return nil, nil
		}
		s.logger.Debug().Str("artist", q.Artist).Str("attraction_id", attraction.ID).Msg("Keyword search empty, searching by attraction")

		params = s.eventParams(q)
		params.Set("attractionId", attraction.ID)
		if events, err = s.events(ctx, params); err != nil {
			return nil, err
		}
	}

	out := make([]models.RawEvent, 0, len(events))
	for i := range events {
		out = append(out, toRawEvent(q.Artist, &events[i]))
	}
	return out, nil
}

func (s *TicketmasterSource) eventParams(q Query) url.Values {
	params := url.Values{}
	params.Set("countryCode", strings.ToUpper(q.Country))
	params.Set("classificationName", "music")
	params.Set("size", strconv.Itoa(s.pageSize))
	params.Set("sort", "date,asc")
	if !q.From.IsZero() {
		params.Set("startDateTime", q.From.UTC().Format(tmTimeLayout))
	}
	if !q.To.IsZero() {
		end := time.Date(q.To.Year(), q.To.Month(), q.To.Day(), 23, 59, 59, 0, time.UTC)
		params.Set("endDateTime", end.Format(tmTimeLayout))
	}
	return params
}

func (s *TicketmasterSource) events(ctx context.Context, params url.Values) ([]tmEvent, error) {
	var resp tmEventsResponse
	if err := s.get(ctx, "events.json", params, &resp); err != nil {
		return nil, err
	}
	return resp.Embedded.Events, nil
}

// findAttraction returns the attraction whose name normalizes equal to
// artist, else the first one returned, else nil.
func (s *TicketmasterSource) findAttraction(ctx context.Context, artist string) (*tmAttraction, error) {
	params := url.Values{}
	params.Set("keyword", artist)
	params.Set("classificationName", "music")
	params.Set("size", "5")

	var resp tmAttractionsResponse
	if err := s.get(ctx, "attractions.json", params, &resp); err != nil {
		return nil, err
	}

	attractions := resp.Embedded.Attractions
	if len(attractions) == 0 {
		return nil, nil
	}
	want := matcher.Normalize(artist)
	for i := range attractions {
		if matcher.Normalize(attractions[i].Name) == want {
			return &attractions[i], nil
		}
	}
	return &attractions[0], nil
}

// get performs one paced GET. A 429 is retried once after retryWait.
func (s *TicketmasterSource) get(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	params.Set("apikey", s.apiKey)
	reqURL := fmt.Sprintf("%s/%s?%s", s.baseURL, endpoint, params.Encode())

	for attempt := 0; ; attempt++ {
		if err := s.pacer.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := s.client.Do(req)
		if err != nil {
			return transportError(s.Name(), 0, err)
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			resp.Body.Close()
			if attempt > 0 {
				return transportError(s.Name(), resp.StatusCode, ErrRateLimited)
			}
			s.logger.Warn().Str("endpoint", endpoint).Dur("wait", s.retryWait).Msg("Rate limited by Ticketmaster, retrying once")
			if err := sleepCtx(ctx, s.retryWait); err != nil {
				return err
			}
			continue
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			resp.Body.Close()
			return transportError(s.Name(), resp.StatusCode, ErrUnauthorized)
		case resp.StatusCode != http.StatusOK:
			resp.Body.Close()
			return transportError(s.Name(), resp.StatusCode, ErrUpstream)
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return transportError(s.Name(), resp.StatusCode, fmt.Errorf("failed to decode response: %w", err))
		}
		return nil
	}
}

func toRawEvent(artist string, ev *tmEvent) models.RawEvent {
	r := models.RawEvent{
		Artist: artist,
		Name:   ev.Name,
		Date:   ev.Dates.Start.LocalDate,
		URL:    ev.URL,
		Source: models.SourceTicketmaster,
	}
	if len(ev.Embedded.Venues) > 0 {
		v := ev.Embedded.Venues[0]
		r.Venue = v.Name
		r.City = v.City.Name
		r.Country = v.Country.CountryCode
		if r.Country == "" {
			r.Country = v.Country.Name
		}
	}
	want := matcher.Normalize(artist)
	for _, a := range ev.Embedded.Attractions {
		if a.Name != "" && matcher.Normalize(a.Name) != want {
			r.SupportActs = append(r.SupportActs, a.Name)
		}
	}
	if len(ev.PriceRanges) > 0 {
		r.TicketInfo = priceInfo(ev.PriceRanges[0].Min, ev.PriceRanges[0].Max, ev.PriceRanges[0].Currency)
	}
	return r
}

func priceInfo(minPrice, maxPrice float64, currency string) string {
	if currency == "" {
		currency = "EUR"
	}
	format := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	switch {
	case minPrice > 0 && maxPrice > minPrice:
		return fmt.Sprintf("Prezzi: %s-%s %s", format(minPrice), format(maxPrice), currency)
	case minPrice > 0:
		return fmt.Sprintf("Prezzi da %s %s", format(minPrice), currency)
	}
	return ""
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// BreakerState returns the circuit breaker state ("closed", "half-open", "open").
func (s *TicketmasterSource) BreakerState() string {
	return s.breaker.State()
}

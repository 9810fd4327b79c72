// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

// Package monitor runs scan cycles: it groups tracked artists by canonical
// identity, fetches and filters concerts once per artist, and hands them to
// the dispatcher for every subscriber of that artist.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"slices"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/concertwatch/internal/database"
	"github.com/tomtom215/concertwatch/internal/dispatcher"
	"github.com/tomtom215/concertwatch/internal/filter"
	"github.com/tomtom215/concertwatch/internal/logging"
	"github.com/tomtom215/concertwatch/internal/matcher"
	"github.com/tomtom215/concertwatch/internal/metrics"
	"github.com/tomtom215/concertwatch/internal/models"
	"github.com/tomtom215/concertwatch/internal/source"
)

// DefaultArtistTimeout bounds the work done for one artist.
const DefaultArtistTimeout = 2 * time.Minute

// ErrStopped is recorded on a report when the cycle was stopped between
// artists.
var ErrStopped = errors.New("scan stopped")

// ErrEmptyArtist is returned by Preview for a blank artist name.
var ErrEmptyArtist = errors.New("artist name is empty")

// Repository is the subscriber store the monitor reads.
type Repository interface {
	ListTrackedArtists(ctx context.Context) ([]models.TrackedArtist, error)
	GetSubscriber(ctx context.Context, id string) (*models.Subscriber, error)
}

// Resolver maps raw artist names to canonical identities.
type Resolver interface {
	Resolve(rawName string) (matcher.MatchResult, bool)
}

// Fetcher returns the raw records for one artist.
type Fetcher interface {
	Fetch(ctx context.Context, q source.Query) []models.RawEvent
}

// Normalizer turns raw records into in-window concerts.
type Normalizer interface {
	Normalize(artist string, records []models.RawEvent, w filter.Window) []models.Concert
}

// Processor notifies one subscriber. *dispatcher.Dispatcher satisfies it.
type Processor interface {
	Process(ctx context.Context, sub *models.Subscriber, concerts []models.Concert) (int, error)
}

// Reporter receives every finished cycle report.
type Reporter interface {
	ScanCompleted(ctx context.Context, report models.CycleReport)
}

// Config holds the scan parameters.
type Config struct {
	Country       string
	HorizonMonths int
	ArtistTimeout time.Duration
}

// Monitor runs scan cycles. Only one cycle may run at a time; the scheduler
// enforces this.
type Monitor struct {
	repo       Repository
	resolver   Resolver
	fetcher    Fetcher
	normalizer Normalizer
	processor  Processor
	reporter   Reporter
	cfg        Config
	logger     zerolog.Logger
	now        func() time.Time

	last atomic.Pointer[models.CycleReport]
}

// New creates a Monitor.
func New(repo Repository, resolver Resolver, fetcher Fetcher, normalizer Normalizer, processor Processor, cfg Config, logger *zerolog.Logger) *Monitor {
	if cfg.ArtistTimeout <= 0 {
		cfg.ArtistTimeout = DefaultArtistTimeout
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Monitor{
		repo:       repo,
		resolver:   resolver,
		fetcher:    fetcher,
		normalizer: normalizer,
		processor:  processor,
		cfg:        cfg,
		logger:     logger.With().Str("component", "monitor").Logger(),
		now:        time.Now,
	}
}

// SetReporter registers the receiver of cycle reports.
func (m *Monitor) SetReporter(r Reporter) {
	m.reporter = r
}

// LastReport returns the most recent cycle report.
func (m *Monitor) LastReport() (models.CycleReport, bool) {
	if r := m.last.Load(); r != nil {
		return *r, true
	}
	return models.CycleReport{}, false
}

// artistGroup is one canonical artist and the subscribers tracking it.
type artistGroup struct {
	key         string
	name        string
	canonical   bool
	subscribers []string
}

// RunCycle runs one scan cycle. Canceling ctx is the stop signal: it is
// checked between artists, and the artist in flight finishes on a context
// detached from ctx and bounded by the artist timeout.
//
// A repository failure aborts the cycle and is returned as a
// *dispatcher.PersistenceError. Any other per-artist failure is logged and
// counted, and the cycle continues.
func (m *Monitor) RunCycle(ctx context.Context, trigger string) (models.CycleReport, error) {
	report := models.CycleReport{
		ID:        uuid.New().String(),
		Trigger:   trigger,
		StartedAt: m.now().UTC(),
	}

	ctx = logging.ContextWithNewCorrelationID(ctx)
	ctx = logging.ContextWithCycleID(ctx, report.ID)
	log := logging.For(ctx, m.logger)
	log.Info().Str("trigger", trigger).Msg("Scan cycle started")

	err := m.run(ctx, &report)

	report.FinishedAt = m.now().UTC()
	if err != nil {
		report.Aborted = true
		report.Error = err.Error()
	}
	metrics.RecordScanCycle(report.Duration(), report.Aborted)
	m.last.Store(&report)

	if m.reporter != nil {
		m.reporter.ScanCompleted(context.WithoutCancel(ctx), report)
	}

	event := log.Info()
	if err != nil {
		event = log.Warn().Err(err)
	}
	event.
		Int("artists", report.Artists).
		Int("failed", report.Failed).
		Int("concerts", report.Concerts).
		Int("notified", report.Notified).
		Dur("duration", report.Duration()).
		Msg("Scan cycle finished")

	return report, err
}

func (m *Monitor) run(ctx context.Context, report *models.CycleReport) error {
	detached := context.WithoutCancel(ctx)

	listCtx, cancel := context.WithTimeout(detached, m.cfg.ArtistTimeout)
	tracked, err := m.repo.ListTrackedArtists(listCtx)
	cancel()
	if err != nil {
		return &dispatcher.PersistenceError{Op: "list tracked artists", Err: err}
	}

	groups := m.group(tracked)
	reference := m.now()

	for _, g := range groups {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrStopped, err)
		}

		artistCtx, cancel := context.WithTimeout(logging.ContextWithArtist(detached, g.name), m.cfg.ArtistTimeout)
		concerts, notified, err := m.scanArtist(artistCtx, g, reference)
		cancel()

		report.Artists++
		report.Concerts += concerts
		report.Notified += notified
		metrics.RecordArtistScanned(err)

		if err == nil {
			continue
		}
		report.Failed++
		if dispatcher.IsPersistence(err) {
			return err
		}
		logging.For(artistCtx, m.logger).Error().Err(err).Msg("Artist scan failed, continuing")
	}
	return nil
}

// group resolves every tracked name and groups subscribers by canonical
// name, or by normalized raw name on a miss. Groups are sorted by key.
func (m *Monitor) group(tracked []models.TrackedArtist) []*artistGroup {
	byKey := make(map[string]*artistGroup)
	for _, t := range tracked {
		g := &artistGroup{name: strings.TrimSpace(t.Name)}
		if res, ok := m.resolver.Resolve(t.Name); ok {
			g.name = res.Identity.Canonical
			g.canonical = true
			g.key = matcher.Normalize(res.Identity.Canonical)
		} else {
			g.key = matcher.Normalize(t.Name)
		}
		if g.key == "" {
			continue
		}

		existing, ok := byKey[g.key]
		if !ok {
			byKey[g.key] = g
			existing = g
		}
		if !slices.Contains(existing.subscribers, t.SubscriberID) {
			existing.subscribers = append(existing.subscribers, t.SubscriberID)
		}
	}

	groups := make([]*artistGroup, 0, len(byKey))
	for _, g := range byKey {
		sort.Strings(g.subscribers)
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].key < groups[j].key })
	return groups
}

// scanArtist fetches, filters and dispatches one artist. Panics are
// recovered and reported as errors.
func (m *Monitor) scanArtist(ctx context.Context, g *artistGroup, reference time.Time) (concerts, notified int, err error) {
	defer func() {
		if r := recover(); r != nil {
			logging.For(ctx, m.logger).Error().
				Str("stack", string(debug.Stack())).
				Msgf("panic while scanning artist: %v", r)
			err = fmt.Errorf("panic while scanning %s: %v", g.name, r)
		}
	}()

	found, records := m.fetch(ctx, g.name, g.canonical, reference)
	concerts = len(found)

	logging.For(ctx, m.logger).Debug().
		Int("records", records).
		Int("concerts", concerts).
		Int("subscribers", len(g.subscribers)).
		Msg("Artist fetched")

	if concerts == 0 {
		return 0, 0, nil
	}

	for _, id := range g.subscribers {
		sub, err := m.repo.GetSubscriber(ctx, id)
		if errors.Is(err, database.ErrNotFound) {
			// Deleted while the cycle was running.
			continue
		}
		if err != nil {
			return concerts, notified, &dispatcher.PersistenceError{Op: "get subscriber", Err: err}
		}

		n, err := m.processor.Process(ctx, sub, found)
		notified += n
		if err != nil {
			return concerts, notified, err
		}
	}
	return concerts, notified, nil
}

// fetch queries every source for one artist and keeps the concerts inside
// the window starting at reference. It also returns the raw record count.
func (m *Monitor) fetch(ctx context.Context, name string, canonical bool, reference time.Time) ([]models.Concert, int) {
	window := m.window(reference)
	from, to := window.Bounds()

	records := m.fetcher.Fetch(ctx, source.Query{
		Artist:    name,
		Canonical: canonical,
		Country:   m.cfg.Country,
		From:      from,
		To:        to,
	})
	return m.normalizer.Normalize(name, records, window), len(records)
}

func (m *Monitor) window(reference time.Time) filter.Window {
	return filter.Window{
		Country:       m.cfg.Country,
		Reference:     reference,
		HorizonMonths: m.cfg.HorizonMonths,
	}
}

// Preview resolves rawName and returns the concerts a scan would find for
// it now. Nothing is dispatched or recorded.
func (m *Monitor) Preview(ctx context.Context, rawName string) (preview models.ConcertPreview, err error) {
	name := strings.TrimSpace(rawName)
	if name == "" {
		return preview, ErrEmptyArtist
	}

	preview = models.ConcertPreview{Query: name, Artist: name, Country: m.cfg.Country}
	if res, ok := m.resolver.Resolve(name); ok {
		preview.Artist = res.Identity.Canonical
		preview.Canonical = true
	}

	ctx, cancel := context.WithTimeout(logging.ContextWithArtist(ctx, preview.Artist), m.cfg.ArtistTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			logging.For(ctx, m.logger).Error().
				Str("stack", string(debug.Stack())).
				Msgf("panic while previewing artist: %v", r)
			err = fmt.Errorf("panic while previewing %s: %v", preview.Artist, r)
		}
	}()

	reference := m.now()
	preview.From, preview.To = m.window(reference).Bounds()
	concerts, records := m.fetch(ctx, preview.Artist, preview.Canonical, reference)
	preview.Records = records
	preview.Concerts = concerts
	if preview.Concerts == nil {
		preview.Concerts = []models.Concert{}
	}

	logging.For(ctx, m.logger).Info().
		Int("records", records).
		Int("concerts", len(concerts)).
		Msg("Artist preview")
	return preview, nil
}

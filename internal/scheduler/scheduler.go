// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

// Package scheduler drives the two periodic tasks of the engine.
//
// The scan task runs one monitor cycle every check interval, after an
// initial delay. A tick that arrives while a cycle is still running is
// skipped, not queued. Manual triggers share the same in-progress flag.
//
// The cleanup task follows a 5-field cron schedule in a configurable
// timezone and prunes notification history older than the retention
// window, one bounded batch at a time.
//
// Stop cancels the loops. An in-flight cycle stops after its current
// artist and an in-flight cleanup after its current batch.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/concertwatch/internal/config"
	"github.com/tomtom215/concertwatch/internal/logging"
	"github.com/tomtom215/concertwatch/internal/metrics"
	"github.com/tomtom215/concertwatch/internal/models"
)

// Trigger labels passed to the scanner.
const (
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
)

const (
	defaultBatchSize    = 500
	defaultBatchTimeout = 2 * time.Minute
)

var (
	// ErrScanInProgress is returned by TriggerScan while a cycle is running.
	ErrScanInProgress = errors.New("scan already in progress")

	// ErrNotRunning is returned by TriggerScan before Start or after Stop.
	ErrNotRunning = errors.New("scheduler not running")
)

// Scanner runs one scan cycle.
type Scanner interface {
	RunCycle(ctx context.Context, trigger string) (models.CycleReport, error)
}

// Pruner deletes old notification records.
type Pruner interface {
	DeleteNotificationsOlderThan(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}

// Config holds scheduler settings.
type Config struct {
	// Interval is the scan cadence.
	Interval time.Duration
	// InitialDelay postpones the first scheduled scan after Start.
	InitialDelay time.Duration

	// CleanupSchedule is a 5-field cron expression.
	CleanupSchedule string
	// Timezone is the IANA zone CleanupSchedule is evaluated in. Empty means
	// the local zone.
	Timezone string
	// Retention is how long notification records are kept.
	Retention time.Duration
	// BatchSize caps the rows deleted per statement.
	BatchSize int
	// BatchTimeout bounds each delete statement.
	BatchTimeout time.Duration
}

// ConfigFrom maps the application configuration onto Config.
func ConfigFrom(scan config.ScanConfig, cleanup config.CleanupConfig) Config {
	return Config{
		Interval:        scan.CheckInterval(),
		InitialDelay:    scan.InitialDelay,
		CleanupSchedule: cleanup.Schedule,
		Timezone:        cleanup.Timezone,
		Retention:       cleanup.Retention(),
		BatchSize:       cleanup.BatchSize,
		BatchTimeout:    cleanup.BatchTimeout,
	}
}

// CleanupResult describes the last cleanup run.
type CleanupResult struct {
	StartedAt time.Time `json:"started_at"`
	Duration  string    `json:"duration"`
	Cutoff    time.Time `json:"cutoff"`
	Deleted   int64     `json:"deleted"`
	Error     string    `json:"error,omitempty"`
}

// Status is a point-in-time view of the scheduler.
type Status struct {
	Running         bool           `json:"running"`
	ScanInProgress  bool           `json:"scan_in_progress"`
	Interval        string         `json:"interval"`
	CleanupSchedule string         `json:"cleanup_schedule"`
	Timezone        string         `json:"timezone"`
	NextScan        *time.Time     `json:"next_scan,omitempty"`
	NextCleanup     *time.Time     `json:"next_cleanup,omitempty"`
	LastCleanup     *CleanupResult `json:"last_cleanup,omitempty"`
}

// Scheduler owns the scan and cleanup loops.
type Scheduler struct {
	scanner  Scanner
	pruner   Pruner
	schedule *Schedule
	loc      *time.Location
	config   Config
	logger   zerolog.Logger
	now      func() time.Time

	scanning atomic.Bool

	mu          sync.Mutex
	running     bool
	runCtx      context.Context
	cancel      context.CancelFunc
	loops       sync.WaitGroup
	work        sync.WaitGroup
	nextScan    time.Time
	nextCleanup time.Time
	lastCleanup *CleanupResult
}

// New validates cfg and creates a Scheduler.
func New(scanner Scanner, pruner Pruner, cfg Config, logger *zerolog.Logger) (*Scheduler, error) {
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("scan interval must be positive, got %s", cfg.Interval)
	}
	if cfg.InitialDelay < 0 {
		cfg.InitialDelay = 0
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = defaultBatchTimeout
	}

	schedule, err := ParseSchedule(cfg.CleanupSchedule)
	if err != nil {
		return nil, fmt.Errorf("cleanup schedule: %w", err)
	}

	loc := time.Local
	if cfg.Timezone != "" {
		if loc, err = time.LoadLocation(cfg.Timezone); err != nil {
			return nil, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
		}
	}

	base := zerolog.Nop()
	if logger != nil {
		base = *logger
	}

	return &Scheduler{
		scanner:  scanner,
		pruner:   pruner,
		schedule: schedule,
		loc:      loc,
		config:   cfg,
		logger:   base.With().Str("component", "scheduler").Logger(),
		now:      time.Now,
	}, nil
}

// Start launches both loops. The loops and any in-flight work stop when
// ctx is canceled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	s.runCtx, s.cancel = context.WithCancel(ctx)
	s.running = true

	s.logger.Info().
		Dur("interval", s.config.Interval).
		Dur("initial_delay", s.config.InitialDelay).
		Str("cleanup_schedule", s.schedule.String()).
		Str("timezone", s.loc.String()).
		Msg("Starting scheduler")

	s.loops.Add(2)
	go s.scanLoop(s.runCtx)
	go s.cleanupLoop(s.runCtx)
	return nil
}

// Stop signals both loops and waits for them and for in-flight work.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	s.logger.Info().Msg("Stopping scheduler...")
	cancel()
	s.loops.Wait()
	s.work.Wait()
	s.logger.Info().Msg("Scheduler stopped")
	return nil
}

// Serve implements suture.Service.
func (s *Scheduler) Serve(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	if err := s.Stop(); err != nil {
		return err
	}
	return ctx.Err()
}

// String implements fmt.Stringer for suture logs.
func (s *Scheduler) String() string {
	return "scheduler"
}

// TriggerScan starts a cycle in the background. It never waits for the
// cycle to finish.
func (s *Scheduler) TriggerScan() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return ErrNotRunning
	}
	if !s.launch(s.runCtx, TriggerManual) {
		return ErrScanInProgress
	}
	return nil
}

// ScanInProgress reports whether a cycle is running.
func (s *Scheduler) ScanInProgress() bool {
	return s.scanning.Load()
}

// Status returns the current scheduler state.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		Running:         s.running,
		ScanInProgress:  s.scanning.Load(),
		Interval:        s.config.Interval.String(),
		CleanupSchedule: s.schedule.String(),
		Timezone:        s.loc.String(),
	}
	if s.running && !s.nextScan.IsZero() {
		t := s.nextScan
		st.NextScan = &t
	}
	if s.running && !s.nextCleanup.IsZero() {
		t := s.nextCleanup
		st.NextCleanup = &t
	}
	if s.lastCleanup != nil {
		last := *s.lastCleanup
		st.LastCleanup = &last
	}
	return st
}

func (s *Scheduler) scanLoop(ctx context.Context) {
	defer s.loops.Done()

	timer := time.NewTimer(s.config.InitialDelay)
	defer timer.Stop()
	s.setNextScan(s.now().Add(s.config.InitialDelay))

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			if !s.launch(ctx, TriggerSchedule) {
				metrics.ScanTicksSkipped.Inc()
				s.logger.Warn().Msg("Previous scan still running, skipping tick")
			}
			timer.Reset(s.config.Interval)
			s.setNextScan(s.now().Add(s.config.Interval))
		}
	}
}

// launch starts a cycle unless one is already running.
func (s *Scheduler) launch(ctx context.Context, trigger string) bool {
	if !s.scanning.CompareAndSwap(false, true) {
		return false
	}
	metrics.ScanInProgress.Set(1)

	s.work.Add(1)
	go func() {
		defer s.work.Done()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error().Interface("panic", r).Str("trigger", trigger).Msg("Scan cycle panicked")
			}
			metrics.ScanInProgress.Set(0)
			s.scanning.Store(false)
		}()

		report, err := s.scanner.RunCycle(ctx, trigger)
		logger := s.logger.With().Str("cycle_id", report.ID).Str("trigger", trigger).Logger()
		if err != nil {
			logger.Error().Err(err).Int("failed", report.Failed).Msg("Scan cycle aborted")
			return
		}
		logger.Debug().Int("notified", report.Notified).Msg("Scan cycle finished")
	}()
	return true
}

func (s *Scheduler) cleanupLoop(ctx context.Context) {
	defer s.loops.Done()

	for {
		next := s.schedule.Next(s.now(), s.loc)
		if next.IsZero() {
			s.logger.Error().Str("schedule", s.schedule.String()).Msg("Cleanup schedule never fires, cleanup disabled")
			return
		}
		s.mu.Lock()
		s.nextCleanup = next
		s.mu.Unlock()

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		s.work.Add(1)
		if _, err := s.RunCleanup(ctx); err != nil {
			s.logger.Error().Err(err).Msg("Notification cleanup failed")
		}
		s.work.Done()
	}
}

// RunCleanup deletes notification records older than the retention window
// in batches until a short batch. Each batch runs detached from ctx so a
// shutdown never interrupts a statement; ctx is checked between batches.
func (s *Scheduler) RunCleanup(ctx context.Context) (int64, error) {
	start := s.now()
	cutoff := start.Add(-s.config.Retention)
	logger := logging.For(ctx, s.logger)

	var (
		total int64
		err   error
	)
	for {
		if ctx.Err() != nil {
			logger.Info().Int64("deleted", total).Msg("Cleanup interrupted by shutdown")
			break
		}

		var n int64
		batchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.BatchTimeout)
		n, err = s.pruner.DeleteNotificationsOlderThan(batchCtx, cutoff, s.config.BatchSize)
		cancel()
		total += n
		if err != nil || n < int64(s.config.BatchSize) {
			break
		}
	}

	metrics.RecordCleanup(total, err)
	result := &CleanupResult{
		StartedAt: start,
		Duration:  time.Since(start).String(),
		Cutoff:    cutoff,
		Deleted:   total,
	}
	if err != nil {
		result.Error = err.Error()
	}
	s.mu.Lock()
	s.lastCleanup = result
	s.mu.Unlock()

	if err != nil {
		return total, fmt.Errorf("delete notifications older than %s: %w", cutoff.Format(time.RFC3339), err)
	}
	logger.Info().
		Int64("deleted", total).
		Time("cutoff", cutoff).
		Msg("Notification cleanup finished")
	return total, nil
}

func (s *Scheduler) setNextScan(t time.Time) {
	s.mu.Lock()
	s.nextScan = t
	s.mu.Unlock()
}

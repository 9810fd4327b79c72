// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

// Package main is the entry point for the ConcertWatch daemon.
//
// ConcertWatch periodically looks up upcoming concerts for the artists each
// subscriber tracks, filters them to the configured country and horizon, and
// notifies every subscriber once per concert through Telegram (with an
// optional webhook mirror).
//
// # Startup Order
//
//  1. Configuration: .env file, then koanf defaults, YAML and environment
//  2. Database: DuckDB subscriber store and notification history
//  3. Source cache: Badger store for upstream responses (if enabled)
//  4. Reference catalog and artist matcher
//  5. Sources: verified catalog, official pages, Ticketmaster
//  6. Delivery: Telegram or log channel, webhook mirror
//  7. Engine: dispatcher, monitor, scheduler, event bus
//  8. Admin API (if enabled)
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the root context. The scheduler stops starting
// new cycles and waits for the running one to finish the artist it is on,
// the HTTP server drains open requests, and the stores are closed last.
//
// # Example Usage
//
//	export TELEGRAM_BOT_TOKEN=123456:ABC...
//	export TICKETMASTER_API_KEY=...
//	export DEFAULT_COUNTRY=DE
//	./concertwatch
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tomtom215/concertwatch/internal/api"
	"github.com/tomtom215/concertwatch/internal/config"
	"github.com/tomtom215/concertwatch/internal/database"
	"github.com/tomtom215/concertwatch/internal/delivery"
	"github.com/tomtom215/concertwatch/internal/dispatcher"
	"github.com/tomtom215/concertwatch/internal/events"
	"github.com/tomtom215/concertwatch/internal/filter"
	"github.com/tomtom215/concertwatch/internal/logging"
	"github.com/tomtom215/concertwatch/internal/matcher"
	"github.com/tomtom215/concertwatch/internal/monitor"
	"github.com/tomtom215/concertwatch/internal/reference"
	"github.com/tomtom215/concertwatch/internal/scheduler"
	"github.com/tomtom215/concertwatch/internal/source"
	"github.com/tomtom215/concertwatch/internal/supervisor"
	"github.com/tomtom215/concertwatch/internal/supervisor/services"
	"github.com/tomtom215/concertwatch/internal/websocket"
)

func main() {
	// A missing .env is normal; variables already set in the environment win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Warn().Err(err).Msg("Failed to read .env file")
	}

	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	if err := run(ctx, cfg); err != nil {
		logging.Fatal().Err(err).Msg("ConcertWatch failed")
	}
	logging.Info().Msg("ConcertWatch stopped")
}

// run builds every component from cfg and serves the supervisor tree until
// ctx is canceled and the tree has stopped. Stores are closed on return.
//
//nolint:gocyclo // sequential startup
func run(ctx context.Context, cfg *config.Config) error {
	logger := logging.Logger()

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("country", cfg.Sources.TargetCountry).
		Int("check_interval_hours", cfg.Scan.CheckIntervalHours).
		Strs("source_order", cfg.Sources.Order).
		Msg("Starting ConcertWatch")
	logging.Debug().Interface("settings", cfg.ScanSettingsSummary()).Msg("Effective scan settings")

	db, err := database.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Err(err).Msg("Error closing database")
		}
	}()

	catalog, err := reference.Load(cfg.Reference.CatalogPath)
	if err != nil {
		return fmt.Errorf("load reference catalog: %w", err)
	}
	holder := reference.NewHolder(catalog)
	artistMatcher := matcher.New(holder, cfg.Matcher.Threshold)
	logging.Info().
		Str("catalog_version", catalog.Version()).
		Float64("match_threshold", cfg.Matcher.Threshold).
		Msg("Reference catalog loaded")

	cache, err := openSourceCache(cfg)
	if err != nil {
		return fmt.Errorf("open source cache: %w", err)
	}
	if cache != nil {
		defer func() {
			if err := cache.Close(); err != nil {
				logging.Err(err).Msg("Error closing source cache")
			}
		}()
	}

	sources, err := buildSources(cfg, holder, cache, &logger)
	if err != nil {
		return fmt.Errorf("configure event sources: %w", err)
	}
	adapter := source.NewAdapter(&logger, sources...)
	logging.Info().Strs("sources", adapter.Names()).Msg("Event sources configured")

	notifier, err := buildNotifier(cfg, &logger)
	if err != nil {
		return fmt.Errorf("configure delivery channels: %w", err)
	}
	logging.Info().Strs("channels", notifier.Channels()).Msg("Delivery channels configured")

	bus := events.NewBus(&cfg.Events, &logger)
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Err(err).Msg("Error closing event bus")
		}
	}()
	recorder := events.NewRecorder(bus, cfg.Events.HistorySize, &logger)

	disp := dispatcher.New(db, notifier, delivery.NewFormatter(cfg.Notify.Header), cfg.Notify.MaxConcertsPerNotification, &logger)
	disp.SetPublisher(bus)

	mon := monitor.New(db, artistMatcher, adapter, filter.New(&logger), disp, monitor.Config{
		Country:       cfg.Sources.TargetCountry,
		HorizonMonths: cfg.Sources.SearchMonthsAhead,
		ArtistTimeout: cfg.Scan.ArtistTimeout,
	}, &logger)
	mon.SetReporter(bus)

	sched, err := scheduler.New(mon, db, scheduler.ConfigFrom(cfg.Scan, cfg.Cleanup), &logger)
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewComponentSlogLogger("supervisor"), supervisor.TreeConfig{
		ShutdownTimeout:       cfg.Supervisor.ShutdownTimeout,
		EngineShutdownTimeout: cfg.EngineShutdownTimeout(),
	})
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	tree.AddDataService(recorder)
	if cache != nil {
		tree.AddDataService(source.NewCacheGC(cache, 0, &logger))
	}
	tree.AddEngineService(sched)

	if cfg.Server.Enabled {
		if cfg.ShouldWarnAboutCORS() {
			logging.Warn().Msg("CORS allows any origin in production; set CORS_ORIGINS")
		}
		if cfg.Server.AdminToken == "" {
			logging.Warn().Msg("ADMIN_TOKEN is empty; the admin API is unauthenticated")
		}

		hub := websocket.NewHub(bus, cfg.Server.CORSOrigins, &logger)
		tree.AddDataService(hub)

		handler := api.NewHandler(api.Deps{
			Store:    db,
			Scans:    sched,
			Cycles:   mon,
			Finder:   mon,
			Resolver: artistMatcher,
			Catalog:  holder,
			Events:   recorder,
			Stream:   hub,
			Settings: cfg.ScanSettingsSummary(),
		})
		router := api.NewRouter(handler, api.MiddlewareConfigFrom(&cfg.Server), &logger)

		server := &http.Server{
			Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
			Handler:           router.SetupChi(),
			ReadTimeout:       cfg.Server.Timeout,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      cfg.Server.Timeout,
			IdleTimeout:       60 * time.Second,
		}
		tree.AddAPIService(services.NewHTTPServerService(server, cfg.Supervisor.ShutdownTimeout).WithLogger(logger))
		logging.Info().Str("addr", server.Addr).Msg("Admin API enabled")
	}

	logging.Info().
		Dur("engine_shutdown_timeout", cfg.EngineShutdownTimeout()).
		Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	// suture sends exactly one value and never closes the channel.
	var treeErr error
	select {
	case <-ctx.Done():
		logging.Info().Msg("Waiting for services to stop")
		treeErr = <-errCh
	case treeErr = <-errCh:
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	if treeErr != nil && !errors.Is(treeErr, context.Canceled) {
		return fmt.Errorf("supervisor tree: %w", treeErr)
	}
	return nil
}

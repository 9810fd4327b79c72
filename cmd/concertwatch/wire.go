// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

package main

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	"github.com/tomtom215/concertwatch/internal/config"
	"github.com/tomtom215/concertwatch/internal/delivery"
	"github.com/tomtom215/concertwatch/internal/models"
	"github.com/tomtom215/concertwatch/internal/reference"
	"github.com/tomtom215/concertwatch/internal/source"
)

// openSourceCache opens the Badger response cache, or returns nil when the
// cache is disabled.
func openSourceCache(cfg *config.Config) (*badger.DB, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}
	return source.OpenCache(cfg.Cache.Path)
}

// buildSources creates the configured sources in priority order. Disabled
// sources are dropped from the order. Network-backed sources share one pacer
// and are wrapped by the cache when it is open.
func buildSources(cfg *config.Config, provider reference.Provider, cache *badger.DB, logger *zerolog.Logger) ([]source.Source, error) {
	pacer := source.NewPacer(cfg.Sources.RequestDelay())

	cached := func(s source.Source) source.Source {
		if cache == nil {
			return s
		}
		return source.NewCachedSource(s, cache, cfg.Cache.TTL, logger)
	}

	available := []source.Source{source.NewVerifiedSource(provider)}
	if cfg.Official.Enabled {
		available = append(available, cached(source.NewOfficialSource(&cfg.Official, provider, pacer, logger)))
	}
	if tm := source.NewTicketmasterSource(&cfg.Ticketmaster, pacer, logger); tm.Enabled() {
		available = append(available, cached(tm))
	}

	enabled := make(map[string]bool, len(available))
	for _, s := range available {
		enabled[s.Name()] = true
	}
	order := make([]string, 0, len(cfg.Sources.Order))
	for _, name := range cfg.Sources.Order {
		switch {
		case enabled[name]:
			order = append(order, name)
		case name == models.SourceVerified || name == models.SourceOfficial || name == models.SourceTicketmaster:
			logger.Info().Str("source", name).Msg("Source disabled, skipping")
		default:
			return nil, fmt.Errorf("unknown source %q in sources.order", name)
		}
	}
	return source.Select(order, available...)
}

// buildNotifier picks Telegram as the primary channel when a bot token is set
// and the log channel otherwise. A configured webhook is added as a mirror.
func buildNotifier(cfg *config.Config, logger *zerolog.Logger) (*delivery.Notifier, error) {
	var primary delivery.Channel
	if cfg.Telegram.BotToken != "" {
		primary = delivery.NewTelegramChannel(&cfg.Telegram, logger)
	} else {
		logger.Warn().Msg("TELEGRAM_BOT_TOKEN not set; notifications are written to the log")
		primary = delivery.NewLogChannel(logger)
	}

	var mirrors []delivery.Channel
	if cfg.Webhook.URL != "" {
		webhook, err := delivery.NewWebhookChannel(&cfg.Webhook)
		if err != nil {
			return nil, fmt.Errorf("webhook channel: %w", err)
		}
		mirrors = append(mirrors, webhook)
	}
	return delivery.NewNotifier(logger, primary, mirrors...), nil
}

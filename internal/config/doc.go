// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

/*
Package config provides layered configuration loading for ConcertWatch.

Configuration is assembled with koanf from three layers, later layers winning:

 1. Built-in defaults (defaultConfig)
 2. An optional YAML file: CONFIG_PATH, ./config.yaml or /etc/concertwatch/config.yaml
 3. Environment variables, mapped explicitly (see envMappings)

The loaded Config is validated with the shared go-playground validator
(struct tags) followed by cross-field checks.

# Engine Settings

	CHECK_INTERVAL_HOURS           scan cadence in hours (default: 4)
	CLEANUP_DAYS                   notification history retention (default: 30)
	CLEANUP_CRON                   cleanup schedule (default: "0 3 * * *")
	RATE_LIMIT_DELAY               seconds between outbound requests (default: 0.2)
	DEFAULT_COUNTRY                target country, ISO alpha-2 (default: IT)
	SEARCH_MONTHS_AHEAD            search horizon in months (default: 6)
	MAX_CONCERTS_PER_NOTIFICATION  concerts per message (default: 10)

# Integrations

	TELEGRAM_BOT_TOKEN     Telegram bot token; notifications are only logged without it
	TICKETMASTER_API_KEY   Discovery API key; the source is skipped without it
	WEBHOOK_URL            optional webhook mirror for every notification
	DATABASE_PATH          DuckDB file (default: /data/concertwatch.duckdb)
	CACHE_PATH, CACHE_TTL  Badger response cache (default: /data/cache, 3h)
	ADMIN_TOKEN            bearer token for /api/v1 (required in production)
*/
package config

// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/concertwatch/config.yaml",
	"/etc/concertwatch/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// Default returns the built-in configuration, the base layer LoadWithKoanf
// starts from.
func Default() *Config {
	return &Config{
		Scan: ScanConfig{
			CheckIntervalHours: 4,
			InitialDelay:       time.Minute,
			ArtistTimeout:      2 * time.Minute,
		},
		Cleanup: CleanupConfig{
			RetentionDays: 30,
			Schedule:      "0 3 * * *",
			Timezone:      "Local",
			BatchSize:     500,
			BatchTimeout:  2 * time.Minute,
		},
		Sources: SourcesConfig{
			TargetCountry:     "IT",
			SearchMonthsAhead: 6,
			RateLimitDelay:    0.2,
			Order:             []string{"verified", "official", "ticketmaster"},
		},
		Ticketmaster: TicketmasterConfig{
			BaseURL:   "https://app.ticketmaster.com/discovery/v2",
			PageSize:  50,
			RetryWait: time.Second,
			Timeout:   30 * time.Second,
		},
		Official: OfficialConfig{
			Enabled:      true,
			UserAgent:    "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
			Timeout:      30 * time.Second,
			MaxBodyBytes: 2 << 20,
		},
		Cache: CacheConfig{
			Enabled: true,
			Path:    "/data/cache",
			TTL:     3 * time.Hour,
		},
		Matcher: MatcherConfig{
			Threshold: 85,
		},
		Notify: NotifyConfig{
			MaxConcertsPerNotification: 10,
			Header:                     "Nuovi concerti trovati!",
		},
		Telegram: TelegramConfig{
			APIEndpoint: "https://api.telegram.org/bot%s/%s",
			Timeout:     30 * time.Second,
		},
		Webhook: WebhookConfig{
			Timeout: 10 * time.Second,
		},
		Events: EventsConfig{
			BufferSize:  256,
			HistorySize: 100,
		},
		Database: DatabaseConfig{
			Path:      "/data/concertwatch.duckdb",
			MaxMemory: "512MB",
		},
		Server: ServerConfig{
			Enabled:         true,
			Host:            "0.0.0.0",
			Port:            8080,
			Timeout:         30 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   120,
			RateLimitWindow: time.Minute,
			Environment:     "development",
		},
		Supervisor: SupervisorConfig{
			ShutdownTimeout: 60 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadWithKoanf loads configuration with layered sources:
//  1. Defaults: built-in values from Default
//  2. Config file: optional YAML file (CONFIG_PATH or DefaultConfigPaths)
//  3. Environment variables: mapped names such as CHECK_INTERVAL_HOURS
//
// The result is validated before it is returned.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths are parsed from comma-separated env values.
var sliceConfigPaths = []string{
	"server.cors_origins",
	"sources.order",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps lower-cased environment variable names to koanf paths.
// Unmapped variables are ignored.
var envMappings = map[string]string{
	// Scan
	"check_interval_hours": "scan.check_interval_hours",
	"scan_initial_delay":   "scan.initial_delay",
	"scan_artist_timeout":  "scan.artist_timeout",

	// Cleanup
	"cleanup_days":          "cleanup.retention_days",
	"cleanup_cron":          "cleanup.schedule",
	"cleanup_batch_size":    "cleanup.batch_size",
	"cleanup_batch_timeout": "cleanup.batch_timeout",
	"timezone":              "cleanup.timezone",

	// Sources
	"default_country":     "sources.target_country",
	"search_months_ahead": "sources.search_months_ahead",
	"rate_limit_delay":    "sources.rate_limit_delay",
	"source_order":        "sources.order",

	// Ticketmaster
	"ticketmaster_api_key":    "ticketmaster.api_key",
	"ticketmaster_base_url":   "ticketmaster.base_url",
	"ticketmaster_page_size":  "ticketmaster.page_size",
	"ticketmaster_retry_wait": "ticketmaster.retry_wait",
	"ticketmaster_timeout":    "ticketmaster.timeout",

	// Official scraper
	"official_enabled":    "official.enabled",
	"official_user_agent": "official.user_agent",
	"official_timeout":    "official.timeout",

	// Cache
	"cache_enabled": "cache.enabled",
	"cache_path":    "cache.path",
	"cache_ttl":     "cache.ttl",

	// Reference data and matching
	"reference_catalog_path": "reference.catalog_path",
	"match_threshold":        "matcher.threshold",

	// Notifications
	"max_concerts_per_notification": "notify.max_concerts_per_notification",
	"notify_header":                 "notify.header",
	"telegram_bot_token":            "telegram.bot_token",
	"telegram_api_endpoint":         "telegram.api_endpoint",
	"webhook_url":                   "webhook.url",
	"webhook_auth":                  "webhook.auth_header",

	// Event bus
	"events_buffer_size":  "events.buffer_size",
	"events_history_size": "events.history_size",

	// Database
	"database_path":     "database.path",
	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",

	// Server
	"http_enabled":        "server.enabled",
	"http_host":           "server.host",
	"http_port":           "server.port",
	"http_timeout":        "server.timeout",
	"admin_token":         "server.admin_token",
	"cors_origins":        "server.cors_origins",
	"rate_limit_requests": "server.rate_limit_reqs",
	"rate_limit_window":   "server.rate_limit_window",
	"environment":         "server.environment",

	// Supervisor
	"shutdown_timeout": "supervisor.shutdown_timeout",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps an environment variable name to its koanf path.
//
// Examples:
//   - CHECK_INTERVAL_HOURS -> scan.check_interval_hours
//   - CLEANUP_DAYS -> cleanup.retention_days
//   - DEFAULT_COUNTRY -> sources.target_country
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

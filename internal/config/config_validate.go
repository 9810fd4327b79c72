// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/concertwatch/internal/validation"
)

// Validate checks struct-level constraints and the cross-field rules that
// tags cannot express.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}

	if err := c.validateCleanup(); err != nil {
		return err
	}

	if err := c.validateSources(); err != nil {
		return err
	}

	if err := c.validateTelegram(); err != nil {
		return err
	}

	if err := c.validateCache(); err != nil {
		return err
	}

	return c.validateServer()
}

func (c *Config) validateCleanup() error {
	if len(strings.Fields(c.Cleanup.Schedule)) != 5 {
		return fmt.Errorf("CLEANUP_CRON must have 5 fields (minute hour day month weekday), got %q", c.Cleanup.Schedule)
	}
	if c.Cleanup.Timezone != "" {
		if _, err := time.LoadLocation(c.Cleanup.Timezone); err != nil {
			return fmt.Errorf("TIMEZONE is invalid: %w", err)
		}
	}
	return nil
}

func (c *Config) validateSources() error {
	seen := make(map[string]bool, len(c.Sources.Order))
	for _, name := range c.Sources.Order {
		if seen[name] {
			return fmt.Errorf("SOURCE_ORDER lists %q more than once", name)
		}
		seen[name] = true
	}
	return nil
}

// validateTelegram rejects tokens that cannot be a bot token ("<id>:<secret>").
func (c *Config) validateTelegram() error {
	if c.Telegram.BotToken == "" {
		return nil
	}
	id, secret, ok := strings.Cut(c.Telegram.BotToken, ":")
	if !ok || id == "" || secret == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN must have the form <bot id>:<secret>")
	}
	if strings.Count(c.Telegram.APIEndpoint, "%s") != 2 {
		return fmt.Errorf("TELEGRAM_API_ENDPOINT must contain two %%s placeholders (token, method)")
	}
	return nil
}

func (c *Config) validateCache() error {
	if c.Cache.Enabled && c.Cache.TTL > 0 && c.Cache.Path == "" {
		return fmt.Errorf("CACHE_PATH is required when CACHE_ENABLED=true")
	}
	return nil
}

func (c *Config) validateServer() error {
	if !c.Server.Enabled {
		return nil
	}
	if c.Server.AdminToken == "" && c.IsProduction() {
		return fmt.Errorf("ADMIN_TOKEN is required when ENVIRONMENT=production. " +
			"Set a token or use ENVIRONMENT=development for testing purposes")
	}
	if c.Server.RateLimitReqs > 0 && c.Server.RateLimitWindow < time.Second {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be at least 1s when rate limiting is enabled")
	}
	return nil
}

// hasWildcardCORS checks if CORS is configured with wildcard origins.
func (c *Config) hasWildcardCORS() bool {
	for _, origin := range c.Server.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// ShouldWarnAboutCORS reports a wildcard CORS policy in front of an
// authenticated admin API.
func (c *Config) ShouldWarnAboutCORS() bool {
	return c.Server.AdminToken != "" && c.hasWildcardCORS()
}

// IsProduction reports whether ENVIRONMENT=production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Environment, "production")
}

// ScanSettingsSummary returns the effective engine settings for startup logs.
func (c *Config) ScanSettingsSummary() map[string]interface{} {
	return map[string]interface{}{
		"check_interval_hours":          c.Scan.CheckIntervalHours,
		"cleanup_days":                  c.Cleanup.RetentionDays,
		"cleanup_schedule":              c.Cleanup.Schedule,
		"rate_limit_delay":              c.Sources.RequestDelay().String(),
		"target_country":                c.Sources.TargetCountry,
		"search_months_ahead":           c.Sources.SearchMonthsAhead,
		"max_concerts_per_notification": c.Notify.MaxConcertsPerNotification,
		"ticketmaster_enabled":          c.Ticketmaster.APIKey != "",
		"telegram_enabled":              c.Telegram.BotToken != "",
	}
}

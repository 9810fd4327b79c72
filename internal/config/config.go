// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

package config

import (
	"time"
)

// Config holds all application configuration. It is populated by
// LoadWithKoanf from defaults, an optional YAML file and environment
// variables, in that order of precedence (last wins).
type Config struct {
	Scan         ScanConfig         `koanf:"scan"`
	Cleanup      CleanupConfig      `koanf:"cleanup"`
	Sources      SourcesConfig      `koanf:"sources"`
	Ticketmaster TicketmasterConfig `koanf:"ticketmaster"`
	Official     OfficialConfig     `koanf:"official"`
	Cache        CacheConfig        `koanf:"cache"`
	Reference    ReferenceConfig    `koanf:"reference"`
	Matcher      MatcherConfig      `koanf:"matcher"`
	Notify       NotifyConfig       `koanf:"notify"`
	Telegram     TelegramConfig     `koanf:"telegram"`
	Webhook      WebhookConfig      `koanf:"webhook"`
	Events       EventsConfig       `koanf:"events"`
	Database     DatabaseConfig     `koanf:"database"`
	Server       ServerConfig       `koanf:"server"`
	Supervisor   SupervisorConfig   `koanf:"supervisor"`
	Logging      LoggingConfig      `koanf:"logging"`
}

// ScanConfig controls the periodic concert scan.
type ScanConfig struct {
	CheckIntervalHours int           `koanf:"check_interval_hours" validate:"min=1,max=168"`
	InitialDelay       time.Duration `koanf:"initial_delay" validate:"min=0"`
	ArtistTimeout      time.Duration `koanf:"artist_timeout" validate:"min=1s"`
}

// CheckInterval returns the scan cadence as a duration.
func (s ScanConfig) CheckInterval() time.Duration {
	return time.Duration(s.CheckIntervalHours) * time.Hour
}

// CleanupConfig controls pruning of notification history.
type CleanupConfig struct {
	RetentionDays int           `koanf:"retention_days" validate:"min=1,max=3650"`
	Schedule      string        `koanf:"schedule" validate:"required"` // 5-field cron expression
	Timezone      string        `koanf:"timezone"`
	BatchSize     int           `koanf:"batch_size" validate:"min=1,max=100000"`
	BatchTimeout  time.Duration `koanf:"batch_timeout" validate:"min=1s"` // bounds each delete statement
}

// Retention returns the retention window as a duration.
func (c CleanupConfig) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// SourcesConfig holds settings shared by all event sources.
type SourcesConfig struct {
	TargetCountry     string   `koanf:"target_country" validate:"required,country_code"`
	SearchMonthsAhead int      `koanf:"search_months_ahead" validate:"min=1,max=24"`
	RateLimitDelay    float64  `koanf:"rate_limit_delay" validate:"min=0,max=60"` // seconds
	Order             []string `koanf:"order" validate:"min=1,dive,oneof=verified official ticketmaster"`
}

// RequestDelay returns the minimum delay between outbound requests.
func (s SourcesConfig) RequestDelay() time.Duration {
	return time.Duration(s.RateLimitDelay * float64(time.Second))
}

// TicketmasterConfig holds Ticketmaster Discovery API settings. The source is
// disabled when APIKey is empty.
type TicketmasterConfig struct {
	APIKey    string        `koanf:"api_key"`
	BaseURL   string        `koanf:"base_url" validate:"required,http_url"`
	PageSize  int           `koanf:"page_size" validate:"min=1,max=200"`
	RetryWait time.Duration `koanf:"retry_wait" validate:"min=0"`
	Timeout   time.Duration `koanf:"timeout" validate:"min=1s"`
}

// OfficialConfig holds settings for the official artist page scraper.
type OfficialConfig struct {
	Enabled      bool          `koanf:"enabled"`
	UserAgent    string        `koanf:"user_agent" validate:"required"`
	Timeout      time.Duration `koanf:"timeout" validate:"min=1s"`
	MaxBodyBytes int64         `koanf:"max_body_bytes" validate:"min=1024"`
}

// CacheConfig controls the Badger-backed source response cache.
type CacheConfig struct {
	Enabled bool          `koanf:"enabled"`
	Path    string        `koanf:"path"`
	TTL     time.Duration `koanf:"ttl" validate:"min=0"`
}

// ReferenceConfig points at an optional operator-maintained catalog that
// replaces the embedded one.
type ReferenceConfig struct {
	CatalogPath string `koanf:"catalog_path"`
}

// MatcherConfig tunes the artist identity matcher.
type MatcherConfig struct {
	Threshold float64 `koanf:"threshold" validate:"min=50,max=100"`
}

// NotifyConfig controls message batching and wording.
type NotifyConfig struct {
	MaxConcertsPerNotification int    `koanf:"max_concerts_per_notification" validate:"min=1,max=50"`
	Header                     string `koanf:"header" validate:"required"`
}

// TelegramConfig holds Telegram Bot API settings. Without a token the log
// channel is used instead.
type TelegramConfig struct {
	BotToken    string        `koanf:"bot_token"`
	APIEndpoint string        `koanf:"api_endpoint" validate:"required"`
	Timeout     time.Duration `koanf:"timeout" validate:"min=1s"`
}

// WebhookConfig configures the optional webhook mirror channel.
type WebhookConfig struct {
	URL        string        `koanf:"url" validate:"omitempty,http_url"`
	AuthHeader string        `koanf:"auth_header"`
	Timeout    time.Duration `koanf:"timeout" validate:"min=1s"`
}

// EventsConfig sizes the in-process event bus.
type EventsConfig struct {
	BufferSize  int64 `koanf:"buffer_size" validate:"min=1"`
	HistorySize int   `koanf:"history_size" validate:"min=1,max=10000"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	Path      string `koanf:"path" validate:"required"`
	MaxMemory string `koanf:"max_memory" validate:"required"`
	Threads   int    `koanf:"threads" validate:"min=0"` // 0 = runtime.NumCPU()
}

// ServerConfig holds admin HTTP API settings.
type ServerConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	Timeout         time.Duration `koanf:"timeout" validate:"min=1s"`
	AdminToken      string        `koanf:"admin_token"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs" validate:"min=0"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	Environment     string        `koanf:"environment" validate:"oneof=development production test"`
}

// SupervisorConfig controls the suture tree.
type SupervisorConfig struct {
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"min=1s"`
}

// engineDrainMargin covers the cycle bookkeeping that follows the last
// artist or delete batch.
const engineDrainMargin = 15 * time.Second

// EngineShutdownTimeout is how long the supervisor waits for the scheduler
// to stop. An in-flight artist and a cleanup batch both run detached from
// shutdown, so the wait is never shorter than either of their timeouts.
func (c *Config) EngineShutdownTimeout() time.Duration {
	drain := max(c.Scan.ArtistTimeout, c.Cleanup.BatchTimeout) + engineDrainMargin
	return max(c.Supervisor.ShutdownTimeout, drain)
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn warning error fatal panic disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	if cfg.Scan.CheckIntervalHours != 4 {
		t.Errorf("Scan.CheckIntervalHours = %d, want 4", cfg.Scan.CheckIntervalHours)
	}
	if cfg.Scan.CheckInterval() != 4*time.Hour {
		t.Errorf("Scan.CheckInterval() = %v, want 4h", cfg.Scan.CheckInterval())
	}
	if cfg.Cleanup.RetentionDays != 30 {
		t.Errorf("Cleanup.RetentionDays = %d, want 30", cfg.Cleanup.RetentionDays)
	}
	if cfg.Cleanup.Retention() != 30*24*time.Hour {
		t.Errorf("Cleanup.Retention() = %v", cfg.Cleanup.Retention())
	}
	if cfg.Cleanup.Schedule != "0 3 * * *" {
		t.Errorf("Cleanup.Schedule = %q", cfg.Cleanup.Schedule)
	}
	if cfg.Sources.TargetCountry != "IT" {
		t.Errorf("Sources.TargetCountry = %q, want IT", cfg.Sources.TargetCountry)
	}
	if cfg.Sources.SearchMonthsAhead != 6 {
		t.Errorf("Sources.SearchMonthsAhead = %d, want 6", cfg.Sources.SearchMonthsAhead)
	}
	if cfg.Sources.RequestDelay() != 200*time.Millisecond {
		t.Errorf("Sources.RequestDelay() = %v, want 200ms", cfg.Sources.RequestDelay())
	}
	if cfg.Notify.MaxConcertsPerNotification != 10 {
		t.Errorf("Notify.MaxConcertsPerNotification = %d, want 10", cfg.Notify.MaxConcertsPerNotification)
	}
	if got := strings.Join(cfg.Sources.Order, ","); got != "verified,official,ticketmaster" {
		t.Errorf("Sources.Order = %q", got)
	}
}

func TestDefaultConfig_Validates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "zero check interval",
			mutate:  func(c *Config) { c.Scan.CheckIntervalHours = 0 },
			wantErr: "CheckIntervalHours",
		},
		{
			name:    "zero retention",
			mutate:  func(c *Config) { c.Cleanup.RetentionDays = 0 },
			wantErr: "RetentionDays",
		},
		{
			name:    "lower-case country",
			mutate:  func(c *Config) { c.Sources.TargetCountry = "it" },
			wantErr: "TargetCountry",
		},
		{
			name:    "horizon too long",
			mutate:  func(c *Config) { c.Sources.SearchMonthsAhead = 36 },
			wantErr: "SearchMonthsAhead",
		},
		{
			name:    "negative delay",
			mutate:  func(c *Config) { c.Sources.RateLimitDelay = -1 },
			wantErr: "RateLimitDelay",
		},
		{
			name:    "unknown source",
			mutate:  func(c *Config) { c.Sources.Order = []string{"verified", "songkick"} },
			wantErr: "Order",
		},
		{
			name:    "duplicate source",
			mutate:  func(c *Config) { c.Sources.Order = []string{"verified", "verified"} },
			wantErr: "more than once",
		},
		{
			name:    "bad cron",
			mutate:  func(c *Config) { c.Cleanup.Schedule = "0 3 * *" },
			wantErr: "CLEANUP_CRON",
		},
		{
			name:    "bad timezone",
			mutate:  func(c *Config) { c.Cleanup.Timezone = "Mars/Olympus" },
			wantErr: "TIMEZONE",
		},
		{
			name:    "malformed bot token",
			mutate:  func(c *Config) { c.Telegram.BotToken = "not-a-token" },
			wantErr: "TELEGRAM_BOT_TOKEN",
		},
		{
			name:    "invalid webhook url",
			mutate:  func(c *Config) { c.Webhook.URL = "ftp://example.com/hook" },
			wantErr: "URL",
		},
		{
			name: "production without admin token",
			mutate: func(c *Config) {
				c.Server.Environment = "production"
			},
			wantErr: "ADMIN_TOKEN",
		},
		{
			name:    "cache enabled without path",
			mutate:  func(c *Config) { c.Cache.Path = "" },
			wantErr: "CACHE_PATH",
		},
		{
			name:    "unknown log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "Format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want it to mention %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidate_ProductionWithToken(t *testing.T) {
	cfg := Default()
	cfg.Server.Environment = "production"
	cfg.Server.AdminToken = "s3cret"

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	if !cfg.ShouldWarnAboutCORS() {
		t.Error("wildcard CORS with an admin token should warn")
	}
}

func TestScanSettingsSummary(t *testing.T) {
	cfg := Default()
	cfg.Ticketmaster.APIKey = "key"

	summary := cfg.ScanSettingsSummary()
	if summary["ticketmaster_enabled"] != true {
		t.Error("expected ticketmaster_enabled=true")
	}
	if summary["telegram_enabled"] != false {
		t.Error("expected telegram_enabled=false")
	}
	if summary["rate_limit_delay"] != "200ms" {
		t.Errorf("rate_limit_delay = %v", summary["rate_limit_delay"])
	}
}

func TestEngineShutdownTimeout(t *testing.T) {
	tests := []struct {
		name     string
		shutdown time.Duration
		artist   time.Duration
		batch    time.Duration
		want     time.Duration
	}{
		{"defaults outlast the artist timeout", 60 * time.Second, 2 * time.Minute, 2 * time.Minute, 2*time.Minute + 15*time.Second},
		{"long cleanup batch", 10 * time.Second, 30 * time.Second, 5 * time.Minute, 5*time.Minute + 15*time.Second},
		{"shutdown timeout already longer", 10 * time.Minute, 2 * time.Minute, time.Minute, 10 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Supervisor.ShutdownTimeout = tt.shutdown
			cfg.Scan.ArtistTimeout = tt.artist
			cfg.Cleanup.BatchTimeout = tt.batch

			got := cfg.EngineShutdownTimeout()
			if got != tt.want {
				t.Errorf("EngineShutdownTimeout() = %s, want %s", got, tt.want)
			}
			if got < tt.artist || got < tt.batch {
				t.Errorf("EngineShutdownTimeout() = %s is shorter than detached work", got)
			}
		})
	}
}

// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/concertwatch/internal/logging"
)

// schemaContext returns a context with timeout for schema operations
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// No foreign keys: DuckDB has no ON DELETE CASCADE, so DeleteSubscriber
// removes dependent rows itself inside one transaction.
var tableCreationQueries = []string{
	`CREATE TABLE IF NOT EXISTS subscribers (
		id TEXT PRIMARY KEY,
		username TEXT,
		activated_at TIMESTAMP NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tracked_artists (
		subscriber_id TEXT NOT NULL,
		name TEXT NOT NULL,
		name_key TEXT NOT NULL,
		added_at TIMESTAMP NOT NULL,
		PRIMARY KEY (subscriber_id, name_key)
	)`,
	`CREATE TABLE IF NOT EXISTS concert_notifications (
		id TEXT PRIMARY KEY,
		subscriber_id TEXT NOT NULL,
		concert_key TEXT NOT NULL,
		artist_name TEXT NOT NULL,
		concert_date DATE NOT NULL,
		sent_at TIMESTAMP NOT NULL,
		UNIQUE (subscriber_id, concert_key)
	)`,
	`CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
}

// createTables creates the core database tables
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range tableCreationQueries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}
	return nil
}

// Migration represents a versioned database migration.
type Migration struct {
	Version     int
	Name        string
	Description string
	SQL         string
}

// migrations are append-only. Never modify or remove an applied migration.
var migrations = []Migration{
	{
		Version:     1,
		Name:        "idx_notifications_sent_at",
		Description: "Index sent_at for retention cleanup",
		SQL:         `CREATE INDEX IF NOT EXISTS idx_notifications_sent_at ON concert_notifications (sent_at)`,
	},
	{
		Version:     2,
		Name:        "idx_tracked_artists_name_key",
		Description: "Index name_key for per-artist grouping",
		SQL:         `CREATE INDEX IF NOT EXISTS idx_tracked_artists_name_key ON tracked_artists (name_key)`,
	},
}

// runVersionedMigrations executes only migrations that have not been applied.
func (db *DB) runVersionedMigrations() error {
	ctx, cancel := schemaContext()
	defer cancel()

	applied, err := db.appliedMigrations(ctx)
	if err != nil {
		return err
	}

	newMigrations := 0
	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}
		if _, err := db.conn.ExecContext(ctx, m.SQL); err != nil {
			return fmt.Errorf("failed to execute migration v%d (%s): %w", m.Version, m.Name, err)
		}
		if _, err := db.conn.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, name, description) VALUES (?, ?, ?)`,
			m.Version, m.Name, m.Description); err != nil {
			return fmt.Errorf("failed to record migration v%d: %w", m.Version, err)
		}
		newMigrations++
	}

	if newMigrations > 0 {
		logging.Info().Int("count", newMigrations).Msg("Applied database migrations")
	}
	return nil
}

func (db *DB) appliedMigrations(ctx context.Context) (map[int]bool, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

// GetCurrentSchemaVersion returns the highest applied migration version
func (db *DB) GetCurrentSchemaVersion(ctx context.Context) (int, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var version int
	err := db.conn.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/concertwatch/internal/matcher"
	"github.com/tomtom215/concertwatch/internal/models"
)

// UpsertSubscriber creates the subscriber or updates its username.
// ActivatedAt is written only on first insert; a zero value means now.
// The stored row is returned.
func (db *DB) UpsertSubscriber(ctx context.Context, sub models.Subscriber) (_ *models.Subscriber, err error) {
	defer db.observe("UPSERT", "subscribers", time.Now(), &err)

	if strings.TrimSpace(sub.ID) == "" {
		return nil, fmt.Errorf("subscriber id is required")
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	now := time.Now().UTC()
	activated := sub.ActivatedAt.UTC()
	if sub.ActivatedAt.IsZero() {
		activated = now
	}

	query := `
		INSERT INTO subscribers (id, username, activated_at, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET username = excluded.username`

	if _, err = db.conn.ExecContext(ctx, query, sub.ID, sub.Username, activated, now); err != nil {
		return nil, fmt.Errorf("failed to upsert subscriber %s: %w", sub.ID, err)
	}

	return db.getSubscriber(ctx, sub.ID)
}

// GetSubscriber returns the subscriber with its tracked artists, or ErrNotFound.
func (db *DB) GetSubscriber(ctx context.Context, id string) (_ *models.Subscriber, err error) {
	defer db.observe("SELECT", "subscribers", time.Now(), &err)

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	return db.getSubscriber(ctx, id)
}

func (db *DB) getSubscriber(ctx context.Context, id string) (*models.Subscriber, error) {
	var sub models.Subscriber
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, username, activated_at, created_at FROM subscribers WHERE id = ?`, id,
	).Scan(&sub.ID, &sub.Username, &sub.ActivatedAt, &sub.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscriber %s: %w", id, err)
	}
	sub.ActivatedAt = sub.ActivatedAt.UTC()
	sub.CreatedAt = sub.CreatedAt.UTC()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT name FROM tracked_artists WHERE subscriber_id = ? ORDER BY name_key`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list artists for %s: %w", id, err)
	}
	defer rows.Close()

	sub.Artists = []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan artist: %w", err)
		}
		sub.Artists = append(sub.Artists, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating artists: %w", err)
	}
	return &sub, nil
}

// ListSubscribers returns every subscriber with its tracked artists,
// ordered by creation time.
func (db *DB) ListSubscribers(ctx context.Context) (_ []models.Subscriber, err error) {
	defer db.observe("SELECT", "subscribers", time.Now(), &err)

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, username, activated_at, created_at
		FROM subscribers
		ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscribers: %w", err)
	}
	defer rows.Close()

	subs := []models.Subscriber{}
	index := make(map[string]int)
	for rows.Next() {
		var sub models.Subscriber
		if err := rows.Scan(&sub.ID, &sub.Username, &sub.ActivatedAt, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan subscriber: %w", err)
		}
		sub.ActivatedAt = sub.ActivatedAt.UTC()
		sub.CreatedAt = sub.CreatedAt.UTC()
		sub.Artists = []string{}
		index[sub.ID] = len(subs)
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subscribers: %w", err)
	}

	artistRows, err := db.conn.QueryContext(ctx,
		`SELECT subscriber_id, name FROM tracked_artists ORDER BY subscriber_id, name_key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tracked artists: %w", err)
	}
	defer artistRows.Close()

	for artistRows.Next() {
		var id, name string
		if err := artistRows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("failed to scan artist: %w", err)
		}
		if i, ok := index[id]; ok {
			subs[i].Artists = append(subs[i].Artists, name)
		}
	}
	if err := artistRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating artists: %w", err)
	}
	return subs, nil
}

// DeleteSubscriber removes the subscriber, its tracked artists and its
// notification records in one transaction.
func (db *DB) DeleteSubscriber(ctx context.Context, id string) (err error) {
	defer db.observe("DELETE", "subscribers", time.Now(), &err)

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackQuietly(tx)

	if _, err = tx.ExecContext(ctx, `DELETE FROM concert_notifications WHERE subscriber_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete notifications for %s: %w", id, err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM tracked_artists WHERE subscriber_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete artists for %s: %w", id, err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM subscribers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete subscriber %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete of %s: %w", id, err)
	}
	return nil
}

// AddTrackedArtist starts tracking name for the subscriber. Names are
// unique per subscriber after normalization; adding an existing name is a
// no-op and reports added=false.
func (db *DB) AddTrackedArtist(ctx context.Context, subscriberID, name string) (added bool, err error) {
	defer db.observe("INSERT", "tracked_artists", time.Now(), &err)

	name = strings.TrimSpace(name)
	key := matcher.Normalize(name)
	if key == "" {
		return false, fmt.Errorf("artist name %q is empty after normalization", name)
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var exists bool
	if err = db.conn.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM subscribers WHERE id = ?)`, subscriberID,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check subscriber %s: %w", subscriberID, err)
	}
	if !exists {
		return false, ErrNotFound
	}

	result, err := db.conn.ExecContext(ctx, `
		INSERT INTO tracked_artists (subscriber_id, name, name_key, added_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT DO NOTHING`,
		subscriberID, name, key, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("failed to add artist %q for %s: %w", name, subscriberID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return affected > 0, nil
}

// RemoveTrackedArtist stops tracking name. Matching is on the normalized
// name, so "AC/DC" removes "ac dc". Returns ErrNotFound when nothing matched.
func (db *DB) RemoveTrackedArtist(ctx context.Context, subscriberID, name string) (err error) {
	defer db.observe("DELETE", "tracked_artists", time.Now(), &err)

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM tracked_artists WHERE subscriber_id = ? AND name_key = ?`,
		subscriberID, matcher.Normalize(name))
	if err != nil {
		return fmt.Errorf("failed to remove artist %q for %s: %w", name, subscriberID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListTrackedArtists returns every (subscriber, artist) pair, ordered by
// normalized name then subscriber.
func (db *DB) ListTrackedArtists(ctx context.Context) (_ []models.TrackedArtist, err error) {
	defer db.observe("SELECT", "tracked_artists", time.Now(), &err)

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT subscriber_id, name, added_at
		FROM tracked_artists
		ORDER BY name_key, subscriber_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tracked artists: %w", err)
	}
	defer rows.Close()

	var artists []models.TrackedArtist
	for rows.Next() {
		var a models.TrackedArtist
		if err := rows.Scan(&a.SubscriberID, &a.Name, &a.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tracked artist: %w", err)
		}
		a.AddedAt = a.AddedAt.UTC()
		artists = append(artists, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tracked artists: %w", err)
	}
	return artists, nil
}

// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/concertwatch/internal/models"
)

// NotificationExists reports whether the subscriber was already told about
// the concert identified by key.
func (db *DB) NotificationExists(ctx context.Context, subscriberID, key string) (exists bool, err error) {
	defer db.observe("SELECT", "concert_notifications", time.Now(), &err)

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	err = db.conn.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM concert_notifications
			WHERE subscriber_id = ? AND concert_key = ?
		)`, subscriberID, key).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check notification %s/%s: %w", subscriberID, key, err)
	}
	return exists, nil
}

// InsertNotification stores rec unless a record for the same subscriber and
// concert key exists. inserted is false for a duplicate. Missing ID and
// SentAt are filled in on rec.
func (db *DB) InsertNotification(ctx context.Context, rec *models.NotificationRecord) (inserted bool, err error) {
	defer db.observe("INSERT", "concert_notifications", time.Now(), &err)

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.SentAt.IsZero() {
		rec.SentAt = time.Now().UTC()
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	result, err := db.conn.ExecContext(ctx, `
		INSERT INTO concert_notifications
			(id, subscriber_id, concert_key, artist_name, concert_date, sent_at)
		VALUES (?, ?, ?, ?, CAST(? AS DATE), ?)
		ON CONFLICT DO NOTHING`,
		rec.ID, rec.SubscriberID, rec.ConcertKey, rec.ArtistName,
		rec.ConcertDate.UTC().Format(models.DateLayout), rec.SentAt.UTC())
	if err != nil {
		return false, fmt.Errorf("failed to insert notification %s/%s: %w", rec.SubscriberID, rec.ConcertKey, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return affected > 0, nil
}

// DeleteNotificationsOlderThan removes up to limit records sent before
// cutoff, oldest first. A limit <= 0 removes all of them.
func (db *DB) DeleteNotificationsOlderThan(ctx context.Context, cutoff time.Time, limit int) (deleted int64, err error) {
	defer db.observe("DELETE", "concert_notifications", time.Now(), &err)

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `DELETE FROM concert_notifications WHERE sent_at < ?`
	args := []interface{}{cutoff.UTC()}
	if limit > 0 {
		// DuckDB has no DELETE ... LIMIT
		query = `
			DELETE FROM concert_notifications
			WHERE id IN (
				SELECT id FROM concert_notifications
				WHERE sent_at < ?
				ORDER BY sent_at
				LIMIT ?
			)`
		args = append(args, limit)
	}

	result, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old notifications: %w", err)
	}
	deleted, err = result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return deleted, nil
}

// ListNotifications returns the subscriber's records, newest first.
func (db *DB) ListNotifications(ctx context.Context, subscriberID string, limit int) (_ []models.NotificationRecord, err error) {
	defer db.observe("SELECT", "concert_notifications", time.Now(), &err)

	if limit <= 0 {
		limit = 100
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, subscriber_id, concert_key, artist_name, concert_date, sent_at
		FROM concert_notifications
		WHERE subscriber_id = ?
		ORDER BY sent_at DESC, concert_key
		LIMIT ?`, subscriberID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications for %s: %w", subscriberID, err)
	}
	defer rows.Close()

	records := []models.NotificationRecord{}
	for rows.Next() {
		var r models.NotificationRecord
		if err := rows.Scan(&r.ID, &r.SubscriberID, &r.ConcertKey, &r.ArtistName, &r.ConcertDate, &r.SentAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		r.ConcertDate = r.ConcertDate.UTC()
		r.SentAt = r.SentAt.UTC()
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}
	return records, nil
}

// CountNotifications counts records for one subscriber, or for everyone
// when subscriberID is empty.
func (db *DB) CountNotifications(ctx context.Context, subscriberID string) (count int64, err error) {
	defer db.observe("SELECT", "concert_notifications", time.Now(), &err)

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if subscriberID == "" {
		err = db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM concert_notifications`).Scan(&count)
	} else {
		err = db.conn.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM concert_notifications WHERE subscriber_id = ?`, subscriberID).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return count, nil
}

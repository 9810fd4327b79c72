// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

package dispatcher

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/concertwatch/internal/delivery"
	"github.com/tomtom215/concertwatch/internal/filter"
	"github.com/tomtom215/concertwatch/internal/logging"
	"github.com/tomtom215/concertwatch/internal/metrics"
	"github.com/tomtom215/concertwatch/internal/models"
)

// DefaultBatchSize is the number of concerts per message when unset.
const DefaultBatchSize = 10

// Notification outcomes recorded in concertwatch_notifications_total.
const (
	resultSent            = "sent"
	resultFailed          = "failed"
	resultKnown           = "skipped_known"
	resultBeforeActivated = "skipped_before_activation"
)

// Repository is the notification history the dispatcher deduplicates
// against. *database.DB satisfies it.
type Repository interface {
	NotificationExists(ctx context.Context, subscriberID, key string) (bool, error)
	InsertNotification(ctx context.Context, rec *models.NotificationRecord) (bool, error)
}

// Notifier delivers one rendered message. *delivery.Notifier satisfies it.
type Notifier interface {
	Notify(ctx context.Context, params *delivery.SendParams) (*delivery.DeliveryResult, error)
}

// Publisher receives an event for every newly stored notification record.
type Publisher interface {
	ConcertNotified(ctx context.Context, rec models.NotificationRecord)
}

// Dispatcher decides which concerts a subscriber has not yet been told
// about, sends them in batches of at most batchSize concerts that fit one
// message, and records each confirmed send.
//
// Delivery is at-least-once: records are written only after the notifier
// confirms a batch, so a failed batch is sent again on the next cycle.
type Dispatcher struct {
	repo      Repository
	notifier  Notifier
	formatter *delivery.Formatter
	batchSize int
	publisher Publisher
	logger    zerolog.Logger
	now       func() time.Time
}

// New creates a Dispatcher. batchSize <= 0 uses DefaultBatchSize.
func New(repo Repository, notifier Notifier, formatter *delivery.Formatter, batchSize int, logger *zerolog.Logger) *Dispatcher {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if formatter == nil {
		formatter = delivery.NewFormatter("")
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Dispatcher{
		repo:      repo,
		notifier:  notifier,
		formatter: formatter,
		batchSize: batchSize,
		logger:    logger.With().Str("component", "dispatcher").Logger(),
		now:       time.Now,
	}
}

// SetPublisher registers the receiver of concert.notified events.
func (d *Dispatcher) SetPublisher(p Publisher) {
	d.publisher = p
}

// Process notifies sub about every concert it has not seen yet and returns
// how many concerts were newly recorded. Concerts dated before the
// subscriber's activation day are never sent. Send failures are logged and
// left for the next cycle; repository failures are returned as
// *PersistenceError.
func (d *Dispatcher) Process(ctx context.Context, sub *models.Subscriber, concerts []models.Concert) (int, error) {
	log := logging.For(ctx, d.logger).With().Str("subscriber", sub.ID).Logger()

	pending, err := d.pending(ctx, sub, concerts)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	notified := 0
	// Each batch is exactly the concerts of one message, so a confirmed
	// send records nothing the subscriber did not receive.
	for _, batch := range d.formatter.Split(pending, d.batchSize) {
		if err := ctx.Err(); err != nil {
			return notified, fmt.Errorf("dispatch interrupted: %w", err)
		}

		if err := d.send(ctx, sub, batch); err != nil {
			metrics.RecordNotification(resultFailed, len(batch))
			log.Warn().Err(err).Int("concerts", len(batch)).Msg("Batch not delivered, will retry next cycle")
			continue
		}

		n, err := d.record(ctx, sub, batch)
		notified += n
		if err != nil {
			return notified, err
		}
	}

	if notified > 0 {
		log.Info().Int("notified", notified).Msg("Subscriber notified")
	}
	return notified, nil
}

// pending filters out concerts before activation and concerts already
// recorded, keeping input order.
func (d *Dispatcher) pending(ctx context.Context, sub *models.Subscriber, concerts []models.Concert) ([]models.Concert, error) {
	activated := filter.Day(sub.ActivatedAt)

	pending := make([]models.Concert, 0, len(concerts))
	for i := range concerts {
		c := concerts[i]
		if filter.Day(c.Date).Before(activated) {
			metrics.RecordNotification(resultBeforeActivated, 1)
			continue
		}

		exists, err := d.repo.NotificationExists(ctx, sub.ID, c.Key)
		if err != nil {
			return nil, &PersistenceError{Op: "check notification", Err: err}
		}
		if exists {
			metrics.RecordNotification(resultKnown, 1)
			continue
		}
		pending = append(pending, c)
	}
	return pending, nil
}

func (d *Dispatcher) send(ctx context.Context, sub *models.Subscriber, batch []models.Concert) error {
	bodyHTML, bodyText := d.formatter.Render(batch)

	meta := &delivery.DeliveryMetadata{CycleID: logging.CycleIDFromContext(ctx)}
	seen := make(map[string]bool)
	for i := range batch {
		meta.ConcertKeys = append(meta.ConcertKeys, batch[i].Key)
		if !seen[batch[i].Artist] {
			seen[batch[i].Artist] = true
			meta.Artists = append(meta.Artists, batch[i].Artist)
		}
	}

	_, err := d.notifier.Notify(ctx, &delivery.SendParams{
		Recipient: sub.ID,
		Subject:   d.formatter.Header(),
		BodyHTML:  bodyHTML,
		BodyText:  bodyText,
		Metadata:  meta,
	})
	return err
}

// record stores a NotificationRecord for every concert in a delivered
// batch. A duplicate insert is a no-op and is not counted.
func (d *Dispatcher) record(ctx context.Context, sub *models.Subscriber, batch []models.Concert) (int, error) {
	sentAt := d.now().UTC()
	inserted := 0
	for i := range batch {
		rec := models.NotificationRecord{
			SubscriberID: sub.ID,
			ConcertKey:   batch[i].Key,
			ArtistName:   batch[i].Artist,
			ConcertDate:  batch[i].Date,
			SentAt:       sentAt,
		}
		ok, err := d.repo.InsertNotification(ctx, &rec)
		if err != nil {
			metrics.RecordNotification(resultSent, inserted)
			return inserted, &PersistenceError{Op: "insert notification", Err: err}
		}
		if !ok {
			continue
		}
		inserted++
		if d.publisher != nil {
			d.publisher.ConcertNotified(ctx, rec)
		}
	}
	metrics.RecordNotification(resultSent, inserted)
	return inserted, nil
}

// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/concertwatch/internal/config"
	"github.com/tomtom215/concertwatch/internal/logging"
	"github.com/tomtom215/concertwatch/internal/metrics"
	"github.com/tomtom215/concertwatch/internal/models"
)

// MetadataCorrelationID carries the logging correlation ID across the bus.
const MetadataCorrelationID = "correlation_id"

// Bus publishes domain events over a Watermill GoChannel.
type Bus struct {
	pubsub *gochannel.GoChannel
	logger zerolog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewBus creates the bus. Watermill logs through the zerolog slog adapter.
func NewBus(cfg *config.EventsConfig, logger *zerolog.Logger) *Bus {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	component := logger.With().Str("component", "event-bus").Logger()

	wmLogger := watermill.NewSlogLogger(slog.New(logging.NewSlogHandlerWithLogger(component)))

	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: cfg.BufferSize,
		}, wmLogger),
		logger: component,
	}
}

// Publish marshals payload and publishes it on topic.
func (b *Bus) Publish(ctx context.Context, topic string, payload interface{}) (err error) {
	defer func() { metrics.RecordEventPublished(topic, err) }()

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return fmt.Errorf("event bus is closed")
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", topic, err)
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		msg.Metadata.Set(MetadataCorrelationID, id)
	}

	if err := b.pubsub.Publish(topic, msg); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// ConcertNotified publishes a concert.notified event. Failures are logged.
func (b *Bus) ConcertNotified(ctx context.Context, rec models.NotificationRecord) {
	err := b.Publish(ctx, TopicConcertNotified, ConcertNotified{
		SubscriberID: rec.SubscriberID,
		ConcertKey:   rec.ConcertKey,
		Artist:       rec.ArtistName,
		Date:         rec.ConcertDate.Format(models.DateLayout),
		SentAt:       rec.SentAt,
	})
	if err != nil {
		logging.For(ctx, b.logger).Warn().Err(err).Str("concert_key", rec.ConcertKey).Msg("Failed to publish event")
	}
}

// ScanCompleted publishes a scan.completed event. Failures are logged.
func (b *Bus) ScanCompleted(ctx context.Context, report models.CycleReport) {
	if err := b.Publish(ctx, TopicScanCompleted, report); err != nil {
		logging.For(ctx, b.logger).Warn().Err(err).Str("cycle_id", report.ID).Msg("Failed to publish event")
	}
}

// Subscribe returns the message stream for topic. The stream closes when
// ctx is canceled or the bus is closed.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, topic)
}

// Close shuts the bus down. Subscriber streams are closed.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.pubsub.Close()
}

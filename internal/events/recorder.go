// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"
)

// DefaultHistorySize is the number of events kept when unset.
const DefaultHistorySize = 100

// Recorder subscribes to every topic and keeps the last N events in a ring
// buffer. It implements suture.Service.
type Recorder struct {
	bus    *Bus
	logger zerolog.Logger

	mu    sync.RWMutex
	ring  []Event
	next  int
	count int
	ready chan struct{}
	once  sync.Once
}

// NewRecorder creates a Recorder keeping size events.
func NewRecorder(bus *Bus, size int, logger *zerolog.Logger) *Recorder {
	if size <= 0 {
		size = DefaultHistorySize
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Recorder{
		bus:    bus,
		logger: logger.With().Str("component", "event-recorder").Logger(),
		ring:   make([]Event, size),
		ready:  make(chan struct{}),
	}
}

// Serve consumes events until ctx is canceled.
func (r *Recorder) Serve(ctx context.Context) error {
	topics := Topics()
	streams := make([]<-chan *message.Message, len(topics))
	for i, topic := range topics {
		stream, err := r.bus.Subscribe(ctx, topic)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
		streams[i] = stream
	}
	r.once.Do(func() { close(r.ready) })

	notified, completed := streams[0], streams[1]
	for notified != nil || completed != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-notified:
			if !ok {
				notified = nil
				continue
			}
			r.record(TopicConcertNotified, msg)
		case msg, ok := <-completed:
			if !ok {
				completed = nil
				continue
			}
			r.record(TopicScanCompleted, msg)
		}
	}

	// Both streams closed: the bus was shut down.
	if err := ctx.Err(); err != nil {
		return err
	}
	return fmt.Errorf("event bus closed")
}

// Ready is closed once the Recorder has subscribed to every topic.
func (r *Recorder) Ready() <-chan struct{} {
	return r.ready
}

func (r *Recorder) record(topic string, msg *message.Message) {
	ev := Event{
		ID:            msg.UUID,
		Topic:         topic,
		CorrelationID: msg.Metadata.Get(MetadataCorrelationID),
		ReceivedAt:    time.Now().UTC(),
		Payload:       append([]byte(nil), msg.Payload...),
	}

	r.mu.Lock()
	r.ring[r.next] = ev
	r.next = (r.next + 1) % len(r.ring)
	if r.count < len(r.ring) {
		r.count++
	}
	r.mu.Unlock()

	msg.Ack()
	r.logger.Debug().Str("topic", topic).Str("event_id", ev.ID).Msg("Event recorded")
}

// Recent returns up to limit events, newest first. limit <= 0 returns all
// retained events.
func (r *Recorder) Recent(limit int) []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := r.count
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Event, 0, n)
	for i := 1; i <= n; i++ {
		idx := (r.next - i + len(r.ring)) % len(r.ring)
		out = append(out, r.ring[idx])
	}
	return out
}

// String implements fmt.Stringer for suture logging.
func (r *Recorder) String() string {
	return "event-recorder"
}

// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

package websocket

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/tomtom215/concertwatch/internal/events"
	"github.com/tomtom215/concertwatch/internal/logging"
)

// Message is the frame sent to clients. Type is the bus topic.
type Message struct {
	Type          string          `json:"type"`
	ID            string          `json:"id"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	SentAt        time.Time       `json:"sent_at"`
	Data          json.RawMessage `json:"data"`
}

// Subscriber is the part of the event bus the hub consumes.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error)
}

// Hub fans bus events out to connected WebSocket clients. It implements
// suture.Service; clients are accepted only while Serve runs.
type Hub struct {
	source   Subscriber
	upgrader websocket.Upgrader
	logger   zerolog.Logger

	mu      sync.RWMutex
	clients map[*Client]struct{}
	running bool

	ready chan struct{}
	once  sync.Once
}

// NewHub creates a hub reading from source. allowedOrigins limits browser
// origins; empty or "*" accepts any origin.
func NewHub(source Subscriber, allowedOrigins []string, logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	h := &Hub{
		source:  source,
		logger:  logger.With().Str("component", "websocket-hub").Logger(),
		clients: make(map[*Client]struct{}),
		ready:   make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		// Non-browser clients send no Origin.
		return origin == "" || len(set) == 0 || set[origin]
	}
}

// Serve subscribes to every bus topic and broadcasts until ctx is canceled.
// Connected clients are closed on return.
func (h *Hub) Serve(ctx context.Context) error {
	topics := events.Topics()
	streams := make([]<-chan *message.Message, len(topics))
	for i, topic := range topics {
		stream, err := h.source.Subscribe(ctx, topic)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
		streams[i] = stream
	}

	h.mu.Lock()
	h.running = true
	h.mu.Unlock()
	h.once.Do(func() { close(h.ready) })
	defer h.closeAll()

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
			h.forward(topics[0], msg)
		case msg, ok := <-completed:
			if !ok {
				completed = nil
				continue
			}
			h.forward(topics[1], msg)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return fmt.Errorf("event bus closed")
}

// Ready is closed once the hub has subscribed and accepts clients.
func (h *Hub) Ready() <-chan struct{} {
	return h.ready
}

func (h *Hub) String() string {
	return "websocket-hub"
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and registers the connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	running := h.running
	h.mu.RUnlock()
	if !running {
		http.Error(w, "event stream not available", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		logging.For(r.Context(), h.logger).Debug().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := newClient(h, conn)
	if !h.register(client) {
		_ = conn.Close()
		return
	}
	client.start()
}

func (h *Hub) register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.running {
		return false
	}
	h.clients[c] = struct{}{}
	h.logger.Info().Int("total_clients", len(h.clients)).Msg("WebSocket client connected")
	return true
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		h.logger.Info().Int("total_clients", len(h.clients)).Msg("WebSocket client disconnected")
	}
}

func (h *Hub) forward(topic string, msg *message.Message) {
	defer msg.Ack()

	frame, err := json.Marshal(Message{
		Type:          topic,
		ID:            msg.UUID,
		CorrelationID: msg.Metadata.Get(events.MetadataCorrelationID),
		SentAt:        time.Now().UTC(),
		Data:          json.RawMessage(msg.Payload),
	})
	if err != nil {
		h.logger.Warn().Err(err).Str("topic", topic).Msg("Failed to encode event frame")
		return
	}
	h.broadcast(frame)
}

// broadcast queues frame for every client. A client whose queue is full is
// disconnected rather than slowing the others down.
func (h *Hub) broadcast(frame []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- frame:
		default:
			delete(h.clients, c)
			close(c.send)
			h.logger.Warn().Msg("Dropping slow WebSocket client")
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.running = false
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

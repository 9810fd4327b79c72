// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/concertwatch/internal/config"
	"github.com/tomtom215/concertwatch/internal/events"
	"github.com/tomtom215/concertwatch/internal/logging"
	"github.com/tomtom215/concertwatch/internal/models"
)

func newTestBus(t *testing.T) *events.Bus {
	t.Helper()
	bus := events.NewBus(&config.EventsConfig{BufferSize: 16, HistorySize: 10}, nil)
	t.Cleanup(func() { _ = bus.Close() })
	return bus
}

// startHub runs the hub until the test ends.
func startHub(t *testing.T, hub *Hub) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.Serve(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	select {
	case <-hub.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not become ready")
	}
	return cancel
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("ClientCount() = %d, want %d", hub.ClientCount(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_RefusesWhenNotRunning(t *testing.T) {
	hub := NewHub(newTestBus(t), nil, nil)

	rec := httptest.NewRecorder()
	hub.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestHub_StreamsBusEvents(t *testing.T) {
	bus := newTestBus(t)
	hub := NewHub(bus, nil, nil)
	startHub(t, hub)

	srv := httptest.NewServer(hub)
	defer srv.Close()
	conn := dial(t, srv)
	waitClients(t, hub, 1)

	ctx := logging.ContextWithCorrelationID(context.Background(), "cid-7")
	bus.ScanCompleted(ctx, models.CycleReport{ID: "cycle-1", Trigger: "manual", Artists: 3})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("frame is not JSON: %v (%s)", err, data)
	}
	if msg.Type != events.TopicScanCompleted {
		t.Errorf("Type = %q, want %q", msg.Type, events.TopicScanCompleted)
	}
	if msg.CorrelationID != "cid-7" {
		t.Errorf("CorrelationID = %q, want cid-7", msg.CorrelationID)
	}
	if !strings.Contains(string(msg.Data), `"cycle-1"`) {
		t.Errorf("Data = %s, want cycle report", msg.Data)
	}
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	hub := NewHub(newTestBus(t), nil, nil)
	cancel := startHub(t, hub)

	srv := httptest.NewServer(hub)
	defer srv.Close()
	conn := dial(t, srv)
	waitClients(t, hub, 1)

	cancel()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Errorf("ReadMessage() error = %v, want going-away close", err)
	}
	waitClients(t, hub, 0)
}

func TestHub_DropsSlowClient(t *testing.T) {
	hub := NewHub(newTestBus(t), nil, nil)
	slow := &Client{hub: hub, send: make(chan []byte)}
	fast := &Client{hub: hub, send: make(chan []byte, 1)}
	hub.clients[slow] = struct{}{}
	hub.clients[fast] = struct{}{}

	hub.broadcast([]byte(`{}`))

	if hub.ClientCount() != 1 {
		t.Fatalf("ClientCount() = %d, want 1", hub.ClientCount())
	}
	if _, ok := <-slow.send; ok {
		t.Error("slow client channel not closed")
	}
	if got := <-fast.send; string(got) != `{}` {
		t.Errorf("fast client got %q", got)
	}
}

func TestOriginChecker(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{"no list allows all", nil, "https://x.example.com", true},
		{"wildcard", []string{"*"}, "https://x.example.com", true},
		{"listed", []string{"https://admin.example.com"}, "https://admin.example.com", true},
		{"not listed", []string{"https://admin.example.com"}, "https://evil.example.com", false},
		{"no origin header", []string{"https://admin.example.com"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			if got := originChecker(tt.allowed)(r); got != tt.want {
				t.Errorf("originChecker() = %v, want %v", got, tt.want)
			}
		})
	}
}

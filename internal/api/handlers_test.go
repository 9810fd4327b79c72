// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/concertwatch/internal/database"
	"github.com/tomtom215/concertwatch/internal/events"
	"github.com/tomtom215/concertwatch/internal/matcher"
	"github.com/tomtom215/concertwatch/internal/models"
	"github.com/tomtom215/concertwatch/internal/reference"
	"github.com/tomtom215/concertwatch/internal/scheduler"
)

// mockStore is an in-memory Store.
type mockStore struct {
	mu            sync.Mutex
	subs          map[string]*models.Subscriber
	notifications map[string][]models.NotificationRecord
	pingErr       error
	listErr       error
}

func newMockStore() *mockStore {
	return &mockStore{
		subs:          make(map[string]*models.Subscriber),
		notifications: make(map[string][]models.NotificationRecord),
	}
}

func (m *mockStore) Ping(ctx context.Context) error { return m.pingErr }

func (m *mockStore) UpsertSubscriber(ctx context.Context, sub models.Subscriber) (*models.Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.subs[sub.ID]; ok {
		existing.Username = sub.Username
		out := *existing
		return &out, nil
	}
	sub.ActivatedAt = time.Now()
	sub.CreatedAt = sub.ActivatedAt
	sub.Artists = []string{}
	m.subs[sub.ID] = &sub
	out := sub
	return &out, nil
}

func (m *mockStore) GetSubscriber(ctx context.Context, id string) (*models.Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subs[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	out := *sub
	out.Artists = append([]string(nil), sub.Artists...)
	return &out, nil
}

func (m *mockStore) ListSubscribers(ctx context.Context) ([]models.Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []models.Subscriber
	for _, s := range m.subs {
		out = append(out, *s)
	}
	return out, nil
}

func (m *mockStore) DeleteSubscriber(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subs[id]; !ok {
		return database.ErrNotFound
	}
	delete(m.subs, id)
	delete(m.notifications, id)
	return nil
}

func (m *mockStore) AddTrackedArtist(ctx context.Context, subscriberID, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subs[subscriberID]
	if !ok {
		return false, database.ErrNotFound
	}
	for _, a := range sub.Artists {
		if matcher.Normalize(a) == matcher.Normalize(name) {
			return false, nil
		}
	}
	sub.Artists = append(sub.Artists, name)
	return true, nil
}

func (m *mockStore) RemoveTrackedArtist(ctx context.Context, subscriberID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subs[subscriberID]
	if !ok {
		return database.ErrNotFound
	}
	for i, a := range sub.Artists {
		if matcher.Normalize(a) == matcher.Normalize(name) {
			sub.Artists = append(sub.Artists[:i], sub.Artists[i+1:]...)
			return nil
		}
	}
	return database.ErrNotFound
}

func (m *mockStore) ListNotifications(ctx context.Context, subscriberID string, limit int) ([]models.NotificationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	recs := m.notifications[subscriberID]
	if len(recs) > limit {
		recs = recs[:limit]
	}
	return append([]models.NotificationRecord(nil), recs...), nil
}

func (m *mockStore) CountNotifications(ctx context.Context, subscriberID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.notifications[subscriberID])), nil
}

func (m *mockStore) GetCurrentSchemaVersion(ctx context.Context) (int, error) {
	return 3, nil
}

// mockFinder returns a canned preview and records the names it was asked for.
type mockFinder struct {
	mu    sync.Mutex
	names []string
	err   error
}

func (m *mockFinder) Preview(ctx context.Context, rawName string) (models.ConcertPreview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names = append(m.names, rawName)
	if m.err != nil {
		return models.ConcertPreview{}, m.err
	}
	return models.ConcertPreview{
		Query:     rawName,
		Artist:    "Metallica",
		Canonical: true,
		Country:   "IT",
		Records:   2,
		Concerts: []models.Concert{{
			Key:         "metallica|2026-06-03|bologna",
			Artist:      "Metallica",
			City:        "Bologna",
			CountryCode: "IT",
			Date:        time.Date(2026, 6, 3, 0, 0, 0, 0, time.UTC),
			Source:      models.SourceVerified,
		}},
	}, nil
}

type mockScans struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (m *mockScans) TriggerScan() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.err
}

func (m *mockScans) Status() scheduler.Status {
	return scheduler.Status{Running: true, Interval: "4h0m0s", CleanupSchedule: "0 3 * * *"}
}

type mockCycles struct {
	report *models.CycleReport
}

func (m *mockCycles) LastReport() (models.CycleReport, bool) {
	if m.report == nil {
		return models.CycleReport{}, false
	}
	return *m.report, true
}

type mockEvents struct {
	lastLimit int
	events    []events.Event
}

func (m *mockEvents) Recent(limit int) []events.Event {
	m.lastLimit = limit
	return m.events
}

type testEnv struct {
	store  *mockStore
	scans  *mockScans
	cycles *mockCycles
	events *mockEvents
	finder *mockFinder
	router http.Handler
}

func newTestEnv(t *testing.T, cfg *MiddlewareConfig) *testEnv {
	t.Helper()
	catalog, err := reference.Default()
	if err != nil {
		t.Fatalf("reference.Default() error = %v", err)
	}
	holder := reference.NewHolder(catalog)

	env := &testEnv{
		store:  newMockStore(),
		scans:  &mockScans{},
		cycles: &mockCycles{},
		events: &mockEvents{},
		finder: &mockFinder{},
	}
	h := NewHandler(Deps{
		Store:    env.store,
		Scans:    env.scans,
		Cycles:   env.cycles,
		Finder:   env.finder,
		Resolver: matcher.New(holder, 0),
		Catalog:  holder,
		Events:   env.events,
		Settings: map[string]interface{}{"target_country": "IT"},
	})
	if cfg == nil {
		cfg = DefaultMiddlewareConfig()
		cfg.RateLimitRequests = 0
	}
	env.router = NewRouter(h, cfg, nil).SetupChi()
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, models.APIResponse) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var resp models.APIResponse
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("%s %s: invalid JSON body %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec, resp
}

func dataMap(t *testing.T, resp models.APIResponse) map[string]interface{} {
	t.Helper()
	m, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("data = %#v, want object", resp.Data)
	}
	return m
}

func errorCode(resp models.APIResponse) string {
	if resp.Error == nil {
		return ""
	}
	return resp.Error.Code
}

func TestHealthLive(t *testing.T) {
	env := newTestEnv(t, nil)
	rec, resp := env.do(t, http.MethodGet, "/health/live", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := dataMap(t, resp)["status"]; got != "ok" {
		t.Errorf("data.status = %v, want ok", got)
	}
}

func TestHealthReady(t *testing.T) {
	env := newTestEnv(t, nil)

	rec, resp := env.do(t, http.MethodGet, "/health/ready", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := dataMap(t, resp)["catalog_version"]; got != "2026.06-1" {
		t.Errorf("catalog_version = %v", got)
	}

	env.store.pingErr = errors.New("database is locked")
	rec, resp = env.do(t, http.MethodGet, "/health/ready", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
	if errorCode(resp) != ErrCodeUnavailable {
		t.Errorf("code = %q", errorCode(resp))
	}
}

func TestSubscriberLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)

	steps := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"missing id", http.MethodPost, "/api/v1/subscribers", `{"username":"anna"}`, 400, ErrCodeValidation},
		{"unknown field", http.MethodPost, "/api/v1/subscribers", `{"id":"42","admin":true}`, 400, ErrCodeValidation},
		{"malformed json", http.MethodPost, "/api/v1/subscribers", `{"id":`, 400, ErrCodeValidation},
		{"create", http.MethodPost, "/api/v1/subscribers", `{"id":"42","username":"anna"}`, 200, ""},
		{"rename keeps subscriber", http.MethodPost, "/api/v1/subscribers", `{"id":"42","username":"anna_b"}`, 200, ""},
		{"get", http.MethodGet, "/api/v1/subscribers/42", "", 200, ""},
		{"get unknown", http.MethodGet, "/api/v1/subscribers/7", "", 404, ErrCodeNotFound},
		{"add artist", http.MethodPost, "/api/v1/subscribers/42/artists", `{"name":"Metallica"}`, 201, ""},
		{"add same artist differently cased", http.MethodPost, "/api/v1/subscribers/42/artists", `{"name":"  METALLICA "}`, 409, ErrCodeConflict},
		{"add blank artist", http.MethodPost, "/api/v1/subscribers/42/artists", `{"name":"   "}`, 400, ErrCodeValidation},
		{"add too long artist", http.MethodPost, "/api/v1/subscribers/42/artists", `{"name":"` + strings.Repeat("a", 101) + `"}`, 400, ErrCodeValidation},
		{"add artist to unknown subscriber", http.MethodPost, "/api/v1/subscribers/7/artists", `{"name":"Muse"}`, 404, ErrCodeNotFound},
		{"add escaped artist", http.MethodPost, "/api/v1/subscribers/42/artists", `{"name":"AC/DC"}`, 201, ""},
		{"remove escaped artist", http.MethodDelete, "/api/v1/subscribers/42/artists/AC%2FDC", "", 200, ""},
		{"remove untracked artist", http.MethodDelete, "/api/v1/subscribers/42/artists/Muse", "", 404, ErrCodeNotFound},
		{"history", http.MethodGet, "/api/v1/subscribers/42/notifications", "", 200, ""},
		{"history unknown", http.MethodGet, "/api/v1/subscribers/7/notifications", "", 404, ErrCodeNotFound},
		{"list", http.MethodGet, "/api/v1/subscribers", "", 200, ""},
		{"delete", http.MethodDelete, "/api/v1/subscribers/42", "", 200, ""},
		{"delete again", http.MethodDelete, "/api/v1/subscribers/42", "", 404, ErrCodeNotFound},
	}

	for _, step := range steps {
		rec, resp := env.do(t, step.method, step.path, step.body)
		if rec.Code != step.wantStatus {
			t.Errorf("%s: status = %d, want %d (body %s)", step.name, rec.Code, step.wantStatus, rec.Body.String())
			continue
		}
		if errorCode(resp) != step.wantCode {
			t.Errorf("%s: code = %q, want %q", step.name, errorCode(resp), step.wantCode)
		}
	}
}

func TestAddArtist_ReportsCanonicalName(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodPost, "/api/v1/subscribers", `{"id":"42"}`)

	rec, resp := env.do(t, http.MethodPost, "/api/v1/subscribers/42/artists", `{"name":"LP"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	data := dataMap(t, resp)
	if data["name"] != "LP" || data["canonical"] != "Linkin Park" {
		t.Errorf("data = %v", data)
	}

	_, resp = env.do(t, http.MethodGet, "/api/v1/subscribers/42", "")
	artists, _ := dataMap(t, resp)["artists"].([]interface{})
	if len(artists) != 1 || artists[0] != "LP" {
		t.Errorf("artists = %v, want the name as entered", artists)
	}
}

func TestNotifications(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodPost, "/api/v1/subscribers", `{"id":"42"}`)
	env.store.notifications["42"] = []models.NotificationRecord{
		{ID: "1", SubscriberID: "42", ConcertKey: "metallica_2026-06-03_bologna"},
		{ID: "2", SubscriberID: "42", ConcertKey: "muse_2026-07-01_milano"},
	}

	rec, resp := env.do(t, http.MethodGet, "/api/v1/subscribers/42/notifications?limit=1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	data := dataMap(t, resp)
	if data["total"] != float64(2) {
		t.Errorf("total = %v, want 2", data["total"])
	}
	if list, _ := data["notifications"].([]interface{}); len(list) != 1 {
		t.Errorf("notifications = %v, want 1 entry", list)
	}
}

func TestListSubscribers_Empty(t *testing.T) {
	env := newTestEnv(t, nil)
	rec, _ := env.do(t, http.MethodGet, "/api/v1/subscribers", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"data":[]`) {
		t.Errorf("body = %s, want empty array", rec.Body.String())
	}

	env.store.listErr = errors.New("boom")
	rec, resp := env.do(t, http.MethodGet, "/api/v1/subscribers", "")
	if rec.Code != http.StatusInternalServerError || errorCode(resp) != ErrCodeInternal {
		t.Errorf("status = %d code = %q", rec.Code, errorCode(resp))
	}
	if strings.Contains(rec.Body.String(), "boom") {
		t.Error("internal error details leaked to the client")
	}
}

func TestTriggerScan(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"started", nil, http.StatusAccepted, ""},
		{"busy", scheduler.ErrScanInProgress, http.StatusConflict, ErrCodeConflict},
		{"not running", scheduler.ErrNotRunning, http.StatusServiceUnavailable, ErrCodeUnavailable},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			env.scans.err = tt.err

			rec, resp := env.do(t, http.MethodPost, "/api/v1/scan", "")
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if errorCode(resp) != tt.wantCode {
				t.Errorf("code = %q, want %q", errorCode(resp), tt.wantCode)
			}
			if env.scans.calls != 1 {
				t.Errorf("TriggerScan calls = %d", env.scans.calls)
			}
		})
	}
}

func TestStatus(t *testing.T) {
	env := newTestEnv(t, nil)
	env.cycles.report = &models.CycleReport{ID: "c1", Artists: 3, Notified: 2}

	rec, resp := env.do(t, http.MethodGet, "/api/v1/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	data := dataMap(t, resp)
	if data["catalog_version"] != "2026.06-1" {
		t.Errorf("catalog_version = %v", data["catalog_version"])
	}
	if data["schema_version"] != float64(3) {
		t.Errorf("schema_version = %v", data["schema_version"])
	}
	if level, _ := data["log_level"].(string); level == "" {
		t.Errorf("log_level = %v", data["log_level"])
	}
	last, _ := data["last_cycle"].(map[string]interface{})
	if last["id"] != "c1" || last["notified"] != float64(2) {
		t.Errorf("last_cycle = %v", last)
	}
	sched, _ := data["scheduler"].(map[string]interface{})
	if sched["running"] != true || sched["interval"] != "4h0m0s" {
		t.Errorf("scheduler = %v", sched)
	}
	settings, _ := data["settings"].(map[string]interface{})
	if settings["target_country"] != "IT" {
		t.Errorf("settings = %v", settings)
	}
}

func TestResolveArtist(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantCanon  string
	}{
		{"alias", "?name=LP", http.StatusOK, "Linkin Park"},
		{"fuzzy", "?name=Metalica", http.StatusOK, "Metallica"},
		{"miss", "?name=Zzyzx%20Quartet", http.StatusNotFound, ""},
		{"missing name", "", http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := env.do(t, http.MethodGet, "/api/v1/artists/resolve"+tt.query, "")
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantCanon == "" {
				return
			}
			identity, _ := dataMap(t, resp)["identity"].(map[string]interface{})
			if identity["canonical"] != tt.wantCanon {
				t.Errorf("identity = %v, want %s", identity, tt.wantCanon)
			}
		})
	}
}

func TestEvents(t *testing.T) {
	env := newTestEnv(t, nil)

	rec, _ := env.do(t, http.MethodGet, "/api/v1/events", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"data":[]`) {
		t.Errorf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	if env.events.lastLimit != defaultEventLimit {
		t.Errorf("limit = %d, want %d", env.events.lastLimit, defaultEventLimit)
	}

	env.events.events = []events.Event{{ID: "e1", Topic: events.TopicScanCompleted, Payload: json.RawMessage(`{"id":"c1"}`)}}
	rec, resp := env.do(t, http.MethodGet, "/api/v1/events?limit=5000", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if env.events.lastLimit != maxEventLimit {
		t.Errorf("limit = %d, want clamp to %d", env.events.lastLimit, maxEventLimit)
	}
	list, _ := resp.Data.([]interface{})
	if len(list) != 1 {
		t.Errorf("events = %v", resp.Data)
	}
}

func TestFindConcerts(t *testing.T) {
	env := newTestEnv(t, nil)

	rec, resp := env.do(t, http.MethodGet, "/api/v1/artists/concerts?name=metallica", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	data := dataMap(t, resp)
	if data["artist"] != "Metallica" || data["canonical"] != true || data["records"] != float64(2) {
		t.Errorf("preview = %v", data)
	}
	concerts, _ := data["concerts"].([]interface{})
	if len(concerts) != 1 {
		t.Fatalf("concerts = %v", data["concerts"])
	}
	if c, _ := concerts[0].(map[string]interface{}); c["city"] != "Bologna" {
		t.Errorf("concert = %v", c)
	}
	if len(env.finder.names) != 1 || env.finder.names[0] != "metallica" {
		t.Errorf("finder calls = %v", env.finder.names)
	}

	rec, resp = env.do(t, http.MethodGet, "/api/v1/artists/concerts?name=%20%20", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("blank name: status = %d, want 400", rec.Code)
	}
	if code := errorCode(resp); code != ErrCodeValidation {
		t.Errorf("blank name: code = %q", code)
	}
	if len(env.finder.names) != 1 {
		t.Errorf("finder called for an invalid name")
	}

	env.finder.err = errors.New("upstream down")
	rec, resp = env.do(t, http.MethodGet, "/api/v1/artists/concerts?name=Muse", "")
	if rec.Code != http.StatusInternalServerError || errorCode(resp) != ErrCodeInternal {
		t.Errorf("finder error: status = %d, code = %q", rec.Code, errorCode(resp))
	}
	if strings.Contains(rec.Body.String(), "upstream down") {
		t.Error("internal error leaked to the client")
	}
}

func TestMissingDependencies(t *testing.T) {
	h := NewHandler(Deps{Store: newMockStore()})
	router := NewRouter(h, nil, nil).SetupChi()

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/v1/scan"},
		{http.MethodGet, "/api/v1/artists/resolve?name=Muse"},
		{http.MethodGet, "/api/v1/artists/concerts?name=Muse"},
		{http.MethodGet, "/api/v1/events/stream"},
	} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s %s: status = %d, want 503", tc.method, tc.path, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status endpoint = %d, want 200 without optional deps", rec.Code)
	}
}

func TestEventStream_DelegatesToHub(t *testing.T) {
	called := false
	h := NewHandler(Deps{
		Store: newMockStore(),
		Stream: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			w.WriteHeader(http.StatusSwitchingProtocols)
		}),
	})
	router := NewRouter(h, nil, nil).SetupChi()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/events/stream", nil))
	if !called {
		t.Fatal("stream handler not called")
	}
	if rec.Code != http.StatusSwitchingProtocols {
		t.Errorf("status = %d, want 101", rec.Code)
	}
}

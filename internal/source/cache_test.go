// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

package source

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/concertwatch/internal/models"
)

func setupTestCache(t *testing.T) *badger.DB {
	t.Helper()
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		t.Fatalf("failed to open badger: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCachedSource_HitAfterMiss(t *testing.T) {
	inner := &mockSource{name: "official", records: []models.RawEvent{{Artist: "Muse", City: "Roma"}}}
	src := NewCachedSource(inner, setupTestCache(t), time.Hour, nil)

	for i := 0; i < 3; i++ {
		got, err := src.Fetch(context.Background(), testQuery())
		if err != nil || len(got) != 1 || got[0].City != "Roma" {
			t.Fatalf("Fetch() #%d = %v, %v", i, got, err)
		}
	}
	if inner.callCount() != 1 {
		t.Errorf("inner calls = %d, want 1", inner.callCount())
	}
	if src.Name() != "official" {
		t.Errorf("Name() = %q", src.Name())
	}
}

func TestCachedSource_CachesEmptyButNotErrors(t *testing.T) {
	db := setupTestCache(t)

	empty := &mockSource{name: "official"}
	src := NewCachedSource(empty, db, time.Hour, nil)
	_, _ = src.Fetch(context.Background(), testQuery())
	_, _ = src.Fetch(context.Background(), testQuery())
	if empty.callCount() != 1 {
		t.Errorf("empty result not cached: %d calls", empty.callCount())
	}

	failing := &mockSource{name: "ticketmaster", err: errors.New("boom")}
	src = NewCachedSource(failing, db, time.Hour, nil)
	_, err1 := src.Fetch(context.Background(), testQuery())
	_, err2 := src.Fetch(context.Background(), testQuery())
	if err1 == nil || err2 == nil {
		t.Error("errors should pass through")
	}
	if failing.callCount() != 2 {
		t.Errorf("failure was cached: %d calls", failing.callCount())
	}
}

func TestCachedSource_KeyIncludesQuery(t *testing.T) {
	inner := &mockSource{name: "official", records: []models.RawEvent{{Artist: "Muse"}}}
	src := NewCachedSource(inner, setupTestCache(t), time.Hour, nil)

	q1 := testQuery()
	q2 := testQuery()
	q2.Country = "GB"
	_, _ = src.Fetch(context.Background(), q1)
	_, _ = src.Fetch(context.Background(), q2)

	if inner.callCount() != 2 {
		t.Errorf("inner calls = %d, want 2", inner.callCount())
	}
}

func TestNewCachedSource_Disabled(t *testing.T) {
	inner := &mockSource{name: "official"}
	if got := NewCachedSource(inner, nil, time.Hour, nil); got != Source(inner) {
		t.Error("nil db should return the inner source")
	}
	if got := NewCachedSource(inner, setupTestCache(t), 0, nil); got != Source(inner) {
		t.Error("zero TTL should return the inner source")
	}
}

func TestCacheGC_StopsOnCancel(t *testing.T) {
	gc := NewCacheGC(setupTestCache(t), 5*time.Millisecond, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	if err := gc.Serve(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Serve() = %v, want deadline exceeded", err)
	}
}

// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/concertwatch/internal/matcher"
	"github.com/tomtom215/concertwatch/internal/metrics"
	"github.com/tomtom215/concertwatch/internal/models"
)

const cacheKeyPrefix = "src:"

// OpenCache opens the Badger store backing the response cache. An empty
// path opens an in-memory store.
func OpenCache(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else if err := os.MkdirAll(path, 0o750); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	opts.Logger = nil // Suppress BadgerDB logs

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for source cache: %w", err)
	}
	return db, nil
}

// cachedEntry is the stored value. Records may be empty: an empty answer is
// cached like any other.
type cachedEntry struct {
	Records  []models.RawEvent `json:"records"`
	CachedAt time.Time         `json:"cached_at"`
}

// CachedSource decorates a Source with a TTL response cache. Only successful
// fetches are stored. Cache failures are logged and bypassed.
type CachedSource struct {
	inner  Source
	db     *badger.DB
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCachedSource wraps inner. A nil db or non-positive ttl returns inner
// unchanged.
func NewCachedSource(inner Source, db *badger.DB, ttl time.Duration, logger *zerolog.Logger) Source {
	if db == nil || ttl <= 0 {
		return inner
	}
	c := &CachedSource{inner: inner, db: db, ttl: ttl, logger: zerolog.Nop()}
	if logger != nil {
		c.logger = logger.With().Str("component", "source_cache").Str("source", inner.Name()).Logger()
	}
	return c
}

// Name implements Source.
func (c *CachedSource) Name() string { return c.inner.Name() }

// Fetch implements Source.
func (c *CachedSource) Fetch(ctx context.Context, q Query) ([]models.RawEvent, error) {
	key := c.key(q)

	records, hit, err := c.lookup(key)
	switch {
	case err != nil:
		metrics.RecordCacheLookup(c.Name(), "error")
		c.logger.Warn().Err(err).Msg("Cache lookup failed, bypassing cache")
	case hit:
		metrics.RecordCacheLookup(c.Name(), "hit")
		return records, nil
	default:
		metrics.RecordCacheLookup(c.Name(), "miss")
	}

	records, err = c.inner.Fetch(ctx, q)
	if err != nil {
		return nil, err
	}

	if err := c.store(key, records); err != nil {
		c.logger.Warn().Err(err).Msg("Cache store failed")
	}
	return records, nil
}

func (c *CachedSource) key(q Query) string {
	return cacheKeyPrefix + strings.Join([]string{
		c.Name(),
		matcher.Normalize(q.Artist),
		strings.ToUpper(q.Country),
		q.From.Format(models.DateLayout),
		q.To.Format(models.DateLayout),
	}, ":")
}

func (c *CachedSource) lookup(key string) ([]models.RawEvent, bool, error) {
	var entry cachedEntry
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return entry.Records, true, nil
}

func (c *CachedSource) store(key string, records []models.RawEvent) error {
	data, err := json.Marshal(cachedEntry{Records: records, CachedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(key), data).WithTTL(c.ttl))
	})
}

// CacheGC reclaims value-log space in the cache store. It is a suture
// service.
type CacheGC struct {
	db       *badger.DB
	interval time.Duration
	logger   zerolog.Logger
}

// NewCacheGC creates the garbage collection service.
func NewCacheGC(db *badger.DB, interval time.Duration, logger *zerolog.Logger) *CacheGC {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	g := &CacheGC{db: db, interval: interval, logger: zerolog.Nop()}
	if logger != nil {
		g.logger = logger.With().Str("component", "cache_gc").Logger()
	}
	return g
}

// Serve runs value-log GC until ctx is canceled.
func (g *CacheGC) Serve(ctx context.Context) error {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := g.db.RunValueLogGC(0.5); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				g.logger.Debug().Err(err).Msg("Value log GC skipped")
			}
		}
	}
}

// String implements fmt.Stringer for suture logging.
func (g *CacheGC) String() string {
	return "source-cache-gc"
}

// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

// Package reference provides the immutable reference data used by the
// engine: canonical artist identities, official pages and verified concerts.
//
// Data is published as versioned snapshots. A Catalog never changes after
// it is built; replacing the data means swapping in a new Catalog through a
// Holder.
package reference

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"github.com/tomtom215/concertwatch/internal/models"
)

//go:embed catalog.yaml
var embeddedCatalog []byte

// ErrInvalidCatalog is returned when a catalog document fails validation.
var ErrInvalidCatalog = errors.New("invalid reference catalog")

// document is the YAML layout of a catalog file.
type document struct {
	Version  string                  `yaml:"version"`
	Artists  []models.ArtistIdentity `yaml:"artists"`
	Concerts []models.RawEvent       `yaml:"concerts"`
}

// Catalog is one immutable snapshot of reference data. Accessors return
// copies so callers cannot mutate shared state.
type Catalog struct {
	version  string
	artists  []models.ArtistIdentity
	concerts []models.RawEvent
	byName   map[string]int
}

// Provider supplies the current reference snapshot.
type Provider interface {
	Snapshot() *Catalog
}

// Default parses the catalog embedded in the binary.
func Default() (*Catalog, error) {
	return Parse(embeddedCatalog)
}

// Load reads a catalog from path, or returns the embedded catalog when path
// is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog document. When the document
// has no version, one is derived from the content hash.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}

	version := strings.TrimSpace(doc.Version)
	if version == "" {
		sum := sha256.Sum256(data)
		version = hex.EncodeToString(sum[:])[:12]
	}

	return New(version, doc.Artists, doc.Concerts)
}

// New builds a validated catalog from in-memory data. Inputs are copied.
func New(version string, artists []models.ArtistIdentity, concerts []models.RawEvent) (*Catalog, error) {
	c := &Catalog{
		version:  version,
		artists:  make([]models.ArtistIdentity, 0, len(artists)),
		concerts: make([]models.RawEvent, 0, len(concerts)),
		byName:   make(map[string]int, len(artists)),
	}

	for i, a := range artists {
		canonical := strings.TrimSpace(a.Canonical)
		if canonical == "" {
			return nil, fmt.Errorf("%w: artist %d has no canonical name", ErrInvalidCatalog, i)
		}
		key := strings.ToLower(canonical)
		if _, dup := c.byName[key]; dup {
			return nil, fmt.Errorf("%w: duplicate artist %q", ErrInvalidCatalog, canonical)
		}
		c.byName[key] = len(c.artists)
		c.artists = append(c.artists, copyIdentity(a, canonical))
	}

	for i, ev := range concerts {
		if strings.TrimSpace(ev.Artist) == "" || strings.TrimSpace(ev.Date) == "" {
			return nil, fmt.Errorf("%w: concert %d needs artist and date", ErrInvalidCatalog, i)
		}
		ev.Source = models.SourceVerified
		ev.SupportActs = append([]string(nil), ev.SupportActs...)
		c.concerts = append(c.concerts, ev)
	}

	return c, nil
}

func copyIdentity(a models.ArtistIdentity, canonical string) models.ArtistIdentity {
	out := a
	out.Canonical = canonical
	out.Aliases = make([]string, 0, len(a.Aliases))
	for _, alias := range a.Aliases {
		if alias = strings.TrimSpace(alias); alias != "" {
			out.Aliases = append(out.Aliases, alias)
		}
	}
	return out
}

// Version identifies this snapshot.
func (c *Catalog) Version() string {
	return c.version
}

// Artists returns a copy of every artist identity.
func (c *Catalog) Artists() []models.ArtistIdentity {
	out := make([]models.ArtistIdentity, len(c.artists))
	for i, a := range c.artists {
		out[i] = copyIdentity(a, a.Canonical)
	}
	return out
}

// Concerts returns a copy of every verified concert record.
func (c *Catalog) Concerts() []models.RawEvent {
	out := make([]models.RawEvent, len(c.concerts))
	for i, ev := range c.concerts {
		ev.SupportActs = append([]string(nil), ev.SupportActs...)
		out[i] = ev
	}
	return out
}

// Identity looks up an artist by canonical name, case-insensitively.
func (c *Catalog) Identity(canonical string) (models.ArtistIdentity, bool) {
	i, ok := c.byName[strings.ToLower(strings.TrimSpace(canonical))]
	if !ok {
		return models.ArtistIdentity{}, false
	}
	a := c.artists[i]
	return copyIdentity(a, a.Canonical), true
}

// Holder is a Provider whose snapshot can be replaced atomically. Readers
// always see a complete catalog, either the old one or the new one.
type Holder struct {
	current atomic.Pointer[Catalog]
}

// NewHolder returns a Holder serving c.
func NewHolder(c *Catalog) *Holder {
	h := &Holder{}
	h.current.Store(c)
	return h
}

// Snapshot implements Provider.
func (h *Holder) Snapshot() *Catalog {
	return h.current.Load()
}

// Replace swaps in a new snapshot and returns the previous one.
func (h *Holder) Replace(c *Catalog) *Catalog {
	return h.current.Swap(c)
}

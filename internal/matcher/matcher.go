// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

// Package matcher resolves free-text artist names to canonical identities.
//
// Resolution is pure: it reads only the injected reference snapshot and the
// input string, and the same pair always yields the same result.
package matcher

import (
	"sync/atomic"

	"github.com/tomtom215/concertwatch/internal/models"
	"github.com/tomtom215/concertwatch/internal/reference"
)

// DefaultThreshold is the minimum score for a fuzzy match.
const DefaultThreshold = 85.0

// MatchType describes how a match was found.
type MatchType string

// Match types.
const (
	MatchTypeExact MatchType = "exact"
	MatchTypeFuzzy MatchType = "fuzzy"
)

// MatchResult holds the outcome of a successful resolution.
type MatchResult struct {
	Identity       models.ArtistIdentity `json:"identity"`
	MatchedName    string                `json:"matched_name"`
	Score          float64               `json:"score"`
	MatchType      MatchType             `json:"match_type"`
	CatalogVersion string                `json:"catalog_version"`
}

type entry struct {
	normalized string
	name       string
	canonical  string
	identity   int
}

// index is the normalized view of one catalog snapshot.
type index struct {
	catalog    *reference.Catalog
	identities []models.ArtistIdentity
	entries    []entry
	exact      map[string][]int // normalized name -> entry positions
}

// Matcher resolves artist names against the snapshot served by a
// reference.Provider. It is safe for concurrent use.
type Matcher struct {
	provider  reference.Provider
	threshold float64
	cached    atomic.Pointer[index]
}

// New creates a Matcher. A threshold outside (0, 100] falls back to
// DefaultThreshold.
func New(provider reference.Provider, threshold float64) *Matcher {
	if threshold <= 0 || threshold > 100 {
		threshold = DefaultThreshold
	}
	return &Matcher{provider: provider, threshold: threshold}
}

// Threshold returns the fuzzy match threshold.
func (m *Matcher) Threshold() float64 {
	return m.threshold
}

// Resolve maps rawName to a canonical identity. An exact normalized match
// on a canonical name or alias always wins. Otherwise the best fuzzy score
// wins if it reaches the threshold. Ties are broken by canonical name, then
// by the matched spelling. ok is false on a miss; callers then use the raw
// name as-is.
func (m *Matcher) Resolve(rawName string) (MatchResult, bool) {
	normalized := Normalize(rawName)
	if normalized == "" {
		return MatchResult{}, false
	}

	idx := m.indexFor(m.provider.Snapshot())
	if idx == nil {
		return MatchResult{}, false
	}

	if positions, ok := idx.exact[normalized]; ok {
		best := idx.entries[positions[0]]
		for _, p := range positions[1:] {
			if less(idx.entries[p], best) {
				best = idx.entries[p]
			}
		}
		return idx.result(best, 100, MatchTypeExact), true
	}

	var (
		best      entry
		bestScore = -1.0
	)
	for _, e := range idx.entries {
		s := Score(normalized, e.normalized)
		if s > bestScore || (s == bestScore && less(e, best)) {
			best, bestScore = e, s
		}
	}

	if bestScore < m.threshold {
		return MatchResult{}, false
	}
	return idx.result(best, bestScore, MatchTypeFuzzy), true
}

// CanonicalName returns the canonical name for rawName, or the trimmed raw
// name on a miss.
func (m *Matcher) CanonicalName(rawName string) string {
	if res, ok := m.Resolve(rawName); ok {
		return res.Identity.Canonical
	}
	return collapseSpaces(rawName)
}

func (idx *index) result(e entry, score float64, t MatchType) MatchResult {
	identity := idx.identities[e.identity]
	identity.Aliases = append([]string(nil), identity.Aliases...)
	return MatchResult{
		Identity:       identity,
		MatchedName:    e.name,
		Score:          score,
		MatchType:      t,
		CatalogVersion: idx.catalog.Version(),
	}
}

func less(a, b entry) bool {
	if a.canonical != b.canonical {
		return a.canonical < b.canonical
	}
	return a.name < b.name
}

// indexFor returns the index for snapshot, rebuilding it when the provider
// has published a new snapshot.
func (m *Matcher) indexFor(snapshot *reference.Catalog) *index {
	if snapshot == nil {
		return nil
	}
	if idx := m.cached.Load(); idx != nil && idx.catalog == snapshot {
		return idx
	}
	idx := buildIndex(snapshot)
	m.cached.Store(idx)
	return idx
}

func buildIndex(c *reference.Catalog) *index {
	idx := &index{
		catalog:    c,
		identities: c.Artists(),
		exact:      make(map[string][]int),
	}
	for i, identity := range idx.identities {
		for _, name := range identity.Names() {
			n := Normalize(name)
			if n == "" {
				continue
			}
			idx.exact[n] = append(idx.exact[n], len(idx.entries))
			idx.entries = append(idx.entries, entry{
				normalized: n,
				name:       name,
				canonical:  identity.Canonical,
				identity:   i,
			})
		}
	}
	return idx
}

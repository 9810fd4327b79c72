// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

package source

import (
	"context"

	"github.com/tomtom215/concertwatch/internal/matcher"
	"github.com/tomtom215/concertwatch/internal/models"
	"github.com/tomtom215/concertwatch/internal/reference"
)

// VerifiedSource serves the hand-checked concerts of the reference catalog.
// It is local and never paced.
type VerifiedSource struct {
	provider reference.Provider
}

// NewVerifiedSource creates a VerifiedSource reading from provider.
func NewVerifiedSource(provider reference.Provider) *VerifiedSource {
	return &VerifiedSource{provider: provider}
}

// Name implements Source.
func (s *VerifiedSource) Name() string { return models.SourceVerified }

// Fetch returns catalog concerts whose artist is the queried artist or one
// of its aliases. Country filtering is left to the caller.
func (s *VerifiedSource) Fetch(ctx context.Context, q Query) ([]models.RawEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snapshot := s.provider.Snapshot()
	if snapshot == nil {
		return nil, nil
	}

	names := map[string]bool{matcher.Normalize(q.Artist): true}
	if identity, ok := identityFor(snapshot, q.Artist); ok {
		for _, n := range identity.Names() {
			names[matcher.Normalize(n)] = true
		}
	}

	var out []models.RawEvent
	for _, ev := range snapshot.Concerts() {
		if names[matcher.Normalize(ev.Artist)] {
			out = append(out, ev)
		}
	}
	return out, nil
}

// identityFor finds the catalog identity whose canonical name or alias
// normalizes to artist.
func identityFor(c *reference.Catalog, artist string) (models.ArtistIdentity, bool) {
	if identity, ok := c.Identity(artist); ok {
		return identity, true
	}
	want := matcher.Normalize(artist)
	if want == "" {
		return models.ArtistIdentity{}, false
	}
	for _, identity := range c.Artists() {
		for _, n := range identity.Names() {
			if matcher.Normalize(n) == want {
				return identity, true
			}
		}
	}
	return models.ArtistIdentity{}, false
}

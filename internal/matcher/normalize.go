// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

package matcher

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize folds s into the form used for all name comparisons:
// diacritics removed, case folded, punctuation and symbols turned into
// spaces, whitespace collapsed.
//
//	Normalize("Måneskin!!")     == "maneskin"
//	Normalize("Guns N' Roses")  == "guns n roses"
//	Normalize("  AC/DC ")       == "ac dc"
func Normalize(s string) string {
	if s == "" {
		return ""
	}

	// Transformers keep internal state, so a fresh chain is built per call.
	stripped, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		s,
	)
	if err != nil {
		stripped = s
	}

	folded := cases.Fold().String(stripped)

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// Slug returns Normalize(s) with spaces replaced by hyphens.
func Slug(s string) string {
	return strings.ReplaceAll(Normalize(s), " ", "-")
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

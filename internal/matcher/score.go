// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

package matcher

import (
	"sort"
	"strings"
)

// tokenSetWeight keeps a bare sub-token match ("green" against "green day")
// below an exact or near-exact spelling.
const tokenSetWeight = 0.9

// Score returns the similarity of two normalized names on a 0-100 scale:
// the best of Ratio, TokenSortRatio and a weighted TokenSetRatio.
func Score(a, b string) float64 {
	best := Ratio(a, b)
	if s := TokenSortRatio(a, b); s > best {
		best = s
	}
	if s := tokenSetWeight * TokenSetRatio(a, b); s > best {
		best = s
	}
	return best
}

// Ratio is the normalized indel similarity 200*LCS/(len(a)+len(b)),
// computed over runes. Two empty strings are identical.
func Ratio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 100
	}
	return 200 * float64(lcsLength(ra, rb)) / float64(total)
}

// TokenSortRatio compares the strings after sorting their tokens, so word
// order does not matter.
func TokenSortRatio(a, b string) float64 {
	return Ratio(sortedTokens(a), sortedTokens(b))
}

// TokenSetRatio compares the shared tokens against each side's remainder.
// Unlike some implementations a strict subset is not promoted to 100.
func TokenSetRatio(a, b string) float64 {
	setA, setB := tokenSet(a), tokenSet(b)

	var shared, onlyA, onlyB []string
	for t := range setA {
		if setB[t] {
			shared = append(shared, t)
		} else {
			onlyA = append(onlyA, t)
		}
	}
	for t := range setB {
		if !setA[t] {
			onlyB = append(onlyB, t)
		}
	}
	sort.Strings(shared)
	sort.Strings(onlyA)
	sort.Strings(onlyB)

	sect := strings.Join(shared, " ")
	combinedA := strings.TrimSpace(sect + " " + strings.Join(onlyA, " "))
	combinedB := strings.TrimSpace(sect + " " + strings.Join(onlyB, " "))

	best := Ratio(combinedA, combinedB)
	if sect == "" {
		return best
	}
	// Comparing the intersection with a side that adds nothing would score 100.
	if len(onlyA) > 0 {
		if s := Ratio(sect, combinedA); s > best {
			best = s
		}
	}
	if len(onlyB) > 0 {
		if s := Ratio(sect, combinedB); s > best {
			best = s
		}
	}
	return best
}

func lcsLength(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				curr[j] = prev[j-1] + 1
			case prev[j] >= curr[j-1]:
				curr[j] = prev[j]
			default:
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func sortedTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, t := range strings.Fields(s) {
		set[t] = true
	}
	return set
}

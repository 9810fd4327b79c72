// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

package filter

import (
	"sort"
	"strings"

	"github.com/tomtom215/concertwatch/internal/matcher"
)

// countryCodes maps normalized country names to ISO 3166-1 alpha-2 codes.
var countryCodes = map[string]string{
	"italy":                    "IT",
	"italia":                   "IT",
	"united states":            "US",
	"united states of america": "US",
	"usa":                      "US",
	"us":                       "US",
	"america":                  "US",
	"united kingdom":           "GB",
	"uk":                       "GB",
	"great britain":            "GB",
	"england":                  "GB",
	"scotland":                 "GB",
	"germany":                  "DE",
	"deutschland":              "DE",
	"france":                   "FR",
	"spain":                    "ES",
	"espana":                   "ES",
	"portugal":                 "PT",
	"netherlands":              "NL",
	"the netherlands":          "NL",
	"holland":                  "NL",
	"belgium":                  "BE",
	"switzerland":              "CH",
	"schweiz":                  "CH",
	"svizzera":                 "CH",
	"austria":                  "AT",
	"osterreich":               "AT",
	"ireland":                  "IE",
	"poland":                   "PL",
	"polska":                   "PL",
	"sweden":                   "SE",
	"norway":                   "NO",
	"denmark":                  "DK",
	"finland":                  "FI",
	"canada":                   "CA",
	"mexico":                   "MX",
	"brazil":                   "BR",
	"argentina":                "AR",
	"australia":                "AU",
	"japan":                    "JP",
}

// cityNames maps normalized English exonyms to the local city name.
var cityNames = map[string]string{
	"milan":    "Milano",
	"rome":     "Roma",
	"florence": "Firenze",
	"turin":    "Torino",
	"naples":   "Napoli",
	"venice":   "Venezia",
	"genoa":    "Genova",
	"padua":    "Padova",
	"mantua":   "Mantova",
	"syracuse": "Siracusa",
	"leghorn":  "Livorno",
}

// CountryCode maps a country code or country name to an upper-case alpha-2
// code. It returns "" when s is neither.
func CountryCode(s string) string {
	n := matcher.Normalize(s)
	if n == "" {
		return ""
	}
	if code, ok := countryCodes[n]; ok {
		return code
	}
	if len(n) == 2 {
		return strings.ToUpper(n)
	}
	return ""
}

// SameCountry reports whether a record country matches the target code.
func SameCountry(recordCountry, target string) bool {
	code := CountryCode(recordCountry)
	return code != "" && strings.EqualFold(code, strings.TrimSpace(target))
}

// CanonicalCity returns the local name for well-known exonyms and the
// trimmed input otherwise.
func CanonicalCity(city string) string {
	if local, ok := cityNames[matcher.Normalize(city)]; ok {
		return local
	}
	return strings.Join(strings.Fields(city), " ")
}

// CountryNames returns every known name for code, sorted.
func CountryNames(code string) []string {
	code = strings.ToUpper(strings.TrimSpace(code))
	var names []string
	for name, c := range countryCodes {
		if c == code && len(name) > 2 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

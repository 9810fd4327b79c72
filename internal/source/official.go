// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"github.com/tomtom215/concertwatch/internal/config"
	"github.com/tomtom215/concertwatch/internal/filter"
	"github.com/tomtom215/concertwatch/internal/models"
	"github.com/tomtom215/concertwatch/internal/reference"
)

// italianIndicators mark a line as referring to an Italian date.
var italianIndicators = []string{
	"italy", "italia", "milan", "milano", "rome", "roma", "bologna", "florence",
	"firenze", "turin", "torino", "naples", "napoli", "venice", "venezia", "verona",
	"imola", "padova", "genova", "bari", "catania", "palermo",
}

type keyword struct {
	match string
	name  string
}

// Keys match whole words only, so "roma" never matches inside "romania".
// Checked in order; multi-word keys first so "arena di verona" wins over "verona".
var cityKeywords = []keyword{
	{"reggio emilia", "Reggio Emilia"},
	{"milan", "Milano"},
	{"milano", "Milano"},
	{"rome", "Roma"},
	{"roma", "Roma"},
	{"bologna", "Bologna"},
	{"florence", "Firenze"},
	{"firenze", "Firenze"},
	{"turin", "Torino"},
	{"torino", "Torino"},
	{"naples", "Napoli"},
	{"napoli", "Napoli"},
	{"venice", "Venezia"},
	{"venezia", "Venezia"},
	{"verona", "Verona"},
	{"imola", "Imola"},
	{"padova", "Padova"},
	{"padua", "Padova"},
	{"genova", "Genova"},
	{"genoa", "Genova"},
	{"bari", "Bari"},
	{"catania", "Catania"},
	{"palermo", "Palermo"},
}

var venueKeywords = []keyword{
	{"arena di verona", "Arena di Verona"},
	{"san siro", "Stadio San Siro"},
	{"olimpico", "Stadio Olimpico"},
	{"dall'ara", "Stadio Renato Dall'Ara"},
	{"mediolanum forum", "Mediolanum Forum"},
	{"unipol forum", "Unipol Forum"},
	{"unipol arena", "Unipol Arena"},
	{"palazzo dello sport", "Palazzo dello Sport"},
	{"ippodromo snai", "Ippodromo SNAI La Maura"},
	{"la maura", "Ippodromo SNAI La Maura"},
	{"visarno", "Visarno Arena"},
	{"circo massimo", "Circo Massimo"},
	{"autodromo", "Autodromo Enzo e Dino Ferrari"},
	{"rcf arena", "RCF Arena"},
	{"inalpi arena", "Inalpi Arena"},
}

var months = map[string]time.Month{
	"january": time.January, "jan": time.January, "gennaio": time.January, "gen": time.January,
	"february": time.February, "feb": time.February, "febbraio": time.February,
	"march": time.March, "mar": time.March, "marzo": time.March,
	"april": time.April, "apr": time.April, "aprile": time.April,
	"may": time.May, "maggio": time.May, "mag": time.May,
	"june": time.June, "jun": time.June, "giugno": time.June, "giu": time.June,
	"july": time.July, "jul": time.July, "luglio": time.July, "lug": time.July,
	"august": time.August, "aug": time.August, "agosto": time.August, "ago": time.August,
	"september": time.September, "sep": time.September, "sept": time.September, "settembre": time.September, "set": time.September,
	"october": time.October, "oct": time.October, "ottobre": time.October, "ott": time.October,
	"november": time.November, "nov": time.November, "novembre": time.November,
	"december": time.December, "dec": time.December, "dicembre": time.December, "dic": time.December,
}

var (
	reDMY       = regexp.MustCompile(`\b(\d{1,2})[/.\-](\d{1,2})[/.\-](\d{4})\b`)
	reYMD       = regexp.MustCompile(`\b(\d{4})[/.\-](\d{1,2})[/.\-](\d{1,2})\b`)
	reMonthDay  = regexp.MustCompile(`\b([a-z]{3,9})\.? (\d{1,2}),? (\d{4})\b`)
	reDayMonth  = regexp.MustCompile(`\b(\d{1,2}) ([a-z]{3,9})\.? (\d{4})\b`)
	blockTags   = map[string]bool{"p": true, "div": true, "li": true, "tr": true, "br": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true, "section": true, "article": true, "ul": true, "ol": true, "table": true, "header": true, "footer": true}
	skippedTags = map[string]bool{"script": true, "style": true, "noscript": true, "template": true, "svg": true}
)

// OfficialSource scrapes the artist's official tour page listed in the
// reference catalog.
type OfficialSource struct {
	provider     reference.Provider
	client       *http.Client
	pacer        *Pacer
	userAgent    string
	maxBodyBytes int64
	logger       zerolog.Logger
}

// NewOfficialSource creates the official-site scraper.
func NewOfficialSource(cfg *config.OfficialConfig, provider reference.Provider, pacer *Pacer, logger *zerolog.Logger) *OfficialSource {
	s := &OfficialSource{
		provider:     provider,
		client:       &http.Client{Timeout: cfg.Timeout},
		pacer:        pacer,
		userAgent:    cfg.UserAgent,
		maxBodyBytes: cfg.MaxBodyBytes,
		logger:       zerolog.Nop(),
	}
	if s.maxBodyBytes <= 0 {
		s.maxBodyBytes = 2 << 20
	}
	if logger != nil {
		s.logger = logger.With().Str("component", "official_scraper").Logger()
	}
	return s
}

// Name implements Source.
func (s *OfficialSource) Name() string { return models.SourceOfficial }

// Fetch downloads the official page and extracts dated lines for the target
// country. Artists without an official page yield no records.
func (s *OfficialSource) Fetch(ctx context.Context, q Query) ([]models.RawEvent, error) {
	snapshot := s.provider.Snapshot()
	if snapshot == nil {
		return nil, nil
	}
	identity, ok := identityFor(snapshot, q.Artist)
	if !ok || identity.OfficialURL == "" {
		s.logger.Debug().Str("artist", q.Artist).Msg("No official page configured")
		return nil, nil
	}

	page, err := s.download(ctx, identity.OfficialURL)
	if err != nil {
		return nil, err
	}

	link := identity.TicketURL
	if link == "" {
		link = identity.OfficialURL
	}
	return ParseTourText(page, identity.Canonical, q.Country, link), nil
}

func (s *OfficialSource) download(ctx context.Context, pageURL string) (string, error) {
	if err := s.pacer.Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "it-IT,it;q=0.9,en;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", transportError(s.Name(), 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", transportError(s.Name(), resp.StatusCode, ErrUpstream)
	}

	text, err := VisibleText(io.LimitReader(resp.Body, s.maxBodyBytes))
	if err != nil {
		return "", transportError(s.Name(), resp.StatusCode, err)
	}
	return text, nil
}

// VisibleText returns the text content of an HTML document, one line per
// block element. Script and style content is dropped.
func VisibleText(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			if skippedTags[n.Data] {
				return
			}
			if blockTags[n.Data] {
				b.WriteByte('\n')
			} else {
				b.WriteByte(' ')
			}
		case html.TextNode:
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockTags[n.Data] {
			b.WriteByte('\n')
		}
	}
	walk(doc)

	lines := strings.Split(b.String(), "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.Join(strings.Fields(l), " "); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n"), nil
}

// ParseTourText extracts concerts from tour page text. A line qualifies when
// it names the target country (or, for Italy, a major Italian city) and
// contains a date.
func ParseTourText(text, artist, country, link string) []models.RawEvent {
	indicators := countryIndicators(country)
	if len(indicators) == 0 {
		return nil
	}

	var out []models.RawEvent
	for _, line := range strings.Split(text, "\n") {
		lower := strings.ToLower(line)
		if !containsAny(lower, indicators) {
			continue
		}
		for _, date := range extractDates(lower) {
			city := lookupKeyword(lower, cityKeywords, "TBA")
			out = append(out, models.RawEvent{
				Artist:  artist,
				Name:    artist + " - Live in " + city,
				Venue:   lookupKeyword(lower, venueKeywords, "TBA"),
				City:    city,
				Country: strings.ToUpper(country),
				Date:    date,
				URL:     link,
				Source:  models.SourceOfficial,
			})
		}
	}
	return out
}

func countryIndicators(country string) []string {
	if strings.EqualFold(country, "IT") {
		return italianIndicators
	}
	return filter.CountryNames(country)
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if containsWord(s, n) {
			return true
		}
	}
	return false
}

func lookupKeyword(line string, keywords []keyword, fallback string) string {
	for _, k := range keywords {
		if containsWord(line, k.match) {
			return k.name
		}
	}
	return fallback
}

// containsWord reports whether word occurs in s with no letter or digit
// directly before or after it.
func containsWord(s, word string) bool {
	if word == "" {
		return false
	}
	for offset := 0; offset < len(s); {
		i := strings.Index(s[offset:], word)
		if i < 0 {
			return false
		}
		start := offset + i
		end := start + len(word)

		before, _ := utf8.DecodeLastRuneInString(s[:start])
		after, _ := utf8.DecodeRuneInString(s[end:])
		if !isWordRune(before) && !isWordRune(after) {
			return true
		}
		_, size := utf8.DecodeRuneInString(s[start:])
		offset = start + size
	}
	return false
}

func isWordRune(r rune) bool {
	return r != utf8.RuneError && (unicode.IsLetter(r) || unicode.IsDigit(r))
}

// extractDates returns every valid date in line as YYYY-MM-DD, in order of
// appearance within each pattern and without repeats.
func extractDates(line string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(y, m, d int) {
		if s, ok := isoDate(y, m, d); ok && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}

	for _, g := range reDMY.FindAllStringSubmatch(line, -1) {
		add(atoi(g[3]), atoi(g[2]), atoi(g[1]))
	}
	for _, g := range reYMD.FindAllStringSubmatch(line, -1) {
		add(atoi(g[1]), atoi(g[2]), atoi(g[3]))
	}
	for _, g := range reMonthDay.FindAllStringSubmatch(line, -1) {
		if m, ok := months[g[1]]; ok {
			add(atoi(g[3]), int(m), atoi(g[2]))
		}
	}
	for _, g := range reDayMonth.FindAllStringSubmatch(line, -1) {
		if m, ok := months[g[2]]; ok {
			add(atoi(g[3]), int(m), atoi(g[1]))
		}
	}
	return out
}

func isoDate(y, m, d int) (string, bool) {
	if m < 1 || m > 12 || d < 1 {
		return "", false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d || int(t.Month()) != m {
		return "", false
	}
	return t.Format(models.DateLayout), true
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

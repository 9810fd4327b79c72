// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

package delivery

import (
	"html"
	"strings"
	"unicode/utf16"

	"github.com/tomtom215/concertwatch/internal/models"
)

// DefaultHeader is the message header used when none is configured.
const DefaultHeader = "Nuovi concerti trovati!"

// MaxMessageLength is the longest message the formatter produces, in UTF-16
// code units. It is Telegram's limit for one text message.
const MaxMessageLength = 4096

// displayDateLayout renders concert dates in messages.
const displayDateLayout = "02/01/2006"

// Per-field caps in escaped UTF-16 units. Together with the fixed labels
// they keep a single concert well under MaxMessageLength, so every concert
// fits in a message of its own.
const (
	maxHeaderLen  = 200
	maxArtistLen  = 150
	maxNameLen    = 300
	maxPlaceLen   = 300
	maxSupportLen = 500
	maxInfoLen    = 300
	maxURLLen     = 1500
)

// Formatter renders concerts as Telegram HTML plus a plaintext rendition.
type Formatter struct {
	header    string
	maxLength int
}

// NewFormatter creates a Formatter with the given header.
func NewFormatter(header string) *Formatter {
	header = strings.TrimSpace(header)
	if header == "" {
		header = DefaultHeader
	}
	return &Formatter{header: header, maxLength: MaxMessageLength}
}

// Header returns the message header.
func (f *Formatter) Header() string {
	return f.header
}

// Render returns the Telegram HTML and the plaintext rendition of concerts
// as one message. All interpolated values are escaped. Callers that need
// the length limit honored use Split first.
func (f *Formatter) Render(concerts []models.Concert) (bodyHTML, bodyText string) {
	var h, t strings.Builder

	hh, ht := f.renderHeader()
	h.WriteString(hh)
	t.WriteString(ht)

	for i := range concerts {
		bh, bt := renderConcert(&concerts[i])
		h.WriteString(bh)
		t.WriteString(bt)
	}
	return h.String(), t.String()
}

// Split groups concerts, in order, into messages of at most maxPerMessage
// concerts whose renditions both fit MaxMessageLength. maxPerMessage <= 0
// means no count limit.
func (f *Formatter) Split(concerts []models.Concert, maxPerMessage int) [][]models.Concert {
	if len(concerts) == 0 {
		return nil
	}

	hh, ht := f.renderHeader()
	headerLen := max(messageLength(hh), messageLength(ht))

	var (
		groups [][]models.Concert
		start  int
		size   = headerLen
	)
	for i := range concerts {
		bh, bt := renderConcert(&concerts[i])
		blockLen := max(messageLength(bh), messageLength(bt))

		count := i - start
		full := maxPerMessage > 0 && count >= maxPerMessage
		if count > 0 && (full || size+blockLen > f.maxLength) {
			groups = append(groups, concerts[start:i])
			start, size = i, headerLen
		}
		size += blockLen
	}
	return append(groups, concerts[start:])
}

// MessageLength returns the length of s as Telegram counts it.
func MessageLength(s string) int {
	return messageLength(s)
}

func messageLength(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

func (f *Formatter) renderHeader() (bodyHTML, bodyText string) {
	return "🎵 <b>" + escapeClip(f.header, maxHeaderLen) + "</b>\n",
		"🎵 " + clip(f.header, maxHeaderLen) + "\n"
}

func renderConcert(c *models.Concert) (bodyHTML, bodyText string) {
	var h, t strings.Builder

	h.WriteString("\n🎤 <b>" + escapeClip(c.Artist, maxArtistLen) + "</b> - " + escapeClip(c.Name, maxNameLen) + "\n")
	t.WriteString("\n🎤 " + clip(c.Artist, maxArtistLen) + " - " + clip(c.Name, maxNameLen) + "\n")

	date := c.Date.Format(displayDateLayout)
	h.WriteString("📅 " + date + "\n")
	t.WriteString("📅 " + date + "\n")

	place := c.City
	if c.Venue != "" {
		place = c.Venue + ", " + c.City
	}
	h.WriteString("📍 " + escapeClip(place, maxPlaceLen) + "\n")
	t.WriteString("📍 " + clip(place, maxPlaceLen) + "\n")

	if len(c.SupportActs) > 0 {
		acts := strings.Join(c.SupportActs, ", ")
		h.WriteString("🎸 Support: " + escapeClip(acts, maxSupportLen) + "\n")
		t.WriteString("🎸 Support: " + clip(acts, maxSupportLen) + "\n")
	}
	if c.TicketInfo != "" {
		h.WriteString("ℹ️ " + escapeClip(c.TicketInfo, maxInfoLen) + "\n")
		t.WriteString("ℹ️ " + clip(c.TicketInfo, maxInfoLen) + "\n")
	}
	// A cut URL is a broken link; an oversized one is left out.
	if link := html.EscapeString(c.URL); c.URL != "" && messageLength(link) <= maxURLLen {
		h.WriteString(`🎫 <a href="` + link + `">Biglietti</a>` + "\n")
		t.WriteString("🎫 Biglietti: " + c.URL + "\n")
	}
	return h.String(), t.String()
}

// escapeClip escapes s rune by rune and stops before the escaped form
// exceeds limit units, so an entity is never cut in half.
func escapeClip(s string, limit int) string {
	escaped := html.EscapeString(s)
	if messageLength(escaped) <= limit {
		return escaped
	}

	var b strings.Builder
	n := 0
	for _, r := range s {
		piece := html.EscapeString(string(r))
		l := messageLength(piece)
		if n+l > limit-1 {
			break
		}
		b.WriteString(piece)
		n += l
	}
	b.WriteString("…")
	return b.String()
}

// clip shortens plain text to limit units with an ellipsis.
func clip(s string, limit int) string {
	if messageLength(s) <= limit {
		return s
	}
	var b strings.Builder
	n := 0
	for _, r := range s {
		l := utf16.RuneLen(r)
		if n+l > limit-1 {
			break
		}
		b.WriteRune(r)
		n += l
	}
	b.WriteString("…")
	return b.String()
}

// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

package delivery

import (
	"context"
	"net/url"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// LogChannel writes messages to the structured log. It is the primary
// channel when no Telegram bot token is configured, so the engine can run
// end to end without external services.
type LogChannel struct {
	logger zerolog.Logger
}

// NewLogChannel creates a log channel.
func NewLogChannel(logger *zerolog.Logger) *LogChannel {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &LogChannel{logger: logger.With().Str("component", "log-channel").Logger()}
}

// Name returns the channel identifier.
func (c *LogChannel) Name() string {
	return ChannelLog
}

// Send logs the plaintext rendition and always succeeds.
func (c *LogChannel) Send(_ context.Context, params *SendParams) (*DeliveryResult, error) {
	text := params.BodyText
	if text == "" {
		text = HTMLToPlaintext(params.BodyHTML)
	}

	event := c.logger.Info().
		Str("recipient", params.Recipient).
		Str("subject", params.Subject)
	if params.Metadata != nil {
		event = event.Strs("concert_keys", params.Metadata.ConcertKeys)
	}
	event.Msg(text)

	result := &DeliveryResult{Channel: ChannelLog, Recipient: params.Recipient}
	return result.succeed(uuid.New().String()), nil
}

// redactURL strips user info and query from a URL for logging.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "invalid-url"
	}
	u.User = nil
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

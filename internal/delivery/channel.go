// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

// Package delivery provides the notification channels used to reach
// subscribers.
//
// Channels:
//   - Telegram: Telegram Bot API through go-telegram-bot-api
//   - Webhook: generic HTTP JSON webhook, used as a mirror
//   - Log: writes messages to the structured log when no bot token is set
//
// A Channel never retries. A failed send is reported through the
// DeliveryResult and the dispatcher retries on the next scan cycle.
//
// Security:
//   - Credentials are never logged
//   - Webhook URLs are validated
package delivery

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/url"
	"strings"
	"time"
)

// Channel names.
const (
	ChannelTelegram = "telegram"
	ChannelWebhook  = "webhook"
	ChannelLog      = "log"
)

// Channel defines the interface for notification delivery channels.
type Channel interface {
	// Name returns the channel identifier (telegram, webhook, log).
	Name() string

	// Send delivers one message to one recipient. A non-nil error is
	// reserved for programming errors; transport failures are reported in
	// the DeliveryResult.
	Send(ctx context.Context, params *SendParams) (*DeliveryResult, error)
}

// SendParams contains all parameters needed for one delivery.
type SendParams struct {
	// Recipient is the subscriber ID (a Telegram chat ID for Telegram).
	Recipient string

	// Subject is the message header.
	Subject string

	// BodyHTML is the Telegram-safe HTML message.
	BodyHTML string

	// BodyText is the plaintext rendition.
	BodyText string

	// Metadata describes what is being delivered.
	Metadata *DeliveryMetadata
}

// DeliveryMetadata contains metadata about the delivery for tracking.
type DeliveryMetadata struct {
	CycleID     string   `json:"cycle_id,omitempty"`
	ConcertKeys []string `json:"concert_keys,omitempty"`
	Artists     []string `json:"artists,omitempty"`
}

// DeliveryResult contains the result of a delivery attempt.
type DeliveryResult struct {
	// Channel is the channel that produced this result.
	Channel string

	// Success indicates if delivery was successful.
	Success bool

	// Recipient is the recipient identifier.
	Recipient string

	// DeliveredAt is when delivery succeeded.
	DeliveredAt *time.Time

	// ErrorMessage contains error details if failed.
	ErrorMessage string

	// ErrorCode is a machine-readable error code.
	ErrorCode string

	// IsTransient indicates if the error is transient.
	IsTransient bool

	// RetryAfter is the wait the service asked for when rate limited.
	RetryAfter *time.Duration

	// ExternalID is the external message ID (if provided by the service).
	ExternalID string

	// ResponseCode is the HTTP response code (for HTTP channels).
	ResponseCode int
}

// Error codes for delivery failures.
const (
	ErrorCodeInvalidConfig     = "INVALID_CONFIG"
	ErrorCodeInvalidRecipient  = "INVALID_RECIPIENT"
	ErrorCodeConnectionFailed  = "CONNECTION_FAILED"
	ErrorCodeAuthFailed        = "AUTH_FAILED"
	ErrorCodeRateLimited       = "RATE_LIMITED"
	ErrorCodeContentTooLarge   = "CONTENT_TOO_LARGE"
	ErrorCodeRecipientNotFound = "RECIPIENT_NOT_FOUND"
	ErrorCodeRecipientOptedOut = "RECIPIENT_OPTED_OUT"
	ErrorCodeServerError       = "SERVER_ERROR"
	ErrorCodeTimeout           = "TIMEOUT"
	ErrorCodeUnknown           = "UNKNOWN"
)

// ErrDeliveryFailed is returned by the Notifier when the primary channel
// did not confirm the send.
var ErrDeliveryFailed = errors.New("delivery failed")

func (r *DeliveryResult) fail(code, format string, args ...interface{}) *DeliveryResult {
	r.Success = false
	r.ErrorCode = code
	r.ErrorMessage = fmt.Sprintf(format, args...)
	r.IsTransient = isTransientError(code)
	return r
}

func (r *DeliveryResult) succeed(externalID string) *DeliveryResult {
	now := time.Now()
	r.Success = true
	r.DeliveredAt = &now
	r.ExternalID = externalID
	return r
}

// ValidateWebhookURL validates a webhook URL.
func ValidateWebhookURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("webhook URL is required")
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid webhook URL: %w", err)
	}
	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return fmt.Errorf("webhook URL must use http or https scheme")
	}
	if parsed.Host == "" {
		return fmt.Errorf("webhook URL must have a host")
	}
	return nil
}

// HTMLToPlaintext converts Telegram HTML to plain text by stripping tags
// and unescaping entities.
func HTMLToPlaintext(body string) string {
	var result strings.Builder
	inTag := false
	for _, r := range body {
		switch r {
		case '<':
			inTag = true
		case '>':
			inTag = false
		default:
			if !inTag {
				result.WriteRune(r)
			}
		}
	}

	lines := strings.Split(html.UnescapeString(result.String()), "\n")
	cleanLines := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			cleanLines = append(cleanLines, line)
		}
	}
	return strings.Join(cleanLines, "\n")
}

// classifyHTTPError classifies a transport error into an error code.
func classifyHTTPError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorCodeTimeout
	}
	errStr := err.Error()
	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline") {
		return ErrorCodeTimeout
	}
	if strings.Contains(errStr, "connection") || strings.Contains(errStr, "refused") {
		return ErrorCodeConnectionFailed
	}
	return ErrorCodeUnknown
}

// classifyHTTPStatusCode classifies an HTTP status code into an error code.
func classifyHTTPStatusCode(code int) string {
	switch {
	case code == 401 || code == 403:
		return ErrorCodeAuthFailed
	case code == 404:
		return ErrorCodeRecipientNotFound
	case code == 429:
		return ErrorCodeRateLimited
	case code == 413:
		return ErrorCodeContentTooLarge
	case code >= 500:
		return ErrorCodeServerError
	default:
		return ErrorCodeUnknown
	}
}

// isTransientError returns true if the error is transient.
func isTransientError(code string) bool {
	switch code {
	case ErrorCodeConnectionFailed, ErrorCodeTimeout, ErrorCodeRateLimited, ErrorCodeServerError:
		return true
	default:
		return false
	}
}

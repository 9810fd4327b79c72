// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

package delivery

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/concertwatch/internal/config"
)

// WebhookChannel implements generic HTTP webhook delivery.
type WebhookChannel struct {
	url    string
	auth   string
	client *http.Client
}

// NewWebhookChannel creates a webhook channel posting to cfg.URL.
func NewWebhookChannel(cfg *config.WebhookConfig) (*WebhookChannel, error) {
	if err := ValidateWebhookURL(cfg.URL); err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &WebhookChannel{
		url:    cfg.URL,
		auth:   cfg.AuthHeader,
		client: &http.Client{Timeout: timeout},
	}, nil
}

// Name returns the channel identifier.
func (c *WebhookChannel) Name() string {
	return ChannelWebhook
}

// WebhookPayload is the JSON body posted to the webhook.
type WebhookPayload struct {
	Event     string            `json:"event"`
	Timestamp time.Time         `json:"timestamp"`
	Recipient string            `json:"recipient"`
	Subject   string            `json:"subject"`
	BodyHTML  string            `json:"body_html,omitempty"`
	BodyText  string            `json:"body_text,omitempty"`
	Metadata  *DeliveryMetadata `json:"metadata,omitempty"`
}

// Send posts the message to the webhook.
func (c *WebhookChannel) Send(ctx context.Context, params *SendParams) (*DeliveryResult, error) {
	result := &DeliveryResult{
		Channel:   ChannelWebhook,
		Recipient: params.Recipient,
	}

	payload := WebhookPayload{
		Event:     "concert.notification",
		Timestamp: time.Now().UTC(),
		Recipient: params.Recipient,
		Subject:   params.Subject,
		BodyHTML:  params.BodyHTML,
		BodyText:  params.BodyText,
		Metadata:  params.Metadata,
	}

	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return result.fail(ErrorCodeUnknown, "failed to marshal payload: %v", err), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(jsonPayload))
	if err != nil {
		return result.fail(ErrorCodeInvalidConfig, "failed to create request: %v", err), nil
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "ConcertWatch-Webhook/1.0")
	if c.auth != "" {
		req.Header.Set("Authorization", c.auth)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return result.fail(classifyHTTPError(err), "failed to send webhook: %v", err), nil
	}
	defer resp.Body.Close()

	result.ResponseCode = resp.StatusCode

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		body = []byte("(failed to read response)")
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var respData struct {
			ID string `json:"id"`
		}
		_ = json.Unmarshal(body, &respData)
		return result.succeed(respData.ID), nil
	}

	result.fail(classifyHTTPStatusCode(resp.StatusCode), "webhook returned %d: %s", resp.StatusCode, string(body))
	if resp.StatusCode == http.StatusTooManyRequests {
		if seconds, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && seconds > 0 {
			retryAfter := time.Duration(seconds) * time.Second
			result.RetryAfter = &retryAfter
		}
	}
	return result, nil
}

// String identifies the channel in logs without leaking credentials.
func (c *WebhookChannel) String() string {
	return fmt.Sprintf("webhook(%s)", redactURL(c.url))
}

// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

package delivery

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/tomtom215/concertwatch/internal/config"
)

// TelegramChannel implements Telegram Bot API delivery.
//
// The BotAPI client is created on first use: tgbotapi calls getMe while
// constructing it, and startup must not depend on Telegram being reachable.
type TelegramChannel struct {
	token    string
	endpoint string
	client   *http.Client
	logger   zerolog.Logger

	mu  sync.Mutex
	bot *tgbotapi.BotAPI
}

// NewTelegramChannel creates a new Telegram delivery channel.
func NewTelegramChannel(cfg *config.TelegramConfig, logger *zerolog.Logger) *TelegramChannel {
	endpoint := cfg.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &TelegramChannel{
		token:    cfg.BotToken,
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "telegram-channel").Logger(),
	}
}

// Name returns the channel identifier.
func (c *TelegramChannel) Name() string {
	return ChannelTelegram
}

func (c *TelegramChannel) botAPI() (*tgbotapi.BotAPI, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.bot != nil {
		return c.bot, nil
	}
	bot, err := tgbotapi.NewBotAPIWithClient(c.token, c.endpoint, c.client)
	if err != nil {
		return nil, err
	}
	c.logger.Info().Str("bot", bot.Self.UserName).Msg("Telegram bot authorized")
	c.bot = bot
	return bot, nil
}

// Send delivers the HTML message to the chat identified by the recipient.
func (c *TelegramChannel) Send(ctx context.Context, params *SendParams) (*DeliveryResult, error) {
	result := &DeliveryResult{
		Channel:   ChannelTelegram,
		Recipient: params.Recipient,
	}

	if c.token == "" {
		return result.fail(ErrorCodeInvalidConfig, "telegram bot token is not configured"), nil
	}

	chatID, err := strconv.ParseInt(strings.TrimSpace(params.Recipient), 10, 64)
	if err != nil {
		return result.fail(ErrorCodeInvalidRecipient, "recipient %q is not a Telegram chat ID", params.Recipient), nil
	}

	// tgbotapi requests carry no context; honor cancellation before the call.
	if err := ctx.Err(); err != nil {
		return result.fail(ErrorCodeTimeout, "send canceled: %v", err), nil
	}

	text := params.BodyHTML
	parseMode := tgbotapi.ModeHTML
	if text == "" {
		text = params.BodyText
		parseMode = ""
	}
	// Never cut: a cut can split a tag or hide concerts that are then
	// recorded as sent. Formatter.Split keeps batches under the limit.
	if n := MessageLength(text); n > MaxMessageLength {
		return result.fail(ErrorCodeContentTooLarge, "message is %d units, limit is %d", n, MaxMessageLength), nil
	}

	bot, err := c.botAPI()
	if err != nil {
		return c.classify(result, "failed to authorize bot", err), nil
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = parseMode
	msg.DisableWebPagePreview = true

	sent, err := bot.Send(msg)
	if err != nil {
		return c.classify(result, "failed to send message", err), nil
	}

	return result.succeed(strconv.Itoa(sent.MessageID)), nil
}

func (c *TelegramChannel) classify(result *DeliveryResult, msg string, err error) *DeliveryResult {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		result.fail(classifyTelegramError(apiErr.Code, apiErr.Message), "%s: %s", msg, apiErr.Message)
		if apiErr.RetryAfter > 0 {
			retryAfter := time.Duration(apiErr.RetryAfter) * time.Second
			result.RetryAfter = &retryAfter
		}
		return result
	}
	return result.fail(classifyHTTPError(err), "%s: %v", msg, err)
}

// classifyTelegramError classifies a Telegram error into an error code.
func classifyTelegramError(code int, description string) string {
	switch code {
	case 401:
		return ErrorCodeAuthFailed
	case 400:
		if strings.Contains(description, "chat not found") {
			return ErrorCodeRecipientNotFound
		}
		if strings.Contains(description, "blocked") || strings.Contains(description, "deactivated") {
			return ErrorCodeRecipientOptedOut
		}
		if strings.Contains(description, "too long") {
			return ErrorCodeContentTooLarge
		}
		return ErrorCodeInvalidConfig
	case 403:
		return ErrorCodeRecipientOptedOut // Bot was blocked by user
	case 404:
		return ErrorCodeAuthFailed // unknown token
	case 429:
		return ErrorCodeRateLimited
	default:
		if code >= 500 {
			return ErrorCodeServerError
		}
		return ErrorCodeUnknown
	}
}

// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

package delivery

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/concertwatch/internal/config"
)

const testBotToken = "123456:test-secret"

// telegramServer fakes the Bot API. sendMessage answers with sendReply.
type telegramServer struct {
	mu        sync.Mutex
	getMe     int
	sent      []map[string]string
	getMeBody string
	sendReply string
}

func newTelegramServer(t *testing.T) (*telegramServer, *httptest.Server) {
	t.Helper()
	fake := &telegramServer{
		getMeBody: `{"ok":true,"result":{"id":123456,"is_bot":true,"first_name":"ConcertWatch","username":"concertwatch_bot"}}`,
		sendReply: `{"ok":true,"result":{"message_id":42,"date":1767225600,"chat":{"id":1001,"type":"private"}}}`,
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fake.mu.Lock()
		defer fake.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/bot" + testBotToken + "/getMe":
			fake.getMe++
			_, _ = w.Write([]byte(fake.getMeBody))
		case "/bot" + testBotToken + "/sendMessage":
			if err := r.ParseForm(); err != nil {
				t.Errorf("ParseForm() error = %v", err)
			}
			fake.sent = append(fake.sent, map[string]string{
				"chat_id":                  r.PostForm.Get("chat_id"),
				"text":                     r.PostForm.Get("text"),
				"parse_mode":               r.PostForm.Get("parse_mode"),
				"disable_web_page_preview": r.PostForm.Get("disable_web_page_preview"),
			})
			_, _ = w.Write([]byte(fake.sendReply))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"ok":false,"error_code":404,"description":"Not Found"}`))
		}
	}))
	t.Cleanup(server.Close)
	return fake, server
}

func newTestTelegramChannel(serverURL string) *TelegramChannel {
	logger := zerolog.Nop()
	return NewTelegramChannel(&config.TelegramConfig{
		BotToken:    testBotToken,
		APIEndpoint: serverURL + "/bot%s/%s",
		Timeout:     5 * time.Second,
	}, &logger)
}

func TestTelegramChannel_Send(t *testing.T) {
	fake, server := newTelegramServer(t)
	ch := newTestTelegramChannel(server.URL)

	params := &SendParams{Recipient: "1001", Subject: "Nuovi concerti trovati!", BodyHTML: "🎵 <b>Nuovi concerti trovati!</b>"}

	for i := 0; i < 2; i++ {
		result, err := ch.Send(context.Background(), params)
		if err != nil {
			t.Fatalf("Send() error = %v", err)
		}
		if !result.Success {
			t.Fatalf("Send() failed: %s (%s)", result.ErrorMessage, result.ErrorCode)
		}
		if result.ExternalID != "42" {
			t.Errorf("ExternalID = %q, want 42", result.ExternalID)
		}
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if fake.getMe != 1 {
		t.Errorf("getMe calls = %d, want 1 (bot client is reused)", fake.getMe)
	}
	if len(fake.sent) != 2 {
		t.Fatalf("sendMessage calls = %d, want 2", len(fake.sent))
	}
	got := fake.sent[0]
	if got["chat_id"] != "1001" || got["parse_mode"] != "HTML" || got["disable_web_page_preview"] != "true" {
		t.Errorf("unexpected sendMessage params: %v", got)
	}
	if !strings.Contains(got["text"], "<b>Nuovi concerti trovati!</b>") {
		t.Errorf("text = %q", got["text"])
	}
}

func TestTelegramChannel_Errors(t *testing.T) {
	tests := []struct {
		name          string
		getMeBody     string
		sendReply     string
		recipient     string
		wantCode      string
		wantRetry     time.Duration
		wantTransient bool
	}{
		{
			name:      "blocked by user",
			sendReply: `{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`,
			recipient: "1001",
			wantCode:  ErrorCodeRecipientOptedOut,
		},
		{
			name:      "chat not found",
			sendReply: `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`,
			recipient: "1001",
			wantCode:  ErrorCodeRecipientNotFound,
		},
		{
			name:          "rate limited",
			sendReply:     `{"ok":false,"error_code":429,"description":"Too Many Requests: retry after 7","parameters":{"retry_after":7}}`,
			recipient:     "1001",
			wantCode:      ErrorCodeRateLimited,
			wantRetry:     7 * time.Second,
			wantTransient: true,
		},
		{
			name:      "bad token",
			getMeBody: `{"ok":false,"error_code":401,"description":"Unauthorized"}`,
			recipient: "1001",
			wantCode:  ErrorCodeAuthFailed,
		},
		{
			name:      "non numeric chat id",
			recipient: "@someone",
			wantCode:  ErrorCodeInvalidRecipient,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake, server := newTelegramServer(t)
			if tt.getMeBody != "" {
				fake.getMeBody = tt.getMeBody
			}
			if tt.sendReply != "" {
				fake.sendReply = tt.sendReply
			}
			ch := newTestTelegramChannel(server.URL)

			result, err := ch.Send(context.Background(), &SendParams{Recipient: tt.recipient, BodyHTML: "hi"})
			if err != nil {
				t.Fatalf("Send() error = %v", err)
			}
			if result.Success {
				t.Fatal("expected failure")
			}
			if result.ErrorCode != tt.wantCode {
				t.Errorf("ErrorCode = %s, want %s (%s)", result.ErrorCode, tt.wantCode, result.ErrorMessage)
			}
			if result.IsTransient != tt.wantTransient {
				t.Errorf("IsTransient = %v, want %v", result.IsTransient, tt.wantTransient)
			}
			if tt.wantRetry > 0 && (result.RetryAfter == nil || *result.RetryAfter != tt.wantRetry) {
				t.Errorf("RetryAfter = %v, want %v", result.RetryAfter, tt.wantRetry)
			}
		})
	}
}

func TestTelegramChannel_NoToken(t *testing.T) {
	ch := NewTelegramChannel(&config.TelegramConfig{}, nil)

	result, err := ch.Send(context.Background(), &SendParams{Recipient: "1001"})
	if err != nil {
		t.Fatal(err)
	}
	if result.Success || result.ErrorCode != ErrorCodeInvalidConfig {
		t.Errorf("result = %+v, want INVALID_CONFIG", result)
	}
}

func TestTelegramChannel_CanceledContext(t *testing.T) {
	fake, server := newTelegramServer(t)
	ch := newTestTelegramChannel(server.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := ch.Send(ctx, &SendParams{Recipient: "1001", BodyHTML: "hi"})
	if err != nil {
		t.Fatal(err)
	}
	if result.Success {
		t.Error("send on canceled context should fail")
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.sent) != 0 {
		t.Error("no request should reach Telegram")
	}
}

func TestTelegramChannel_RejectsOversizedMessage(t *testing.T) {
	fake, server := newTelegramServer(t)
	ch := newTestTelegramChannel(server.URL)

	body := "<b>" + strings.Repeat("x", MaxMessageLength) + "</b>"
	result, err := ch.Send(context.Background(), &SendParams{Recipient: "1001", BodyHTML: body})
	if err != nil {
		t.Fatal(err)
	}
	if result.Success || result.ErrorCode != ErrorCodeContentTooLarge {
		t.Errorf("result = %+v, want CONTENT_TOO_LARGE", result)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.sent) != 0 || fake.getMe != 0 {
		t.Errorf("oversized message reached Telegram: getMe=%d sent=%d", fake.getMe, len(fake.sent))
	}
}

func TestClassifyTelegramError(t *testing.T) {
	tests := []struct {
		code int
		desc string
		want string
	}{
		{401, "Unauthorized", ErrorCodeAuthFailed},
		{400, "Bad Request: user is deactivated", ErrorCodeRecipientOptedOut},
		{400, "Bad Request: message is too long", ErrorCodeContentTooLarge},
		{400, "Bad Request: can't parse entities", ErrorCodeInvalidConfig},
		{502, "Bad Gateway", ErrorCodeServerError},
		{409, "Conflict", ErrorCodeUnknown},
	}

	for _, tt := range tests {
		if got := classifyTelegramError(tt.code, tt.desc); got != tt.want {
			t.Errorf("classifyTelegramError(%d, %q) = %s, want %s", tt.code, tt.desc, got, tt.want)
		}
	}
}

// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/concertwatch/internal/metrics"
)

// Notifier sends a message through the primary channel and, once the
// primary confirms, mirrors it to every secondary channel. Mirror failures
// are logged and never change the result.
type Notifier struct {
	primary Channel
	mirrors []Channel
	logger  zerolog.Logger
}

// NewNotifier creates a Notifier. Nil mirrors are ignored.
func NewNotifier(logger *zerolog.Logger, primary Channel, mirrors ...Channel) *Notifier {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	n := &Notifier{
		primary: primary,
		logger:  logger.With().Str("component", "notifier").Logger(),
	}
	for _, m := range mirrors {
		if m != nil {
			n.mirrors = append(n.mirrors, m)
		}
	}
	return n
}

// Channels returns the primary channel name followed by the mirrors.
func (n *Notifier) Channels() []string {
	names := []string{n.primary.Name()}
	for _, m := range n.mirrors {
		names = append(names, m.Name())
	}
	return names
}

// Notify delivers params through the primary channel. It returns an error
// wrapping ErrDeliveryFailed unless the primary channel confirmed the send.
func (n *Notifier) Notify(ctx context.Context, params *SendParams) (*DeliveryResult, error) {
	result, err := n.send(ctx, n.primary, params)
	if err != nil {
		return result, fmt.Errorf("%w via %s: %w", ErrDeliveryFailed, n.primary.Name(), err)
	}
	if !result.Success {
		return result, fmt.Errorf("%w via %s: %s (%s)",
			ErrDeliveryFailed, n.primary.Name(), result.ErrorMessage, result.ErrorCode)
	}

	for _, m := range n.mirrors {
		mirrored, err := n.send(ctx, m, params)
		switch {
		case err != nil:
			n.logger.Warn().Err(err).Str("channel", m.Name()).Msg("Mirror delivery failed")
		case !mirrored.Success:
			n.logger.Warn().
				Str("channel", m.Name()).
				Str("error_code", mirrored.ErrorCode).
				Str("error", mirrored.ErrorMessage).
				Msg("Mirror delivery failed")
		}
	}

	return result, nil
}

func (n *Notifier) send(ctx context.Context, ch Channel, params *SendParams) (result *DeliveryResult, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("channel %s panicked: %v", ch.Name(), r)
		}
		success := err == nil && result != nil && result.Success
		metrics.RecordDelivery(ch.Name(), time.Since(start), success)
	}()

	result, err = ch.Send(ctx, params)
	if err == nil && result == nil {
		err = fmt.Errorf("channel %s returned no result", ch.Name())
	}
	return result, err
}

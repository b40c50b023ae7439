// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Backoff bounds for Reconnect
const (
	InitialBackoff = time.Second
	MaxBackoff     = 30 * time.Second
)

// Dialer opens a new connection
type Dialer func(ctx context.Context) (Connection, error)

// Reconnect calls dial until it succeeds, ctx is done or attempts run out.
// attempts <= 0 retries forever. The delay doubles from InitialBackoff up
// to MaxBackoff.
func Reconnect(ctx context.Context, dial Dialer, attempts int, log *zap.Logger) (Connection, error) {
	return reconnect(ctx, dial, attempts, log, InitialBackoff, MaxBackoff)
}

func reconnect(ctx context.Context, dial Dialer, attempts int, log *zap.Logger, initial, max time.Duration) (Connection, error) {
	delay := initial
	var lastErr error

	for attempt := 1; attempts <= 0 || attempt <= attempts; attempt++ {
		conn, err := dial(ctx)
		if err == nil {
			if attempt > 1 {
				log.Info("connection restored", zap.Int("attempt", attempt))
			}
			return conn, nil
		}
		lastErr = err
		if attempts > 0 && attempt == attempts {
			log.Warn("connection failed", zap.Int("attempt", attempt), zap.Error(err))
			break
		}
		log.Warn("connection failed", zap.Int("attempt", attempt), zap.Duration("retry_in", delay), zap.Error(err))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > max {
			delay = max
		}
	}

	return nil, fmt.Errorf("giving up after %d attempts: %w", attempts, lastErr)
}

package ranapi

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go/v5"
	"go.uber.org/zap"
)

const maxReadyDelay = 5 * time.Second

// WaitReady ждет, пока бэкенд начнет отвечать на /ping.
// Используется только на старте консоли; эндпоинты данных повторов не делают.
func (c *Client) WaitReady(ctx context.Context, attempts uint) error {
	if attempts == 0 {
		attempts = 1
	}

	r := retry.New(
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.DelayType(func(n uint, err error, config retry.DelayContext) time.Duration {
			// Экспоненциальный бэкофф с потолком, чтобы старт не затягивался
			d := retry.BackOffDelay(n, err, config)
			if d > maxReadyDelay {
				d = maxReadyDelay
			}
			return d
		}),
	)

	var attempt uint
	err := r.Do(func() error {
		attempt++
		h, err := c.Ping(ctx)
		if err != nil {
			c.logger.Warn("backend not ready",
				zap.Uint("attempt", attempt),
				zap.String("base_url", c.baseURL),
				zap.Error(err))
			return err
		}
		c.logger.Info("backend is ready",
			zap.String("status", h.Status),
			zap.Uint("attempt", attempt))
		return nil
	})
	if err != nil {
		return fmt.Errorf("ranapi: backend %s unreachable after %d attempts: %w", c.baseURL, attempt, err)
	}
	return nil
}

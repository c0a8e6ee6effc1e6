package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"HoldemSync/config"
)

// withRetry 按固定间隔重试 ping，次数用尽后返回最后一次的错误
func withRetry(ctx context.Context, name string, r config.Retry, logger *log.Logger, ping func(context.Context) error) error {
	attempts := r.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var err error
	for i := 1; i <= attempts; i++ {
		if err = ping(ctx); err == nil {
			if i > 1 {
				logger.Info("connected", "target", name, "attempt", i)
			}
			return nil
		}
		logger.Warn("connect failed", "target", name, "attempt", i, "max", attempts, "err", err)
		if i == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.Delay):
		}
	}
	return fmt.Errorf("%s unreachable after %d attempts: %w", name, attempts, err)
}

package storage

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"HoldemSync/config"
)

var quiet = log.New(io.Discard)

func TestConnectRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb, err := ConnectRedis(context.Background(), &redis.Options{Addr: mr.Addr()}, config.Retry{MaxAttempts: 1}, quiet)
	require.NoError(t, err)
	defer rdb.Close()
	assert.NoError(t, rdb.Set(context.Background(), "k", "v", 0).Err())
}

// ✅ Redis 稍后才启动：重试期间恢复即可连上
func TestConnectRedisRecovers(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	go func() {
		time.Sleep(60 * time.Millisecond)
		_ = mr.Restart()
	}()

	rdb, err := ConnectRedis(context.Background(), &redis.Options{Addr: addr, MaxRetries: -1},
		config.Retry{MaxAttempts: 20, Delay: 20 * time.Millisecond}, quiet)
	require.NoError(t, err)
	rdb.Close()
}

func TestConnectRedisGivesUp(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := ConnectRedis(context.Background(), &redis.Options{Addr: addr, MaxRetries: -1},
		config.Retry{MaxAttempts: 3, Delay: time.Millisecond}, quiet)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestWithRetryCounts(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	err := withRetry(context.Background(), "x", config.Retry{MaxAttempts: 4}, quiet, func(context.Context) error {
		calls++
		if calls < 3 {
			return boom
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = withRetry(context.Background(), "x", config.Retry{MaxAttempts: 2}, quiet, func(context.Context) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}

func TestWithRetryStopsOnContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := withRetry(ctx, "x", config.Retry{MaxAttempts: 5, Delay: time.Hour}, quiet, func(context.Context) error {
		return errors.New("down")
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInitPostgresGivesUp(t *testing.T) {
	_, err := InitPostgres(context.Background(), "postgres://nobody@127.0.0.1:1/none?sslmode=disable&connect_timeout=1",
		config.Retry{MaxAttempts: 2, Delay: time.Millisecond}, quiet)
	assert.Error(t, err)
}

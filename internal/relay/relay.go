// Package relay carries game snapshots and chat between nodes over Redis
// pub/sub. Nodes never talk to each other directly.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"

	"HoldemSync/config"
)

// Message 从 relay 收到的一条消息
type Message struct {
	Topic   string
	Payload []byte
}

// Publisher 只需要发布能力的组件（manager、chat）依赖这个接口
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}

type Relay struct {
	rdb   *redis.Client
	retry config.Retry
	log   *log.Logger
}

const pingTimeout = 2 * time.Second

// New retry 决定订阅的存活检查：每隔 Delay ping 一次，连续 MaxAttempts 次失败后关闭消息通道
func New(rdb *redis.Client, retry config.Retry, logger *log.Logger) *Relay {
	if retry.MaxAttempts <= 0 {
		retry.MaxAttempts = 1
	}
	if retry.Delay <= 0 {
		retry.Delay = 5 * time.Second
	}
	return &Relay{rdb: rdb, retry: retry, log: logger.WithPrefix("relay")}
}

// Publish JSON 编码后发布；payload 已经是 []byte 时原样发布
func (r *Relay) Publish(ctx context.Context, topic string, payload any) error {
	var data []byte
	switch p := payload.(type) {
	case []byte:
		data = p
	case json.RawMessage:
		data = p
	default:
		var err error
		if data, err = json.Marshal(payload); err != nil {
			return fmt.Errorf("encode %s payload: %w", topic, err)
		}
	}
	return r.rdb.Publish(ctx, topic, data).Err()
}

// Subscribe 按模式订阅，确认订阅成功后返回消息通道。
// ctx 结束时取消订阅；Redis 连续 ping 失败超过重试次数时通道关闭。
// go-redis 的 PubSub 会无限重连，所以存活由 ping 判断。
func (r *Relay) Subscribe(ctx context.Context, patterns ...string) (<-chan Message, error) {
	ps := r.rdb.PSubscribe(ctx, patterns...)
	// 等待 redis 的订阅确认
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %v: %w", patterns, err)
	}
	r.log.Info("subscribed", "patterns", patterns)

	out := make(chan Message, 64)
	go func() {
		defer close(out)
		defer ps.Close()
		in := ps.Channel()
		ticker := time.NewTicker(r.retry.Delay)
		defer ticker.Stop()
		failures := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := r.ping(ctx); err != nil {
					if ctx.Err() != nil {
						return
					}
					failures++
					r.log.Warn("redis unreachable", "attempt", failures, "max", r.retry.MaxAttempts, "err", err)
					if failures >= r.retry.MaxAttempts {
						r.log.Error("subscription lost", "patterns", patterns)
						return
					}
					continue
				}
				if failures > 0 {
					r.log.Info("redis reachable again", "after", failures)
				}
				failures = 0
			case m, ok := <-in:
				if !ok {
					r.log.Warn("subscription closed", "patterns", patterns)
					return
				}
				select {
				case out <- Message{Topic: m.Channel, Payload: []byte(m.Payload)}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (r *Relay) ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return r.rdb.Ping(ctx).Err()
}

// Package fanout delivers relay traffic to the streams attached to this node.
package fanout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"HoldemSync/internal/game/table"
	"HoldemSync/internal/presence"
	"HoldemSync/internal/push"
	"HoldemSync/internal/relay"
)

var ErrRelayClosed = errors.New("relay subscription closed")

// Sink 本节点的推送出口（push.Hub 实现）
type Sink interface {
	SendToUser(userID string, msg push.OutgoingMessage)
	SendToRoom(ctx context.Context, roomID string, msg push.OutgoingMessage) error
	BroadcastAll(msg push.OutgoingMessage)
}

// Members 房间成员查询
type Members interface {
	RoomMembers(ctx context.Context, roomID string) ([]string, error)
}

type Dispatcher struct {
	sink    Sink
	members Members
	log     *log.Logger
}

func NewDispatcher(sink Sink, members Members, logger *log.Logger) *Dispatcher {
	return &Dispatcher{sink: sink, members: members, log: logger.WithPrefix("fanout")}
}

// Run 阻塞直到 ctx 结束或订阅通道关闭；后者返回 ErrRelayClosed
func (d *Dispatcher) Run(ctx context.Context, msgs <-chan relay.Message) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-msgs:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return ErrRelayClosed
			}
			if err := d.Dispatch(ctx, m); err != nil {
				d.log.Warn("skip message", "topic", m.Topic, "err", err)
			}
		}
	}
}

// Dispatch 处理一条 relay 消息
func (d *Dispatcher) Dispatch(ctx context.Context, m relay.Message) error {
	kind, id := relay.Classify(m.Topic)
	switch kind {
	case relay.KindGame:
		return d.game(ctx, id, m.Payload)
	case relay.KindGlobalChat:
		data, err := rawJSON(m.Payload)
		if err != nil {
			return err
		}
		d.sink.BroadcastAll(push.OutgoingMessage{Event: push.EventGlobalChat, Data: data})
	case relay.KindRoomChat:
		data, err := rawJSON(m.Payload)
		if err != nil {
			return err
		}
		return d.sink.SendToRoom(ctx, id, push.OutgoingMessage{Event: push.EventRoomChat, Data: data})
	case relay.KindPrivateChat:
		data, err := rawJSON(m.Payload)
		if err != nil {
			return err
		}
		d.sink.SendToUser(id, push.OutgoingMessage{Event: push.EventPrivateMessage, Data: data})
	case relay.KindPresence:
		var u presence.Update
		if err := json.Unmarshal(m.Payload, &u); err != nil {
			return fmt.Errorf("decode presence update: %w", err)
		}
		d.sink.BroadcastAll(push.OutgoingMessage{Event: push.EventPresenceUpdate, Data: u})
	default:
		return fmt.Errorf("unknown topic %q", m.Topic)
	}
	return nil
}

// game 每个接收者拿到按自己脱敏后的快照
func (d *Dispatcher) game(ctx context.Context, tableID string, payload []byte) error {
	var t table.Table
	if err := json.Unmarshal(payload, &t); err != nil {
		return fmt.Errorf("decode table %s: %w", tableID, err)
	}

	recipients := t.PlayerIDs()
	members, err := d.members.RoomMembers(ctx, tableID)
	if err != nil {
		// 注册表不可用时仍然通知在座玩家
		d.log.Error("room members", "table", tableID, "err", err)
	}
	recipients = union(recipients, members)

	for _, userID := range recipients {
		d.sink.SendToUser(userID, push.OutgoingMessage{Event: push.EventGameState, Data: t.ViewFor(userID)})
	}
	return nil
}

func rawJSON(payload []byte) (json.RawMessage, error) {
	if !json.Valid(payload) {
		return nil, errors.New("payload is not valid json")
	}
	return json.RawMessage(payload), nil
}

func union(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, id := range list {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}

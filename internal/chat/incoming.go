package chat

import (
	"context"
	"encoding/json"
	"time"

	"HoldemSync/internal/push"
)

// websocket 上行聊天事件
const (
	EventSendGlobal  = "chat.global"
	EventSendRoom    = "chat.room"
	EventSendPrivate = "chat.private"
)

const incomingTimeout = 5 * time.Second

type incomingChat struct {
	RoomID string `json:"roomId"`
	To     string `json:"to"`
	Text   string `json:"text"`
}

// Replier 出错时回复给发送者
type Replier interface {
	SendToUser(userID string, msg push.OutgoingMessage)
}

// IncomingHandler 返回给 push.Hub.OnIncoming 使用的处理函数
func (s *Service) IncomingHandler(reply Replier) func(push.IncomingMessage) {
	return func(msg push.IncomingMessage) {
		var body incomingChat
		if err := json.Unmarshal(msg.Data, &body); err != nil {
			reply.SendToUser(msg.From, errorMessage(msg.Event, "malformed payload"))
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), incomingTimeout)
		defer cancel()

		var err error
		switch msg.Event {
		case EventSendGlobal:
			_, err = s.SendGlobal(ctx, msg.From, body.Text)
		case EventSendRoom:
			_, err = s.SendRoom(ctx, msg.From, body.RoomID, body.Text)
		case EventSendPrivate:
			_, err = s.SendPrivate(ctx, msg.From, body.To, body.Text)
		default:
			s.log.Debug("ignore incoming event", "user", msg.From, "event", msg.Event)
			return
		}
		if err != nil {
			reply.SendToUser(msg.From, errorMessage(msg.Event, err.Error()))
		}
	}
}

func errorMessage(event, text string) push.OutgoingMessage {
	return push.OutgoingMessage{
		Event: push.EventError,
		Data:  map[string]string{"event": event, "error": text},
	}
}

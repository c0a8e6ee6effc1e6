package push

import "encoding/json"

// 推送给客户端的事件名
const (
	EventConnected      = "connected"
	EventGameState      = "gameStateUpdate"
	EventGlobalChat     = "globalChatMessage"
	EventRoomChat       = "roomChatMessage"
	EventPrivateMessage = "privateMessage"
	EventPresenceUpdate = "presenceUpdate"
	EventError          = "error"
)

type OutgoingMessage struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// IncomingMessage websocket 客户端发来的消息；From 由服务端填入
type IncomingMessage struct {
	From  string          `json:"-"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

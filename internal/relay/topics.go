package relay

import "strings"

// 游戏状态按桌分频道；聊天使用 chat.* 命名空间
const (
	gamePrefix     = "game-updates:"
	roomChatPrefix = "chat.rooms.room."
	userChatPrefix = "chat.users.user."

	GlobalChatTopic = "chat.global"
	PresenceTopic   = "user-presence-updates"
)

// 订阅用的通配模式
const (
	GamePattern     = gamePrefix + "*"
	RoomChatPattern = roomChatPrefix + "*"
	UserChatPattern = userChatPrefix + "*"
)

// AllPatterns 一个节点需要订阅的全部模式
var AllPatterns = []string{GamePattern, GlobalChatTopic, RoomChatPattern, UserChatPattern, PresenceTopic}

func GameTopic(tableID string) string { return gamePrefix + tableID }

func RoomChatTopic(roomID string) string { return roomChatPrefix + roomID }

func UserChatTopic(userID string) string { return userChatPrefix + userID }

// Kind 频道类别
type Kind int

const (
	KindUnknown Kind = iota
	KindGame
	KindGlobalChat
	KindRoomChat
	KindPrivateChat
	KindPresence
)

// Classify 解析频道名，返回类别和其中的 id（桌 / 房间 / 用户）
func Classify(topic string) (Kind, string) {
	switch {
	case topic == GlobalChatTopic:
		return KindGlobalChat, ""
	case topic == PresenceTopic:
		return KindPresence, ""
	case strings.HasPrefix(topic, gamePrefix):
		return KindGame, strings.TrimPrefix(topic, gamePrefix)
	case strings.HasPrefix(topic, roomChatPrefix):
		return KindRoomChat, strings.TrimPrefix(topic, roomChatPrefix)
	case strings.HasPrefix(topic, userChatPrefix):
		return KindPrivateChat, strings.TrimPrefix(topic, userChatPrefix)
	}
	return KindUnknown, ""
}

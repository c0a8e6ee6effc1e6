package presence

import "time"

const (
	UserConnected    = "USER_CONNECTED"
	UserDisconnected = "USER_DISCONNECTED"
)

// Update 通过 relay 广播的上下线通知
type Update struct {
	Type      string    `json:"type"`
	UserID    string    `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
}

func NewUpdate(kind, userID string) Update {
	return Update{Type: kind, UserID: userID, Timestamp: time.Now().UTC()}
}

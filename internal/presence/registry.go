// Package presence records which users are online and which rooms they have
// joined. The registry is shared by every node; a user counts as online while
// at least one of their streams, on any node, is registered.
package presence

import "context"

// Registry 跨节点共享的在线状态与房间成员
type Registry interface {
	// JoinPresence 记录 userID 的一条连接（connID 全局唯一，形如 nodeID/clientID）；
	// first 表示用户此前不在线
	JoinPresence(ctx context.Context, userID, connID string) (first bool, err error)
	// LeavePresence 移除这一条连接；stillOnline 表示该用户仍有其他连接
	LeavePresence(ctx context.Context, userID, connID string) (stillOnline bool, err error)
	IsOnline(ctx context.Context, userID string) (bool, error)
	OnlineUsers(ctx context.Context) ([]string, error)

	JoinRoom(ctx context.Context, roomID, userID string) error
	LeaveRoom(ctx context.Context, roomID, userID string) error
	RoomMembers(ctx context.Context, roomID string) ([]string, error)
	IsMember(ctx context.Context, roomID, userID string) (bool, error)
}

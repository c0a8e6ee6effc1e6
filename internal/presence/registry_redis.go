package presence

import (
	"context"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
)

type redisRegistry struct {
	rdb redis.UniversalClient
}

func NewRedisRegistry(rdb redis.UniversalClient) Registry {
	return &redisRegistry{rdb: rdb}
}

// key 约定：
//
//	set: online_users                  -> 在线用户
//	set: presence:user:{userID}:conns  -> 该用户的连接（nodeID/clientID）
//	set: room:{roomID}:members         -> 房间成员
const onlineKey = "online_users"

func connsKey(userID string) string {
	return fmt.Sprintf("presence:user:%s:conns", userID)
}

func roomKey(roomID string) string {
	return fmt.Sprintf("room:%s:members", roomID)
}

// KEYS[1] = connsKey, KEYS[2] = onlineKey, ARGV[1] = connID, ARGV[2] = userID
// 返回 1 表示用户此前不在线
var joinScript = redis.NewScript(`
local before = redis.call("SCARD", KEYS[1])
redis.call("SADD", KEYS[1], ARGV[1])
redis.call("SADD", KEYS[2], ARGV[2])
if before == 0 then
	return 1
end
return 0
`)

// 最后一条连接离开时同时从 online_users 中移除；返回剩余连接数
var leaveScript = redis.NewScript(`
redis.call("SREM", KEYS[1], ARGV[1])
local left = redis.call("SCARD", KEYS[1])
if left == 0 then
	redis.call("DEL", KEYS[1])
	redis.call("SREM", KEYS[2], ARGV[2])
end
return left
`)

func (r *redisRegistry) JoinPresence(ctx context.Context, userID, connID string) (bool, error) {
	n, err := joinScript.Run(ctx, r.rdb, []string{connsKey(userID), onlineKey}, connID, userID).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *redisRegistry) LeavePresence(ctx context.Context, userID, connID string) (bool, error) {
	left, err := leaveScript.Run(ctx, r.rdb, []string{connsKey(userID), onlineKey}, connID, userID).Int()
	if err != nil {
		return false, err
	}
	return left > 0, nil
}

func (r *redisRegistry) IsOnline(ctx context.Context, userID string) (bool, error) {
	return r.rdb.SIsMember(ctx, onlineKey, userID).Result()
}

func (r *redisRegistry) OnlineUsers(ctx context.Context) ([]string, error) {
	return sortedMembers(r.rdb.SMembers(ctx, onlineKey))
}

func (r *redisRegistry) JoinRoom(ctx context.Context, roomID, userID string) error {
	return r.rdb.SAdd(ctx, roomKey(roomID), userID).Err()
}

// LeaveRoom 空集合由 redis 自动删除
func (r *redisRegistry) LeaveRoom(ctx context.Context, roomID, userID string) error {
	return r.rdb.SRem(ctx, roomKey(roomID), userID).Err()
}

func (r *redisRegistry) RoomMembers(ctx context.Context, roomID string) ([]string, error) {
	return sortedMembers(r.rdb.SMembers(ctx, roomKey(roomID)))
}

func (r *redisRegistry) IsMember(ctx context.Context, roomID, userID string) (bool, error) {
	return r.rdb.SIsMember(ctx, roomKey(roomID), userID).Result()
}

func sortedMembers(cmd *redis.StringSliceCmd) ([]string, error) {
	out, err := cmd.Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

package presence

import (
	"context"
	"sort"
	"sync"
)

type memRegistry struct {
	mu    sync.Mutex
	conns map[string]map[string]struct{} // userID -> set(connID)
	rooms map[string]map[string]struct{} // roomID -> set(userID)
}

// NewMemoryRegistry 单节点或测试使用
func NewMemoryRegistry() Registry {
	return &memRegistry{
		conns: make(map[string]map[string]struct{}),
		rooms: make(map[string]map[string]struct{}),
	}
}

func (m *memRegistry) JoinPresence(ctx context.Context, userID, connID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.conns[userID]
	if !ok {
		set = make(map[string]struct{})
		m.conns[userID] = set
	}
	set[connID] = struct{}{}
	return !ok, nil
}

func (m *memRegistry) LeavePresence(ctx context.Context, userID, connID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.conns[userID]
	if !ok {
		return false, nil
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(m.conns, userID)
		return false, nil
	}
	return true, nil
}

func (m *memRegistry) IsOnline(ctx context.Context, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.conns[userID]
	return ok, nil
}

func (m *memRegistry) OnlineUsers(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sortedKeys(m.conns), nil
}

func (m *memRegistry) JoinRoom(ctx context.Context, roomID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.rooms[roomID]
	if !ok {
		set = make(map[string]struct{})
		m.rooms[roomID] = set
	}
	set[userID] = struct{}{}
	return nil
}

func (m *memRegistry) LeaveRoom(ctx context.Context, roomID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if set, ok := m.rooms[roomID]; ok {
		delete(set, userID)
		if len(set) == 0 {
			delete(m.rooms, roomID)
		}
	}
	return nil
}

func (m *memRegistry) RoomMembers(ctx context.Context, roomID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sortedKeys(m.rooms[roomID]), nil
}

func (m *memRegistry) IsMember(ctx context.Context, roomID, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rooms[roomID][userID]
	return ok, nil
}

func sortedKeys[V any](set map[string]V) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

package push

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"HoldemSync/internal/middleware"
	"HoldemSync/internal/presence"
)

// fakeStream 记录写入的消息
type fakeStream struct {
	mu      sync.Mutex
	msgs    []OutgoingMessage
	fail    bool
	block   chan struct{} // 非 nil 时 Write 阻塞到关闭
	done    chan struct{}
	once    sync.Once
	written chan struct{}
}

func newFakeStream() *fakeStream {
	return &fakeStream{done: make(chan struct{}), written: make(chan struct{}, 64)}
}

func (s *fakeStream) Write(msg OutgoingMessage) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("broken pipe")
	}
	s.msgs = append(s.msgs, msg)
	s.written <- struct{}{}
	return nil
}

func (s *fakeStream) Ping() error { return nil }

func (s *fakeStream) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

func (s *fakeStream) Done() <-chan struct{} { return s.done }

func (s *fakeStream) events() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.msgs))
	for i, m := range s.msgs {
		out[i] = m.Event
	}
	return out
}

func (s *fakeStream) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func waitWrite(t *testing.T, s *fakeStream) {
	t.Helper()
	select {
	case <-s.written:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for write")
	}
}

func newTestHub(t *testing.T, reg RoomLookup) *Hub {
	t.Helper()
	if reg == nil {
		reg = presence.NewMemoryRegistry()
	}
	h := NewHub(reg, Options{Heartbeat: time.Hour, SendBuffer: 4}, log.New(io.Discard))
	go h.Run()
	t.Cleanup(h.Shutdown)
	return h
}

func TestHubSendToUser(t *testing.T) {
	h := newTestHub(t, nil)
	a, b := newFakeStream(), newFakeStream()
	h.Attach("alice", a)
	h.Attach("bob", b)

	h.SendToUser("alice", OutgoingMessage{Event: "private_msg", Data: "hello"})
	waitWrite(t, a)

	assert.Equal(t, []string{"private_msg"}, a.events())
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, b.events())
}

func TestHubBroadcastAll(t *testing.T) {
	h := newTestHub(t, nil)
	a, b := newFakeStream(), newFakeStream()
	h.Attach("alice", a)
	h.Attach("bob", b)

	h.BroadcastAll(OutgoingMessage{Event: EventGlobalChat})
	waitWrite(t, a)
	waitWrite(t, b)
	assert.Equal(t, []string{EventGlobalChat}, a.events())
	assert.Equal(t, []string{EventGlobalChat}, b.events())
}

func TestHubSendToRoom(t *testing.T) {
	reg := presence.NewMemoryRegistry()
	require.NoError(t, reg.JoinRoom(context.Background(), "t1", "alice"))
	require.NoError(t, reg.JoinRoom(context.Background(), "t1", "remote-user"))
	h := newTestHub(t, reg)

	a, b := newFakeStream(), newFakeStream()
	h.Attach("alice", a)
	h.Attach("bob", b)

	require.NoError(t, h.SendToRoom(context.Background(), "t1", OutgoingMessage{Event: EventRoomChat}))
	waitWrite(t, a)
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, b.events())
}

// ✅ 同一用户重复连接：旧连接被关闭
func TestHubAttachReplaces(t *testing.T) {
	h := newTestHub(t, nil)
	old, cur := newFakeStream(), newFakeStream()
	c1 := h.Attach("alice", old)
	h.Attach("alice", cur)

	assert.Eventually(t, old.closed, time.Second, 5*time.Millisecond)
	assert.True(t, h.detachClient(c1), "old client should be reported as superseded")

	h.SendToUser("alice", OutgoingMessage{Event: "ping"})
	waitWrite(t, cur)
	assert.Empty(t, old.events())
}

func TestHubDetach(t *testing.T) {
	h := newTestHub(t, nil)
	s := newFakeStream()
	c := h.Attach("alice", s)

	h.Detach("alice")
	assert.Eventually(t, s.closed, time.Second, 5*time.Millisecond)
	assert.False(t, h.detachClient(c))
}

// ✅ 写失败只做本地清理
func TestHubWriteFailureDetachesLocally(t *testing.T) {
	h := newTestHub(t, nil)
	s := newFakeStream()
	s.fail = true
	c := h.Attach("alice", s)

	h.SendToUser("alice", OutgoingMessage{Event: "x"})
	assert.Eventually(t, s.closed, time.Second, 5*time.Millisecond)
	assert.False(t, h.detachClient(c))
}

// ✅ 慢客户端不影响其他人
func TestHubSlowClientDoesNotBlock(t *testing.T) {
	h := newTestHub(t, nil)
	slow, fast := newFakeStream(), newFakeStream()
	slow.block = make(chan struct{})
	defer close(slow.block)
	h.Attach("slow", slow)
	h.Attach("fast", fast)

	for i := 0; i < 20; i++ {
		h.SendToUser("slow", OutgoingMessage{Event: "flood"})
	}
	h.SendToUser("fast", OutgoingMessage{Event: "hello"})
	waitWrite(t, fast)
	assert.Equal(t, []string{"hello"}, fast.events())
}

func TestHubShutdownClosesStreams(t *testing.T) {
	h := NewHub(presence.NewMemoryRegistry(), Options{}, log.New(io.Discard))
	go h.Run()
	s := newFakeStream()
	h.Attach("alice", s)

	h.Shutdown()
	assert.Eventually(t, s.closed, time.Second, 5*time.Millisecond)

	// 关闭后的调用不会阻塞
	h.SendToUser("alice", OutgoingMessage{Event: "late"})
	h.BroadcastAll(OutgoingMessage{Event: "late"})
	late := newFakeStream()
	h.Attach("bob", late)
	assert.True(t, late.closed())
}

// recordingPublisher 记录发布到 relay 的消息
type recordingPublisher struct {
	mu   sync.Mutex
	msgs []presence.Update
}

func (p *recordingPublisher) Publish(ctx context.Context, topic string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if u, ok := payload.(presence.Update); ok {
		p.msgs = append(p.msgs, u)
	}
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.msgs))
	for i, m := range p.msgs {
		out[i] = m.Type
	}
	return out
}

func newStreamServer(t *testing.T) (*httptest.Server, presence.Registry, *recordingPublisher) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	reg := presence.NewMemoryRegistry()
	pub := &recordingPublisher{}
	hub := newTestHub(t, reg)
	h := NewHandler(hub, reg, pub, "node-1", log.New(io.Discard))

	r := gin.New()
	// 测试中直接用 query 参数代替 JWT
	fakeAuth := func(c *gin.Context) {
		c.Set(middleware.ContextUserID, c.Query("user"))
		c.Next()
	}
	r.GET("/ws", fakeAuth, h.ServeWS)
	r.GET("/api/events", fakeAuth, h.ServeSSE)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, reg, pub
}

func TestServeWSLifecycle(t *testing.T) {
	srv, reg, pub := newStreamServer(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?user=alice"

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	var msg struct {
		Event string         `json:"event"`
		Data  map[string]any `json:"data"`
	}
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, EventConnected, msg.Event)
	assert.Equal(t, "alice", msg.Data["userId"])
	assert.Equal(t, "node-1", msg.Data["nodeId"])

	online, err := reg.IsOnline(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, online)
	assert.Equal(t, []string{presence.UserConnected}, pub.types())

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool {
		online, _ := reg.IsOnline(context.Background(), "alice")
		return !online
	}, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool {
		types := pub.types()
		return len(types) == 2 && types[1] == presence.UserDisconnected
	}, 2*time.Second, 10*time.Millisecond)
}

func TestServeSSEWelcome(t *testing.T) {
	srv, reg, _ := newStreamServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events?user=bob", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	buf := make([]byte, 512)
	var got strings.Builder
	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(got.String(), "\n\n") && time.Now().Before(deadline) {
		n, err := resp.Body.Read(buf)
		got.Write(buf[:n])
		if err != nil {
			break
		}
	}
	text := got.String()
	require.Contains(t, text, "event:connected")
	dataLine := text[strings.Index(text, "data:")+len("data:"):]
	dataLine = strings.TrimSpace(dataLine[:strings.Index(dataLine, "\n")])
	var data map[string]any
	require.NoError(t, json.Unmarshal([]byte(dataLine), &data))
	assert.Equal(t, "bob", data["userId"])

	online, err := reg.IsOnline(context.Background(), "bob")
	require.NoError(t, err)
	assert.True(t, online)

	cancel()
	assert.Eventually(t, func() bool {
		online, _ := reg.IsOnline(context.Background(), "bob")
		return !online
	}, 2*time.Second, 10*time.Millisecond)
}

// gatedRegistry LeavePresence 停在闸门前，模拟旧连接的清理变慢
type gatedRegistry struct {
	presence.Registry
	leaving chan struct{}
	gate    chan struct{}
}

func (g *gatedRegistry) LeavePresence(ctx context.Context, userID, connID string) (bool, error) {
	select {
	case g.leaving <- struct{}{}:
	default:
	}
	<-g.gate
	return g.Registry.LeavePresence(ctx, userID, connID)
}

// ✅ 旧连接清理期间同节点重连：用户保持在线，不广播下线
func TestReconnectDuringCleanupStaysOnline(t *testing.T) {
	mem := presence.NewMemoryRegistry()
	reg := &gatedRegistry{Registry: mem, leaving: make(chan struct{}, 1), gate: make(chan struct{})}
	pub := &recordingPublisher{}
	hub := newTestHub(t, mem)
	h := NewHandler(hub, reg, pub, "node-1", log.New(io.Discard))
	ctx := context.Background()

	old := newFakeStream()
	oldDone := make(chan struct{})
	go func() {
		h.serve(ctx, "alice", old)
		close(oldDone)
	}()
	waitWrite(t, old)

	require.NoError(t, old.Close())
	select {
	case <-reg.leaving:
	case <-time.After(time.Second):
		t.Fatal("old stream never started cleanup")
	}

	fresh := newFakeStream()
	go h.serve(ctx, "alice", fresh)
	waitWrite(t, fresh)

	close(reg.gate)
	select {
	case <-oldDone:
	case <-time.After(time.Second):
		t.Fatal("old stream cleanup did not finish")
	}

	online, err := mem.IsOnline(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, online)
	assert.False(t, fresh.closed())
	assert.Equal(t, []string{presence.UserConnected}, pub.types())

	// 新连接被替换时也只移除自己的登记
	newer := newFakeStream()
	go h.serve(ctx, "alice", newer)
	waitWrite(t, newer)
	assert.Eventually(t, fresh.closed, time.Second, 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	online, err = mem.IsOnline(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, online)
	assert.Equal(t, []string{presence.UserConnected}, pub.types())
}

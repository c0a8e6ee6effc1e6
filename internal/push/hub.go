package push

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// RoomLookup SendToRoom 需要的房间成员查询
type RoomLookup interface {
	RoomMembers(ctx context.Context, roomID string) ([]string, error)
}

// Client 节点本地持有的一条用户连接
type Client struct {
	ID     string
	UserID string
	stream Stream
	send   chan OutgoingMessage
}

// Hub 每个节点一个；clients 只在 Run 协程中读写
type Hub struct {
	clients    map[string]*Client // userID -> client
	register   chan *Client
	unregister chan unregisterReq
	broadcast  chan broadcastReq
	sendOne    chan sendReq
	quit       chan struct{}
	stopped    chan struct{}

	rooms      RoomLookup
	heartbeat  time.Duration
	sendBuffer int
	log        *log.Logger

	// OnIncoming websocket 客户端上行消息的处理函数，在连接的读协程中调用
	OnIncoming func(IncomingMessage)
}

type broadcastReq struct {
	UserIDs []string // nil 表示所有本地连接
	Message OutgoingMessage
}

type sendReq struct {
	UserID  string
	Message OutgoingMessage
}

type unregisterReq struct {
	client *Client // nil 时按 userID 移除
	userID string
	reply  chan bool
}

type Options struct {
	Heartbeat  time.Duration
	SendBuffer int
}

func NewHub(rooms RoomLookup, opts Options, logger *log.Logger) *Hub {
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = 30 * time.Second
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 32
	}
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan unregisterReq),
		broadcast:  make(chan broadcastReq),
		sendOne:    make(chan sendReq),
		quit:       make(chan struct{}),
		stopped:    make(chan struct{}),
		rooms:      rooms,
		heartbeat:  opts.Heartbeat,
		sendBuffer: opts.SendBuffer,
		log:        logger.WithPrefix("hub"),
	}
}

func (h *Hub) Run() {
	h.log.Info("hub started")
	defer close(h.stopped)

	for {
		select {
		case c := <-h.register:
			if old, ok := h.clients[c.UserID]; ok {
				// 同一用户在本节点的旧连接被替换并关闭
				close(old.send)
				h.log.Debug("replace stream", "user", c.UserID, "old", old.ID)
			}
			h.clients[c.UserID] = c
			h.log.Debug("register", "user", c.UserID, "clients", len(h.clients))

		case req := <-h.unregister:
			req.reply <- h.remove(req)

		case req := <-h.broadcast:
			if req.UserIDs == nil {
				for _, c := range h.clients {
					h.deliver(c, req.Message)
				}
				continue
			}
			for _, id := range req.UserIDs {
				if c, ok := h.clients[id]; ok {
					h.deliver(c, req.Message)
				}
			}

		case req := <-h.sendOne:
			if c, ok := h.clients[req.UserID]; ok {
				h.deliver(c, req.Message)
			}

		case <-h.quit:
			for id, c := range h.clients {
				close(c.send)
				delete(h.clients, id)
			}
			h.log.Info("hub stopped")
			return
		}
	}
}

// remove 返回 superseded：该用户在本节点已经有另一条更新的连接
func (h *Hub) remove(req unregisterReq) bool {
	userID := req.userID
	if req.client != nil {
		userID = req.client.UserID
	}
	cur, ok := h.clients[userID]
	if !ok {
		return false
	}
	if req.client != nil && cur != req.client {
		return true
	}
	delete(h.clients, userID)
	close(cur.send)
	h.log.Debug("unregister", "user", userID, "clients", len(h.clients))
	return false
}

// deliver 不阻塞：缓冲区满说明客户端太慢，直接丢弃这条消息
func (h *Hub) deliver(c *Client, msg OutgoingMessage) {
	select {
	case c.send <- msg:
	default:
		h.log.Debug("drop message", "user", c.UserID, "event", msg.Event)
	}
}

// Attach 注册一条连接并启动写协程，替换并关闭该用户在本节点的旧连接
func (h *Hub) Attach(userID string, stream Stream) *Client {
	c := h.newClient(userID, stream)
	h.attachClient(c)
	return c
}

func (h *Hub) newClient(userID string, stream Stream) *Client {
	return &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		stream: stream,
		send:   make(chan OutgoingMessage, h.sendBuffer),
	}
}

func (h *Hub) attachClient(c *Client) {
	select {
	case h.register <- c:
		go h.writePump(c)
	case <-h.quit:
		_ = c.stream.Close()
	}
}

// Detach 关闭该用户在本节点的连接
func (h *Hub) Detach(userID string) {
	h.unregisterWait(unregisterReq{userID: userID, reply: make(chan bool, 1)})
}

// detachClient 只在 c 仍是当前连接时移除它；返回 true 表示 c 已被新连接替换
func (h *Hub) detachClient(c *Client) bool {
	return h.unregisterWait(unregisterReq{client: c, reply: make(chan bool, 1)})
}

func (h *Hub) unregisterWait(req unregisterReq) bool {
	select {
	case h.unregister <- req:
		return <-req.reply
	case <-h.quit:
		return false
	}
}

func (h *Hub) SendToUser(userID string, msg OutgoingMessage) {
	select {
	case h.sendOne <- sendReq{UserID: userID, Message: msg}:
	case <-h.quit:
	}
}

// SendToUsers 只投递给其中在本节点有连接的用户
func (h *Hub) SendToUsers(userIDs []string, msg OutgoingMessage) {
	if userIDs == nil {
		userIDs = []string{}
	}
	select {
	case h.broadcast <- broadcastReq{UserIDs: userIDs, Message: msg}:
	case <-h.quit:
	}
}

// SendToRoom 先查询房间成员（在 Run 协程之外），再投递给本地连接
func (h *Hub) SendToRoom(ctx context.Context, roomID string, msg OutgoingMessage) error {
	members, err := h.rooms.RoomMembers(ctx, roomID)
	if err != nil {
		return err
	}
	h.SendToUsers(members, msg)
	return nil
}

func (h *Hub) BroadcastAll(msg OutgoingMessage) {
	select {
	case h.broadcast <- broadcastReq{Message: msg}:
	case <-h.quit:
	}
}

// Shutdown 关闭所有本地连接并等待 Run 退出
func (h *Hub) Shutdown() {
	select {
	case <-h.quit:
	default:
		close(h.quit)
	}
	<-h.stopped
}

func (h *Hub) dispatchIncoming(msg IncomingMessage) {
	if h.OnIncoming != nil {
		h.OnIncoming(msg)
	}
}

// 写协程：发送消息和心跳。写失败只做本地清理，注册表由连接的关闭信号处理。
func (h *Hub) writePump(c *Client) {
	ticker := time.NewTicker(h.heartbeat)
	defer func() {
		ticker.Stop()
		_ = c.stream.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				// 被替换、Detach 或 Shutdown
				return
			}
			if err := c.stream.Write(msg); err != nil {
				h.log.Debug("write failed", "user", c.UserID, "err", err)
				h.detachClient(c)
				return
			}

		case <-ticker.C:
			if err := c.stream.Ping(); err != nil {
				h.log.Debug("heartbeat failed", "user", c.UserID, "err", err)
				h.detachClient(c)
				return
			}

		case <-c.stream.Done():
			return
		}
	}
}

package push

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"HoldemSync/internal/middleware"
	"HoldemSync/internal/presence"
	"HoldemSync/internal/relay"
)

const cleanupTimeout = 5 * time.Second

// Handler SSE 与 websocket 两种长连接入口
type Handler struct {
	hub      *Hub
	reg      presence.Registry
	pub      relay.Publisher
	nodeID   string
	log      *log.Logger
	upgrader websocket.Upgrader
}

func NewHandler(hub *Hub, reg presence.Registry, pub relay.Publisher, nodeID string, logger *log.Logger) *Handler {
	return &Handler{
		hub:    hub,
		reg:    reg,
		pub:    pub,
		nodeID: nodeID,
		log:    logger.WithPrefix("stream"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// GET /api/events  (需带 JWT)
func (h *Handler) ServeSSE(c *gin.Context) {
	userID := middleware.UserID(c)
	stream, err := NewSSEStream(c.Request.Context(), c.Writer)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	// SSE 必须阻塞到连接结束
	h.serve(c.Request.Context(), userID, stream)
}

// GET /ws  (需带 JWT)
func (h *Handler) ServeWS(c *gin.Context) {
	userID := middleware.UserID(c)
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Debug("upgrade failed", "user", userID, "err", err)
		return
	}
	stream := NewWSStream(conn, func(msg IncomingMessage) {
		msg.From = userID
		h.hub.dispatchIncoming(msg)
	})
	go h.serve(context.WithoutCancel(c.Request.Context()), userID, stream)
}

func (h *Handler) serve(ctx context.Context, userID string, stream Stream) {
	// 先登记再挂到 Hub：被替换的旧连接离开时，注册表里已经有这条新连接
	client := h.hub.newClient(userID, stream)
	first, err := h.reg.JoinPresence(ctx, userID, h.connID(client))
	if err != nil {
		h.log.Error("join presence", "user", userID, "err", err)
	} else if first {
		h.announce(ctx, presence.UserConnected, userID)
	}

	h.hub.attachClient(client)
	h.log.Info("stream connected", "user", userID, "client", client.ID)

	h.hub.SendToUser(userID, OutgoingMessage{
		Event: EventConnected,
		Data: gin.H{
			"userId":    userID,
			"nodeId":    h.nodeID,
			"timestamp": time.Now().UTC(),
		},
	})

	<-stream.Done()
	h.disconnect(client)
}

// disconnect 连接关闭后的清理。注册表只移除这一条连接的登记，
// 被替换的旧连接同样要移除自己的登记；用户没有其他连接时才广播下线。
func (h *Handler) disconnect(c *Client) {
	if h.hub.detachClient(c) {
		h.log.Debug("stream superseded", "user", c.UserID, "client", c.ID)
	}
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	stillOnline, err := h.reg.LeavePresence(ctx, c.UserID, h.connID(c))
	if err != nil {
		h.log.Error("leave presence", "user", c.UserID, "err", err)
		return
	}
	h.log.Info("stream disconnected", "user", c.UserID, "client", c.ID)
	if !stillOnline {
		h.announce(ctx, presence.UserDisconnected, c.UserID)
	}
}

// connID 注册表中按连接登记，同一节点上的新旧连接互不覆盖
func (h *Handler) connID(c *Client) string {
	return h.nodeID + "/" + c.ID
}

func (h *Handler) announce(ctx context.Context, kind, userID string) {
	if err := h.pub.Publish(ctx, relay.PresenceTopic, presence.NewUpdate(kind, userID)); err != nil {
		h.log.Error("publish presence", "user", userID, "type", kind, "err", err)
	}
}

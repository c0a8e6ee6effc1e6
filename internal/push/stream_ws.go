package push

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second // 单次写超时
	pongWait       = 60 * time.Second // 读超时
	maxMessageSize = 4 * 1024
)

type wsStream struct {
	conn *websocket.Conn
	mu   sync.Mutex // gorilla 同一时间只允许一个写者
	done chan struct{}
	once sync.Once
}

// NewWSStream 包装已升级的连接并启动读协程。onMessage 在读协程中调用，可以为 nil。
func NewWSStream(conn *websocket.Conn, onMessage func(IncomingMessage)) Stream {
	s := &wsStream{conn: conn, done: make(chan struct{})}
	go s.readPump(onMessage)
	return s
}

func (s *wsStream) Write(msg OutgoingMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(msg)
}

func (s *wsStream) Ping() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.PingMessage, nil)
}

func (s *wsStream) Close() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
		err = s.conn.Close()
		s.mu.Unlock()
		close(s.done)
	})
	return err
}

func (s *wsStream) Done() <-chan struct{} {
	return s.done
}

// 读协程：处理 pong 和客户端消息，读出错即视为连接关闭
func (s *wsStream) readPump(onMessage func(IncomingMessage)) {
	defer s.Close()

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		// 任何消息都说明对端还活着
		_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
		var msg IncomingMessage
		if err := json.Unmarshal(data, &msg); err != nil || msg.Event == "" {
			continue
		}
		if onMessage != nil {
			onMessage(msg)
		}
	}
}

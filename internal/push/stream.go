package push

// Stream 一条长连接（websocket 或 SSE）。
// Write / Ping 只会被该连接的 writePump 调用；Close 可重复调用。
// Done 在传输层关闭、出错或 Close 之后关闭。
type Stream interface {
	Write(msg OutgoingMessage) error
	Ping() error
	Close() error
	Done() <-chan struct{}
}

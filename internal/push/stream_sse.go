package push

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/gin-contrib/sse"
)

var ErrStreamClosed = errors.New("stream closed")

type sseStream struct {
	mu      sync.Mutex
	w       io.Writer
	flusher http.Flusher
	closed  bool
	done    chan struct{}
	once    sync.Once
}

// NewSSEStream 写入 SSE 响应头；ctx（请求的 context）结束时流随之关闭。
// 调用方必须阻塞到 Done 之后才能返回，否则 ResponseWriter 失效。
func NewSSEStream(ctx context.Context, w http.ResponseWriter) (Stream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New("response writer does not support flushing")
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	s := &sseStream{w: w, flusher: flusher, done: make(chan struct{})}
	go func() {
		select {
		case <-ctx.Done():
			_ = s.Close()
		case <-s.done:
		}
	}()
	return s, nil
}

func (s *sseStream) Write(msg OutgoingMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStreamClosed
	}
	if err := sse.Encode(s.w, sse.Event{Event: msg.Event, Data: msg.Data}); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// Ping SSE 注释行作为心跳
func (s *sseStream) Ping() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStreamClosed
	}
	if _, err := io.WriteString(s.w, ": keep-alive\n\n"); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *sseStream) Close() error {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.done)
	})
	return nil
}

func (s *sseStream) Done() <-chan struct{} {
	return s.done
}

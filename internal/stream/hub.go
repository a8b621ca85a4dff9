// Package stream pushes analysis snapshots to websocket subscribers.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"option-analytics-go/infrastructure/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 8
)

// ErrHubClosed 表示 Hub 已关闭，不再接受订阅。
var ErrHubClosed = errors.New("stream hub closed")

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub 广播最新快照。新连接会立即收到最近一次快照，慢客户端会被断开。
type Hub struct {
	upgrader websocket.Upgrader
	log      *logger.Logger
	onCount  func(int)

	mu      sync.Mutex
	clients map[*client]struct{}
	latest  []byte
	closed  bool
}

// NewHub 创建 Hub；onCount 在订阅数变化时回调，可为 nil。
// allowedOrigins 为空时只接受同源请求，"*" 表示不限制来源。
func NewHub(log *logger.Logger, onCount func(int), allowedOrigins []string) *Hub {
	if log == nil {
		log = logger.Nop()
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		log:     log,
		onCount: onCount,
		clients: make(map[*client]struct{}),
	}
}

// ServeHTTP upgrades the request and subscribes the connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		http.Error(w, ErrHubClosed.Error(), http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade 已经写回了错误响应
		h.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	if err := h.register(c); err != nil {
		_ = conn.Close()
		return
	}
	go h.writePump(c)
	go h.readPump(c)
}

// Publish encodes v as JSON, keeps it as the latest snapshot and fans it out.
func (h *Hub) Publish(v interface{}) error {
	msg, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrHubClosed
	}
	h.latest = msg
	dropped := 0
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			delete(h.clients, c)
			close(c.send)
			dropped++
		}
	}
	if dropped > 0 {
		h.notify(len(h.clients))
	}
	h.mu.Unlock()

	if dropped > 0 {
		h.log.Warn("dropped slow websocket clients", zap.Int("count", dropped))
	}
	return nil
}

// Latest returns the last published payload, nil before the first Publish.
func (h *Hub) Latest() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.latest
}

// Clients returns the current subscriber count.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Start 实现生命周期接口，Hub 无需后台任务。
func (h *Hub) Start(ctx context.Context) error { return nil }

// Stop disconnects every subscriber and rejects new ones.
func (h *Hub) Stop() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	h.notify(0)
	h.mu.Unlock()
	return nil
}

// Health reports whether the hub still accepts subscribers.
func (h *Hub) Health() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHubClosed
	}
	return nil
}

func (h *Hub) register(c *client) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrHubClosed
	}
	h.clients[c] = struct{}{}
	if h.latest != nil {
		c.send <- h.latest
	}
	h.notify(len(h.clients))
	h.mu.Unlock()
	return nil
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
		h.notify(len(h.clients))
	}
	h.mu.Unlock()
}

// originChecker 返回 nil 时 gorilla 使用默认的同源校验
func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			// 非浏览器客户端不带 Origin
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(strings.TrimSuffix(a, "/"), origin) {
				return true
			}
		}
		return false
	}
}

// notify 须在持有 mu 时调用，保证计数回调有序
func (h *Hub) notify(n int) {
	if h.onCount != nil {
		h.onCount(n)
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.unregister(c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.unregister(c)
				return
			}
		}
	}
}

// readPump 只用于感知断开与 pong，订阅方发来的消息被忽略。
func (h *Hub) readPump(c *client) {
	defer h.unregister(c)
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

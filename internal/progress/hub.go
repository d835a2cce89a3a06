package progress

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Event 推送给页面的进度事件
type Event struct {
	Source    string `json:"source"`
	Message   string `json:"message"`
	Percent   int    `json:"percent"`
	Timestamp string `json:"timestamp"`
}

type client struct {
	conn *websocket.Conn
	send chan Event
}

// Hub 把上传和生成的进度广播给所有已连接的页面。
// 客户端的发送缓冲写满时直接断开该客户端，慢客户端不阻塞其他客户端。
type Hub struct {
	logger     *zap.Logger
	events     chan Event
	register   chan *client
	unregister chan *client
	shutdown   chan struct{}
	clients    map[*client]bool
	mu         sync.Mutex
	upgrader   websocket.Upgrader
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:     logger,
		events:     make(chan Event, 100),
		register:   make(chan *client),
		unregister: make(chan *client),
		shutdown:   make(chan struct{}),
		clients:    make(map[*client]bool),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Run 运行广播循环，Close 之后返回
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
		case <-h.shutdown:
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			return
		case ev := <-h.events:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- ev:
				default:
					delete(h.clients, c)
					close(c.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Publish 广播一条进度事件
func (h *Hub) Publish(source, message string, percent int) {
	ev := Event{
		Source:    source,
		Message:   message,
		Percent:   percent,
		Timestamp: time.Now().Format("2006-01-02 15:04:05"),
	}
	select {
	case h.events <- ev:
	default:
		h.logger.Warn("进度事件队列已满，丢弃事件", zap.String("source", source))
	}
}

// ServeWS 升级连接并持续推送事件，连接断开后返回
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("WebSocket 升级失败", zap.Error(err))
		return
	}
	defer conn.Close()

	c := &client{conn: conn, send: make(chan Event, 256)}
	h.register <- c
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.shutdown:
		}
	}()

	go func() {
		// 读循环只用于感知断开，页面不会主动发消息
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				conn.Close()
				return
			}
		}
	}()

	for ev := range c.send {
		if err := conn.WriteJSON(ev); err != nil {
			return
		}
	}
}

// Close 停止广播循环并断开全部客户端
func (h *Hub) Close() {
	close(h.shutdown)
}

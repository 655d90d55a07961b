// Package api WebSocket 事件网关
//
// 事件网关提供节点池生命周期事件的实时推送，
// 供运维前端订阅（节点注册/注销、连接变化、流水线结果）。
package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"delta-admin/pkg/logging"
)

// upgrader WebSocket 升级器配置
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const (
	// writeWait 单次写超时
	writeWait = 10 * time.Second

	// pingPeriod 保活 ping 间隔
	pingPeriod = 30 * time.Second
)

// Event 池生命周期事件
type Event struct {
	Type    string    `json:"type"` // add/remove/connect/disconnect/deploy/run
	Node    string    `json:"node"`
	Subject string    `json:"subject,omitempty"`
	Result  string    `json:"result"`
	Time    time.Time `json:"time"`
}

// EventGateway WebSocket 事件网关
//
// 负责管理订阅连接并广播池事件。慢客户端的发送缓冲满时
// 丢弃事件而不是阻塞池操作。
type EventGateway struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]chan Event
	closed  bool
	log     *logging.Logger
}

// NewEventGateway 创建事件网关实例
func NewEventGateway(logger *logging.Logger) *EventGateway {
	if logger == nil {
		logger = logging.Default("events")
	}
	return &EventGateway{
		clients: make(map[*websocket.Conn]chan Event),
		log:     logger,
	}
}

// HandleWS 处理订阅连接
//
// 路由: GET /ws/events
func (g *EventGateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.WithError(err).Error("websocket upgrade failed")
		return
	}

	ch := make(chan Event, 16)

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		conn.Close()
		return
	}
	g.clients[conn] = ch
	g.mu.Unlock()

	go g.writeLoop(conn, ch)

	// 读循环只用于感知客户端断开
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	g.drop(conn)
}

// Publish 向所有订阅者广播事件（非阻塞）
func (g *EventGateway) Publish(ev Event) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, ch := range g.clients {
		select {
		case ch <- ev:
		default:
			// 缓冲满：丢弃，绝不阻塞池操作
		}
	}
}

// Close 关闭网关并断开所有客户端
func (g *EventGateway) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	for conn, ch := range g.clients {
		close(ch)
		conn.Close()
		delete(g.clients, conn)
	}
}

func (g *EventGateway) writeLoop(conn *websocket.Conn, ch chan Event) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				g.drop(conn)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				g.drop(conn)
				return
			}
		}
	}
}

// drop 注销并关闭单个客户端连接
func (g *EventGateway) drop(conn *websocket.Conn) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if ch, ok := g.clients[conn]; ok {
		close(ch)
		delete(g.clients, conn)
	}
	conn.Close()
}

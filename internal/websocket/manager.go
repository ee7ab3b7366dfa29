package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/dushixiang/pika-alert/internal/metrics"
	"github.com/dushixiang/pika-alert/internal/protocol"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBufferSize = 64
)

// Client 一个 websocket 连接
type Client struct {
	ID   string
	conn *websocket.Conn
	send chan []byte
}

// Manager 管理 websocket 连接并广播实时事件
type Manager struct {
	logger  *zap.Logger
	mu      sync.RWMutex
	clients map[string]*Client
}

func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		logger:  logger,
		clients: make(map[string]*Client),
	}
}

// ServeConn 接管连接直到客户端断开
func (m *Manager) ServeConn(conn *websocket.Conn) {
	client := &Client{
		ID:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
	m.register(client)

	go m.writePump(client)
	m.readPump(client)
}

func (m *Manager) register(client *Client) {
	m.mu.Lock()
	m.clients[client.ID] = client
	count := len(m.clients)
	m.mu.Unlock()

	metrics.WebSocketClients.Set(float64(count))
	m.logger.Debug("websocket 客户端已连接", zap.String("clientId", client.ID), zap.Int("clients", count))
}

func (m *Manager) unregister(client *Client) {
	m.mu.Lock()
	if _, ok := m.clients[client.ID]; ok {
		delete(m.clients, client.ID)
		close(client.send)
	}
	count := len(m.clients)
	m.mu.Unlock()

	metrics.WebSocketClients.Set(float64(count))
	m.logger.Debug("websocket 客户端已断开", zap.String("clientId", client.ID), zap.Int("clients", count))
}

// Broadcast 向所有客户端推送事件，发送缓冲已满的客户端会被断开
func (m *Manager) Broadcast(eventType string, data interface{}) {
	msg, err := json.Marshal(protocol.Event{Type: eventType, Data: data})
	if err != nil {
		m.logger.Error("序列化推送消息失败", zap.String("type", eventType), zap.Error(err))
		return
	}

	var slow []*Client
	m.mu.RLock()
	for _, client := range m.clients {
		select {
		case client.send <- msg:
		default:
			slow = append(slow, client)
		}
	}
	m.mu.RUnlock()

	for _, client := range slow {
		m.logger.Warn("websocket 客户端发送缓冲已满，断开连接", zap.String("clientId", client.ID))
		m.unregister(client)
	}
}

// GetAllClients 返回所有在线客户端ID
func (m *Manager) GetAllClients() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.clients))
	for id := range m.clients {
		ids = append(ids, id)
	}
	return ids
}

// Close 断开所有客户端
func (m *Manager) Close() {
	m.mu.RLock()
	clients := make([]*Client, 0, len(m.clients))
	for _, client := range m.clients {
		clients = append(clients, client)
	}
	m.mu.RUnlock()

	for _, client := range clients {
		m.unregister(client)
	}
}

// readPump 只处理控制帧，客户端不需要发送业务消息
func (m *Manager) readPump(client *Client) {
	defer func() {
		m.unregister(client)
		_ = client.conn.Close()
	}()

	client.conn.SetReadLimit(maxMessageSize)
	_ = client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				m.logger.Debug("websocket 读取失败", zap.String("clientId", client.ID), zap.Error(err))
			}
			return
		}
	}
}

func (m *Manager) writePump(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = client.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.send:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

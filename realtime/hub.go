// Package realtime pushes notifications to users connected over websockets.
package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	sendBuffer = 16
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Conn is the part of *websocket.Conn the hub uses.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (int, []byte, error)
	SetWriteDeadline(t time.Time) error
	SetReadDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Client is one websocket connection owned by a user.
type Client struct {
	ID     string
	UserID string
	conn   Conn
	send   chan []byte
	once   sync.Once
}

func (c *Client) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub tracks connected clients per user. A user may hold several connections.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[string]*Client
	logger  *zap.Logger
	wg      sync.WaitGroup
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{clients: make(map[string]map[string]*Client), logger: logger}
}

// Register adds conn for userID and starts its reader and writer. The
// returned client is removed again when the connection drops.
func (h *Hub) Register(id, userID string, conn Conn) *Client {
	c := &Client{ID: id, UserID: userID, conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[string]*Client)
	}
	h.clients[userID][id] = c
	h.mu.Unlock()

	h.wg.Add(2)
	go h.writePump(c)
	go h.readPump(c)
	h.logger.Debug("websocket client connected", zap.String("user_id", userID), zap.String("client_id", id))
	return c
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if conns, ok := h.clients[c.UserID]; ok {
		if _, ok := conns[c.ID]; ok {
			delete(conns, c.ID)
			c.close()
		}
		if len(conns) == 0 {
			delete(h.clients, c.UserID)
		}
	}
	h.mu.Unlock()
}

// SendToUser delivers payload to every connection of userID. Clients whose
// buffer is full are dropped.
func (h *Hub) SendToUser(userID string, payload interface{}) {
	message, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("failed to marshal realtime payload", zap.Error(err))
		return
	}

	var slow []*Client
	h.mu.RLock()
	for _, c := range h.clients[userID] {
		select {
		case c.send <- message:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("dropping slow websocket client", zap.String("user_id", c.UserID), zap.String("client_id", c.ID))
		h.Unregister(c)
	}
}

// Connected reports how many connections userID currently holds.
func (h *Hub) Connected(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Shutdown closes every connection and waits for the pumps to exit.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	for userID, conns := range h.clients {
		for _, c := range conns {
			c.close()
			_ = c.conn.Close()
		}
		delete(h.clients, userID)
	}
	h.mu.Unlock()
	h.wg.Wait()
}

func (h *Hub) writePump(c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
		h.wg.Done()
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				h.Unregister(c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.Unregister(c)
				return
			}
		}
	}
}

// readPump only drains control frames; clients do not send data.
func (h *Hub) readPump(c *Client) {
	defer func() {
		h.Unregister(c)
		h.wg.Done()
	}()
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

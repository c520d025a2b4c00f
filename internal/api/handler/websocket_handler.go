package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"plate_reader/internal/domain"
)

const (
	defaultWriteWait = 10 * time.Second
	clientSendBuffer = 16
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsClient owns one connection. Only its writer goroutine touches conn for
// writes; the hub hands it messages through send.
type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// WebSocketManager fans detection notifications out to every connected
// dashboard. Start must be running for Broadcast to deliver. The hub never
// does network I/O itself, so a slow client cannot stall it.
type WebSocketManager struct {
	clients    map[*wsClient]bool
	register   chan *wsClient
	unregister chan *wsClient
	broadcast  chan []byte
	mutex      sync.RWMutex
	writeWait  time.Duration
	logger     *slog.Logger
}

func NewWebSocketManager(logger *slog.Logger) *WebSocketManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebSocketManager{
		clients:    make(map[*wsClient]bool),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		broadcast:  make(chan []byte, 64),
		writeWait:  defaultWriteWait,
		logger:     logger.With("component", "websocket"),
	}
}

func (wsm *WebSocketManager) Start() {
	for {
		select {
		case client := <-wsm.register:
			wsm.mutex.Lock()
			wsm.clients[client] = true
			total := len(wsm.clients)
			wsm.mutex.Unlock()
			wsm.logger.Info("client connected", "total", total)

		case client := <-wsm.unregister:
			wsm.mutex.Lock()
			if _, ok := wsm.clients[client]; ok {
				delete(wsm.clients, client)
				close(client.send)
			}
			total := len(wsm.clients)
			wsm.mutex.Unlock()
			wsm.logger.Info("client disconnected", "total", total)

		case message := <-wsm.broadcast:
			wsm.mutex.Lock()
			for client := range wsm.clients {
				select {
				case client.send <- message:
				default:
					wsm.logger.Warn("client is not keeping up, dropping it")
					delete(wsm.clients, client)
					close(client.send)
				}
			}
			wsm.mutex.Unlock()
		}
	}
}

// ClientCount reports how many connections are registered.
func (wsm *WebSocketManager) ClientCount() int {
	wsm.mutex.RLock()
	defer wsm.mutex.RUnlock()
	return len(wsm.clients)
}

// BroadcastDetection never blocks; a full buffer drops the notification.
func (wsm *WebSocketManager) BroadcastDetection(n domain.DetectionNotification) {
	message, err := json.Marshal(n)
	if err != nil {
		wsm.logger.Error("marshal notification", "error", err)
		return
	}

	select {
	case wsm.broadcast <- message:
	default:
		wsm.logger.Warn("broadcast channel is full, dropping message", "record_id", n.RecordID)
	}
}

// writePump drains client.send until the hub closes it or a write misses
// its deadline, then closes the connection.
func (wsm *WebSocketManager) writePump(client *wsClient) {
	defer client.conn.Close()
	for message := range client.send {
		client.conn.SetWriteDeadline(time.Now().Add(wsm.writeWait))
		if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			wsm.logger.Warn("write failed, dropping client", "error", err)
			return
		}
	}
	client.conn.SetWriteDeadline(time.Now().Add(wsm.writeWait))
	client.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

type WebSocketHandler struct {
	wsManager *WebSocketManager
}

func NewWebSocketHandler(wsManager *WebSocketManager) *WebSocketHandler {
	return &WebSocketHandler{wsManager: wsManager}
}

// GET /ws
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.wsManager.logger.Warn("upgrade failed", "error", err)
		return
	}

	client := &wsClient{conn: conn, send: make(chan []byte, clientSendBuffer)}
	h.wsManager.register <- client
	go h.wsManager.writePump(client)

	// Clients only listen; reading detects the disconnect.
	go func() {
		defer func() {
			h.wsManager.unregister <- client
		}()

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					h.wsManager.logger.Warn("read failed", "error", err)
				}
				break
			}
		}
	}()
}

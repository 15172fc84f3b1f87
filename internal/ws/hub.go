// Package ws streams history events to connected clients over WebSocket.
package ws

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/novafield/rewind/internal/engine"
	"github.com/novafield/rewind/internal/infrastructure/logging"
	"github.com/novafield/rewind/internal/infrastructure/monitoring"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in dev
	},
}

// sendBuffer bounds per-client queues; slow clients are dropped.
const sendBuffer = 32

// Hub fans engine events out to every connected client. It implements
// engine.Notifier so the engine can stay unaware of transport.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	logger  *logging.Logger
	metrics *monitoring.Metrics
}

type client struct {
	conn *websocket.Conn
	send chan engine.Event
}

// NewHub creates an event hub.
func NewHub(logger *logging.Logger, metrics *monitoring.Metrics) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		logger:  logger.Named("ws"),
		metrics: metrics,
	}
}

// Publish delivers an event to every connected client. Clients whose send
// queue is full are disconnected rather than blocking the engine.
func (h *Hub) Publish(event engine.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- event:
		default:
			go h.remove(c)
		}
	}
}

// HandleConnection upgrades the request and streams events until the client
// disconnects.
func (h *Hub) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	cl := &client{conn: conn, send: make(chan engine.Event, sendBuffer)}
	h.add(cl)
	defer h.remove(cl)

	_ = conn.WriteJSON(map[string]interface{}{
		"type":    "system",
		"message": "connected to rewind event stream",
	})

	go cl.writeLoop()

	// Drain reads so pings and close frames are processed.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (cl *client) writeLoop() {
	for event := range cl.send {
		if err := cl.conn.WriteJSON(event); err != nil {
			return
		}
	}
}

func (h *Hub) add(cl *client) {
	h.mu.Lock()
	h.clients[cl] = struct{}{}
	h.mu.Unlock()
	h.metrics.WSConnect(1)
}

func (h *Hub) remove(cl *client) {
	h.mu.Lock()
	_, present := h.clients[cl]
	if present {
		delete(h.clients, cl)
	}
	h.mu.Unlock()
	if present {
		close(cl.send)
		cl.conn.Close()
		h.metrics.WSConnect(-1)
	}
}

// Count reports connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

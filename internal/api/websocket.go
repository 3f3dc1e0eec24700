package api

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const hubWriteTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Any origin is accepted: the router's CORS middleware only sets
	// response headers and does not reject requests by origin. The stream
	// itself carries only wallet events, never key material.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub fans wallet events (output_received, output_spent, reorg,
// sync_progress) out to every connected websocket client. BridgeEvents is
// the producer; Subscribe registers consumers.
type Hub struct {
	mu        sync.Mutex
	clients   map[*websocket.Conn]struct{}
	broadcast chan []byte
}

func NewHub() *Hub {
	return &Hub{
		clients:   make(map[*websocket.Conn]struct{}),
		broadcast: make(chan []byte, 256),
	}
}

// Run drains the broadcast channel until it is closed. A client that can't
// keep up within hubWriteTimeout is dropped rather than allowed to stall
// the rest of the fan-out.
func (h *Hub) Run() {
	for message := range h.broadcast {
		h.mu.Lock()
		for conn := range h.clients {
			_ = conn.SetWriteDeadline(time.Now().Add(hubWriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[api] websocket write failed, dropping client: %v", err)
				conn.Close()
				delete(h.clients, conn)
			}
		}
		h.mu.Unlock()
	}
}

// Subscribe upgrades the request and registers the connection with the hub.
// The read loop exists only to observe disconnects; the stream is push-only.
func (h *Hub) Subscribe(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[api] websocket upgrade failed: %v", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	log.Printf("[api] websocket client connected (%d total)", n)

	go func() {
		defer func() {
			h.mu.Lock()
			delete(h.clients, conn)
			n := len(h.clients)
			h.mu.Unlock()
			conn.Close()
			log.Printf("[api] websocket client disconnected (%d total)", n)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("[api] websocket read error: %v", err)
				}
				return
			}
		}
	}()
}

// Broadcast enqueues a JSON payload for every connected client.
func (h *Hub) Broadcast(data []byte) {
	h.broadcast <- data
}

package notify

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/udsonbraga/safelady/server/logger"
)

const WRITE_TIMEOUT = 5 * time.Second

var logg = logger.NewLogger()

// Hub pushes server events (alert dispatched, contacts synced) to the
// user's open app sessions over websockets. Delivery is best-effort: a
// dead connection is dropped, never retried.
type Hub struct {
	upgrader websocket.Upgrader

	mu          sync.Mutex
	connections map[uint]map[*websocket.Conn]bool
}

func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		connections: make(map[uint]map[*websocket.Conn]bool),
	}
}

// Serve upgrades the request and parks the connection until the client
// hangs up. The read loop exists only to observe the close.
func (h *Hub) Serve(userID uint, rw http.ResponseWriter, r *http.Request) error {
	conn, err := h.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		return err
	}

	h.register(userID, conn)
	defer h.unregister(userID, conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return nil
		}
	}
}

// NotifyUser sends the event to every open session of the user.
func (h *Hub) NotifyUser(userID uint, event interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.connections[userID] {
		conn.SetWriteDeadline(time.Now().Add(WRITE_TIMEOUT))
		if err := conn.WriteJSON(event); err != nil {
			logg.Warnf("dropping dead session for user %v: %v", userID, err)
			conn.Close()
			delete(h.connections[userID], conn)
		}
	}
}

func (h *Hub) SessionCount(userID uint) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.connections[userID])
}

// Close tears down every open session, typically on server shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, conns := range h.connections {
		for conn := range conns {
			conn.Close()
		}
		delete(h.connections, userID)
	}
}

// ---------------------------------------------------------------------------------//
// Helper functions
// --------------------------------------------------------------------------------//

func (h *Hub) register(userID uint, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.connections[userID] == nil {
		h.connections[userID] = make(map[*websocket.Conn]bool)
	}
	h.connections[userID][conn] = true
}

func (h *Hub) unregister(userID uint, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn.Close()
	delete(h.connections[userID], conn)
	if len(h.connections[userID]) == 0 {
		delete(h.connections, userID)
	}
}

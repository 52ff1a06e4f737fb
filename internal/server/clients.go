package server

import (
	"sync"
	"time"

	"github.com/coder/websocket"
)

type clientInfo struct {
	remoteAddr  string
	connectedAt time.Time
}

// ClientRegistry manages connected WebSocket clients thread-safely
type ClientRegistry struct {
	clients map[*websocket.Conn]clientInfo
	mu      sync.RWMutex
}

// NewClientRegistry creates a new client registry
func NewClientRegistry() *ClientRegistry {
	return &ClientRegistry{
		clients: make(map[*websocket.Conn]clientInfo),
	}
}

// Add registers a new client connection
func (r *ClientRegistry) Add(conn *websocket.Conn, remoteAddr string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[conn] = clientInfo{remoteAddr: remoteAddr, connectedAt: time.Now()}
}

// Remove unregisters a client connection
func (r *ClientRegistry) Remove(conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, conn)
}

// Count returns the number of connected clients
func (r *ClientRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Contains checks if a client is registered
func (r *ClientRegistry) Contains(conn *websocket.Conn) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.clients[conn]
	return ok
}

// RemoteAddr returns the address a client connected from.
func (r *ClientRegistry) RemoteAddr(conn *websocket.Conn) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.clients[conn].remoteAddr
}

// ForEach executes a function for each connected client. fn runs on a
// snapshot, so it may add or remove clients.
func (r *ClientRegistry) ForEach(fn func(*websocket.Conn)) {
	r.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(r.clients))
	for conn := range r.clients {
		conns = append(conns, conn)
	}
	r.mu.RUnlock()

	for _, conn := range conns {
		fn(conn)
	}
}

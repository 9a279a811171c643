package ws

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
)

// ClientConnection wraps a WebSocket connection with metadata
type ClientConnection struct {
	Conn       *websocket.Conn
	UserID     uint
	IsMentor   bool
	Lectures   map[uint]struct{}
	Threads    map[uint]struct{}
	LastPong   time.Time
	PingTicker *time.Ticker
	CloseChan  chan struct{}
}

// Hub manages all active WebSocket connections. It is a push-only
// notification channel; clients refetch over HTTP when told to.
type Hub struct {
	clients      map[uint]*ClientConnection
	clientsMux   sync.RWMutex
	pingInterval time.Duration
	pongTimeout  time.Duration
	// onUnregister runs after any teardown path (client disconnect, ping
	// failure, health check) with the watches the connection held.
	onUnregister func(lectures []uint, threads []uint)
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	hub := &Hub{
		clients:      make(map[uint]*ClientConnection),
		pingInterval: 30 * time.Second,
		pongTimeout:  90 * time.Second,
	}

	go hub.connectionHealthChecker()

	return hub
}

// SetUnregisterHook registers the feed-release callback. Must be set
// before any client connects.
func (h *Hub) SetUnregisterHook(fn func(lectures []uint, threads []uint)) {
	h.onUnregister = fn
}

// Register adds a client connection with health monitoring
func (h *Hub) Register(userID uint, isMentor bool, conn *websocket.Conn) {
	clientConn := &ClientConnection{
		Conn:       conn,
		UserID:     userID,
		IsMentor:   isMentor,
		Lectures:   make(map[uint]struct{}),
		Threads:    make(map[uint]struct{}),
		LastPong:   time.Now(),
		PingTicker: time.NewTicker(h.pingInterval),
		CloseChan:  make(chan struct{}),
	}

	conn.SetPongHandler(func(appData string) error {
		h.clientsMux.Lock()
		if client, exists := h.clients[userID]; exists {
			client.LastPong = time.Now()
		}
		h.clientsMux.Unlock()
		return nil
	})

	conn.SetReadDeadline(time.Now().Add(h.pongTimeout))

	h.clientsMux.Lock()
	h.clients[userID] = clientConn
	h.clientsMux.Unlock()

	go h.pingRoutine(clientConn)

	log.Printf("User %d connected to hub (total: %d, mentor: %v)", userID, h.Count(), isMentor)
}

// Unregister removes a client connection. The unregister hook gets the
// watches the connection held so matching feeds can be released.
func (h *Hub) Unregister(userID uint) {
	var lectures, threads []uint
	existed := false
	h.clientsMux.Lock()
	if client, exists := h.clients[userID]; exists {
		existed = true
		if client.PingTicker != nil {
			client.PingTicker.Stop()
		}
		close(client.CloseChan)
		for id := range client.Lectures {
			lectures = append(lectures, id)
		}
		for id := range client.Threads {
			threads = append(threads, id)
		}
	}
	delete(h.clients, userID)
	count := len(h.clients)
	h.clientsMux.Unlock()
	if !existed {
		return
	}
	log.Printf("User %d disconnected from hub (total: %d)", userID, count)
	if h.onUnregister != nil {
		h.onUnregister(lectures, threads)
	}
}

// WatchLecture marks a connection as interested in a lecture's threads.
func (h *Hub) WatchLecture(userID uint, lectureID uint) bool {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()
	client, exists := h.clients[userID]
	if !exists {
		return false
	}
	client.Lectures[lectureID] = struct{}{}
	return true
}

// UnwatchLecture drops a connection's interest in a lecture.
func (h *Hub) UnwatchLecture(userID uint, lectureID uint) bool {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()
	client, exists := h.clients[userID]
	if !exists {
		return false
	}
	if _, ok := client.Lectures[lectureID]; !ok {
		return false
	}
	delete(client.Lectures, lectureID)
	return true
}

// WatchThread marks a connection as interested in one open thread.
func (h *Hub) WatchThread(userID uint, threadID uint) bool {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()
	client, exists := h.clients[userID]
	if !exists {
		return false
	}
	client.Threads[threadID] = struct{}{}
	return true
}

// UnwatchThread drops a connection's interest in a thread.
func (h *Hub) UnwatchThread(userID uint, threadID uint) bool {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()
	client, exists := h.clients[userID]
	if !exists {
		return false
	}
	if _, ok := client.Threads[threadID]; !ok {
		return false
	}
	delete(client.Threads, threadID)
	return true
}

// IsOnline checks if a user is connected
func (h *Hub) IsOnline(userID uint) bool {
	h.clientsMux.RLock()
	defer h.clientsMux.RUnlock()
	_, exists := h.clients[userID]
	return exists
}

// SendToUser sends data to a specific user
func (h *Hub) SendToUser(userID uint, data interface{}) error {
	h.clientsMux.RLock()
	clientConn, exists := h.clients[userID]
	h.clientsMux.RUnlock()

	if !exists {
		return nil
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Printf("Error marshaling data for user %d: %v", userID, err)
		return err
	}

	if err := clientConn.Conn.WriteMessage(websocket.TextMessage, jsonData); err != nil {
		log.Printf("Error sending message to user %d: %v", userID, err)
		h.Unregister(userID)
		return err
	}

	return nil
}

// Broadcast sends data to all connected users
func (h *Hub) Broadcast(data interface{}) {
	h.broadcast(data, func(*ClientConnection) bool { return true })
}

// BroadcastMentors sends data to all connected mentor-side users.
func (h *Hub) BroadcastMentors(data interface{}) {
	h.broadcast(data, func(c *ClientConnection) bool { return c.IsMentor })
}

// BroadcastLecture sends data to every connection watching the lecture.
func (h *Hub) BroadcastLecture(lectureID uint, data interface{}) {
	h.broadcast(data, func(c *ClientConnection) bool {
		_, ok := c.Lectures[lectureID]
		return ok
	})
}

// BroadcastThread sends data to every connection with the thread open.
func (h *Hub) BroadcastThread(threadID uint, data interface{}) {
	h.broadcast(data, func(c *ClientConnection) bool {
		_, ok := c.Threads[threadID]
		return ok
	})
}

func (h *Hub) broadcast(data interface{}, want func(*ClientConnection) bool) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Printf("Error marshaling broadcast data: %v", err)
		return
	}

	h.clientsMux.RLock()
	targets := make([]*ClientConnection, 0, len(h.clients))
	for _, conn := range h.clients {
		if want(conn) {
			targets = append(targets, conn)
		}
	}
	h.clientsMux.RUnlock()

	for _, clientConn := range targets {
		if err := clientConn.Conn.WriteMessage(websocket.TextMessage, jsonData); err != nil {
			log.Printf("Error broadcasting to user %d: %v", clientConn.UserID, err)
			h.Unregister(clientConn.UserID)
		}
	}
}

// Count returns the number of connected clients
func (h *Hub) Count() int {
	h.clientsMux.RLock()
	defer h.clientsMux.RUnlock()
	return len(h.clients)
}

// pingRoutine sends periodic ping messages to keep connection alive
func (h *Hub) pingRoutine(client *ClientConnection) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Ping routine recovered from panic for user %d: %v", client.UserID, r)
		}
	}()

	for {
		select {
		case <-client.CloseChan:
			return
		case <-client.PingTicker.C:
			h.clientsMux.RLock()
			_, exists := h.clients[client.UserID]
			h.clientsMux.RUnlock()

			if !exists {
				return
			}

			if err := client.Conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
				log.Printf("Ping failed for user %d: %v", client.UserID, err)
				h.Unregister(client.UserID)
				return
			}
		}
	}
}

// connectionHealthChecker monitors connection health and removes dead connections
func (h *Hub) connectionHealthChecker() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		h.clientsMux.RLock()
		deadConnections := make([]uint, 0)
		now := time.Now()

		for userID, client := range h.clients {
			if now.Sub(client.LastPong) > h.pongTimeout {
				deadConnections = append(deadConnections, userID)
			}
		}
		h.clientsMux.RUnlock()

		for _, userID := range deadConnections {
			log.Printf("Removing dead connection for user %d (no pong received)", userID)
			h.Unregister(userID)
		}
	}
}

package handlers

import (
	"log"
	"sync"

	"github.com/gofiber/websocket/v2"
	"github.com/noteduco342/LectureQA-backend/internal/handlers/ws"
	"github.com/noteduco342/LectureQA-backend/internal/realtime"
)

// WebSocketHandler bridges the realtime bus to connected UI clients.
// Each watched lecture holds one bus subscription; events are fanned out
// to the hub so clients know to refetch.
type WebSocketHandler struct {
	hub *ws.Hub
	bus *realtime.Bus

	mu          sync.Mutex
	lectureSubs map[uint]*realtime.Subscription
	lectureRefs map[uint]int
	threadSubs  map[uint]*realtime.Subscription
	threadRefs  map[uint]int
	teacherSub  *realtime.Subscription
}

func NewWebSocketHandler(bus *realtime.Bus) *WebSocketHandler {
	h := &WebSocketHandler{
		hub:         ws.NewHub(),
		bus:         bus,
		lectureSubs: make(map[uint]*realtime.Subscription),
		lectureRefs: make(map[uint]int),
		threadSubs:  make(map[uint]*realtime.Subscription),
		threadRefs:  make(map[uint]int),
	}
	h.hub.SetUnregisterHook(func(lectures []uint, threads []uint) {
		for _, lectureID := range lectures {
			h.ReleaseLectureFeed(lectureID)
		}
		for _, threadID := range threads {
			h.ReleaseThreadFeed(threadID)
		}
	})
	h.teacherSub = bus.SubscribeTeacherGlobal(func(ev realtime.Event) {
		h.hub.BroadcastMentors(eventEnvelope(ev))
	})
	return h
}

// GetHub returns the hub instance (useful for sending messages from other handlers)
func (h *WebSocketHandler) GetHub() *ws.Hub {
	return h.hub
}

// EnsureLectureFeed keeps one bus subscription per watched lecture,
// refcounted across connections.
func (h *WebSocketHandler) EnsureLectureFeed(lectureID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lectureRefs[lectureID]++
	if _, exists := h.lectureSubs[lectureID]; exists {
		return
	}
	h.lectureSubs[lectureID] = h.bus.SubscribeLecture(lectureID, func(ev realtime.Event) {
		h.hub.BroadcastLecture(lectureID, eventEnvelope(ev))
	})
}

// ReleaseLectureFeed drops a reference; the bus subscription is torn
// down when the last watcher leaves.
func (h *WebSocketHandler) ReleaseLectureFeed(lectureID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.lectureRefs[lectureID] > 0 {
		h.lectureRefs[lectureID]--
	}
	if h.lectureRefs[lectureID] > 0 {
		return
	}
	if sub, exists := h.lectureSubs[lectureID]; exists {
		sub.Unsubscribe()
		delete(h.lectureSubs, lectureID)
	}
	delete(h.lectureRefs, lectureID)
}

// EnsureThreadFeed keeps one bus subscription per open thread,
// refcounted across connections.
func (h *WebSocketHandler) EnsureThreadFeed(threadID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.threadRefs[threadID]++
	if _, exists := h.threadSubs[threadID]; exists {
		return
	}
	h.threadSubs[threadID] = h.bus.SubscribeThread(threadID, func(ev realtime.Event) {
		h.hub.BroadcastThread(threadID, eventEnvelope(ev))
	})
}

// ReleaseThreadFeed drops a reference; the bus subscription is torn down
// when the last watcher leaves.
func (h *WebSocketHandler) ReleaseThreadFeed(threadID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.threadRefs[threadID] > 0 {
		h.threadRefs[threadID]--
	}
	if h.threadRefs[threadID] > 0 {
		return
	}
	if sub, exists := h.threadSubs[threadID]; exists {
		sub.Unsubscribe()
		delete(h.threadSubs, threadID)
	}
	delete(h.threadRefs, threadID)
}

func eventEnvelope(ev realtime.Event) map[string]interface{} {
	return map[string]interface{}{
		"type":  "qa_event",
		"event": ev,
	}
}

func (h *WebSocketHandler) HandleWebSocket(c *websocket.Conn) {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		_ = c.Close()
		return
	}
	isMentor, _ := c.Locals("isMentor").(bool)

	h.hub.Register(userID, isMentor, c)

	defer h.hub.Unregister(userID)

	log.Printf("User %d connected via WebSocket", userID)

	ctx := &ws.MessageContext{
		UserID:   userID,
		IsMentor: isMentor,
		Conn:     c,
		Hub:      h.hub,
		Feeds:    h,
	}

	for {
		_, messageBytes, err := c.ReadMessage()
		if err != nil {
			log.Printf("Error reading message from user %d: %v", userID, err)
			break
		}

		msg, err := ws.DecodeEnvelope(messageBytes)
		if err != nil {
			log.Printf("Error deserializing message from user %d: %v", userID, err)
			ws.SendError(c, "invalid_message", "Invalid message format", err.Error())
			continue
		}

		if err := msg.Process(ctx); err != nil {
			log.Printf("Error processing message %s from user %d: %v", msg.GetType(), userID, err)
			ws.SendError(c, "processing_failed", "Failed to process message", err.Error())
		}
	}

	log.Printf("User %d disconnected from WebSocket", userID)
}

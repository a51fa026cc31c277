package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"chat-bridge/internal/observability"
)

const uiRoutingKey = "ws_events.ui"

// PushEvent is the frame every UI subscriber receives.
type PushEvent struct {
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

// Hub maintains the set of UI websocket subscribers and fans bridge
// events out to all of them. It implements the notifier surface the
// protocol client pushes through.
type Hub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]ConnInfo
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]ConnInfo)}
}

// AddClient registers a UI websocket connection.
func (h *Hub) AddClient(conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = info
}

// RemoveClient removes a UI websocket connection.
func (h *Hub) RemoveClient(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, conn)
}

// ClientCount reports the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Notify broadcasts one event to every subscriber. A failed write drops
// that subscriber; the UI reconnects and resyncs over REST.
func (h *Hub) Notify(event string, payload any) {
	frame, err := json.Marshal(PushEvent{Event: event, Payload: payload})
	if err != nil {
		log.Printf("ui push %s: marshal failed: %v", event, err)
		return
	}

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			log.Printf("ui websocket write error: %v", err)
			conn.Close()
			h.publishWSError(conn, err)
			h.RemoveClient(conn)
		}
	}
	observability.IncWSEvent("ui", event)
}

func (h *Hub) publishWSError(conn *websocket.Conn, err error) {
	h.mu.RLock()
	info, ok := h.clients[conn]
	h.mu.RUnlock()
	if !ok {
		return
	}

	_ = observability.PublishEvent(context.Background(), uiRoutingKey, lifecycleEnvelope(info, "ws_error", time.Since(info.ConnectedAt).Milliseconds(), err.Error()))
	observability.IncWSEvent("ui", "ws_error")
}

func lifecycleEnvelope(info ConnInfo, event string, durationMS int64, reason string) observability.EventEnvelope {
	return observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		RequestID: info.Meta.RequestID,
		TraceID:   info.TraceID,
		Payload: map[string]interface{}{
			"ws": map[string]interface{}{
				"kind":        "ui",
				"event":       event,
				"conn_id":     info.ConnID,
				"duration_ms": durationMS,
				"reason":      reason,
			},
			"identity": map[string]interface{}{
				"user_id":   info.UserID,
				"device_id": info.Meta.DeviceID,
				"ip":        info.Meta.IP,
			},
		},
	}
}

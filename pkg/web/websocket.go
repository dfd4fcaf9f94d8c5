package web

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hambridge/p25gw/pkg/logger"
)

// Event represents a WebSocket event pushed to subscribed dashboards.
type Event struct {
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// Marshal converts an event to JSON bytes.
func (e *Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Client represents one connected WebSocket subscriber.
type Client struct {
	ID       string
	conn     *websocket.Conn
	messages chan []byte
}

// WebSocketHub fans status events out to connected dashboards. A full
// client buffer drops the event rather than backpressuring the
// broadcaster, per the status reporting no-block guarantee.
type WebSocketHub struct {
	clients    map[*Client]bool
	broadcast  chan Event
	register   chan *Client
	unregister chan *Client
	logger     *logger.Logger
	mu         sync.RWMutex
}

// NewWebSocketHub creates a new WebSocket hub.
func NewWebSocketHub(log *logger.Logger) *WebSocketHub {
	return &WebSocketHub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     log.WithComponent("web.hub"),
	}
}

// Run starts the hub's event loop and blocks until ctx is cancelled.
func (h *WebSocketHub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Debug("client registered", logger.String("client_id", client.ID))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.messages)
			}
			h.mu.Unlock()
			h.logger.Debug("client unregistered", logger.String("client_id", client.ID))

		case event := <-h.broadcast:
			data, err := event.Marshal()
			if err != nil {
				h.logger.Error("failed to marshal event", logger.Error(err))
				continue
			}

			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.messages <- data:
				default:
					h.logger.Warn("client buffer full, dropping event",
						logger.String("client_id", client.ID))
				}
			}
			h.mu.RUnlock()

		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.messages)
			}
			h.clients = make(map[*Client]bool)
			h.mu.Unlock()
			return
		}
	}
}

// Broadcast sends an event to all connected clients, dropping it if
// the hub's internal queue is full.
func (h *WebSocketHub) Broadcast(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("broadcast queue full, dropping event", logger.String("event_type", event.Type))
	}
}

// Handler returns an HTTP handler that upgrades requests to WebSocket
// connections and registers them with the hub.
func (h *WebSocketHub) Handler() http.Handler {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			http.Error(w, "websocket upgrade failed", http.StatusBadRequest)
			return
		}
		client := &Client{ID: r.RemoteAddr, conn: conn, messages: make(chan []byte, 256)}
		h.register <- client

		go func() {
			defer func() {
				h.unregister <- client
				_ = client.conn.Close()
			}()
			client.conn.SetReadLimit(1024)
			for {
				if _, _, err := client.conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		go func() {
			for msg := range client.messages {
				if err := client.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					return
				}
			}
		}()
	})
}

// GetClientCount returns the number of connected clients.
func (h *WebSocketHub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastCallStarted notifies dashboards that a call began.
func (h *WebSocketHub) BroadcastCallStarted(streamID, srcID, dstID uint32, start time.Time) {
	h.Broadcast(Event{
		Type:      "call_started",
		Timestamp: start,
		Data: map[string]interface{}{
			"stream_id": streamID,
			"source_id": srcID,
			"talkgroup": dstID,
		},
	})
}

// BroadcastCallEnded notifies dashboards that a call ended.
func (h *WebSocketHub) BroadcastCallEnded(streamID, srcID, dstID uint32, start, end time.Time, ldu1Count, ldu2Count int, endReason string) {
	h.Broadcast(Event{
		Type:      "call_ended",
		Timestamp: end,
		Data: map[string]interface{}{
			"stream_id":        streamID,
			"source_id":        srcID,
			"talkgroup":        dstID,
			"duration_seconds": end.Sub(start).Seconds(),
			"ldu1_count":       ldu1Count,
			"ldu2_count":       ldu2Count,
			"end_reason":       endReason,
		},
	})
}

// BroadcastSessionStateChanged notifies dashboards of an FNE session
// connect/disconnect transition.
func (h *WebSocketHub) BroadcastSessionStateChanged(connected bool) {
	h.Broadcast(Event{
		Type: "session_state_change",
		Data: map[string]interface{}{
			"connected": connected,
		},
	})
}

// BroadcastStatusSnapshot pushes a full counter snapshot, used both by
// the per-minute ticker and on demand.
func (h *WebSocketHub) BroadcastStatusSnapshot(snapshot StatusSnapshot) {
	h.Broadcast(Event{
		Type: "status_snapshot",
		Data: map[string]interface{}{
			"snapshot": snapshot,
		},
	})
}

package web

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestWebSocketHub_New(t *testing.T) {
	hub := NewWebSocketHub(testLogger())
	if hub == nil {
		t.Fatal("NewWebSocketHub returned nil")
	}
}

func TestWebSocketHub_Run(t *testing.T) {
	hub := NewWebSocketHub(testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	go hub.Run(ctx)
	time.Sleep(50 * time.Millisecond)
	cancel()
	time.Sleep(50 * time.Millisecond)
}

func TestWebSocketHub_Broadcast(t *testing.T) {
	hub := NewWebSocketHub(testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	go hub.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	hub.Broadcast(Event{Type: "test", Data: map[string]interface{}{"message": "hello"}})
	time.Sleep(50 * time.Millisecond)
}

func TestWebSocketHandler_DeliversBroadcast(t *testing.T) {
	hub := NewWebSocketHub(testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	go hub.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	server := httptest.NewServer(hub.Handler())
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("failed to dial websocket server: %v", err)
	}
	defer conn.Close()

	time.Sleep(50 * time.Millisecond)
	hub.BroadcastCallStarted(777, 100, 200, time.Now())

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read broadcast message: %v", err)
	}
	if !strings.Contains(string(data), "call_started") {
		t.Errorf("expected call_started event, got %s", data)
	}
}

func TestEvent_Marshal(t *testing.T) {
	event := Event{
		Type:      "call_started",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"source_id": 312000,
			"talkgroup": 900,
		},
	}

	data, err := event.Marshal()
	if err != nil {
		t.Fatalf("failed to marshal event: %v", err)
	}
	if len(data) == 0 {
		t.Error("marshaled data is empty")
	}
	if !strings.Contains(string(data), "call_started") {
		t.Error("marshaled data doesn't contain event type")
	}
}

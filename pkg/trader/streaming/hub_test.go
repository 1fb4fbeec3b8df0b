package streaming

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// waitForClients polls until the hub reports n clients or the deadline passes.
func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount() == n {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("ClientCount() = %d, want %d", hub.ClientCount(), n)
}

func TestServeWSAndBroadcast(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	waitForClients(t, hub, 1)

	hub.BroadcastSpike("KXNBATOTAL-25NOV01DETLAL-B250.5", 6)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage failed: %v", err)
	}

	var event Event
	if err := json.Unmarshal(msg, &event); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if event.Type != EventTypeSpike {
		t.Errorf("Type = %s, want %s", event.Type, EventTypeSpike)
	}
	if event.Timestamp.IsZero() {
		t.Error("event timestamp not stamped")
	}
	data, ok := event.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("Data = %T, want a map", event.Data)
	}
	if data["ticker"] != "KXNBATOTAL-25NOV01DETLAL-B250.5" {
		t.Errorf("ticker = %v, want the broadcast ticker", data["ticker"])
	}
	if data["delta_cents"] != float64(6) {
		t.Errorf("delta_cents = %v, want 6", data["delta_cents"])
	}
}

func TestClientDisconnect(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}

	waitForClients(t, hub, 1)
	conn.Close()
	waitForClients(t, hub, 0)
}

func TestSubscriptionToggle(t *testing.T) {
	c := &Client{subscriptions: map[EventType]bool{
		EventTypeEvaluation: true,
		EventTypeSpike:      true,
	}}

	c.handleMessage([]byte(`{"type":"unsubscribe","events":["evaluation"]}`))
	if c.isSubscribed(EventTypeEvaluation) {
		t.Error("still subscribed to evaluation after unsubscribe")
	}
	if !c.isSubscribed(EventTypeSpike) {
		t.Error("unsubscribe dropped an unrelated subscription")
	}

	c.handleMessage([]byte(`{"type":"subscribe","events":["order","status"]}`))
	if !c.isSubscribed(EventTypeOrder) || !c.isSubscribed(EventTypeStatus) {
		t.Error("subscribe did not add the requested events")
	}

	// Malformed messages are ignored.
	c.handleMessage([]byte(`not json`))
	if !c.isSubscribed(EventTypeSpike) {
		t.Error("malformed message changed subscriptions")
	}
}

func TestBroadcastNeverBlocks(t *testing.T) {
	hub := NewHub()
	// No Run loop draining the channel; overflow must drop, not block.
	for i := 0; i < 300; i++ {
		hub.Broadcast(Event{Type: EventTypeHeartbeat})
	}
}

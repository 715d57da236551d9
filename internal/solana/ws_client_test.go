package solana

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestWSClient_SubscribeAndNotify(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		var req wsRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		if req.Method != "logsSubscribe" {
			t.Errorf("expected logsSubscribe, got %s", req.Method)
		}

		conn.WriteJSON(wsSubscribeResponse{JSONRPC: "2.0", ID: req.ID, Result: 12345})

		conn.WriteJSON(wsNotification{
			JSONRPC: "2.0",
			Method:  "logsNotification",
			Params: &wsNotificationParams{
				Subscription: 12345,
				Result: wsNotificationResult{
					Context: &wsContext{Slot: 555},
					Value: wsLogsValue{
						Signature: "sig1",
						Logs:      []string{"Program log: initialize2"},
					},
				},
			},
		})

		// Keep the connection open until the client closes it.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	ctx := context.Background()
	client, err := NewWSClient(ctx, wsURL(server), nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	sub, err := client.SubscribeLogs(ctx, LogsFilter{Mentions: []string{"SomeProgram"}})
	if err != nil {
		t.Fatalf("SubscribeLogs: %v", err)
	}
	if sub.ID != 12345 {
		t.Errorf("expected subscription id 12345, got %d", sub.ID)
	}

	select {
	case notif := <-sub.C:
		if notif.Signature != "sig1" {
			t.Errorf("unexpected signature: %s", notif.Signature)
		}
		if notif.Slot != 555 {
			t.Errorf("unexpected slot: %d", notif.Slot)
		}
		if len(notif.Logs) != 1 || notif.Logs[0] != "Program log: initialize2" {
			t.Errorf("unexpected logs: %v", notif.Logs)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for notification")
	}
}

func TestWSClient_Unsubscribe(t *testing.T) {
	unsubscribed := make(chan int64, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			var req wsRequest
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			switch req.Method {
			case "logsSubscribe":
				conn.WriteJSON(wsSubscribeResponse{JSONRPC: "2.0", ID: req.ID, Result: 7})
			case "logsUnsubscribe":
				if len(req.Params) == 1 {
					if id, ok := req.Params[0].(float64); ok {
						unsubscribed <- int64(id)
					}
				}
				conn.WriteJSON(map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": true})
			}
		}
	}))
	defer server.Close()

	ctx := context.Background()
	client, err := NewWSClient(ctx, wsURL(server), nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	sub, err := client.SubscribeLogs(ctx, LogsFilter{})
	if err != nil {
		t.Fatalf("SubscribeLogs: %v", err)
	}

	if err := client.Unsubscribe(ctx, sub); err != nil {
		t.Fatalf("Unsubscribe: %v", err)
	}

	select {
	case id := <-unsubscribed:
		if id != 7 {
			t.Errorf("expected unsubscribe for id 7, got %d", id)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server never received logsUnsubscribe")
	}

	// Channel must be closed after unsubscribe.
	select {
	case _, open := <-sub.C:
		if open {
			t.Error("expected closed channel after unsubscribe")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after unsubscribe")
	}

	// Unsubscribing twice is a no-op.
	if err := client.Unsubscribe(ctx, sub); err != nil {
		t.Errorf("second Unsubscribe: %v", err)
	}
}

func TestWSClient_UnsubscribeDuringDelivery(t *testing.T) {
	stop := make(chan struct{})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var req wsRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		conn.WriteJSON(wsSubscribeResponse{JSONRPC: "2.0", ID: req.ID, Result: 21})

		// Swallow the unsubscribe and any other client writes.
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		// Flood notifications so deliveries are in flight while the
		// client tears the subscription down.
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			err := conn.WriteJSON(wsNotification{
				JSONRPC: "2.0",
				Method:  "logsNotification",
				Params: &wsNotificationParams{
					Subscription: 21,
					Result: wsNotificationResult{
						Value: wsLogsValue{Signature: fmt.Sprintf("sig%d", i)},
					},
				},
			})
			if err != nil {
				return
			}
		}
	}))
	defer server.Close()
	defer close(stop)

	client, err := NewWSClient(context.Background(), wsURL(server), nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	sub, err := client.SubscribeLogs(context.Background(), LogsFilter{})
	if err != nil {
		t.Fatalf("SubscribeLogs: %v", err)
	}

	// Drain in the background so the delivery path stays busy through the
	// unsubscribe instead of backing up.
	first := make(chan struct{})
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		seen := false
		for range sub.C {
			if !seen {
				seen = true
				close(first)
			}
		}
	}()

	select {
	case <-first:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for first notification")
	}

	// A delivery racing this close used to panic the read loop.
	if err := client.Unsubscribe(context.Background(), sub); err != nil {
		t.Fatalf("Unsubscribe: %v", err)
	}

	select {
	case <-drained:
	case <-time.After(5 * time.Second):
		t.Fatal("channel not closed after unsubscribe")
	}
}

func TestWSClient_SubscribeTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Swallow the subscribe request without confirming.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	cfg := DefaultWSConfig()
	cfg.SubscribeTimeout = 100 * time.Millisecond

	client, err := NewWSClient(context.Background(), wsURL(server), &cfg)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}
	defer client.Close()

	_, err = client.SubscribeLogs(context.Background(), LogsFilter{})
	if err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestWSClient_CloseClosesSubscriptions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			var req wsRequest
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			if req.Method == "logsSubscribe" {
				conn.WriteJSON(wsSubscribeResponse{JSONRPC: "2.0", ID: req.ID, Result: 9})
			}
		}
	}))
	defer server.Close()

	client, err := NewWSClient(context.Background(), wsURL(server), nil)
	if err != nil {
		t.Fatalf("NewWSClient: %v", err)
	}

	sub, err := client.SubscribeLogs(context.Background(), LogsFilter{})
	if err != nil {
		t.Fatalf("SubscribeLogs: %v", err)
	}

	if err := client.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	select {
	case _, open := <-sub.C:
		if open {
			t.Error("expected closed channel after client close")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after client close")
	}

	// Close is idempotent.
	if err := client.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

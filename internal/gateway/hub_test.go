package gateway

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialWS(t *testing.T, srv *httptest.Server, feedKey string) *websocket.Conn {
	t.Helper()
	url := strings.Replace(srv.URL, "http", "ws", 1) + "/ws?feedKey=" + feedKey
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	return conn
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, have %d", want, hub.ClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_BroadcastFiltersByFeedKey(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	connA := dialWS(t, srv, "key-a")
	defer connA.Close()
	connA2 := dialWS(t, srv, "key-a")
	defer connA2.Close()
	connB := dialWS(t, srv, "key-b")
	defer connB.Close()

	waitForClients(t, hub, 3)

	payload := []byte(`{"type":"live_alert","pattern":"FVG"}`)
	if n := hub.BroadcastAlert("key-a", payload); n != 2 {
		t.Fatalf("expected delivery to 2 clients, got %d", n)
	}

	for _, conn := range []*websocket.Conn{connA, connA2} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("key-a client read: %v", err)
		}
		if string(msg) != string(payload) {
			t.Fatalf("unexpected payload: %s", msg)
		}
	}

	// key-b must receive nothing.
	connB.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, msg, err := connB.ReadMessage(); err == nil {
		t.Fatalf("key-b client should not receive alert, got %s", msg)
	}
}

func TestHub_OnCountChangeTracksClients(t *testing.T) {
	hub := NewHub()

	var mu sync.Mutex
	var last int
	hub.OnCountChange = func(n int) {
		mu.Lock()
		last = n
		mu.Unlock()
	}

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	conn := dialWS(t, srv, "key-c")
	waitForClients(t, hub, 1)
	mu.Lock()
	got := last
	mu.Unlock()
	if got != 1 {
		t.Fatalf("expected count callback with 1 after connect, got %d", got)
	}

	conn.Close()
	waitForClients(t, hub, 0)
	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		got = last
		mu.Unlock()
		if got == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected count callback with 0 after disconnect, got %d", got)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_DisconnectedClientRemoved(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	conn := dialWS(t, srv, "key-x")
	waitForClients(t, hub, 1)

	conn.Close()
	waitForClients(t, hub, 0)

	// Broadcasting into an empty hub is a no-op.
	if n := hub.BroadcastAlert("key-x", []byte(`{}`)); n != 0 {
		t.Fatalf("expected 0 deliveries, got %d", n)
	}
}

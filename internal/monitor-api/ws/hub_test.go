package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func waitSubscribers(t *testing.T, h *Hub, topic string, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Subscribers(topic) != n {
		if time.Now().After(deadline) {
			t.Fatalf("subscribers(%s) = %d, want %d", topic, h.Subscribers(topic), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_SubscribeAndBroadcast(t *testing.T) {
	hub := NewHub(func(*http.Request) bool { return true })
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	conn := dial(t, srv)
	defer conn.Close()

	topic := ComparisonTopic("2024-05-01")
	if err := conn.WriteJSON(ClientMsg{Type: "subscribe", Topic: topic}); err != nil {
		t.Fatal(err)
	}
	waitSubscribers(t, hub, topic, 1)

	hub.Broadcast(Update{Topic: ComparisonTopic("2024-05-02"), Payload: "other day"})
	hub.Broadcast(Update{Topic: topic, Payload: "hello"})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got Update
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Topic != topic || got.Payload != "hello" {
		t.Errorf("got %+v", got)
	}

	if err := conn.WriteJSON(ClientMsg{Type: "unsubscribe", Topic: topic}); err != nil {
		t.Fatal(err)
	}
	waitSubscribers(t, hub, topic, 0)
}

func TestHub_Ping(t *testing.T) {
	hub := NewHub(func(*http.Request) bool { return true })
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	conn := dial(t, srv)
	defer conn.Close()

	_ = conn.WriteJSON(ClientMsg{Type: "ping"})
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got map[string]string
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatal(err)
	}
	if got["type"] != "pong" {
		t.Errorf("got %v", got)
	}
}

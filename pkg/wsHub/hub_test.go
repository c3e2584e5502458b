package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Temutjin2k/driver-engine/pkg/logger"
	"github.com/gorilla/websocket"
)

func newTestServer(t *testing.T, hub *ConnectionHub) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		c := NewConn(context.Background(), raw)
		_ = hub.Add(c)
		go c.WritePump()
		c.ReadPump()
		_ = hub.Delete(c.ID())
	}))
}

func TestBroadcastReachesClients(t *testing.T) {
	hub := NewConnHub(logger.Discard())
	srv := newTestServer(t, hub)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("connection never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	hub.Broadcast(map[string]any{"type": "snapshot"})

	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got map[string]any
	if err := client.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got["type"] != "snapshot" {
		t.Fatalf("got %v", got)
	}
}

func TestDeleteUnknown(t *testing.T) {
	hub := NewConnHub(logger.Discard())
	if err := hub.Add(nil); err != ErrEmptyConn {
		t.Fatalf("Add(nil) = %v", err)
	}
	c := &Conn{}
	if err := hub.Delete(c.ID()); err != ErrConnIsNotFound {
		t.Fatalf("Delete = %v", err)
	}
}

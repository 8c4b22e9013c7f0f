package stream

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

// mockWSServer creates a test WebSocket server.
func mockWSServer(t *testing.T, handler func(*websocket.Conn)) *httptest.Server {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))

	return server
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func testClientConfig(url string) ClientConfig {
	cfg := DefaultClientConfig()
	cfg.URL = url
	return cfg
}

func TestTransport_Connect(t *testing.T) {
	connected := make(chan struct{})
	server := mockWSServer(t, func(conn *websocket.Conn) {
		close(connected)
		conn.ReadMessage()
	})
	defer server.Close()

	c := NewClient(testClientConfig(wsURL(server)), nil)
	defer c.Close()

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	select {
	case <-connected:
	case <-time.After(2 * time.Second):
		t.Fatal("server never saw the connection")
	}

	if !c.IsConnected() {
		t.Error("IsConnected = false after Connect")
	}
}

func TestTransport_SendMarshalsJSON(t *testing.T) {
	received := make(chan []byte, 1)
	server := mockWSServer(t, func(conn *websocket.Conn) {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		received <- data
	})
	defer server.Close()

	c := NewClient(testClientConfig(wsURL(server)), nil)
	defer c.Close()

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	ka := keepaliveMessage{Type: typeKeepalive, Channel: 0}
	if err := c.Send(ka); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	select {
	case data := <-received:
		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			t.Fatalf("server received non-JSON frame: %v", err)
		}
		if f.Type != typeKeepalive {
			t.Errorf("type = %q, want KEEPALIVE", f.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server never received the frame")
	}
}

func TestTransport_SendWhenNotConnected(t *testing.T) {
	c := NewClient(testClientConfig("ws://localhost:1"), nil)

	err := c.Send(keepaliveMessage{Type: typeKeepalive})
	if err != ErrNotConnected {
		t.Errorf("err = %v, want ErrNotConnected", err)
	}
}

func TestTransport_ReceiveMessages(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"KEEPALIVE","channel":0}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ERROR","channel":0,"error":"BAD_ACTION"}`))
		conn.ReadMessage()
	})
	defer server.Close()

	c := NewClient(testClientConfig(wsURL(server)), nil)
	defer c.Close()

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	for i, wantType := range []string{typeKeepalive, typeError} {
		select {
		case msg := <-c.Messages():
			var f frame
			if err := json.Unmarshal(msg.Data, &f); err != nil {
				t.Fatalf("message %d not JSON: %v", i, err)
			}
			if f.Type != wantType {
				t.Errorf("message %d type = %q, want %q", i, f.Type, wantType)
			}
			if msg.ReceivedAt.IsZero() {
				t.Error("missing receive timestamp")
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("message %d never arrived", i)
		}
	}
}

func TestTransport_ServerCloseSurfacesError(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		// Drop the connection immediately.
	})
	defer server.Close()

	c := NewClient(testClientConfig(wsURL(server)), nil)
	defer c.Close()

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	select {
	case err := <-c.Errors():
		if err == nil {
			t.Error("expected a read error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no error after server dropped connection")
	}
}

func TestTransport_CloseIsIdempotent(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		conn.ReadMessage()
	})
	defer server.Close()

	c := NewClient(testClientConfig(wsURL(server)), nil)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	if err := c.Close(); err != nil {
		t.Errorf("first Close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if c.IsConnected() {
		t.Error("IsConnected = true after Close")
	}
}

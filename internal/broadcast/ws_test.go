package broadcast

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"
)

func newWSTestServer(t *testing.T, b *Broadcaster) *httptest.Server {
	t.Helper()
	handler, err := NewWSHandler(b, time.Minute, zap.NewNop())
	if err != nil {
		t.Fatalf("create ws handler: %v", err)
	}
	return httptest.NewServer(handler)
}

func TestWSHandlerJSONProtocol(t *testing.T) {
	b := NewBroadcaster(16, zap.NewNop())
	defer b.Close()

	srv := newWSTestServer(t, b)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	dialer := websocket.Dialer{Subprotocols: []string{protocolJSON}}
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if got := conn.Subprotocol(); got != protocolJSON {
		t.Errorf("expected subprotocol %q, got %q", protocolJSON, got)
	}

	waitForSubscribers(t, b, 1)
	b.Publish(Message{Type: TypeNewImages, Timestamp: 9})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	msgType, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if msgType != websocket.TextMessage {
		t.Errorf("expected text frame, got %d", msgType)
	}

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Timestamp != 9 {
		t.Errorf("expected timestamp 9, got %v", msg.Timestamp)
	}
}

func TestWSHandlerZstdProtocol(t *testing.T) {
	b := NewBroadcaster(16, zap.NewNop())
	defer b.Close()

	srv := newWSTestServer(t, b)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	dialer := websocket.Dialer{Subprotocols: []string{protocolZstd}}
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	waitForSubscribers(t, b, 1)
	b.Publish(Message{Type: TypeNewImages, Timestamp: 11, Prompt: "compressed"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	msgType, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if msgType != websocket.BinaryMessage {
		t.Errorf("expected binary frame, got %d", msgType)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		t.Fatalf("create zstd reader: %v", err)
	}
	defer decoder.Close()

	raw, err := decoder.DecodeAll(data, nil)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}

	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Prompt != "compressed" {
		t.Errorf("expected prompt %q, got %q", "compressed", msg.Prompt)
	}
}

func TestWSHandlerDeregistersOnClose(t *testing.T) {
	b := NewBroadcaster(16, zap.NewNop())
	defer b.Close()

	srv := newWSTestServer(t, b)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	waitForSubscribers(t, b, 1)
	conn.Close()
	waitForSubscribers(t, b, 0)
}

// Package testhelpers provides shared utilities for the chat room's
// integration tests: spinning up a full server, connecting WebSocket
// clients, and reading protocol frames with deadlines.
package testhelpers

import (
	"bytes"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Tyrowin/chatroom/internal/chat"
	"github.com/Tyrowin/chatroom/internal/server"
)

const (
	// TestOrigin is the origin the test server allows for upgrades.
	TestOrigin = "http://localhost:8080"

	receiveTimeout = 2 * time.Second
)

// StartChatServer boots a complete chat server (coordinator, hub, HTTP
// handlers) on an httptest listener. Everything is torn down via t.Cleanup.
func StartChatServer(t *testing.T) *httptest.Server {
	t.Helper()

	logger := zap.NewNop()
	cfg := server.NewConfig()
	// Integration tests fire many frames quickly; keep the limiter out of
	// the way.
	cfg.RateLimitBurst = 1000

	coordinator := chat.NewCoordinator(logger)
	hub := server.NewHub(coordinator, logger)
	go hub.Run()
	t.Cleanup(func() {
		if err := hub.Shutdown(5 * time.Second); err != nil {
			t.Errorf("hub shutdown failed: %v", err)
		}
	})

	handler := server.NewHandler(hub, cfg, logger)
	ts := httptest.NewServer(handler.Routes())
	t.Cleanup(ts.Close)
	return ts
}

// WebSocketURL converts an httptest server URL to its /ws endpoint.
func WebSocketURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

// ChatClient is a test-side WebSocket participant. It splits the
// newline-batched frames the server's write pump may emit, so Receive
// always yields exactly one message.
type ChatClient struct {
	t       *testing.T
	conn    *websocket.Conn
	pending [][]byte
}

// Connect dials the chat server's WebSocket endpoint with an allowed
// origin. The connection is closed via t.Cleanup.
func Connect(t *testing.T, ts *httptest.Server) *ChatClient {
	t.Helper()

	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	headers := http.Header{}
	headers.Set("Origin", TestOrigin)

	conn, resp, err := dialer.Dial(WebSocketURL(ts), headers)
	if resp != nil {
		_ = resp.Body.Close()
	}
	require.NoError(t, err, "WebSocket dial failed")
	t.Cleanup(func() { _ = conn.Close() })

	return &ChatClient{t: t, conn: conn}
}

// SendJoin sends a JOIN frame claiming name.
func (c *ChatClient) SendJoin(name string) {
	c.t.Helper()
	require.NoError(c.t, c.conn.WriteJSON(chat.Message{Type: chat.TypeJoin, Sender: name}))
}

// SendChat sends a CHAT frame with the given text.
func (c *ChatClient) SendChat(text string) {
	c.t.Helper()
	require.NoError(c.t, c.conn.WriteJSON(chat.Message{Type: chat.TypeChat, Content: text}))
}

// SendRaw sends an arbitrary text frame, bypassing the protocol.
func (c *ChatClient) SendRaw(payload []byte) {
	c.t.Helper()
	require.NoError(c.t, c.conn.WriteMessage(websocket.TextMessage, payload))
}

// Receive returns the next protocol message, failing the test after a
// timeout.
func (c *ChatClient) Receive() chat.Message {
	c.t.Helper()

	if len(c.pending) == 0 {
		require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(receiveTimeout)))
		_, raw, err := c.conn.ReadMessage()
		require.NoError(c.t, err, "expected a message before the read deadline")
		c.pending = bytes.Split(raw, []byte{'\n'})
	}

	head := c.pending[0]
	c.pending = c.pending[1:]

	msg, err := chat.DecodeMessage(head)
	require.NoError(c.t, err, "received frame is not a protocol message: %s", head)
	return msg
}

// ExpectSilence asserts that no message arrives within d. The read timeout
// poisons the underlying connection, so this must be the client's last
// read.
func (c *ChatClient) ExpectSilence(d time.Duration) {
	c.t.Helper()

	require.Empty(c.t, c.pending, "unconsumed messages pending")
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(d)))

	_, raw, err := c.conn.ReadMessage()
	if err == nil {
		c.t.Fatalf("expected silence, received: %s", raw)
	}
	var netErr net.Error
	require.ErrorAs(c.t, err, &netErr)
	require.True(c.t, netErr.Timeout(), "expected a read timeout, got: %v", err)
}

// Close closes the underlying connection with a normal closure frame.
func (c *ChatClient) Close() {
	c.t.Helper()
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = c.conn.Close()
}

// JoinAs connects and completes the join handshake for name, consuming the
// welcome traffic (connect welcome, join welcome, user list) so the test
// starts quiet.
func JoinAs(t *testing.T, ts *httptest.Server, name string) *ChatClient {
	t.Helper()

	c := Connect(t, ts)

	welcome := c.Receive()
	require.Equal(t, chat.TypeSystem, welcome.Type)

	c.SendJoin(name)

	joined := c.Receive()
	require.NotEqual(t, chat.TypeError, joined.Type, "join as %s failed: %s", name, joined.Content)
	userList := c.Receive()
	require.Equal(t, chat.TypeSystem, userList.Type)

	return c
}

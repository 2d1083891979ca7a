// Package server manages individual WebSocket clients, handling read/write
// pumps, rate limiting, and lifecycle control for each connection.
package server

import (
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Tyrowin/chatroom/internal/chat"
)

const (
	pongWait      = 60 * time.Second
	pingInterval  = 54 * time.Second
	writeDeadline = 10 * time.Second
)

// Send failures reported by Client.Send.
var (
	ErrClientClosed   = errors.New("client connection closed")
	ErrSendBufferFull = errors.New("client send buffer full")
)

// Client is one WebSocket connection. It owns the read and write pumps and
// implements chat.Conn so the chat core can address it without knowing the
// transport.
type Client struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	hub    *Hub
	addr   string
	logger *zap.Logger

	mu     sync.Mutex
	closed bool

	maxMessageSize int64
	limiter        *messageLimiter
	rateBurst      int
	rateInterval   time.Duration
}

// NewClient wraps a WebSocket connection. The send channel is buffered so
// broadcasts never block on a slow reader.
func NewClient(conn *websocket.Conn, hub *Hub, addr string, cfg *Config, logger *zap.Logger) *Client {
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}
	id := uuid.NewString()

	return &Client{
		id:             id,
		conn:           conn,
		send:           make(chan []byte, cfg.SendBufferSize),
		hub:            hub,
		addr:           addr,
		logger:         logger.With(zap.String("client_id", id), zap.String("addr", addr)),
		maxMessageSize: cfg.MaxMessageSize,
		limiter:        newMessageLimiter(cfg.RateLimitBurst, cfg.RateLimitRefill),
		rateBurst:      cfg.RateLimitBurst,
		rateInterval:   cfg.RateLimitRefill,
	}
}

// Send encodes the message and queues it for the write pump. It fails when
// the connection has been closed or the outbound buffer is full; it never
// blocks.
func (c *Client) Send(m chat.Message) error {
	payload, err := chat.EncodeMessage(m)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClientClosed
	}
	select {
	case c.send <- payload:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// IsOpen reports whether the client can still accept sends.
func (c *Client) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

// RemoteAddr identifies the peer for logging.
func (c *Client) RemoteAddr() string {
	return c.addr
}

// close marks the client closed and releases the write pump. Sends racing
// the close synchronize on the same mutex, so nothing writes to the
// channel after it is closed. Only the hub calls this.
func (c *Client) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()
	close(c.send)
}

func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Warn("error setting initial read deadline", zap.Error(err))
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.logger.Warn("error setting read deadline in pong handler", zap.Error(err))
		}
		return nil
	})
}

// handleReadError logs the read failure and always ends the read loop.
func (c *Client) handleReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.logger.Warn("message exceeded maximum size",
			zap.Int64("max_message_size", c.maxMessageSize))
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		c.logger.Info("client disconnected", zap.Error(err))
	case errors.Is(err, io.EOF) || isExpectedCloseError(err):
		c.logger.Info("client connection closed", zap.Error(err))
	case websocket.IsUnexpectedCloseError(err,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseMessageTooBig):
		c.logger.Warn("unexpected WebSocket error", zap.Error(err))
	default:
		c.logger.Warn("WebSocket read error", zap.Error(err))
	}
}

// checkRateLimit reports whether the message may be processed.
func (c *Client) checkRateLimit() bool {
	if c.limiter != nil && !c.limiter.allow() {
		c.logger.Warn("rate limit exceeded, discarding message",
			zap.Int("burst", c.rateBurst),
			zap.Duration("refill_interval", c.rateInterval))
		return false
	}
	return true
}

func (c *Client) readPump() {
	defer func() {
		// During hub shutdown nobody drains unregister anymore.
		select {
		case c.hub.unregister <- c:
		case <-c.hub.ctx.Done():
		}
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.logger.Warn("error closing connection in readPump", zap.Error(err))
		}
	}()

	c.setupReadConnection()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.handleReadError(err)
			break
		}

		if !c.checkRateLimit() {
			continue
		}

		c.hub.lifecycle.OnMessage(c, raw)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.logger.Warn("error closing connection in writePump", zap.Error(err))
		}
	}()

	for {
		select {
		case payload, ok := <-c.send:
			if !c.writeMessage(payload, ok) {
				return
			}
		case <-ticker.C:
			if !c.writePing() {
				return
			}
		case <-c.hub.ctx.Done():
			return
		}
	}
}

// writeMessage delivers one frame, draining anything queued behind it, and
// reports whether the pump should keep running.
func (c *Client) writeMessage(payload []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
		c.logger.Warn("error setting write deadline", zap.Error(err))
		return false
	}

	if !ok {
		// Hub closed the send channel.
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil && !isExpectedCloseError(err) {
			c.logger.Warn("error writing close message", zap.Error(err))
		}
		return false
	}

	w, err := c.conn.NextWriter(websocket.TextMessage)
	if err != nil {
		c.logger.Warn("error creating writer", zap.Error(err))
		return false
	}
	if _, err := w.Write(payload); err != nil {
		c.logger.Warn("error writing message", zap.Error(err))
		return false
	}

	queued := len(c.send)
	for i := 0; i < queued; i++ {
		if _, err := w.Write([]byte{'\n'}); err != nil {
			c.logger.Warn("error writing frame separator", zap.Error(err))
			return false
		}
		if _, err := w.Write(<-c.send); err != nil {
			c.logger.Warn("error writing queued message", zap.Error(err))
			return false
		}
	}

	if err := w.Close(); err != nil {
		c.logger.Warn("error closing writer", zap.Error(err))
		return false
	}
	return true
}

func (c *Client) writePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
		c.logger.Warn("error setting write deadline for ping", zap.Error(err))
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Warn("error writing ping message", zap.Error(err))
		return false
	}
	return true
}

// isExpectedCloseError checks if an error is expected during connection
// closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}

package chat

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const welcomeText = "Welcome to the chat room! Type .help to see available commands"

// Coordinator drives the per-connection protocol: welcome on connect, the
// unique-username join handshake, command interception, chat fan-out, and
// leave announcements. It is the transport layer's only entry point into
// the chat core. Each connection moves through three states: connected
// with no name, joined with a name bound in the registry, and closed.
type Coordinator struct {
	registry   *Registry
	dispatcher *Dispatcher
	logger     *zap.Logger
}

// NewCoordinator wires a coordinator with a fresh registry and dispatcher.
func NewCoordinator(logger *zap.Logger) *Coordinator {
	registry := NewRegistry()
	return &Coordinator{
		registry:   registry,
		dispatcher: NewDispatcher(registry, logger),
		logger:     logger,
	}
}

// Registry exposes the session registry for introspection.
func (c *Coordinator) Registry() *Registry {
	return c.registry
}

// OnConnect greets the new connection. The registry is untouched until the
// client completes a join.
func (c *Coordinator) OnConnect(conn Conn) {
	c.logger.Info("new connection", zap.String("addr", conn.RemoteAddr()))
	c.send(conn, systemMessage(welcomeText))
}

// OnDisconnect releases the connection's name and, if one was bound,
// announces the departure and the updated user list. Disconnecting before
// a join completes is silent.
func (c *Coordinator) OnDisconnect(conn Conn) {
	name, ok := c.registry.Leave(conn)
	if !ok {
		return
	}

	c.broadcast(NewMessage(TypeLeave, name+" left the chat room", SystemSender), conn)
	c.broadcast(onlineUsersMessage(c.registry), nil)
	c.logger.Info("user left",
		zap.String("user", name),
		zap.Int("online", c.registry.Count()))
}

// OnMessage decodes one inbound frame and routes it by type. Malformed
// payloads earn the sender an error reply and nothing else; the connection
// stays open.
func (c *Coordinator) OnMessage(conn Conn, raw []byte) {
	msg, err := DecodeMessage(raw)
	if err != nil {
		c.logger.Warn("malformed message",
			zap.String("addr", conn.RemoteAddr()),
			zap.Error(err))
		c.send(conn, errorMessage("invalid message format"))
		return
	}

	switch msg.Type {
	case TypeJoin:
		c.handleJoin(conn, msg)
	case TypeChat:
		c.handleChat(conn, msg)
	default:
		c.logger.Warn("unrecognized message type",
			zap.String("addr", conn.RemoteAddr()),
			zap.String("type", string(msg.Type)))
	}
}

func (c *Coordinator) handleJoin(conn Conn, msg Message) {
	name, err := c.registry.TryJoin(conn, msg.Sender)
	if err != nil {
		c.send(conn, errorMessage(joinErrorText(err)))
		return
	}

	c.send(conn, systemMessage(fmt.Sprintf("Welcome %s to the chat room!", name)))
	c.broadcast(NewMessage(TypeJoin, name+" joined the chat room", SystemSender), conn)
	c.broadcast(onlineUsersMessage(c.registry), nil)
	c.logger.Info("user joined",
		zap.String("user", name),
		zap.Int("online", c.registry.Count()))
}

func joinErrorText(err error) string {
	switch {
	case errors.Is(err, ErrNameTaken):
		return "username already taken, please choose another"
	case errors.Is(err, ErrAlreadyJoined):
		return "you have already joined the chat room"
	default:
		return "username must not be empty or longer than 20 characters"
	}
}

func (c *Coordinator) handleChat(conn Conn, msg Message) {
	name, joined := c.registry.NameOf(conn)
	if !joined {
		// Must join before chatting.
		return
	}

	content := strings.TrimSpace(msg.Content)
	if content == "" {
		return
	}

	if strings.HasPrefix(content, commandPrefix) {
		canonical := Message{
			Type:      TypeChat,
			Content:   content,
			Sender:    name,
			Timestamp: msg.Timestamp,
		}
		if c.dispatcher.Handle(conn, canonical) {
			return
		}
	}

	out := msg
	out.Sender = name
	out.Content = content
	c.broadcast(out, conn)
	c.logger.Info("chat message", zap.String("user", name))
}

func (c *Coordinator) broadcast(msg Message, exclude Conn) {
	broadcast(c.logger, c.registry.Snapshot(), msg, exclude)
}

func (c *Coordinator) send(conn Conn, msg Message) {
	if !conn.IsOpen() {
		return
	}
	if err := conn.Send(msg); err != nil {
		c.logger.Warn("send failed",
			zap.String("addr", conn.RemoteAddr()),
			zap.Error(err))
	}
}

// broadcast delivers msg to every open connection in entries except
// exclude. Delivery is best-effort: a failed or closed recipient is
// skipped and the rest still receive the message. Callers pass a registry
// snapshot, never iterate under the registry lock.
func broadcast(logger *zap.Logger, entries []Entry, msg Message, exclude Conn) {
	for _, e := range entries {
		if e.Conn == exclude || !e.Conn.IsOpen() {
			continue
		}
		if err := e.Conn.Send(msg); err != nil {
			logger.Warn("send failed during broadcast",
				zap.String("user", e.Name),
				zap.Error(err))
		}
	}
}

// onlineUsersMessage renders the current roster as a system message.
func onlineUsersMessage(r *Registry) Message {
	names := r.Names()
	return systemMessage(fmt.Sprintf("Online users (%d): %s", len(names), strings.Join(names, ", ")))
}

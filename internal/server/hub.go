// Package server coordinates client registration, lifecycle callbacks into
// the chat core, and connection cleanup via the Hub type.
package server

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Tyrowin/chatroom/internal/chat"
)

// Lifecycle receives connection events from the transport. The chat
// coordinator is the production implementation; tests substitute fakes.
type Lifecycle interface {
	OnConnect(chat.Conn)
	OnDisconnect(chat.Conn)
	OnMessage(chat.Conn, []byte)
}

// Hub owns the set of WebSocket clients. It registers and unregisters
// connections, starts their pumps, forwards lifecycle events to the chat
// core, and closes everything down on shutdown. Message routing itself
// lives in the chat core, not here.
type Hub struct {
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	lifecycle  Lifecycle
	logger     *zap.Logger
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewHub creates a hub that reports connection events to lifecycle.
func NewHub(lifecycle Lifecycle, logger *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		lifecycle:  lifecycle,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Register hands a new client to the hub. The hub starts the client's
// pumps and fires the connect callback.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.ctx.Done():
	}
}

// ClientCount returns the number of connections the hub currently tracks.
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// Run is the hub's main event loop. It should be called in its own
// goroutine; it returns only when the hub shuts down.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			if client == nil {
				h.logger.Warn("received nil client registration, skipping")
				continue
			}
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mutex.Lock()
	h.clients[client] = struct{}{}
	count := len(h.clients)
	h.mutex.Unlock()

	h.logger.Info("client registered",
		zap.String("addr", client.addr),
		zap.Int("total_clients", count))

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()

	h.lifecycle.OnConnect(client)
}

func (h *Hub) removeClient(client *Client) {
	h.mutex.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mutex.Unlock()
		return
	}
	delete(h.clients, client)
	count := len(h.clients)
	h.mutex.Unlock()

	// Close before the disconnect callback so the departing client is
	// already excluded from any leave broadcast.
	client.close()
	h.lifecycle.OnDisconnect(client)

	h.logger.Info("client unregistered",
		zap.String("addr", client.addr),
		zap.Int("total_clients", count))
}

// shutdownClients closes all active client connections.
func (h *Hub) shutdownClients() {
	h.logger.Info("shutting down all client connections")

	h.mutex.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mutex.Unlock()

	for _, client := range clients {
		if client.conn != nil {
			if err := client.conn.Close(); err != nil && !isExpectedCloseError(err) {
				h.logger.Warn("error closing client connection",
					zap.String("addr", client.addr),
					zap.Error(err))
			}
		}
	}

	h.logger.Info("closed client connections", zap.Int("count", len(clients)))
}

// Shutdown stops the hub and waits for the pump goroutines to finish, up
// to the given timeout.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.logger.Info("initiating hub shutdown")

	h.cancel()
	<-h.done

	finished := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		h.logger.Info("hub shutdown completed")
		return nil
	case <-time.After(timeout):
		h.logger.Warn("hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}

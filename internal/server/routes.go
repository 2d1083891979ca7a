// Package server wires the HTTP handlers into a ServeMux.
package server

import "net/http"

// Routes returns a ServeMux with all application routes: the chat page,
// the WebSocket endpoint, and the health check.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", h.ChatPage)
	mux.HandleFunc("/ws", h.WebSocket)
	mux.HandleFunc("/healthz", h.Health)
	return mux
}

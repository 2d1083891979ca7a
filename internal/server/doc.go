// Package server implements the HTTP and WebSocket transport for the chat
// room.
//
// The implementation is organized into specialized files for configuration,
// hub management, clients, routing, and HTTP handlers. The chat semantics
// themselves live in the internal/chat package; this package only moves
// frames between the network and the chat coordinator.
package server

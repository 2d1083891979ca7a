package chat

// Conn is one live client connection as seen by the chat core. The
// transport layer supplies the implementation; tests supply in-memory
// fakes. Implementations must be comparable so the registry and the
// broadcast exclusion logic can key on identity.
type Conn interface {
	// Send queues one message for delivery. It fails when the connection
	// is closed or its outbound buffer is full; the caller treats a
	// failure as best-effort delivery loss, never as fatal.
	Send(Message) error

	// IsOpen reports whether the connection can still accept sends.
	IsOpen() bool

	// RemoteAddr identifies the peer for logging.
	RemoteAddr() string
}

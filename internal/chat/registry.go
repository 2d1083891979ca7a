package chat

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/samber/lo"
)

// maxNameLength bounds a claimed username, counted in runes after trimming.
const maxNameLength = 20

// Join failures reported by Registry.TryJoin.
var (
	ErrNameInvalid   = errors.New("username must be between 1 and 20 characters")
	ErrNameTaken     = errors.New("username already taken")
	ErrAlreadyJoined = errors.New("connection already joined")
)

// Entry pairs a connection with its claimed username.
type Entry struct {
	Conn Conn
	Name string
}

// Registry is the process-wide map from connection to claimed username and
// the single source of truth for who is online. The uniqueness check and
// the insert run inside one critical section, so two concurrent joins with
// the same name can never both succeed.
type Registry struct {
	mu    sync.RWMutex
	conns map[Conn]string
	names map[string]Conn
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[Conn]string),
		names: make(map[string]Conn),
	}
}

// TryJoin validates name and atomically claims it for conn, returning the
// canonical (trimmed) form that was claimed. On failure the registry is
// left untouched and one of ErrNameInvalid, ErrNameTaken, or
// ErrAlreadyJoined describes the reason.
func (r *Registry) TryJoin(conn Conn, name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || len([]rune(trimmed)) > maxNameLength {
		return "", ErrNameInvalid
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, joined := r.conns[conn]; joined {
		return "", ErrAlreadyJoined
	}
	if _, taken := r.names[trimmed]; taken {
		return "", ErrNameTaken
	}

	r.conns[conn] = trimmed
	r.names[trimmed] = conn
	return trimmed, nil
}

// Leave atomically removes the entry for conn, returning the name it held.
// The second result is false when conn never completed a join.
func (r *Registry) Leave(conn Conn) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name, ok := r.conns[conn]
	if !ok {
		return "", false
	}
	delete(r.conns, conn)
	delete(r.names, name)
	return name, true
}

// NameOf returns the username bound to conn, if any.
func (r *Registry) NameOf(conn Conn) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name, ok := r.conns[conn]
	return name, ok
}

// FindConn returns the open connection that claimed name. Entries whose
// connection has already closed are not matched.
func (r *Registry) FindConn(name string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.names[name]
	if !ok || !conn.IsOpen() {
		return nil, false
	}
	return conn, true
}

// Snapshot returns a point-in-time copy of all entries. Iterating the
// result is unaffected by concurrent joins and leaves.
func (r *Registry) Snapshot() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.MapToSlice(r.conns, func(conn Conn, name string) Entry {
		return Entry{Conn: conn, Name: name}
	})
}

// Names returns the currently claimed usernames in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := lo.Keys(r.names)
	r.mu.RUnlock()

	sort.Strings(names)
	return names
}

// Count returns the number of joined connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.conns)
}

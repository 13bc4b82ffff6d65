package room

import (
	"sync"

	"github.com/rs/zerolog/log"
)

const maxUserIDLen = 36

// User is a remote participant as seen by this client. Its stream
// connections are received references, not owned here; the peer
// machinery behind Handler owns the actual media.
type User struct {
	ID   string
	Data any

	// Handler receives the per-user fan-out notifications (one call
	// per user, never batched into a transport message by this core).
	Handler Handler

	mu    sync.RWMutex
	conns map[string]*StreamConnection
}

// NewUser keeps raw literals out of the routing code and validates the
// participant id.
func NewUser(id string, data any) (*User, error) {
	if id == "" {
		return nil, ErrUserIDEmpty
	}
	if len(id) > maxUserIDLen {
		return nil, ErrUserIDTooLong
	}
	return &User{ID: id, Data: data, conns: make(map[string]*StreamConnection)}, nil
}

// Notify invokes the user's notification handler when one is attached.
func (u *User) Notify(event string, data any) {
	if u.Handler != nil {
		u.Handler(event, data)
	}
}

// AddConnection records a received stream-connection reference.
func (u *User) AddConnection(conn *StreamConnection) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.conns[conn.ID] = conn
}

// RemoveConnection drops the reference for connectionID and notifies
// the user's handler. The notification fires even when the id was
// never recorded here: the peer may hold state this core never saw.
func (u *User) RemoveConnection(connectionID string) {
	u.mu.Lock()
	_, ok := u.conns[connectionID]
	delete(u.conns, connectionID)
	u.mu.Unlock()
	if ok {
		log.Debug().Str("module", "room.user").Str("user", u.ID).Str("connection", connectionID).Msg("connection removed")
	}
	u.Notify(EventUserRemoveStream, RemoveData{UserID: u.ID, ConnectionID: connectionID})
}

// Connection returns a received stream-connection reference.
func (u *User) Connection(connectionID string) (*StreamConnection, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	conn, ok := u.conns[connectionID]
	return conn, ok
}

// Component is a non-participant endpoint attached to the room, such
// as an MCU or a recorder.
type Component struct {
	ID   string
	Kind string
}

package realtime

import (
	"sync"
)

// Registry tracks the websocket connections held by this process instance.
// Delivery events are addressed by connection id: every instance sees every
// notification, and EmitTo is a harmless no-op for ids owned by some other
// instance. Which connections a user has is kept in the shared presence
// store, not here.
type Registry struct {
	mu        sync.RWMutex
	conns     map[string]*Connection            // connection id -> connection
	userConns map[string]map[string]*Connection // user id -> connection id -> connection
}

// NewRegistry constructs an initialized Registry.
func NewRegistry() *Registry {
	return &Registry{
		conns:     make(map[string]*Connection),
		userConns: make(map[string]map[string]*Connection),
	}
}

// Attach registers a connection and starts its write loop. A user may hold
// any number of concurrent connections.
func (r *Registry) Attach(conn *Connection) {
	r.mu.Lock()
	r.conns[conn.ID] = conn
	byUser := r.userConns[conn.UserID]
	if byUser == nil {
		byUser = make(map[string]*Connection)
		r.userConns[conn.UserID] = byUser
	}
	byUser[conn.ID] = conn
	r.mu.Unlock()

	conn.Start()
}

// Detach removes a connection if it is still tracked.
func (r *Registry) Detach(conn *Connection) {
	r.mu.Lock()
	r.detachLocked(conn.ID)
	r.mu.Unlock()
}

// EmitTo writes payload to the connection with the given id and reports
// whether a local connection accepted it. Unknown ids are not an error:
// the connection lives on another instance or has already gone away.
func (r *Registry) EmitTo(connectionID string, payload []byte) bool {
	r.mu.RLock()
	conn := r.conns[connectionID]
	r.mu.RUnlock()
	if conn == nil {
		return false
	}
	return conn.Send(payload) == nil
}

// Len returns the number of locally held connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Close terminates all tracked connections and clears registry state.
func (r *Registry) Close() {
	r.mu.Lock()
	conns := make([]*Connection, 0, len(r.conns))
	for _, conn := range r.conns {
		conns = append(conns, conn)
	}
	r.conns = make(map[string]*Connection)
	r.userConns = make(map[string]map[string]*Connection)
	r.mu.Unlock()

	for _, conn := range conns {
		conn.Close(1001, "registry shutdown")
	}
}

func (r *Registry) detachLocked(connectionID string) {
	conn, ok := r.conns[connectionID]
	if !ok {
		return
	}
	delete(r.conns, connectionID)

	if byUser, ok := r.userConns[conn.UserID]; ok {
		delete(byUser, connectionID)
		if len(byUser) == 0 {
			delete(r.userConns, conn.UserID)
		}
	}
}

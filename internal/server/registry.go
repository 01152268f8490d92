package server

import "sync"

// connRegistry maps a stable player identity to the single currently-active
// connection. Binding an identity that already has a connection supersedes
// the old one so callers can evict it from the game channel.
type connRegistry struct {
	mu         sync.Mutex
	byIdentity map[identity]string
	byConn     map[string]identity
}

func newConnRegistry() *connRegistry {
	return &connRegistry{
		byIdentity: make(map[identity]string),
		byConn:     make(map[string]identity),
	}
}

// Bind makes connID the active connection for id and returns the superseded
// connection id, if any.
func (r *connRegistry) Bind(id identity, connID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	previous, had := r.byIdentity[id]
	if had && previous == connID {
		return "", false
	}
	if had {
		delete(r.byConn, previous)
	}
	r.byIdentity[id] = connID
	r.byConn[connID] = id
	return previous, had
}

// Unbind removes the binding for id, but only if connID is still the active
// connection. A superseded connection unbinding late is a no-op.
func (r *connRegistry) Unbind(id identity, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.byIdentity[id]
	if !ok || current != connID {
		return false
	}
	delete(r.byIdentity, id)
	delete(r.byConn, connID)
	return true
}

// Drop removes any binding for id regardless of which connection holds it.
func (r *connRegistry) Drop(id identity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if connID, ok := r.byIdentity[id]; ok {
		delete(r.byConn, connID)
		delete(r.byIdentity, id)
	}
}

func (r *connRegistry) Resolve(connID string) (identity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byConn[connID]
	return id, ok
}

func (r *connRegistry) Current(id identity) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	connID, ok := r.byIdentity[id]
	return connID, ok
}

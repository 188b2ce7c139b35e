package gateway

import (
	"sync"
)

// RoomAuthorizer is consulted before a connection may join a room channel.
// The wire contract lets clients declare their own room membership; plugging
// a real membership check in here tightens that without touching routing.
type RoomAuthorizer interface {
	Authorize(uid, room string) bool
}

// AllowAllRooms mirrors the legacy behavior: trust the client's declaration.
type AllowAllRooms struct{}

func (AllowAllRooms) Authorize(string, string) bool { return true }

// Registry maps live local connections to the channels they joined.
// Nothing here is persisted; a reconnect rebuilds its memberships from the
// client-details handshake. Mutated from ws read goroutines and the bridge
// consumer goroutine, hence the lock.
type Registry struct {
	mu        sync.RWMutex
	byChannel map[string]map[string]struct{} // channel -> conn_id set
	byConn    map[string]map[string]struct{} // conn_id -> channel set
	auth      RoomAuthorizer
}

func NewRegistry(auth RoomAuthorizer) *Registry {
	if auth == nil {
		auth = AllowAllRooms{}
	}
	return &Registry{
		byChannel: make(map[string]map[string]struct{}),
		byConn:    make(map[string]map[string]struct{}),
		auth:      auth,
	}
}

// Join adds the connection to a channel. Idempotent.
func (r *Registry) Join(connID, channel string) {
	if connID == "" || channel == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.byChannel[channel]
	if m == nil {
		m = make(map[string]struct{})
		r.byChannel[channel] = m
	}
	m[connID] = struct{}{}

	cs := r.byConn[connID]
	if cs == nil {
		cs = make(map[string]struct{})
		r.byConn[connID] = cs
	}
	cs[channel] = struct{}{}
}

// JoinRoom is Join gated by the authorizer. Returns whether the join stuck.
func (r *Registry) JoinRoom(connID, uid, room string) bool {
	if !r.auth.Authorize(uid, room) {
		return false
	}
	r.Join(connID, room)
	return true
}

// Leave removes the connection from a channel. Idempotent.
func (r *Registry) Leave(connID, channel string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m := r.byChannel[channel]; m != nil {
		delete(m, connID)
		if len(m) == 0 {
			delete(r.byChannel, channel)
		}
	}
	if cs := r.byConn[connID]; cs != nil {
		delete(cs, channel)
		if len(cs) == 0 {
			delete(r.byConn, connID)
		}
	}
}

// MembersOf snapshots the local member set of a channel.
func (r *Registry) MembersOf(channel string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m := r.byChannel[channel]
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	return out
}

// Channels snapshots the channel set of a connection.
func (r *Registry) Channels(connID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cs := r.byConn[connID]
	if len(cs) == 0 {
		return nil
	}
	out := make([]string, 0, len(cs))
	for ch := range cs {
		out = append(out, ch)
	}
	return out
}

// Has reports membership of one connection in one channel.
func (r *Registry) Has(connID, channel string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byChannel[channel][connID]
	return ok
}

// RemoveConnection drops every membership of connID in O(channels joined).
// Called exactly once per disconnect; afterwards no channel references the
// connection.
func (r *Registry) RemoveConnection(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for ch := range r.byConn[connID] {
		if m := r.byChannel[ch]; m != nil {
			delete(m, connID)
			if len(m) == 0 {
				delete(r.byChannel, ch)
			}
		}
	}
	delete(r.byConn, connID)
}

package gateway

import (
	"errors"
	"sync"

	"CircleGate/logger"
)

// ===== config =====

type ManagerConf struct {
	MaxPerUser  int  // max concurrent connections per user (<=0 unlimited)
	EvictOldest bool // over the limit: evict oldest, or refuse the new one
	SendBuffer  int  // per-connection outbound queue depth
}

func (c *ManagerConf) norm() {
	if c.SendBuffer <= 0 {
		c.SendBuffer = 256
	}
}

var ErrTooManyConns = errors.New("too many connections for user")

// ===== manager =====

// ConnManager owns every admitted connection on this instance. It is the
// only component allowed to create or destroy Conn records; the registry
// holds conn ids, never the transport.
type ConnManager struct {
	mu     sync.RWMutex
	byConn map[string]*Conn            // conn_id -> conn
	byUser map[string]map[string]*Conn // uid -> conn_id -> conn

	conf ManagerConf
	gwID string
}

func NewConnManager(gwID string) *ConnManager {
	return NewConnManagerWithConf(ManagerConf{}, gwID)
}

func NewConnManagerWithConf(conf ManagerConf, gwID string) *ConnManager {
	conf.norm()
	return &ConnManager{
		byConn: make(map[string]*Conn),
		byUser: make(map[string]map[string]*Conn),
		conf:   conf,
		gwID:   gwID,
	}
}

func (m *ConnManager) GwID() string { return m.gwID }

// Add registers an admitted connection. Enforces MaxPerUser; with
// EvictOldest the longest-lived connection of the user is closed to make
// room, otherwise the new one is refused.
func (m *ConnManager) Add(c *Conn) error {
	m.mu.Lock()
	var evict *Conn
	if m.conf.MaxPerUser > 0 && len(m.byUser[c.UID]) >= m.conf.MaxPerUser {
		if !m.conf.EvictOldest {
			m.mu.Unlock()
			return ErrTooManyConns
		}
		for _, x := range m.byUser[c.UID] {
			if evict == nil || x.CreatedAt.Before(evict.CreatedAt) {
				evict = x
			}
		}
	}
	um := m.byUser[c.UID]
	if um == nil {
		um = make(map[string]*Conn)
		m.byUser[c.UID] = um
	}
	um[c.ConnID] = c
	m.byConn[c.ConnID] = c
	m.mu.Unlock()

	if evict != nil {
		logger.Infof("[conns] evict oldest user=%s conn=%s", evict.UID, evict.ConnID)
		evict.Close()
	}
	return nil
}

// Remove forgets the connection; returns it for the caller's teardown.
func (m *ConnManager) Remove(connID string) *Conn {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.byConn[connID]
	if c == nil {
		return nil
	}
	if um := m.byUser[c.UID]; um != nil {
		delete(um, connID)
		if len(um) == 0 {
			delete(m.byUser, c.UID)
		}
	}
	delete(m.byConn, connID)
	return c
}

func (m *ConnManager) GetByConnID(connID string) *Conn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.byConn[connID]
}

// Resolve maps conn ids to live Conns, silently skipping ids that died
// between the registry snapshot and now.
func (m *ConnManager) Resolve(connIDs []string) []*Conn {
	if len(connIDs) == 0 {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Conn, 0, len(connIDs))
	for _, id := range connIDs {
		if c := m.byConn[id]; c != nil {
			out = append(out, c)
		}
	}
	return out
}

func (m *ConnManager) ListByUser(uid string) []*Conn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	um := m.byUser[uid]
	if len(um) == 0 {
		return nil
	}
	out := make([]*Conn, 0, len(um))
	for _, c := range um {
		out = append(out, c)
	}
	return out
}

func (m *ConnManager) CountByUser(uid string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byUser[uid])
}

// CloseAll is shutdown-only.
func (m *ConnManager) CloseAll() {
	m.mu.Lock()
	conns := make([]*Conn, 0, len(m.byConn))
	for _, c := range m.byConn {
		conns = append(conns, c)
	}
	m.byConn = make(map[string]*Conn)
	m.byUser = make(map[string]map[string]*Conn)
	m.mu.Unlock()
	for _, c := range conns {
		c.Close()
	}
}

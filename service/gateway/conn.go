package gateway

import (
	"net"
	"sync"
	"time"

	"CircleGate/logger"

	"github.com/gorilla/websocket"
)

const (
	pongWait     = 60 * time.Second
	pingInterval = 25 * time.Second
	writeWait    = 5 * time.Second
	readLimit    = 1 << 20 // 1MB
)

// Conn is one admitted websocket connection. Identity is fixed at admission
// and never re-derived; there is no message that can rebind it.
type Conn struct {
	ConnID   string
	UID      string
	Username string
	Remote   net.Addr

	CreatedAt time.Time

	ws   *websocket.Conn
	Send chan []byte // per-connection outbound queue

	closeOnce sync.Once
	done      chan struct{}
}

// NewConn wraps an upgraded transport. ws may be nil in tests; the write
// pump is only started for real sockets.
func NewConn(connID string, ws *websocket.Conn, uid, username string, sendBuffer int) *Conn {
	if sendBuffer <= 0 {
		sendBuffer = 256
	}
	c := &Conn{
		ConnID:    connID,
		UID:       uid,
		Username:  username,
		CreatedAt: time.Now(),
		ws:        ws,
		Send:      make(chan []byte, sendBuffer),
		done:      make(chan struct{}),
	}
	if ws != nil {
		c.Remote = ws.RemoteAddr()
	}
	return c
}

// Close tears the transport down once. Safe from any goroutine; the write
// pump observes done and exits.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.ws == nil {
			return
		}
		if err := c.ws.Close(); err != nil {
			logger.Debug("close websocket: " + err.Error())
		}
	})
}

func (c *Conn) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// writePump owns all writes on the socket: queued payloads plus keepalive
// pings. Exactly one per connection; gorilla allows one concurrent writer.
func (c *Conn) writePump() {
	t := time.NewTicker(pingInterval)
	defer func() {
		t.Stop()
		c.Close()
	}()
	for {
		select {
		case payload := <-c.Send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				logger.Infof("[WS] write err conn=%s err=%v", c.ConnID, err)
				return
			}
		case <-t.C:
			if err := c.ws.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

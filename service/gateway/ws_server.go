package gateway

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"CircleGate/logger"
	"CircleGate/service/authx"
	"CircleGate/service/storage"
	"CircleGate/tools/ids"
	"CircleGate/tools/safe"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096, CheckOrigin: func(r *http.Request) bool { return true }}

// Server is the admission controller plus the socket loop: it gates every
// connection through the verifier before anything touches the registry, and
// feeds admitted traffic into the router.
type Server struct {
	verifier authx.Verifier
	router   *Router
	conns    *ConnManager
	reg      *Registry
	presence *storage.Presence // nil disables the mirror
}

func NewServer(verifier authx.Verifier, router *Router, conns *ConnManager, reg *Registry, presence *storage.Presence) *Server {
	return &Server{verifier: verifier, router: router, conns: conns, reg: reg, presence: presence}
}

// BearerToken pulls the token from the handshake: "token" query parameter,
// Authorization: Bearer, or a bare token/authorization header.
func BearerToken(r *http.Request) string {
	if t := strings.TrimSpace(r.URL.Query().Get("token")); t != "" {
		return t
	}
	if authz := strings.TrimSpace(r.Header.Get("Authorization")); authz != "" {
		if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return strings.TrimSpace(authz[len("bearer "):])
		}
		return authz
	}
	return strings.TrimSpace(r.Header.Get("token"))
}

// HandleWS runs the connection state machine: Connecting -> Verifying ->
// Admitted, or Rejected with the transport closed before any channel state
// exists. The client observes a refused handshake and nothing else.
func (s *Server) HandleWS(c *gin.Context) {
	token := BearerToken(c.Request)
	if token == "" {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	identity, err := s.verifier.Verify(c.Request.Context(), token)
	if err != nil {
		logger.Infof("[WS] admission rejected remote=%s: %v", c.ClientIP(), err)
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("[WS] upgrade error: %v", err)
		return
	}

	conn := NewConn(ids.GenerateString(), ws, identity.UID, identity.Username, s.conns.conf.SendBuffer)
	if err := s.conns.Add(conn); err != nil {
		logger.Infof("[WS] refuse user=%s: %v", identity.UID, err)
		_ = ws.Close()
		return
	}

	// admitted: every connection of a user sits in its own user channel
	s.reg.Join(conn.ConnID, UserChannel(identity.UID))
	s.markOnline(identity.UID)

	safe.Go(conn.writePump)
	s.readLoop(conn)
	s.teardown(conn)
}

func (s *Server) readLoop(c *Conn) {
	c.ws.SetReadLimit(readLimit)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		mt, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[WS] peer closed conn=%s", c.ConnID)
			} else if ne, ok := err.(net.Error); ok && ne.Timeout() {
				logger.Infof("[WS] read timeout conn=%s", c.ConnID)
			} else {
				logger.Infof("[WS] read err conn=%s err=%v", c.ConnID, err)
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		ev, perr := ParseEvent(data)
		if perr != nil {
			sample := data
			if len(sample) > 256 {
				sample = sample[:256]
			}
			logger.Warnf("[WS] malformed event conn=%s err=%v sample=%q", c.ConnID, perr, sample)
			continue
		}

		s.router.HandleLocal(ev, c)
	}
}

// teardown is the Closed transition: once it ran, no channel references the
// connection and nothing will be delivered to it again.
func (s *Server) teardown(c *Conn) {
	c.Close()
	s.conns.Remove(c.ConnID)
	s.reg.RemoveConnection(c.ConnID)

	if s.conns.CountByUser(c.UID) == 0 {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.presence.Offline(ctx, c.UID); err != nil {
			logger.Warnf("[presence] offline user=%s: %v", c.UID, err)
		}
	}
}

func (s *Server) markOnline(uid string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.presence.Online(ctx, uid, s.conns.GwID()); err != nil {
		logger.Warnf("[presence] online user=%s: %v", uid, err)
	}
}

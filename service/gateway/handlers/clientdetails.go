package handlers

import (
	"CircleGate/logger"
	"CircleGate/service/gateway"

	"github.com/pkg/errors"
)

// ClientDetailsHandler processes the mandatory handshake: the client lists
// the rooms it believes it belongs to, and this connection is joined to
// them (through the room authorizer), plus its own user and circle
// channels. No fan-out, no broker publish. Memberships live only as long
// as the connection; a reconnect sends client-details again.
type ClientDetailsHandler struct{}

func NewClientDetailsHandler() gateway.Handler { return &ClientDetailsHandler{} }

func (h *ClientDetailsHandler) Type() string { return gateway.EventClientDetails }

func (h *ClientDetailsHandler) Handle(ctx *gateway.Context, ev *gateway.Event, origin *gateway.Conn) error {
	if ctx.Remote || origin == nil {
		// handshakes never cross the broker
		return nil
	}
	p, err := gateway.DecodePayload[gateway.ClientDetailsPayload](ev.Data)
	if err != nil {
		return errors.Wrap(err, "client-details payload")
	}

	reg := ctx.R.Registry()
	reg.Join(origin.ConnID, gateway.UserChannel(origin.UID))
	reg.Join(origin.ConnID, gateway.CircleChannel(origin.UID))

	for _, room := range p.Rooms {
		if room == "" {
			continue
		}
		if !reg.JoinRoom(origin.ConnID, origin.UID, room) {
			logger.Warnf("[client-details] join refused user=%s room=%s", origin.UID, room)
		}
	}
	return nil
}

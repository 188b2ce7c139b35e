package handlers

import (
	"CircleGate/service/gateway"

	"github.com/pkg/errors"
)

// MessageHandler routes room and DM chat messages: local members of the
// room channel minus the sender, plus a broker publish under the room's or
// DM's routing key for members held elsewhere. Delivery is best-effort and
// unacknowledged; persistence is some other service's business.
type MessageHandler struct{}

func NewMessageHandler() gateway.Handler { return &MessageHandler{} }

func (h *MessageHandler) Type() string { return gateway.EventMessageSent }

func (h *MessageHandler) Handle(ctx *gateway.Context, ev *gateway.Event, _ *gateway.Conn) error {
	p, err := gateway.DecodePayload[gateway.RoomPayload](ev.Data)
	if err != nil {
		return errors.Wrap(err, "message payload")
	}
	if p.Room == "" {
		return errors.New("message missing room")
	}
	ctx.R.Deliver(p.Room, ev)
	if !ctx.Remote {
		ctx.R.PublishEvent(ev)
	}
	return nil
}

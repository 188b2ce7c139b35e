package handlers

import (
	"CircleGate/service/gateway"

	"github.com/pkg/errors"
)

// TypingHandler covers user-is-typing and user-stopped-typing. Strictly
// local: members of the target room on this instance, minus the sender.
// Typing churn is too frequent and too ephemeral to pay a broker round-trip
// for, so occupants on other instances simply do not see it. Known
// trade-off, not a bug.
type TypingHandler struct {
	typ string
}

func NewTypingHandler(eventType string) gateway.Handler {
	return &TypingHandler{typ: eventType}
}

func (h *TypingHandler) Type() string { return h.typ }

func (h *TypingHandler) Handle(ctx *gateway.Context, ev *gateway.Event, _ *gateway.Conn) error {
	p, err := gateway.DecodePayload[gateway.RoomPayload](ev.Data)
	if err != nil {
		return errors.Wrap(err, "typing payload")
	}
	if p.Room == "" {
		return errors.New("typing event missing room")
	}
	ctx.R.Deliver(p.Room, ev)
	// never published: RoutingKey has no mapping for typing either
	return nil
}

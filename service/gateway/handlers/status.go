package handlers

import (
	"CircleGate/service/gateway"

	"github.com/pkg/errors"
)

// StatusHandler routes presence updates: local members of the sender's
// circle channel get the event, and a copy goes over the broker so circle
// members held by other instances see it too. Consumers treat status as
// last-write-wins; no sequencing is attempted.
type StatusHandler struct{}

func NewStatusHandler() gateway.Handler { return &StatusHandler{} }

func (h *StatusHandler) Type() string { return gateway.EventUserStatus }

func (h *StatusHandler) Handle(ctx *gateway.Context, ev *gateway.Event, _ *gateway.Conn) error {
	if ev.From == nil || ev.From.UID == "" {
		return errors.New("user-status missing sender")
	}
	ctx.R.Deliver(gateway.CircleChannel(ev.From.UID), ev)
	if !ctx.Remote {
		ctx.R.PublishEvent(ev)
	}
	return nil
}

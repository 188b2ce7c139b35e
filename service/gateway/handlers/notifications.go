package handlers

import (
	"CircleGate/service/gateway"

	"github.com/pkg/errors"
)

// NotificationsHandler routes notification events. As a side effect the
// origin connection may toggle its membership in another user's circle
// (subscribe/unsubscribe); the toggle only applies on the instance holding
// the socket, so remote copies skip it and just deliver.
type NotificationsHandler struct{}

func NewNotificationsHandler() gateway.Handler { return &NotificationsHandler{} }

func (h *NotificationsHandler) Type() string { return gateway.EventUserNotifications }

func (h *NotificationsHandler) Handle(ctx *gateway.Context, ev *gateway.Event, origin *gateway.Conn) error {
	if ev.From == nil || ev.From.UID == "" {
		return errors.New("user-notifications missing sender")
	}

	if !ctx.Remote && origin != nil && len(ev.Data) > 0 {
		p, err := gateway.DecodePayload[gateway.NotificationPayload](ev.Data)
		if err != nil {
			return errors.Wrap(err, "user-notifications payload")
		}
		if p.CircleOf != "" {
			circle := gateway.CircleChannel(p.CircleOf)
			if p.Subscribe {
				ctx.R.Registry().Join(origin.ConnID, circle)
			} else {
				ctx.R.Registry().Leave(origin.ConnID, circle)
			}
		}
	}

	ctx.R.Deliver(gateway.CircleChannel(ev.From.UID), ev)
	if !ctx.Remote {
		ctx.R.PublishEvent(ev)
	}
	return nil
}

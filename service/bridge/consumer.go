package bridge

import (
	"context"

	"github.com/nats-io/nats.go"
)

// Consumer binds wildcard subscriptions on the shared connection. There is
// deliberately no queue group: every gateway instance must receive every
// matching event, because any channel member could be connected anywhere.
type Consumer struct {
	c   *Client
	mws []Middleware
}

func NewConsumer(c *Client, mws ...Middleware) *Consumer {
	return &Consumer{c: c, mws: mws}
}

// Subscribe binds one subscription for the given pattern (e.g.
// "events.user.*") and feeds each delivery through the middleware chain
// into h. Handler errors are swallowed; a bad message must not take the
// subscription down.
func (cs *Consumer) Subscribe(pattern string, h Handler) error {
	h = Chain(h, cs.mws...)
	sub, err := cs.c.nc.Subscribe(pattern, func(m *nats.Msg) {
		_ = h(context.Background(), Message{
			Subject: m.Subject,
			Data:    append([]byte(nil), m.Data...),
			Header:  headerToMap(m.Header),
		})
	})
	if err != nil {
		return err
	}
	_ = sub.SetPendingLimits(1_000_000, 64*1024*1024)
	cs.c.trackSub(sub)
	return nil
}

func headerToMap(h nats.Header) map[string]string {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

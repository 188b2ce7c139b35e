package bridge

import "golang.org/x/net/context"

// Message is the unified inbound message shape handed to subscribers.
type Message struct {
	Subject string
	Data    []byte
	Header  map[string]string
}

// Handler processes one delivered message.
type Handler func(ctx context.Context, msg Message) error

// Middleware wraps handlers (logging, metrics, recovery).
type Middleware func(Handler) Handler

// Chain composes middlewares, outermost first.
func Chain(h Handler, mws ...Middleware) Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

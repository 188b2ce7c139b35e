package gateway

import "fmt"

// Handler processes one inbound event. origin is nil for events injected
// from the broker bridge.
type Handler interface {
	Type() string
	Handle(ctx *Context, ev *Event, origin *Conn) error
}

// Context travels with one dispatch. Remote marks events that already
// crossed the broker: they are delivered locally and never republished.
type Context struct {
	R      *Router
	Remote bool
}

// Dispatcher is an explicit dispatch table, built once at startup. No
// reflection, no registration magic: what is in the map is the protocol.
type Dispatcher struct {
	handlers map[string]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]Handler)}
}

func (d *Dispatcher) Register(h Handler) { d.handlers[h.Type()] = h }

func (d *Dispatcher) Dispatch(ctx *Context, ev *Event, origin *Conn) error {
	h, ok := d.handlers[ev.MessageType]
	if !ok {
		return fmt.Errorf("no handler for type=%s", ev.MessageType)
	}
	return h.Handle(ctx, ev, origin)
}

func (d *Dispatcher) Has(messageType string) bool {
	_, ok := d.handlers[messageType]
	return ok
}

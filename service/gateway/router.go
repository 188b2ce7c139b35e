package gateway

import (
	"CircleGate/logger"
	"CircleGate/service/authx"
	"CircleGate/service/bridge"
)

// Publisher is the slice of the broker bridge the router needs. Satisfied
// by *bridge.Manager; tests drop in a recorder.
type Publisher interface {
	Publish(subject string, data []byte, hdr map[string]string) error
}

// Router moves events between local connections and the broker. Local
// fan-out is synchronous against in-memory state; the broker hop exists
// only to reach other instances' members. Both directions are best-effort.
type Router struct {
	disp  *Dispatcher
	reg   *Registry
	conns *ConnManager
	fan   *Fanout
	pub   Publisher
	gwID  string
}

func NewRouter(disp *Dispatcher, reg *Registry, conns *ConnManager, fan *Fanout, pub Publisher, gwID string) *Router {
	return &Router{disp: disp, reg: reg, conns: conns, fan: fan, pub: pub, gwID: gwID}
}

func (r *Router) Registry() *Registry   { return r.reg }
func (r *Router) ConnMgr() *ConnManager { return r.conns }
func (r *Router) GwID() string          { return r.gwID }

// HandleLocal routes one event read off a local socket. The envelope's
// sender fields are stamped from the connection's verified identity here,
// and only here; a client cannot speak as anyone else.
func (r *Router) HandleLocal(ev *Event, origin *Conn) {
	ev.From = &authx.Identity{UID: origin.UID, Username: origin.Username}
	ev.SocketID = origin.ConnID

	if err := r.disp.Dispatch(&Context{R: r}, ev, origin); err != nil {
		logger.Warnf("[router] drop event type=%s conn=%s: %v", ev.MessageType, origin.ConnID, err)
	}
}

// HandleBroker re-injects an event received from the broker bridge. Events
// this instance itself published are skipped: their local delivery already
// happened before the broker round-trip.
func (r *Router) HandleBroker(subject string, data []byte, hdr map[string]string) error {
	if hdr[bridge.HeaderOriginGateway] == r.gwID {
		return nil
	}
	ev, err := ParseEvent(data)
	if err != nil {
		logger.Warnf("[router] malformed broker event subject=%s: %v", subject, err)
		return nil
	}
	if err := r.disp.Dispatch(&Context{R: r, Remote: true}, ev, nil); err != nil {
		logger.Warnf("[router] drop broker event subject=%s type=%s: %v", subject, ev.MessageType, err)
	}
	return nil
}

// Deliver fans the event out to the local members of channel, minus the
// event's own socket. Encoding happens once; per-recipient failures are
// isolated inside the fanout pool.
func (r *Router) Deliver(channel string, ev *Event) {
	members := r.reg.MembersOf(channel)
	if len(members) == 0 {
		return
	}
	targets := members[:0]
	for _, id := range members {
		if id != ev.SocketID {
			targets = append(targets, id)
		}
	}
	conns := r.conns.Resolve(targets)
	if len(conns) == 0 {
		return
	}
	payload, err := ev.Encode()
	if err != nil {
		logger.Warnf("[router] encode event type=%s: %v", ev.MessageType, err)
		return
	}
	r.fan.Broadcast(conns, payload)
}

// PublishEvent pushes the event onto the broker under its derived routing
// key. Fire-and-forget: a failed publish is logged and the event is gone.
func (r *Router) PublishEvent(ev *Event) {
	key, ok := RoutingKey(ev)
	if !ok {
		return
	}
	body, err := ev.Encode()
	if err != nil {
		logger.Warnf("[router] encode for publish type=%s: %v", ev.MessageType, err)
		return
	}
	if err := r.pub.Publish(key, body, nil); err != nil {
		logger.Errorf("[router] publish %s failed (dropped): %v", key, err)
	}
}

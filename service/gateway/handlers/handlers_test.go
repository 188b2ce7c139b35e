package handlers

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"CircleGate/service/bridge"
	"CircleGate/service/gateway"
)

// recordPub captures broker publishes instead of sending them anywhere.
type recordPub struct {
	mu    sync.Mutex
	calls []pubCall
}

type pubCall struct {
	subject string
	data    []byte
}

func (p *recordPub) Publish(subject string, data []byte, _ map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, pubCall{subject: subject, data: append([]byte(nil), data...)})
	return nil
}

func (p *recordPub) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

func (p *recordPub) last() pubCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[len(p.calls)-1]
}

func newInstance(t *testing.T, gwID string, pub gateway.Publisher) (*gateway.Router, *gateway.Registry, *gateway.ConnManager) {
	t.Helper()
	reg := gateway.NewRegistry(nil)
	conns := gateway.NewConnManager(gwID)
	fan := gateway.NewFanout(2, 64)
	t.Cleanup(fan.Close)
	disp := gateway.NewDispatcher()
	RegisterAll(disp)
	return gateway.NewRouter(disp, reg, conns, fan, pub, gwID), reg, conns
}

func addConn(t *testing.T, conns *gateway.ConnManager, reg *gateway.Registry, connID, uid string) *gateway.Conn {
	t.Helper()
	c := gateway.NewConn(connID, nil, uid, uid, 16)
	if err := conns.Add(c); err != nil {
		t.Fatalf("add conn: %v", err)
	}
	reg.Join(connID, gateway.UserChannel(uid))
	return c
}

func recvEvent(t *testing.T, c *gateway.Conn) *gateway.Event {
	t.Helper()
	select {
	case payload := <-c.Send:
		ev := &gateway.Event{}
		if err := json.Unmarshal(payload, ev); err != nil {
			t.Fatalf("bad delivered payload: %v", err)
		}
		return ev
	case <-time.After(time.Second):
		t.Fatalf("conn %s: no delivery within 1s", c.ConnID)
		return nil
	}
}

func expectNone(t *testing.T, c *gateway.Conn) {
	t.Helper()
	select {
	case payload := <-c.Send:
		t.Fatalf("conn %s: unexpected delivery %s", c.ConnID, payload)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestClientDetailsJoinsDeclaredRooms(t *testing.T) {
	pub := &recordPub{}
	rt, reg, conns := newInstance(t, "gw-1", pub)
	c1 := addConn(t, conns, reg, "c1", "u1")
	c2 := addConn(t, conns, reg, "c2", "u2")

	rt.HandleLocal(&gateway.Event{
		MessageType: gateway.EventClientDetails,
		Data:        map[string]any{"rooms": []any{"general", "dm-42"}},
	}, c1)

	if !reg.Has("c1", "general") || !reg.Has("c1", "dm-42") {
		t.Fatal("declared rooms not joined")
	}
	if !reg.Has("c1", gateway.UserChannel("u1")) || !reg.Has("c1", gateway.CircleChannel("u1")) {
		t.Fatal("user/circle channels not joined by handshake")
	}
	if pub.count() != 0 {
		t.Fatal("handshake must not be published")
	}

	// a message into a declared room reaches the connection
	rt.HandleLocal(&gateway.Event{
		MessageType: gateway.EventMessageSent,
		Data:        map[string]any{"room": "general", "text": "hi"},
	}, c2)
	ev := recvEvent(t, c1)
	if ev.MessageType != gateway.EventMessageSent || ev.From.UID != "u2" {
		t.Fatalf("unexpected delivery: %+v", ev)
	}

	// a message into an undeclared room does not
	rt.HandleLocal(&gateway.Event{
		MessageType: gateway.EventMessageSent,
		Data:        map[string]any{"room": "other-room"},
	}, c2)
	expectNone(t, c1)
}

func TestSelfEchoSuppressed(t *testing.T) {
	pub := &recordPub{}
	rt, reg, conns := newInstance(t, "gw-1", pub)
	c1 := addConn(t, conns, reg, "c1", "u1")
	c2 := addConn(t, conns, reg, "c2", "u2")
	reg.Join("c1", "general")
	reg.Join("c2", "general")

	rt.HandleLocal(&gateway.Event{
		MessageType: gateway.EventMessageSent,
		Data:        map[string]any{"room": "general"},
	}, c1)

	if ev := recvEvent(t, c2); ev.From.UID != "u1" {
		t.Fatalf("recipient got wrong sender: %+v", ev.From)
	}
	expectNone(t, c1)

	if pub.count() != 1 {
		t.Fatalf("expected one publish, got %d", pub.count())
	}
	if got := pub.last().subject; got != "events.publicRooms.message-sent" {
		t.Fatalf("unexpected routing key %s", got)
	}
}

func TestTypingNeverPublished(t *testing.T) {
	pub := &recordPub{}
	rt, reg, conns := newInstance(t, "gw-1", pub)
	c1 := addConn(t, conns, reg, "c1", "u1")
	c2 := addConn(t, conns, reg, "c2", "u2")
	reg.Join("c1", "general")
	reg.Join("c2", "general")

	for _, typ := range []string{gateway.EventUserIsTyping, gateway.EventUserStoppedTyping} {
		rt.HandleLocal(&gateway.Event{
			MessageType: typ,
			Data:        map[string]any{"room": "general"},
		}, c1)
		if ev := recvEvent(t, c2); ev.MessageType != typ {
			t.Fatalf("expected %s, got %s", typ, ev.MessageType)
		}
		expectNone(t, c1)
	}
	if pub.count() != 0 {
		t.Fatalf("typing indicators must never reach the broker, got %d publishes", pub.count())
	}
}

func TestStatusDeliveredToCircleAndPublished(t *testing.T) {
	pub := &recordPub{}
	rt, reg, conns := newInstance(t, "gw-1", pub)
	c1 := addConn(t, conns, reg, "c1", "u1")
	c2 := addConn(t, conns, reg, "c2", "u2")
	reg.Join("c2", gateway.CircleChannel("u1"))

	rt.HandleLocal(&gateway.Event{
		MessageType: gateway.EventUserStatus,
		From:        nil, // whatever the client claims is overwritten
		Data:        map[string]any{"online": true},
	}, c1)

	ev := recvEvent(t, c2)
	if ev.From == nil || ev.From.UID != "u1" {
		t.Fatalf("sender identity not stamped server-side: %+v", ev.From)
	}
	if pub.count() != 1 || pub.last().subject != "events.user.user-status" {
		t.Fatalf("status publish wrong: %d calls", pub.count())
	}
}

func TestNotificationsToggleCircleMembership(t *testing.T) {
	pub := &recordPub{}
	rt, reg, conns := newInstance(t, "gw-1", pub)
	c2 := addConn(t, conns, reg, "c2", "u2")

	rt.HandleLocal(&gateway.Event{
		MessageType: gateway.EventUserNotifications,
		Data:        map[string]any{"subscribe": true, "circleOf": "u1"},
	}, c2)
	if !reg.Has("c2", gateway.CircleChannel("u1")) {
		t.Fatal("subscribe did not join circle")
	}

	rt.HandleLocal(&gateway.Event{
		MessageType: gateway.EventUserNotifications,
		Data:        map[string]any{"subscribe": false, "circleOf": "u1"},
	}, c2)
	if reg.Has("c2", gateway.CircleChannel("u1")) {
		t.Fatal("unsubscribe did not leave circle")
	}
	if pub.count() != 2 {
		t.Fatalf("notifications republished %d times, want 2", pub.count())
	}
}

func TestUnknownTypeDroppedQuietly(t *testing.T) {
	pub := &recordPub{}
	rt, reg, conns := newInstance(t, "gw-1", pub)
	c1 := addConn(t, conns, reg, "c1", "u1")
	c2 := addConn(t, conns, reg, "c2", "u2")
	reg.Join("c2", gateway.CircleChannel("u1"))

	rt.HandleLocal(&gateway.Event{MessageType: "mystery"}, c1)
	// typing without a room is malformed: dropped, connection unaffected
	rt.HandleLocal(&gateway.Event{MessageType: gateway.EventUserIsTyping, Data: map[string]any{}}, c1)

	expectNone(t, c2)
	if pub.count() != 0 {
		t.Fatal("dropped events must not be published")
	}
}

// ---- cross-instance scenario ----

// fakeBroker wires instances together the way the topic exchange does:
// every instance receives every publish, with the origin gateway header
// stamped the same way bridge.Producer stamps it.
type fakeBroker struct {
	mu        sync.Mutex
	instances []*gateway.Router
	publishes int
}

type instancePub struct {
	b    *fakeBroker
	gwID string
}

func (p *instancePub) Publish(subject string, data []byte, hdr map[string]string) error {
	if hdr == nil {
		hdr = map[string]string{}
	}
	hdr[bridge.HeaderOriginGateway] = p.gwID
	p.b.mu.Lock()
	p.b.publishes++
	instances := append([]*gateway.Router(nil), p.b.instances...)
	p.b.mu.Unlock()
	for _, rt := range instances {
		_ = rt.HandleBroker(subject, data, hdr)
	}
	return nil
}

func TestCrossInstancePresence(t *testing.T) {
	broker := &fakeBroker{}

	rtA, regA, connsA := newInstance(t, "gw-a", &instancePub{b: broker, gwID: "gw-a"})
	rtB, regB, connsB := newInstance(t, "gw-b", &instancePub{b: broker, gwID: "gw-b"})
	broker.instances = []*gateway.Router{rtA, rtB}

	// u1's socket lives on A; circle members split across both instances
	a1 := addConn(t, connsA, regA, "a1", "u1")
	a2 := addConn(t, connsA, regA, "a2", "u2")
	b1 := addConn(t, connsB, regB, "b1", "u3")
	regA.Join("a2", gateway.CircleChannel("u1"))
	regB.Join("b1", gateway.CircleChannel("u1"))

	rtA.HandleLocal(&gateway.Event{
		MessageType: gateway.EventUserStatus,
		Data:        map[string]any{"online": true},
	}, a1)

	// B-resident circle member sees the event via subscribe -> local router
	if ev := recvEvent(t, b1); ev.From.UID != "u1" {
		t.Fatalf("remote delivery wrong sender: %+v", ev.From)
	}

	// A-resident member sees it exactly once: the broker copy back to A is
	// dropped by the origin check
	if ev := recvEvent(t, a2); ev.From.UID != "u1" {
		t.Fatalf("local delivery wrong sender: %+v", ev.From)
	}
	expectNone(t, a2)
	expectNone(t, a1)

	broker.mu.Lock()
	n := broker.publishes
	broker.mu.Unlock()
	if n != 1 {
		t.Fatalf("remote instance republished: %d publishes, want 1", n)
	}
}

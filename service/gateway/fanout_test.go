package gateway

import (
	"testing"
	"time"
)

func testConn(id string, buffer int) *Conn {
	return NewConn(id, nil, "u-"+id, "u-"+id, buffer)
}

func TestFanoutDeliversToAll(t *testing.T) {
	f := NewFanout(2, 16)
	defer f.Close()

	c1 := testConn("c1", 4)
	c2 := testConn("c2", 4)
	f.Broadcast([]*Conn{c1, c2}, []byte("hello"))

	for _, c := range []*Conn{c1, c2} {
		select {
		case got := <-c.Send:
			if string(got) != "hello" {
				t.Fatalf("conn %s got %q", c.ConnID, got)
			}
		case <-time.After(time.Second):
			t.Fatalf("conn %s: nothing delivered", c.ConnID)
		}
	}
}

func TestFanoutSkipsSlowClient(t *testing.T) {
	f := NewFanout(1, 16)
	defer f.Close()

	slow := testConn("slow", 1)
	slow.Send <- []byte("stuck") // queue full, nothing draining it
	healthy := testConn("ok", 4)

	f.Broadcast([]*Conn{slow, healthy}, []byte("update"))

	select {
	case got := <-healthy.Send:
		if string(got) != "update" {
			t.Fatalf("healthy conn got %q", got)
		}
	case <-time.After(time.Second):
		t.Fatal("slow client blocked the rest of the channel")
	}
}

func TestFanoutSkipsClosedConn(t *testing.T) {
	f := NewFanout(1, 16)
	defer f.Close()

	closed := testConn("dead", 4)
	closed.Close()
	live := testConn("live", 4)

	f.Broadcast([]*Conn{closed, live}, []byte("x"))

	select {
	case <-live.Send:
	case <-time.After(time.Second):
		t.Fatal("delivery to live conn missing")
	}
	select {
	case <-closed.Send:
		t.Fatal("closed conn must not receive")
	case <-time.After(50 * time.Millisecond):
	}
}

package gateway

import (
	"encoding/json"
	"fmt"
	"strings"

	"CircleGate/service/authx"

	"github.com/mitchellh/mapstructure"
)

// Event types carried on the wire. The same discriminators appear on the
// client socket and inside broker message bodies.
const (
	EventClientDetails     = "client-details"
	EventUserStatus        = "user-status"
	EventUserNotifications = "user-notifications"
	EventUserIsTyping      = "user-is-typing"
	EventUserStoppedTyping = "user-stopped-typing"
	EventMessageSent       = "message-sent"
)

// Event is the envelope exchanged on the socket and the broker. Constructed
// once at ingress, read-only afterwards; every hop re-serializes, never
// mutates. From is stamped server-side from the connection's verified
// identity; whatever the client put there is discarded.
type Event struct {
	MessageType string          `json:"messageType"`
	From        *authx.Identity `json:"from,omitempty"`
	Data        map[string]any  `json:"data,omitempty"`
	SocketID    string          `json:"socketId,omitempty"` // self-echo suppression
}

// ParseEvent decodes a raw client/broker frame. A frame without a
// messageType is malformed and gets dropped by the caller.
func ParseEvent(raw []byte) (*Event, error) {
	ev := &Event{}
	if err := json.Unmarshal(raw, ev); err != nil {
		return nil, fmt.Errorf("unmarshal event failed: %w", err)
	}
	if ev.MessageType == "" {
		return nil, fmt.Errorf("event missing messageType")
	}
	return ev, nil
}

func (e *Event) Encode() ([]byte, error) { return json.Marshal(e) }

// ---- typed payloads ----

type ClientDetailsPayload struct {
	Rooms []string `mapstructure:"rooms"`
}

type NotificationPayload struct {
	Subscribe bool   `mapstructure:"subscribe"`
	CircleOf  string `mapstructure:"circleOf"`
}

type RoomPayload struct {
	Room string `mapstructure:"room"`
}

// DecodePayload maps an event's loose data object onto a typed payload.
func DecodePayload[T any](data map[string]any) (*T, error) {
	out := new(T)
	if err := mapstructure.Decode(data, out); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return out, nil
}

// ---- channel naming ----

// UserChannel is the channel every connection of a user auto-joins.
func UserChannel(uid string) string { return uid }

// CircleChannel holds the connections that opted in to presence and
// notification events about uid.
func CircleChannel(uid string) string { return uid + "-circle" }

// ---- broker routing keys ----

const (
	DomainUser        = "user"
	DomainPublicRooms = "publicRooms"
	DomainDMs         = "dms"

	// wildcard binding patterns, one subscription each per instance
	PatternUserEvents       = "events." + DomainUser + ".*"
	PatternPublicRoomEvents = "events." + DomainPublicRooms + ".*"
	PatternDMEvents         = "events." + DomainDMs + ".*"

	dmRoomPrefix = "dm-"
)

// RoutingKey derives the broker subject for an event, or ok=false for event
// types that never cross the broker (typing indicators, handshakes, unknown
// types). Deterministic: domain and type alone decide the key.
func RoutingKey(ev *Event) (string, bool) {
	switch ev.MessageType {
	case EventUserStatus, EventUserNotifications:
		return "events." + DomainUser + "." + ev.MessageType, true
	case EventMessageSent:
		domain := DomainPublicRooms
		if p, err := DecodePayload[RoomPayload](ev.Data); err == nil && strings.HasPrefix(p.Room, dmRoomPrefix) {
			domain = DomainDMs
		}
		return "events." + domain + "." + ev.MessageType, true
	default:
		return "", false
	}
}

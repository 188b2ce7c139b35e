package handlers

import "CircleGate/service/gateway"

// RegisterAll installs every event handler into the dispatch table. The
// map built here is the whole inbound protocol; anything else is dropped
// as unknown.
func RegisterAll(d *gateway.Dispatcher) {
	d.Register(NewClientDetailsHandler())
	d.Register(NewStatusHandler())
	d.Register(NewNotificationsHandler())
	d.Register(NewTypingHandler(gateway.EventUserIsTyping))
	d.Register(NewTypingHandler(gateway.EventUserStoppedTyping))
	d.Register(NewMessageHandler())
}

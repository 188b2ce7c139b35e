package bridge

import (
	"fmt"

	"github.com/nats-io/nats.go"
)

// HeaderOriginGateway names the instance that first published an event.
// The consumer side uses it to skip traffic this same process produced,
// which is what keeps publish/subscribe loops impossible.
const HeaderOriginGateway = "Origin-Gateway"

// Producer publishes onto the shared topic namespace, fire-and-forget.
// Failures are the caller's to log and forget; nothing is queued or retried.
type Producer struct {
	c    *Client
	gwID string
}

func NewProducer(c *Client, gwID string) *Producer {
	return &Producer{c: c, gwID: gwID}
}

// Publish sends data under subject, stamping the origin gateway header.
// No ack is awaited.
func (p *Producer) Publish(subject string, data []byte, hdr map[string]string) error {
	msg := nats.NewMsg(subject)
	msg.Data = data
	for k, v := range hdr {
		msg.Header.Add(k, v)
	}
	msg.Header.Set(HeaderOriginGateway, p.gwID)

	if err := p.c.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s failed: %w", subject, err)
	}
	return nil
}

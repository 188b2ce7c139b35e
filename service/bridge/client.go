package bridge

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// Config for the process-wide broker client.
type Config struct {
	Servers       []string
	Name          string
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// Client is the shared NATS connection for this process: one connection,
// reused for every publish, every subscription and the auth RPC. Reconnects
// forever; events published while the broker is away are dropped best-effort.
type Client struct {
	cfg Config
	nc  *nats.Conn

	mu   sync.Mutex
	subs []*nats.Subscription
}

func Connect(cfg Config) (*Client, error) {
	if len(cfg.Servers) == 0 {
		return nil, errors.New("nats servers missing")
	}
	if cfg.ReconnectWait == 0 {
		cfg.ReconnectWait = 500 * time.Millisecond
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 3 * time.Second
	}
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.ReconnectJitter(100*time.Millisecond, 500*time.Millisecond),
		nats.Timeout(cfg.Timeout),
	}
	nc, err := nats.Connect(strings.Join(cfg.Servers, ","), opts...)
	if err != nil {
		return nil, err
	}
	return &Client{cfg: cfg, nc: nc}, nil
}

// Request is a synchronous round-trip on the shared connection; used by the
// identity verifier. Honors ctx deadline.
func (c *Client) Request(ctx context.Context, subject string, data []byte) ([]byte, error) {
	msg, err := c.nc.RequestWithContext(ctx, subject, data)
	if err != nil {
		return nil, err
	}
	return msg.Data, nil
}

func (c *Client) trackSub(sub *nats.Subscription) {
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
}

// Close drains all subscriptions, then the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	for _, sub := range c.subs {
		_ = sub.Drain()
	}
	c.subs = nil
	c.mu.Unlock()
	if c.nc != nil {
		return c.nc.Drain()
	}
	return nil
}

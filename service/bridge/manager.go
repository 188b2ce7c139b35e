package bridge

import (
	"context"
	"fmt"
)

// Manager is the single facade the rest of the process talks to: publish,
// subscribe, request, close. One Manager per process.
type Manager struct {
	client   *Client
	producer *Producer
	consumer *Consumer
}

func NewManager(cfg Config, gwID string, middlewares ...Middleware) (*Manager, error) {
	c, err := Connect(cfg)
	if err != nil {
		return nil, err
	}
	return &Manager{
		client:   c,
		producer: NewProducer(c, gwID),
		consumer: NewConsumer(c, middlewares...),
	}, nil
}

func (m *Manager) Close() error {
	if m == nil || m.client == nil {
		return nil
	}
	return m.client.Close()
}

// Publish fire-and-forget under subject.
func (m *Manager) Publish(subject string, data []byte, hdr map[string]string) error {
	if m == nil || m.producer == nil {
		return fmt.Errorf("manager not initialized")
	}
	return m.producer.Publish(subject, data, hdr)
}

// Subscribe binds a wildcard pattern; broadcast semantics, no queue group.
func (m *Manager) Subscribe(pattern string, h Handler) error {
	if m == nil || m.consumer == nil {
		return fmt.Errorf("manager not initialized")
	}
	return m.consumer.Subscribe(pattern, h)
}

// Request round-trips on the shared connection (auth RPC).
func (m *Manager) Request(ctx context.Context, subject string, data []byte) ([]byte, error) {
	if m == nil || m.client == nil {
		return nil, fmt.Errorf("manager not initialized")
	}
	return m.client.Request(ctx, subject, data)
}

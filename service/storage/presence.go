package storage

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

type Config struct {
	Addr     string
	Password string
	DB       int
}

// Presence mirrors "which gateway holds user X" into redis with a TTL.
// Strictly best-effort: the routing core never depends on it, other services
// read it to decide where a user is reachable. A nil *Presence is a no-op,
// so the gateway runs fine without redis at all.
type Presence struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewPresence(c Config, ttl time.Duration) (*Presence, error) {
	rdb := redis.NewClient(&redis.Options{Addr: c.Addr, Password: c.Password, DB: c.DB})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, errors.Wrap(err, "redis ping")
	}
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &Presence{rdb: rdb, ttl: ttl}, nil
}

// presence key: cg:presence:<uid>
// value: gateway_id, TTL bounds the online validity period
func presenceKey(uid string) string { return "cg:presence:" + uid }

// Online marks the user online on the given gateway and renews the TTL.
func (p *Presence) Online(ctx context.Context, uid, gatewayID string) error {
	if p == nil {
		return nil
	}
	return p.rdb.Set(ctx, presenceKey(uid), gatewayID, p.ttl).Err()
}

// Offline removes the user's presence key.
func (p *Presence) Offline(ctx context.Context, uid string) error {
	if p == nil {
		return nil
	}
	return p.rdb.Del(ctx, presenceKey(uid)).Err()
}

// Lookup returns the gateway currently holding the user, if any.
func (p *Presence) Lookup(ctx context.Context, uid string) (gatewayID string, online bool, err error) {
	if p == nil {
		return "", false, nil
	}
	val, err := p.rdb.Get(ctx, presenceKey(uid)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (p *Presence) Close() error {
	if p == nil {
		return nil
	}
	return p.rdb.Close()
}

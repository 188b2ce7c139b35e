package global

import (
	"os"
	"strconv"
	"strings"
	"time"

	"CircleGate/tools/ids"
)

// AppConfig carries every knob the gateway reads at startup. All values come
// from the environment so one image can run as any instance.
type AppConfig struct {
	GatewayID string // unique per process instance
	NodeID    int64  // snowflake node id
	HTTPAddr  string

	NatsServers []string
	NatsName    string

	// auth
	AuthMode    string // "rpc" (NATS request/reply) or "jwt" (local HS256)
	AuthSubject string // subject of the auth service RPC endpoint
	AuthTimeout time.Duration
	JWTSecret   string

	// optional presence mirror
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	PresenceTTL   time.Duration
}

func Load() AppConfig {
	cfg := AppConfig{
		GatewayID:     envOr("GATEWAY_ID", "circle_gw-1"),
		NodeID:        envInt64("NODE_ID", 1),
		HTTPAddr:      envOr("HTTP_ADDR", ":8080"),
		NatsServers:   strings.Split(envOr("NATS_SERVERS", "nats://127.0.0.1:4222"), ","),
		NatsName:      envOr("NATS_NAME", "circlegate"),
		AuthMode:      envOr("AUTH_MODE", "rpc"),
		AuthSubject:   envOr("AUTH_SUBJECT", "auth.token"),
		AuthTimeout:   envDuration("AUTH_TIMEOUT", 3*time.Second),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		RedisAddr:     os.Getenv("REDIS_ADDR"), // empty disables the mirror
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       int(envInt64("REDIS_DB", 0)),
		PresenceTTL:   envDuration("PRESENCE_TTL", 2*time.Minute),
	}
	return cfg
}

// ConfigIds seeds the snowflake generator; ids are embedded in every
// connection id handed to clients.
func ConfigIds(cfg AppConfig) {
	ids.SetNodeID(cfg.NodeID)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt64(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

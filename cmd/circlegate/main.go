package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"CircleGate/global"
	"CircleGate/logger"
	"CircleGate/service/authx"
	"CircleGate/service/bridge"
	"CircleGate/service/gateway"
	"CircleGate/service/gateway/handlers"
	"CircleGate/service/storage"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := global.Load()
	global.ConfigIds(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1) Broker bridge: one shared connection per process
	brk, err := bridge.NewManager(bridge.Config{
		Servers: cfg.NatsServers,
		Name:    cfg.NatsName + "-" + cfg.GatewayID,
	}, cfg.GatewayID, bridge.Recovery())
	if err != nil {
		logger.Errorf("[main] broker connect failed: %v", err)
		return
	}
	defer func() { _ = brk.Close() }()

	// 2) Identity verifier
	var verifier authx.Verifier
	switch cfg.AuthMode {
	case "jwt":
		verifier = authx.NewJWTVerifier([]byte(cfg.JWTSecret))
	default:
		verifier = authx.NewRPCVerifier(brk, cfg.AuthSubject, cfg.AuthTimeout)
	}

	// 3) Optional presence mirror
	var presence *storage.Presence
	if cfg.RedisAddr != "" {
		presence, err = storage.NewPresence(storage.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, cfg.PresenceTTL)
		if err != nil {
			// mirror is best-effort, the gateway runs without it
			logger.Warnf("[main] presence mirror disabled: %v", err)
			presence = nil
		} else {
			defer func() { _ = presence.Close() }()
		}
	}

	// 4) Routing core
	reg := gateway.NewRegistry(gateway.AllowAllRooms{})
	conns := gateway.NewConnManagerWithConf(gateway.ManagerConf{MaxPerUser: 8, EvictOldest: true}, cfg.GatewayID)
	fan := gateway.NewFanout(8, 4096)
	disp := gateway.NewDispatcher()
	handlers.RegisterAll(disp)
	rt := gateway.NewRouter(disp, reg, conns, fan, brk, cfg.GatewayID)

	// 5) Inbound bridge subscriptions, one per wildcard pattern
	feed := func(_ context.Context, msg bridge.Message) error {
		return rt.HandleBroker(msg.Subject, msg.Data, msg.Header)
	}
	for _, pattern := range []string{
		gateway.PatternUserEvents,
		gateway.PatternPublicRoomEvents,
		gateway.PatternDMEvents,
	} {
		if err := brk.Subscribe(pattern, feed); err != nil {
			logger.Errorf("[main] subscribe %s failed: %v", pattern, err)
			return
		}
	}

	// 6) HTTP + WebSocket
	gw := gateway.NewServer(verifier, rt, conns, reg, presence)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/ws", gw.HandleWS) // e.g. ws://host:8080/ws?token=...
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}
	go func() {
		logger.Infof("[HTTP] listening on %s gateway=%s", cfg.HTTPAddr, cfg.GatewayID)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("[HTTP] server failed: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("[main] shutting down")

	shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutCtx)
	conns.CloseAll()
	fan.Close()
	logger.Sync()
}

package gateway

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/soundscape/server/internal/modules/gateway/presence"
	pkgredis "github.com/soundscape/server/internal/pkg/redis"
	"github.com/zishang520/engine.io/v2/types"
	socketio "github.com/zishang520/socket.io/v2/socket"
	"go.uber.org/zap"
)

// NewHub creates the socket.io server and the registry it feeds. An empty
// origin list accepts every origin. rc may be nil, which disables peak stats.
func NewHub(dir presence.Directory, origins []string, rc *pkgredis.Client, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := socketio.DefaultServerOptions()
	opts.SetCors(corsFor(origins))

	h := &Hub{
		conns:  make(map[string]socketConn),
		rc:     rc,
		logger: logger,
		sio:    socketio.NewServer(nil, opts),
	}
	h.registry = presence.NewRegistry(h, dir, logger.Named("Presence"))
	h.registerHandlers()
	return h
}

func corsFor(origins []string) *types.Cors {
	if len(origins) == 0 {
		return &types.Cors{Origin: "*", Credentials: false}
	}
	allowed := make([]any, 0, len(origins))
	for _, o := range origins {
		allowed = append(allowed, o)
	}
	return &types.Cors{Origin: allowed, Credentials: true}
}

// Registry returns the presence registry backing this hub.
func (h *Hub) Registry() *presence.Registry {
	return h.registry
}

// Handler returns the HTTP handler serving the socket.io endpoint.
func (h *Hub) Handler() http.Handler {
	return h.sio.ServeHandler(nil)
}

// Broadcast sends an event to every connected socket. Each socket is written
// individually; the server-wide emit shares one pre-encoded packet and back to
// back batches of those lose frames on the websocket transport.
func (h *Hub) Broadcast(event string, args ...any) {
	h.mu.Lock()
	targets := make([]socketConn, 0, len(h.conns))
	for _, conn := range h.conns {
		targets = append(targets, conn)
	}
	h.mu.Unlock()

	for _, conn := range targets {
		if err := conn.Emit(event, args...); err != nil {
			h.logger.Debug("broadcast emit failed", zap.String("sid", conn.ID()), zap.String("event", event), zap.Error(err))
		}
	}
}

// Run blocks until ctx is cancelled, then closes the server.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.sio.Close(nil)
}

// Stats reports current and peak load.
func (h *Hub) Stats(ctx context.Context) Stats {
	h.mu.Lock()
	connections := len(h.conns)
	h.mu.Unlock()

	stats := Stats{Online: h.registry.Count(), Connections: connections}
	if h.rc == nil {
		return stats
	}
	raw, err := h.rc.Raw().HGet(ctx, redisKeyMaxOnlineCount, shortDateKey(time.Now())).Result()
	if err == nil {
		stats.MaxToday, _ = strconv.Atoi(strings.TrimSpace(raw))
	}
	return stats
}

func (h *Hub) trackConnection(conn socketConn, open bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if open {
		h.conns[conn.ID()] = conn
	} else {
		delete(h.conns, conn.ID())
	}
}

func (h *Hub) updateDailyOnlineStats(currentOnline int) {
	if h.rc == nil || currentOnline < 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	dateKey := shortDateKey(time.Now())

	maxOnline := 0
	currentMax, err := h.rc.Raw().HGet(ctx, redisKeyMaxOnlineCount, dateKey).Result()
	switch {
	case err == nil:
		if parsed, parseErr := strconv.Atoi(strings.TrimSpace(currentMax)); parseErr == nil {
			maxOnline = parsed
		}
	case err == redis.Nil:
		// no-op
	default:
		h.logger.Warn("gateway get max online failed", zap.Error(err))
	}

	if currentOnline > maxOnline {
		if err := h.rc.Raw().HSet(ctx, redisKeyMaxOnlineCount, dateKey, currentOnline).Err(); err != nil {
			h.logger.Warn("gateway set max online failed", zap.Error(err))
		}
	}

	if err := h.rc.Raw().HIncrBy(ctx, redisKeyMaxOnlineCountTotal, dateKey, 1).Err(); err != nil {
		h.logger.Warn("gateway incr online total failed", zap.Error(err))
	}
}

func shortDateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

package gateway

import (
	"sync"

	"github.com/soundscape/server/internal/modules/gateway/presence"
	pkgredis "github.com/soundscape/server/internal/pkg/redis"
	socketio "github.com/zishang520/socket.io/v2/socket"
	"go.uber.org/zap"
)

// Inbound event names.
const (
	eventUserConnected  = "user_connected"
	eventUpdateActivity = "update_activity"
	eventTypingStart    = "typing_start"
	eventTypingStop     = "typing_stop"
	eventUserDeleted    = "user_deleted"

	redisKeyMaxOnlineCount      = "soundscape:max_online_count"
	redisKeyMaxOnlineCountTotal = "soundscape:max_online_count:total"
)

// Stats summarizes gateway load.
type Stats struct {
	Online      int `json:"online"`
	Connections int `json:"connections"`
	MaxToday    int `json:"maxToday"`
}

// Hub binds socket.io connections to the presence registry.
type Hub struct {
	mu    sync.Mutex
	conns map[string]socketConn // sid -> socket

	registry *presence.Registry
	rc       *pkgredis.Client
	logger   *zap.Logger
	sio      *socketio.Server
}

// socketConn adapts a socket.io socket to presence.Conn.
type socketConn struct {
	s *socketio.Socket
}

func (c socketConn) ID() string { return string(c.s.Id()) }

func (c socketConn) Emit(event string, args ...any) error {
	return c.s.Emit(event, args...)
}

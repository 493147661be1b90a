package gateway

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	socketio "github.com/zishang520/socket.io/v2/socket"
	"go.uber.org/zap"
)

const profileLookupTimeout = 3 * time.Second

type typingEvent struct {
	SenderID   string
	ReceiverID string
}

func (h *Hub) registerHandlers() {
	_ = h.sio.On("connection", func(args ...any) {
		if len(args) == 0 {
			return
		}
		client, ok := args[0].(*socketio.Socket)
		if !ok {
			return
		}
		conn := socketConn{s: client}
		sid := conn.ID()
		h.trackConnection(conn, true)

		_ = client.On(eventUserConnected, func(eventArgs ...any) {
			principalID := principalFromArgs(eventArgs...)
			if principalID == "" {
				return
			}
			h.registry.Announce(conn, principalID)
			go h.updateDailyOnlineStats(h.registry.Count())
		})

		_ = client.On(eventUpdateActivity, func(eventArgs ...any) {
			payload := payloadFromArgs(eventArgs...)
			principalID := firstNonEmptyString(
				strFromAny(payload["principalId"]),
				strFromAny(payload["userId"]),
			)
			if principalID == "" {
				return
			}
			h.registry.UpdateActivity(principalID, rawStrFromAny(payload["activity"]))
		})

		_ = client.On(eventTypingStart, func(eventArgs ...any) {
			h.relayTyping(eventArgs, true)
		})
		_ = client.On(eventTypingStop, func(eventArgs ...any) {
			h.relayTyping(eventArgs, false)
		})

		_ = client.On(eventUserDeleted, func(eventArgs ...any) {
			if principalID := principalFromArgs(eventArgs...); principalID != "" {
				h.registry.Remove(principalID)
			}
		})

		_ = client.On("disconnect", func(_ ...any) {
			h.trackConnection(conn, false)
			h.registry.Disconnect(conn)
		})

		_ = client.On("error", func(eventArgs ...any) {
			h.logger.Warn("socket transport error", zap.String("sid", sid), zap.Any("error", firstArg(eventArgs)))
			h.trackConnection(conn, false)
			h.registry.Disconnect(conn)
		})
	})
}

func (h *Hub) relayTyping(args []any, typing bool) {
	ev, ok := parseTypingEvent(args...)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), profileLookupTimeout)
	defer cancel()
	h.registry.Typing(ctx, ev.SenderID, ev.ReceiverID, typing)
}

func parseTypingEvent(args ...any) (typingEvent, bool) {
	payload := payloadFromArgs(args...)
	ev := typingEvent{
		SenderID: firstNonEmptyString(
			strFromAny(payload["senderId"]),
			strFromAny(payload["sender_id"]),
		),
		ReceiverID: firstNonEmptyString(
			strFromAny(payload["receiverId"]),
			strFromAny(payload["receiver_id"]),
		),
	}
	if ev.SenderID == "" || ev.ReceiverID == "" {
		return typingEvent{}, false
	}
	return ev, true
}

// principalFromArgs accepts a bare id, a JSON-encoded id or object, or an
// object carrying principalId/userId.
func principalFromArgs(args ...any) string {
	raw := firstArg(args)
	switch typed := raw.(type) {
	case nil:
		return ""
	case string:
		trimmed := strings.TrimSpace(typed)
		if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "\"") {
			var decoded any
			if err := json.Unmarshal([]byte(trimmed), &decoded); err == nil {
				return principalFromArgs(decoded)
			}
		}
		return trimmed
	}
	payload := mapFromAny(raw)
	return firstNonEmptyString(
		strFromAny(payload["principalId"]),
		strFromAny(payload["userId"]),
		strFromAny(payload["id"]),
	)
}

func payloadFromArgs(args ...any) map[string]interface{} {
	raw := firstArg(args)
	switch typed := raw.(type) {
	case string:
		out := map[string]interface{}{}
		if err := json.Unmarshal([]byte(typed), &out); err != nil {
			return map[string]interface{}{}
		}
		return out
	case []byte:
		out := map[string]interface{}{}
		if err := json.Unmarshal(typed, &out); err != nil {
			return map[string]interface{}{}
		}
		return out
	}
	return mapFromAny(raw)
}

func firstArg(args []any) any {
	if len(args) == 0 {
		return nil
	}
	return args[0]
}

func mapFromAny(v interface{}) map[string]interface{} {
	switch typed := v.(type) {
	case nil:
		return map[string]interface{}{}
	case map[string]interface{}:
		return typed
	default:
		data, err := json.Marshal(typed)
		if err != nil {
			return map[string]interface{}{}
		}
		out := map[string]interface{}{}
		if err := json.Unmarshal(data, &out); err != nil {
			return map[string]interface{}{}
		}
		return out
	}
}

func strFromAny(v interface{}) string {
	switch typed := v.(type) {
	case string:
		return strings.TrimSpace(typed)
	default:
		return ""
	}
}

// rawStrFromAny keeps the text as sent; activities are free text.
func rawStrFromAny(v interface{}) string {
	s, _ := v.(string)
	return s
}

func firstNonEmptyString(values ...string) string {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			return v
		}
	}
	return ""
}

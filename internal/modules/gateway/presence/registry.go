package presence

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Registry tracks which principal is online through which connection, and
// what each principal is currently doing. State is process-local and is not
// persisted.
//
// All mutations and the broadcasts describing them happen under one lock, so
// every client observes snapshots in mutation order.
type Registry struct {
	mu         sync.Mutex
	conns      map[string]Conn   // principal -> live handle
	owners     map[string]string // handle id -> principal
	activities map[string]string // principal -> activity

	bus    Broadcaster
	dir    Directory
	logger *zap.Logger
}

func NewRegistry(bus Broadcaster, dir Directory, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		conns:      make(map[string]Conn),
		owners:     make(map[string]string),
		activities: make(map[string]string),
		bus:        bus,
		dir:        dir,
		logger:     logger,
	}
}

// Announce binds conn to principalID. A later connect for the same principal
// replaces the earlier handle; the replaced handle's eventual disconnect is
// then ignored.
func (r *Registry) Announce(conn Conn, principalID string) {
	if conn == nil || principalID == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	handle := conn.ID()

	// The same handle re-announcing under another identity gives up its old slot.
	if prev, ok := r.owners[handle]; ok && prev != principalID {
		if cur, ok := r.conns[prev]; ok && cur.ID() == handle {
			delete(r.conns, prev)
			delete(r.activities, prev)
			r.broadcast(EventUserDisconnected, prev)
		}
	}

	if old, ok := r.conns[principalID]; ok && old.ID() != handle {
		delete(r.owners, old.ID())
	}
	r.conns[principalID] = conn
	r.owners[handle] = principalID
	if _, ok := r.activities[principalID]; !ok {
		r.activities[principalID] = DefaultActivity
	}

	if err := conn.Emit(EventUsersOnline, r.onlineLocked()); err != nil {
		r.logger.Warn("emit users_online failed", zap.String("principal", principalID), zap.Error(err))
	}
	r.broadcast(EventUserConnected, principalID)
	r.broadcastSnapshotLocked()
}

// UpdateActivity overwrites the principal's activity. Principals that never
// announced still get an entry.
func (r *Registry) UpdateActivity(principalID, activity string) {
	if principalID == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.activities[principalID] = activity
	r.broadcast(EventActivityUpdated, ActivityUpdate{UserID: principalID, Activity: activity})
	r.broadcast(EventActivities, r.activitiesLocked())
}

// Typing relays a typing indicator to the receiver only. It reports false
// when the receiver is offline, in which case nothing is sent.
func (r *Registry) Typing(ctx context.Context, senderID, receiverID string, typing bool) bool {
	if senderID == "" || receiverID == "" {
		return false
	}

	r.mu.Lock()
	conn, ok := r.conns[receiverID]
	r.mu.Unlock()
	if !ok {
		return false
	}

	if !typing {
		return r.emit(conn, receiverID, EventUserStoppedTyping, StoppedTypingPayload{UserID: senderID})
	}

	payload := TypingPayload{UserID: senderID}
	if r.dir != nil {
		profile, err := r.dir.Profile(ctx, senderID)
		if err != nil {
			r.logger.Debug("typing profile lookup failed", zap.String("principal", senderID), zap.Error(err))
		} else {
			payload.UserName = profile.Name
			payload.UserAvatar = profile.Avatar
		}
	}
	return r.emit(conn, receiverID, EventUserTyping, payload)
}

// Disconnect handles the end of a connection. Handles that were replaced or
// never announced are ignored.
func (r *Registry) Disconnect(conn Conn) {
	if conn == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	handle := conn.ID()
	principalID, ok := r.owners[handle]
	if !ok {
		return
	}
	delete(r.owners, handle)

	cur, ok := r.conns[principalID]
	if !ok || cur.ID() != handle {
		return
	}
	r.removeLocked(principalID)
}

// Remove drops the principal regardless of which handle holds its slot. It
// reports whether the principal was present.
func (r *Registry) Remove(principalID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, online := r.conns[principalID]
	_, active := r.activities[principalID]
	if !online && !active {
		return false
	}
	if !online {
		// Activity-only entries were never announced as connected.
		delete(r.activities, principalID)
		r.broadcast(EventActivities, r.activitiesLocked())
		return true
	}
	delete(r.owners, r.conns[principalID].ID())
	r.removeLocked(principalID)
	return true
}

// DeliverToPrincipal emits an event to the principal's current connection.
// Delivery is best effort and never retried.
func (r *Registry) DeliverToPrincipal(principalID, event string, payload any) bool {
	r.mu.Lock()
	conn, ok := r.conns[principalID]
	r.mu.Unlock()
	if !ok {
		return false
	}
	return r.emit(conn, principalID, event, payload)
}

// OnlineSet returns the online principals in sorted order.
func (r *Registry) OnlineSet() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.onlineLocked()
}

// Activities returns [principal, activity] pairs sorted by principal.
func (r *Registry) Activities() [][2]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activitiesLocked()
}

func (r *Registry) IsOnline(principalID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.conns[principalID]
	return ok
}

func (r *Registry) Activity(principalID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.activities[principalID]
	return a, ok
}

// Count returns the number of online principals.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

func (r *Registry) removeLocked(principalID string) {
	delete(r.conns, principalID)
	delete(r.activities, principalID)
	r.broadcast(EventUserDisconnected, principalID)
	r.broadcastSnapshotLocked()
}

func (r *Registry) broadcastSnapshotLocked() {
	r.broadcast(EventUsersOnline, r.onlineLocked())
	r.broadcast(EventActivities, r.activitiesLocked())
}

func (r *Registry) broadcast(event string, payload any) {
	if r.bus == nil {
		return
	}
	r.bus.Broadcast(event, payload)
}

func (r *Registry) emit(conn Conn, principalID, event string, payload any) bool {
	if err := conn.Emit(event, payload); err != nil {
		r.logger.Warn("targeted emit failed",
			zap.String("principal", principalID),
			zap.String("event", event),
			zap.Error(err),
		)
		return false
	}
	return true
}

func (r *Registry) onlineLocked() []string {
	out := make([]string, 0, len(r.conns))
	for id := range r.conns {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) activitiesLocked() [][2]string {
	out := make([][2]string, 0, len(r.activities))
	for id, activity := range r.activities {
		out = append(out, [2]string{id, activity})
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

package presence

import "context"

// Outbound event names.
const (
	EventUserConnected     = "user_connected"
	EventUserDisconnected  = "user_disconnected"
	EventUsersOnline       = "users_online"
	EventActivities        = "activities"
	EventActivityUpdated   = "activity_updated"
	EventUserTyping        = "user_typing"
	EventUserStoppedTyping = "user_stopped_typing"
)

// DefaultActivity is assigned to a principal on its first announce.
const DefaultActivity = "Idle"

// Conn is a single live client connection.
type Conn interface {
	ID() string
	Emit(event string, args ...any) error
}

// Broadcaster sends an event to every live connection, announced or not.
type Broadcaster interface {
	Broadcast(event string, args ...any)
}

// Profile is the public display data shown in typing indicators.
type Profile struct {
	Name   string
	Avatar string
}

// Directory answers questions about principals from the user store.
type Directory interface {
	Exists(ctx context.Context, principalID string) (bool, error)
	Profile(ctx context.Context, principalID string) (Profile, error)
}

type ActivityUpdate struct {
	UserID   string `json:"userId"`
	Activity string `json:"activity"`
}

type TypingPayload struct {
	UserID     string `json:"userId"`
	UserName   string `json:"userName"`
	UserAvatar string `json:"userAvatar"`
}

type StoppedTypingPayload struct {
	UserID string `json:"userId"`
}

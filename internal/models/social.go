package models

import "time"

type Follow struct {
	ID          string    `json:"id"          bson:"_id"`
	FollowerID  string    `json:"followerId"  bson:"followerId"`
	FollowingID string    `json:"followingId" bson:"followingId"`
	CreatedAt   time.Time `json:"createdAt"   bson:"createdAt"`
}

// Friendship stores the pair with UserA < UserB so each pair has one document.
type Friendship struct {
	ID        string    `json:"id"        bson:"_id"`
	UserA     string    `json:"userA"     bson:"userA"`
	UserB     string    `json:"userB"     bson:"userB"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// NewFriendship orders the pair.
func NewFriendship(a, b string, now time.Time) Friendship {
	if b < a {
		a, b = b, a
	}
	return Friendship{ID: NewID(), UserA: a, UserB: b, CreatedAt: now}
}

// Other returns the peer of id in the friendship.
func (f Friendship) Other(id string) string {
	if f.UserA == id {
		return f.UserB
	}
	return f.UserA
}

const (
	FriendRequestPending  = "pending"
	FriendRequestAccepted = "accepted"
	FriendRequestRejected = "rejected"
)

type FriendRequest struct {
	Base       `bson:",inline"`
	SenderID   string `json:"senderId"   bson:"senderId"`
	ReceiverID string `json:"receiverId" bson:"receiverId"`
	Status     string `json:"status"     bson:"status"`
}

package models

import "time"

// Notification kinds.
const (
	NotificationFollow        = "follow"
	NotificationFriendRequest = "friend_request"
	NotificationFriendAccept  = "friend_accept"
	NotificationMessage       = "message"
	NotificationVerification  = "verification"
	NotificationSystem        = "system"
)

type Notification struct {
	ID          string         `json:"id"               bson:"_id"`
	RecipientID string         `json:"recipientId"      bson:"recipientId"`
	SenderID    string         `json:"senderId,omitempty" bson:"senderId,omitempty"`
	Type        string         `json:"type"             bson:"type"`
	Title       string         `json:"title"            bson:"title"`
	Message     string         `json:"message"          bson:"message"`
	Data        map[string]any `json:"data,omitempty"   bson:"data,omitempty"`
	IsRead      bool           `json:"isRead"           bson:"isRead"`
	CreatedAt   time.Time      `json:"createdAt"        bson:"createdAt"`
}

package models

import "time"

type Message struct {
	ID         string     `json:"id"                 bson:"_id"`
	SenderID   string     `json:"senderId"           bson:"senderId"`
	ReceiverID string     `json:"receiverId"         bson:"receiverId"`
	Content    string     `json:"content"            bson:"content"`
	IsRead     bool       `json:"isRead"             bson:"isRead"`
	ReadAt     *time.Time `json:"readAt,omitempty"   bson:"readAt,omitempty"`
	EditedAt   *time.Time `json:"editedAt,omitempty" bson:"editedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"          bson:"createdAt"`
}

// Conversation summarizes the latest message exchanged with one peer.
type Conversation struct {
	PeerID      string  `json:"userId"      bson:"_id"`
	LastMessage Message `json:"lastMessage" bson:"lastMessage"`
	UnreadCount int64   `json:"unreadCount" bson:"unreadCount"`
}

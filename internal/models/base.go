package models

import (
	"time"

	"github.com/google/uuid"
)

// Base carries the identity and timestamps shared by every document.
// ID is a UUID string so REST clients never see driver-specific ObjectIDs.
type Base struct {
	ID        string    `json:"id"        bson:"_id"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Touch assigns an id when missing and stamps the timestamps.
func (b *Base) Touch(now time.Time) {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
}

// NewID returns a fresh document id.
func NewID() string {
	return uuid.New().String()
}

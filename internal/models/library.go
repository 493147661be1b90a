package models

import "time"

type Playlist struct {
	Base        `bson:",inline"`
	OwnerID     string   `json:"ownerId"     bson:"ownerId"`
	Name        string   `json:"name"        bson:"name"`
	Description string   `json:"description" bson:"description"`
	ImageURL    string   `json:"imageUrl"    bson:"imageUrl"`
	IsPublic    bool     `json:"isPublic"    bson:"isPublic"`
	SongIDs     []string `json:"songIds"     bson:"songIds"`
}

// Favorite is unique per (userId, songId).
type Favorite struct {
	ID        string    `json:"id"        bson:"_id"`
	UserID    string    `json:"userId"    bson:"userId"`
	SongID    string    `json:"songId"    bson:"songId"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// ListeningEntry records a single play.
type ListeningEntry struct {
	ID       string    `json:"id"       bson:"_id"`
	UserID   string    `json:"userId"   bson:"userId"`
	SongID   string    `json:"songId"   bson:"songId"`
	PlayedAt time.Time `json:"playedAt" bson:"playedAt"`
}

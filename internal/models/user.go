package models

import "time"

// User is keyed by the identity provider's principal id.
type User struct {
	ID             string     `json:"id"             bson:"_id"`
	FullName       string     `json:"fullName"       bson:"fullName"`
	ImageURL       string     `json:"imageUrl"       bson:"imageUrl"`
	Email          string     `json:"email,omitempty" bson:"email,omitempty"`
	Bio            string     `json:"bio"            bson:"bio"`
	IsAdmin        bool       `json:"isAdmin"        bson:"isAdmin"`
	IsVerified     bool       `json:"isVerified"     bson:"isVerified"`
	ArtistName     string     `json:"artistName,omitempty" bson:"artistName,omitempty"`
	FollowersCount int64      `json:"followersCount" bson:"followersCount"`
	FollowingCount int64      `json:"followingCount" bson:"followingCount"`
	LastSeenAt     *time.Time `json:"lastSeenAt,omitempty" bson:"lastSeenAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"      bson:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"      bson:"updatedAt"`
}

// DisplayName falls back to the artist name when no full name was provided.
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.ArtistName
}

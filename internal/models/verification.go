package models

import "time"

const (
	VerificationPending  = "pending"
	VerificationApproved = "approved"
	VerificationRejected = "rejected"
)

// VerificationRequest is an artist's application for a verified badge.
type VerificationRequest struct {
	Base       `bson:",inline"`
	UserID     string     `json:"userId"               bson:"userId"`
	ArtistName string     `json:"artistName"           bson:"artistName"`
	Bio        string     `json:"bio"                  bson:"bio"`
	Links      []string   `json:"links"                bson:"links"`
	Status     string     `json:"status"               bson:"status"`
	Note       string     `json:"note,omitempty"       bson:"note,omitempty"`
	ReviewedBy string     `json:"reviewedBy,omitempty" bson:"reviewedBy,omitempty"`
	ReviewedAt *time.Time `json:"reviewedAt,omitempty" bson:"reviewedAt,omitempty"`
}

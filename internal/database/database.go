package database

import (
	"context"
	"fmt"
	"time"

	"github.com/soundscape/server/internal/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Collection names.
const (
	Users                = "users"
	Songs                = "songs"
	Albums               = "albums"
	Playlists            = "playlists"
	Favorites            = "favorites"
	ListeningHistory     = "listening_history"
	Follows              = "follows"
	Friendships          = "friendships"
	FriendRequests       = "friend_requests"
	Messages             = "messages"
	Notifications        = "notifications"
	VerificationRequests = "verification_requests"
)

const connectTimeout = 10 * time.Second

// Connect opens a Mongo client, verifies it with a ping and returns the configured database.
func Connect(ctx context.Context, cfg *config.AppConfig) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(cfg.Mongo.URI).
		SetAppName("soundscape").
		SetServerSelectionTimeout(connectTimeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("database ping failed: %w", err)
	}
	return client, client.Database(cfg.Mongo.Database), nil
}

// EnsureIndexes creates the indexes every collection relies on. Existing
// indexes with the same keys and options are left alone by the server.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	for coll, models := range indexes() {
		if len(models) == 0 {
			continue
		}
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	return nil
}

func indexes() map[string][]mongo.IndexModel {
	unique := func() *options.IndexOptions { return options.Index().SetUnique(true) }

	return map[string][]mongo.IndexModel{
		Users: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique().SetSparse(true)},
			{Keys: bson.D{{Key: "isVerified", Value: 1}}},
		},
		Songs: {
			{Keys: bson.D{{Key: "albumId", Value: 1}}},
			{Keys: bson.D{{Key: "artistId", Value: 1}}},
			{Keys: bson.D{{Key: "genre", Value: 1}}},
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		},
		Playlists: {
			{Keys: bson.D{{Key: "ownerId", Value: 1}, {Key: "updatedAt", Value: -1}}},
			{Keys: bson.D{{Key: "isPublic", Value: 1}}},
		},
		Favorites: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "songId", Value: 1}}, Options: unique()},
		},
		ListeningHistory: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "playedAt", Value: -1}}},
			{Keys: bson.D{{Key: "playedAt", Value: 1}}},
		},
		Follows: {
			{Keys: bson.D{{Key: "followerId", Value: 1}, {Key: "followingId", Value: 1}}, Options: unique()},
			{Keys: bson.D{{Key: "followingId", Value: 1}}},
		},
		Friendships: {
			{Keys: bson.D{{Key: "userA", Value: 1}, {Key: "userB", Value: 1}}, Options: unique()},
			{Keys: bson.D{{Key: "userB", Value: 1}}},
		},
		FriendRequests: {
			{
				Keys:    bson.D{{Key: "senderId", Value: 1}, {Key: "receiverId", Value: 1}, {Key: "status", Value: 1}},
				Options: unique().SetPartialFilterExpression(bson.M{"status": "pending"}),
			},
			{Keys: bson.D{{Key: "receiverId", Value: 1}, {Key: "status", Value: 1}}},
		},
		Messages: {
			{Keys: bson.D{{Key: "senderId", Value: 1}, {Key: "receiverId", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "receiverId", Value: 1}, {Key: "isRead", Value: 1}}},
		},
		Notifications: {
			{Keys: bson.D{{Key: "recipientId", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "recipientId", Value: 1}, {Key: "isRead", Value: 1}}},
		},
		VerificationRequests: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
	}
}

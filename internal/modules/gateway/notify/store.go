package notify

import (
	"context"

	"github.com/soundscape/server/internal/database"
	"github.com/soundscape/server/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type mongoStore struct {
	coll *mongo.Collection
}

// NewMongoStore stores notifications in the notifications collection.
func NewMongoStore(db *mongo.Database) Store {
	return &mongoStore{coll: db.Collection(database.Notifications)}
}

func (s *mongoStore) Insert(ctx context.Context, n *models.Notification) error {
	_, err := s.coll.InsertOne(ctx, n)
	return err
}

func (s *mongoStore) UnreadCount(ctx context.Context, recipientID string) (int64, error) {
	return s.coll.CountDocuments(ctx, bson.M{"recipientId": recipientID, "isRead": false})
}

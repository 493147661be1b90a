package message

import (
	"context"
	"errors"
	"time"

	"github.com/soundscape/server/internal/database"
	"github.com/soundscape/server/internal/models"
	"github.com/soundscape/server/internal/pkg/pagination"
	"github.com/soundscape/server/internal/pkg/response"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store is the persistence used by the message service.
type Store interface {
	Insert(ctx context.Context, m *models.Message) error
	Get(ctx context.Context, id string) (*models.Message, error)
	Thread(ctx context.Context, a, b string, q pagination.Query) ([]models.Message, response.Pagination, error)
	// MarkRead marks every unread message from peerID to readerID as read.
	MarkRead(ctx context.Context, readerID, peerID string, at time.Time) (int64, error)
	UnreadByPeer(ctx context.Context, receiverID string) (map[string]int64, error)
	Conversations(ctx context.Context, userID string) ([]models.Conversation, error)
	UpdateContent(ctx context.Context, id, senderID, content string, at time.Time) (*models.Message, error)
	Delete(ctx context.Context, id, senderID string) (bool, error)
}

type mongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(db *mongo.Database) Store {
	return &mongoStore{coll: db.Collection(database.Messages)}
}

func (s *mongoStore) Insert(ctx context.Context, m *models.Message) error {
	_, err := s.coll.InsertOne(ctx, m)
	return err
}

func (s *mongoStore) Get(ctx context.Context, id string) (*models.Message, error) {
	var m models.Message
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (s *mongoStore) Thread(ctx context.Context, a, b string, q pagination.Query) ([]models.Message, response.Pagination, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"senderId": a, "receiverId": b},
		bson.M{"senderId": b, "receiverId": a},
	}}
	var items []models.Message
	pag, err := pagination.Paginate(ctx, s.coll, filter, bson.D{{Key: "createdAt", Value: -1}}, q, &items)
	return items, pag, err
}

func (s *mongoStore) MarkRead(ctx context.Context, readerID, peerID string, at time.Time) (int64, error) {
	res, err := s.coll.UpdateMany(ctx,
		bson.M{"senderId": peerID, "receiverId": readerID, "isRead": false},
		bson.M{"$set": bson.M{"isRead": true, "readAt": at}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (s *mongoStore) UnreadByPeer(ctx context.Context, receiverID string) (map[string]int64, error) {
	cur, err := s.coll.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"receiverId": receiverID, "isRead": false}}},
		{{Key: "$group", Value: bson.M{"_id": "$senderId", "count": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, err
	}
	var rows []struct {
		PeerID string `bson:"_id"`
		Count  int64  `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.PeerID] = r.Count
	}
	return out, nil
}

func (s *mongoStore) Conversations(ctx context.Context, userID string) ([]models.Conversation, error) {
	cur, err := s.coll.Aggregate(ctx, conversationsPipeline(userID))
	if err != nil {
		return nil, err
	}
	items := []models.Conversation{}
	if err := cur.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func conversationsPipeline(userID string) mongo.Pipeline {
	peer := bson.M{"$cond": bson.A{bson.M{"$eq": bson.A{"$senderId", userID}}, "$receiverId", "$senderId"}}
	unread := bson.M{"$cond": bson.A{
		bson.M{"$and": bson.A{
			bson.M{"$eq": bson.A{"$receiverId", userID}},
			bson.M{"$eq": bson.A{"$isRead", false}},
		}},
		1, 0,
	}}
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"$or": bson.A{bson.M{"senderId": userID}, bson.M{"receiverId": userID}}}}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}}}},
		{{Key: "$group", Value: bson.M{
			"_id":         peer,
			"lastMessage": bson.M{"$first": "$$ROOT"},
			"unreadCount": bson.M{"$sum": unread},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "lastMessage.createdAt", Value: -1}}}},
	}
}

func (s *mongoStore) UpdateContent(ctx context.Context, id, senderID, content string, at time.Time) (*models.Message, error) {
	var m models.Message
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "senderId": senderID},
		bson.M{"$set": bson.M{"content": content, "editedAt": at}},
		opts,
	).Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (s *mongoStore) Delete(ctx context.Context, id, senderID string) (bool, error) {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id, "senderId": senderID})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

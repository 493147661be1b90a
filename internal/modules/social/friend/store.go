package friend

import (
	"context"
	"errors"
	"time"

	"github.com/soundscape/server/internal/database"
	"github.com/soundscape/server/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store is the persistence used by the friend service.
type Store interface {
	AreFriends(ctx context.Context, a, b string) (bool, error)
	PendingRequest(ctx context.Context, senderID, receiverID string) (*models.FriendRequest, error)
	GetRequest(ctx context.Context, id string) (*models.FriendRequest, error)
	// InsertRequest fails with errDuplicateRequest when the pair already has a
	// pending request in that direction.
	InsertRequest(ctx context.Context, r *models.FriendRequest) error
	// ResolveRequest moves a pending request addressed to receiverID to status.
	ResolveRequest(ctx context.Context, id, receiverID, status string) (bool, error)
	DeleteRequest(ctx context.Context, id, senderID string) (bool, error)
	InsertFriendship(ctx context.Context, f models.Friendship) error
	DeleteFriendship(ctx context.Context, a, b string) (bool, error)
	FriendIDs(ctx context.Context, id string) ([]string, error)
	PendingFor(ctx context.Context, id string) (incoming, outgoing []models.FriendRequest, err error)
}

type mongoStore struct {
	friendships *mongo.Collection
	requests    *mongo.Collection
}

func NewMongoStore(db *mongo.Database) Store {
	return &mongoStore{
		friendships: db.Collection(database.Friendships),
		requests:    db.Collection(database.FriendRequests),
	}
}

func pairFilter(a, b string) bson.M {
	if b < a {
		a, b = b, a
	}
	return bson.M{"userA": a, "userB": b}
}

func (s *mongoStore) AreFriends(ctx context.Context, a, b string) (bool, error) {
	n, err := s.friendships.CountDocuments(ctx, pairFilter(a, b), options.Count().SetLimit(1))
	return n > 0, err
}

func (s *mongoStore) PendingRequest(ctx context.Context, senderID, receiverID string) (*models.FriendRequest, error) {
	return s.findRequest(ctx, bson.M{"senderId": senderID, "receiverId": receiverID, "status": models.FriendRequestPending})
}

func (s *mongoStore) GetRequest(ctx context.Context, id string) (*models.FriendRequest, error) {
	return s.findRequest(ctx, bson.M{"_id": id})
}

func (s *mongoStore) findRequest(ctx context.Context, filter bson.M) (*models.FriendRequest, error) {
	var r models.FriendRequest
	if err := s.requests.FindOne(ctx, filter).Decode(&r); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &r, nil
}

func (s *mongoStore) InsertRequest(ctx context.Context, r *models.FriendRequest) error {
	_, err := s.requests.InsertOne(ctx, r)
	if mongo.IsDuplicateKeyError(err) {
		return errDuplicateRequest
	}
	return err
}

func (s *mongoStore) ResolveRequest(ctx context.Context, id, receiverID, status string) (bool, error) {
	res, err := s.requests.UpdateOne(ctx,
		bson.M{"_id": id, "receiverId": receiverID, "status": models.FriendRequestPending},
		bson.M{"$set": bson.M{"status": status, "updatedAt": time.Now()}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (s *mongoStore) DeleteRequest(ctx context.Context, id, senderID string) (bool, error) {
	res, err := s.requests.DeleteOne(ctx, bson.M{"_id": id, "senderId": senderID, "status": models.FriendRequestPending})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (s *mongoStore) InsertFriendship(ctx context.Context, f models.Friendship) error {
	_, err := s.friendships.InsertOne(ctx, f)
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	return err
}

func (s *mongoStore) DeleteFriendship(ctx context.Context, a, b string) (bool, error) {
	res, err := s.friendships.DeleteOne(ctx, pairFilter(a, b))
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (s *mongoStore) FriendIDs(ctx context.Context, id string) ([]string, error) {
	cur, err := s.friendships.Find(ctx, bson.M{"$or": bson.A{bson.M{"userA": id}, bson.M{"userB": id}}},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	var rows []models.Friendship
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rows))
	for _, f := range rows {
		ids = append(ids, f.Other(id))
	}
	return ids, nil
}

func (s *mongoStore) PendingFor(ctx context.Context, id string) ([]models.FriendRequest, []models.FriendRequest, error) {
	incoming, err := s.listRequests(ctx, bson.M{"receiverId": id, "status": models.FriendRequestPending})
	if err != nil {
		return nil, nil, err
	}
	outgoing, err := s.listRequests(ctx, bson.M{"senderId": id, "status": models.FriendRequestPending})
	if err != nil {
		return nil, nil, err
	}
	return incoming, outgoing, nil
}

func (s *mongoStore) listRequests(ctx context.Context, filter bson.M) ([]models.FriendRequest, error) {
	cur, err := s.requests.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	items := []models.FriendRequest{}
	if err := cur.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

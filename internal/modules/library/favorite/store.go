package favorite

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

// Store persists favorites. A (user, song) pair is stored at most once.
type Store interface {
	Page(ctx context.Context, userID string, q pagination.Query) ([]models.Favorite, response.Pagination, error)
	// Upsert returns the stored favorite and whether this call created it.
	Upsert(ctx context.Context, userID, songID string, at time.Time) (*models.Favorite, bool, error)
	Delete(ctx context.Context, userID, songID string) (bool, error)
	Exists(ctx context.Context, userID, songID string) (bool, error)
}

type mongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(db *mongo.Database) Store {
	return &mongoStore{coll: db.Collection(database.Favorites)}
}

func (s *mongoStore) Page(ctx context.Context, userID string, q pagination.Query) ([]models.Favorite, response.Pagination, error) {
	var favs []models.Favorite
	pag, err := pagination.Paginate(ctx, s.coll, bson.M{"userId": userID}, bson.D{{Key: "createdAt", Value: -1}}, q, &favs)
	return favs, pag, err
}

func (s *mongoStore) Upsert(ctx context.Context, userID, songID string, at time.Time) (*models.Favorite, bool, error) {
	filter := bson.M{"userId": userID, "songId": songID}
	update := bson.M{"$setOnInsert": bson.M{"_id": models.NewID(), "createdAt": at}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.Before)

	var existing models.Favorite
	err := s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&existing)
	switch {
	case err == nil:
		return &existing, false, nil
	case errors.Is(err, mongo.ErrNoDocuments):
		var created models.Favorite
		if err := s.coll.FindOne(ctx, filter).Decode(&created); err != nil {
			return nil, false, err
		}
		return &created, true, nil
	case mongo.IsDuplicateKeyError(err):
		// lost an upsert race with a concurrent request
		if err := s.coll.FindOne(ctx, filter).Decode(&existing); err != nil {
			return nil, false, err
		}
		return &existing, false, nil
	default:
		return nil, false, err
	}
}

func (s *mongoStore) Delete(ctx context.Context, userID, songID string) (bool, error) {
	res, err := s.coll.DeleteOne(ctx, bson.M{"userId": userID, "songId": songID})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (s *mongoStore) Exists(ctx context.Context, userID, songID string) (bool, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{"userId": userID, "songId": songID}, options.Count().SetLimit(1))
	return n > 0, err
}

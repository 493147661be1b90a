package user

import (
	"context"
	"errors"

	"github.com/soundscape/server/internal/modules/gateway/presence"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var errNoProfile = errors.New("no profile for principal")

// Directory exposes the user store to the presence registry.
type Directory struct {
	users *mongo.Collection
}

func NewDirectory(svc *Service) *Directory {
	return &Directory{users: svc.users}
}

func (d *Directory) Exists(ctx context.Context, principalID string) (bool, error) {
	n, err := d.users.CountDocuments(ctx, bson.M{"_id": principalID}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (d *Directory) Profile(ctx context.Context, principalID string) (presence.Profile, error) {
	var doc struct {
		FullName   string `bson:"fullName"`
		ArtistName string `bson:"artistName"`
		ImageURL   string `bson:"imageUrl"`
	}
	opts := options.FindOne().SetProjection(bson.M{"fullName": 1, "artistName": 1, "imageUrl": 1})
	if err := d.users.FindOne(ctx, bson.M{"_id": principalID}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return presence.Profile{}, errNoProfile
		}
		return presence.Profile{}, err
	}
	name := doc.FullName
	if name == "" {
		name = doc.ArtistName
	}
	return presence.Profile{Name: name, Avatar: doc.ImageURL}, nil
}

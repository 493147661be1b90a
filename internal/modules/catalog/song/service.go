package song

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/soundscape/server/internal/database"
	"github.com/soundscape/server/internal/models"
	"github.com/soundscape/server/internal/pkg/pagination"
	pkgredis "github.com/soundscape/server/internal/pkg/redis"
	"github.com/soundscape/server/internal/pkg/response"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const (
	trendingKeyPrefix = "soundscape:trending:"
	trendingTTL       = 48 * time.Hour
	featuredSize      = 6
	trendingSize      = 10
)

var errSongNotFound = errors.New("song not found")

// ListFilter narrows GET /songs.
type ListFilter struct {
	Genre  string
	Artist string
	Search string
}

type Service struct {
	db     *mongo.Database
	songs  *mongo.Collection
	rc     *pkgredis.Client
	logger *zap.Logger
	now    func() time.Time
}

func NewService(db *mongo.Database, rc *pkgredis.Client, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, songs: db.Collection(database.Songs), rc: rc, logger: logger, now: time.Now}
}

func (s *Service) List(ctx context.Context, f ListFilter, q pagination.Query) ([]models.Song, response.Pagination, error) {
	items := []models.Song{}
	pag, err := pagination.Paginate(ctx, s.songs, listFilter(f), bson.D{{Key: "createdAt", Value: -1}}, q, &items)
	return items, pag, err
}

func listFilter(f ListFilter) bson.M {
	filter := bson.M{}
	if g := strings.TrimSpace(f.Genre); g != "" {
		filter["genre"] = bson.M{"$regex": "^" + regexp.QuoteMeta(g) + "$", "$options": "i"}
	}
	if a := strings.TrimSpace(f.Artist); a != "" {
		filter["$or"] = bson.A{
			bson.M{"artistId": a},
			bson.M{"artist": bson.M{"$regex": regexp.QuoteMeta(a), "$options": "i"}},
		}
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		pattern := bson.M{"$regex": regexp.QuoteMeta(q), "$options": "i"}
		search := bson.A{bson.M{"title": pattern}, bson.M{"artist": pattern}}
		if _, ok := filter["$or"]; ok {
			filter["$and"] = bson.A{bson.M{"$or": filter["$or"]}, bson.M{"$or": search}}
			delete(filter, "$or")
		} else {
			filter["$or"] = search
		}
	}
	return filter
}

// Featured returns a random sample.
func (s *Service) Featured(ctx context.Context) ([]models.Song, error) {
	cur, err := s.songs.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$sample", Value: bson.M{"size": featuredSize}}},
	})
	if err != nil {
		return nil, err
	}
	items := []models.Song{}
	if err := cur.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Trending ranks today's plays from Redis and falls back to all-time play counts.
func (s *Service) Trending(ctx context.Context) ([]models.Song, error) {
	if s.rc != nil {
		ids, err := s.rc.TopMembers(ctx, trendingKey(s.now()), trendingSize)
		if err != nil {
			s.logger.Warn("trending lookup failed", zap.Error(err))
		} else if len(ids) > 0 {
			songs, err := s.GetMany(ctx, ids)
			if err != nil {
				return nil, err
			}
			if len(songs) > 0 {
				return songs, nil
			}
		}
	}

	cur, err := s.songs.Find(ctx, bson.M{}, findSorted(bson.D{{Key: "playCount", Value: -1}}, trendingSize))
	if err != nil {
		return nil, err
	}
	items := []models.Song{}
	if err := cur.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// GetByID returns nil, nil when the song does not exist.
func (s *Service) GetByID(ctx context.Context, id string) (*models.Song, error) {
	var song models.Song
	if err := s.songs.FindOne(ctx, bson.M{"_id": id}).Decode(&song); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &song, nil
}

// GetMany loads songs in the order of ids, skipping missing ones.
func (s *Service) GetMany(ctx context.Context, ids []string) ([]models.Song, error) {
	if len(ids) == 0 {
		return []models.Song{}, nil
	}
	cur, err := s.songs.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	var found []models.Song
	if err := cur.All(ctx, &found); err != nil {
		return nil, err
	}
	return orderByIDs(found, ids), nil
}

func orderByIDs(songs []models.Song, ids []string) []models.Song {
	byID := make(map[string]models.Song, len(songs))
	for _, song := range songs {
		byID[song.ID] = song
	}
	out := make([]models.Song, 0, len(ids))
	for _, id := range ids {
		if song, ok := byID[id]; ok {
			out = append(out, song)
		}
	}
	return out
}

// ByAlbum lists an album's tracks in insertion order.
func (s *Service) ByAlbum(ctx context.Context, albumID string) ([]models.Song, error) {
	cur, err := s.songs.Find(ctx, bson.M{"albumId": albumID}, findSorted(bson.D{{Key: "createdAt", Value: 1}}, 0))
	if err != nil {
		return nil, err
	}
	items := []models.Song{}
	if err := cur.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// ByArtist lists songs credited to an artist account.
func (s *Service) ByArtist(ctx context.Context, artistID string) ([]models.Song, error) {
	cur, err := s.songs.Find(ctx, bson.M{"artistId": artistID}, findSorted(bson.D{{Key: "playCount", Value: -1}}, 0))
	if err != nil {
		return nil, err
	}
	items := []models.Song{}
	if err := cur.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Service) Create(ctx context.Context, song *models.Song) error {
	song.Touch(s.now())
	if _, err := s.songs.InsertOne(ctx, song); err != nil {
		return fmt.Errorf("insert song: %w", err)
	}
	if song.AlbumID != nil && *song.AlbumID != "" {
		_, err := s.db.Collection(database.Albums).UpdateByID(ctx, *song.AlbumID, bson.M{
			"$addToSet": bson.M{"songIds": song.ID},
			"$set":      bson.M{"updatedAt": s.now()},
		})
		if err != nil {
			return fmt.Errorf("attach song to album: %w", err)
		}
	}
	return nil
}

// Delete removes the song and every reference to it.
func (s *Service) Delete(ctx context.Context, id string) error {
	res, err := s.songs.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return errSongNotFound
	}

	pull := bson.M{"$pull": bson.M{"songIds": id}}
	if _, err := s.db.Collection(database.Albums).UpdateMany(ctx, bson.M{"songIds": id}, pull); err != nil {
		s.logger.Warn("detach song from albums failed", zap.String("song", id), zap.Error(err))
	}
	if _, err := s.db.Collection(database.Playlists).UpdateMany(ctx, bson.M{"songIds": id}, pull); err != nil {
		s.logger.Warn("detach song from playlists failed", zap.String("song", id), zap.Error(err))
	}
	if _, err := s.db.Collection(database.Favorites).DeleteMany(ctx, bson.M{"songId": id}); err != nil {
		s.logger.Warn("delete song favorites failed", zap.String("song", id), zap.Error(err))
	}
	if s.rc != nil {
		if err := s.rc.RemoveMember(ctx, trendingKey(s.now()), id); err != nil {
			s.logger.Debug("remove trending member failed", zap.String("song", id), zap.Error(err))
		}
	}
	return nil
}

// RecordPlay bumps the all-time and daily counters of a song.
func (s *Service) RecordPlay(ctx context.Context, songID string) error {
	res, err := s.songs.UpdateByID(ctx, songID, bson.M{"$inc": bson.M{"playCount": 1}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errSongNotFound
	}
	if s.rc != nil {
		if err := s.rc.IncrScore(ctx, trendingKey(s.now()), songID, 1, trendingTTL); err != nil {
			s.logger.Warn("trending increment failed", zap.String("song", songID), zap.Error(err))
		}
	}
	return nil
}

// IsNotFound reports whether err means the song does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, errSongNotFound)
}

func trendingKey(t time.Time) string {
	return trendingKeyPrefix + t.UTC().Format("2006-01-02")
}

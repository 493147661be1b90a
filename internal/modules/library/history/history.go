package history

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/soundscape/server/internal/database"
	"github.com/soundscape/server/internal/middleware"
	"github.com/soundscape/server/internal/models"
	"github.com/soundscape/server/internal/modules/catalog/song"
	"github.com/soundscape/server/internal/pkg/pagination"
	"github.com/soundscape/server/internal/pkg/response"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type RecordPlayDTO struct {
	SongID string `json:"songId" binding:"required"`
}

type entryResponse struct {
	models.ListeningEntry
	Song *models.Song `json:"song,omitempty"`
}

type Service struct {
	coll  *mongo.Collection
	songs *song.Service
	now   func() time.Time
}

func NewService(db *mongo.Database, songs *song.Service) *Service {
	return &Service{coll: db.Collection(database.ListeningHistory), songs: songs, now: time.Now}
}

// Record stores a play and bumps the song's counters.
func (s *Service) Record(ctx context.Context, userID, songID string) (*models.ListeningEntry, error) {
	if err := s.songs.RecordPlay(ctx, songID); err != nil {
		return nil, err
	}
	entry := &models.ListeningEntry{ID: models.NewID(), UserID: userID, SongID: songID, PlayedAt: s.now()}
	if _, err := s.coll.InsertOne(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *Service) List(ctx context.Context, userID string, q pagination.Query) ([]entryResponse, response.Pagination, error) {
	var entries []models.ListeningEntry
	pag, err := pagination.Paginate(ctx, s.coll, bson.M{"userId": userID}, bson.D{{Key: "playedAt", Value: -1}}, q, &entries)
	if err != nil {
		return nil, pag, err
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.SongID)
	}
	songs, err := s.songs.GetMany(ctx, ids)
	if err != nil {
		return nil, pag, err
	}
	byID := make(map[string]*models.Song, len(songs))
	for i := range songs {
		byID[songs[i].ID] = &songs[i]
	}
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryResponse{ListeningEntry: e, Song: byID[e.SongID]})
	}
	return out, pag, nil
}

func (s *Service) Clear(ctx context.Context, userID string) (int64, error) {
	res, err := s.coll.DeleteMany(ctx, bson.M{"userId": userID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Prune deletes plays older than retain. Run by the cleanup_listening_history job.
func (s *Service) Prune(ctx context.Context, retain time.Duration) (int64, error) {
	res, err := s.coll.DeleteMany(ctx, bson.M{"playedAt": bson.M{"$lt": s.cutoff(retain)}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

type Handler struct{ svc *Service }

func (s *Service) cutoff(retain time.Duration) time.Time {
	return s.now().Add(-retain).UTC()
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/listening-history", authMW)
	g.GET("", h.list)
	g.POST("", h.record)
	g.DELETE("", h.clear)
}

func (h *Handler) list(c *gin.Context) {
	items, pag, err := h.svc.List(c.Request.Context(), middleware.CurrentUserID(c), pagination.FromContext(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, items, pag)
}

func (h *Handler) record(c *gin.Context) {
	var dto RecordPlayDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	entry, err := h.svc.Record(c.Request.Context(), middleware.CurrentUserID(c), dto.SongID)
	if err != nil {
		if song.IsNotFound(err) {
			response.NotFoundMsg(c, "song not found")
			return
		}
		response.InternalError(c, err)
		return
	}
	response.Created(c, entry)
}

func (h *Handler) clear(c *gin.Context) {
	n, err := h.svc.Clear(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"deleted": n})
}

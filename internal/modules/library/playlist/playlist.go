package playlist

import (
	"context"
	"errors"
	"strings"
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
	"go.mongodb.org/mongo-driver/mongo/options"
)

type CreatePlaylistDTO struct {
	Name        string `json:"name"        binding:"required,max=100"`
	Description string `json:"description" binding:"max=500"`
	ImageURL    string `json:"imageUrl"`
	IsPublic    bool   `json:"isPublic"`
}

type UpdatePlaylistDTO struct {
	Name        *string `json:"name"        binding:"omitempty,min=1,max=100"`
	Description *string `json:"description" binding:"omitempty,max=500"`
	ImageURL    *string `json:"imageUrl"`
	IsPublic    *bool   `json:"isPublic"`
}

type AddSongDTO struct {
	SongID string `json:"songId" binding:"required"`
}

type playlistResponse struct {
	models.Playlist
	Songs []models.Song `json:"songs"`
}

var (
	errPlaylistNotFound = errors.New("playlist not found")
	errNotOwner         = errors.New("not the playlist owner")
	errSongNotFound     = errors.New("song not found")
)

type Service struct {
	coll  *mongo.Collection
	songs *song.Service
}

func NewService(db *mongo.Database, songs *song.Service) *Service {
	return &Service{coll: db.Collection(database.Playlists), songs: songs}
}

func (s *Service) ListByOwner(ctx context.Context, ownerID string, q pagination.Query) ([]models.Playlist, response.Pagination, error) {
	var items []models.Playlist
	pag, err := pagination.Paginate(ctx, s.coll, bson.M{"ownerId": ownerID}, bson.D{{Key: "updatedAt", Value: -1}}, q, &items)
	return items, pag, err
}

func (s *Service) ListPublic(ctx context.Context, q pagination.Query) ([]models.Playlist, response.Pagination, error) {
	var items []models.Playlist
	pag, err := pagination.Paginate(ctx, s.coll, bson.M{"isPublic": true}, bson.D{{Key: "updatedAt", Value: -1}}, q, &items)
	return items, pag, err
}

// Get returns the playlist if viewerID may see it.
func (s *Service) Get(ctx context.Context, id, viewerID string) (*models.Playlist, error) {
	p, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(p, viewerID) {
		// private playlists are indistinguishable from missing ones
		return nil, errPlaylistNotFound
	}
	return p, nil
}

func (s *Service) Create(ctx context.Context, ownerID string, dto *CreatePlaylistDTO) (*models.Playlist, error) {
	p := &models.Playlist{
		OwnerID:     ownerID,
		Name:        strings.TrimSpace(dto.Name),
		Description: dto.Description,
		ImageURL:    dto.ImageURL,
		IsPublic:    dto.IsPublic,
		SongIDs:     []string{},
	}
	p.Touch(time.Now())
	if _, err := s.coll.InsertOne(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Update(ctx context.Context, id, ownerID string, dto *UpdatePlaylistDTO) (*models.Playlist, error) {
	set := bson.M{"updatedAt": time.Now()}
	if dto.Name != nil {
		set["name"] = strings.TrimSpace(*dto.Name)
	}
	if dto.Description != nil {
		set["description"] = *dto.Description
	}
	if dto.ImageURL != nil {
		set["imageUrl"] = *dto.ImageURL
	}
	if dto.IsPublic != nil {
		set["isPublic"] = *dto.IsPublic
	}
	return s.mutate(ctx, id, ownerID, bson.M{"$set": set})
}

func (s *Service) Delete(ctx context.Context, id, ownerID string) error {
	if _, err := s.owned(ctx, id, ownerID); err != nil {
		return err
	}
	_, err := s.coll.DeleteOne(ctx, bson.M{"_id": id, "ownerId": ownerID})
	return err
}

func (s *Service) AddSong(ctx context.Context, id, ownerID, songID string) (*models.Playlist, error) {
	track, err := s.songs.GetByID(ctx, songID)
	if err != nil {
		return nil, err
	}
	if track == nil {
		return nil, errSongNotFound
	}
	return s.mutate(ctx, id, ownerID, bson.M{
		"$addToSet": bson.M{"songIds": songID},
		"$set":      bson.M{"updatedAt": time.Now()},
	})
}

func (s *Service) RemoveSong(ctx context.Context, id, ownerID, songID string) (*models.Playlist, error) {
	return s.mutate(ctx, id, ownerID, bson.M{
		"$pull": bson.M{"songIds": songID},
		"$set":  bson.M{"updatedAt": time.Now()},
	})
}

// Songs resolves the playlist's tracks in playlist order.
func (s *Service) Songs(ctx context.Context, p *models.Playlist) ([]models.Song, error) {
	return s.songs.GetMany(ctx, p.SongIDs)
}

func (s *Service) mutate(ctx context.Context, id, ownerID string, update bson.M) (*models.Playlist, error) {
	if _, err := s.owned(ctx, id, ownerID); err != nil {
		return nil, err
	}
	var p models.Playlist
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": id, "ownerId": ownerID}, update, opts).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errPlaylistNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Service) owned(ctx context.Context, id, ownerID string) (*models.Playlist, error) {
	p, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.OwnerID != ownerID {
		return nil, errNotOwner
	}
	return p, nil
}

func (s *Service) find(ctx context.Context, id string) (*models.Playlist, error) {
	var p models.Playlist
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errPlaylistNotFound
		}
		return nil, err
	}
	return &p, nil
}

func canView(p *models.Playlist, viewerID string) bool {
	return p.IsPublic || (viewerID != "" && p.OwnerID == viewerID)
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/playlists", authMW)
	g.GET("", h.mine)
	g.GET("/public", h.public)
	g.GET("/:id", h.get)
	g.POST("", h.create)
	g.PATCH("/:id", h.update)
	g.DELETE("/:id", h.delete)
	g.POST("/:id/songs", h.addSong)
	g.DELETE("/:id/songs/:songId", h.removeSong)
}

func (h *Handler) mine(c *gin.Context) {
	items, pag, err := h.svc.ListByOwner(c.Request.Context(), middleware.CurrentUserID(c), pagination.FromContext(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, items, pag)
}

func (h *Handler) public(c *gin.Context) {
	items, pag, err := h.svc.ListPublic(c.Request.Context(), pagination.FromContext(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, items, pag)
}

func (h *Handler) get(c *gin.Context) {
	ctx := c.Request.Context()
	p, err := h.svc.Get(ctx, c.Param("id"), middleware.CurrentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	songs, err := h.svc.Songs(ctx, p)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, playlistResponse{Playlist: *p, Songs: songs})
}

func (h *Handler) create(c *gin.Context) {
	var dto CreatePlaylistDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	p, err := h.svc.Create(c.Request.Context(), middleware.CurrentUserID(c), &dto)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Created(c, p)
}

func (h *Handler) update(c *gin.Context) {
	var dto UpdatePlaylistDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	p, err := h.svc.Update(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c), &dto)
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, p)
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c)); err != nil {
		writeError(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) addSong(c *gin.Context) {
	var dto AddSongDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	p, err := h.svc.AddSong(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c), dto.SongID)
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, p)
}

func (h *Handler) removeSong(c *gin.Context) {
	p, err := h.svc.RemoveSong(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c), c.Param("songId"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, p)
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errPlaylistNotFound):
		response.NotFound(c)
	case errors.Is(err, errSongNotFound):
		response.NotFoundMsg(c, err.Error())
	case errors.Is(err, errNotOwner):
		response.ForbiddenMsg(c, "only the owner can change this playlist")
	default:
		response.InternalError(c, err)
	}
}

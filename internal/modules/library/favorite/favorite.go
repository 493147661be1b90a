package favorite

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/soundscape/server/internal/middleware"
	"github.com/soundscape/server/internal/models"
	"github.com/soundscape/server/internal/pkg/pagination"
	"github.com/soundscape/server/internal/pkg/response"
)

var (
	errSongNotFound     = errors.New("song not found")
	errFavoriteNotFound = errors.New("favorite not found")
)

type favoriteResponse struct {
	models.Favorite
	Song *models.Song `json:"song,omitempty"`
}

// Songs resolves the tracks favorites point at.
type Songs interface {
	GetByID(ctx context.Context, id string) (*models.Song, error)
	GetMany(ctx context.Context, ids []string) ([]models.Song, error)
}

type Service struct {
	store Store
	songs Songs
	now   func() time.Time
}

func NewService(store Store, songs Songs) *Service {
	return &Service{store: store, songs: songs, now: time.Now}
}

// List pages through the user's favorites, newest first, with songs attached.
func (s *Service) List(ctx context.Context, userID string, q pagination.Query) ([]favoriteResponse, response.Pagination, error) {
	favs, pag, err := s.store.Page(ctx, userID, q)
	if err != nil {
		return nil, pag, err
	}

	ids := make([]string, 0, len(favs))
	for _, f := range favs {
		ids = append(ids, f.SongID)
	}
	songs, err := s.songs.GetMany(ctx, ids)
	if err != nil {
		return nil, pag, err
	}
	byID := make(map[string]*models.Song, len(songs))
	for i := range songs {
		byID[songs[i].ID] = &songs[i]
	}

	out := make([]favoriteResponse, 0, len(favs))
	for _, f := range favs {
		out = append(out, favoriteResponse{Favorite: f, Song: byID[f.SongID]})
	}
	return out, pag, nil
}

// Add is idempotent: favoriting twice returns the existing record.
func (s *Service) Add(ctx context.Context, userID, songID string) (*models.Favorite, bool, error) {
	track, err := s.songs.GetByID(ctx, songID)
	if err != nil {
		return nil, false, err
	}
	if track == nil {
		return nil, false, errSongNotFound
	}
	return s.store.Upsert(ctx, userID, songID, s.now())
}

func (s *Service) Remove(ctx context.Context, userID, songID string) error {
	ok, err := s.store.Delete(ctx, userID, songID)
	if err != nil {
		return err
	}
	if !ok {
		return errFavoriteNotFound
	}
	return nil
}

func (s *Service) IsFavorite(ctx context.Context, userID, songID string) (bool, error) {
	return s.store.Exists(ctx, userID, songID)
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/favorites", authMW)
	g.GET("", h.list)
	g.GET("/:songId", h.status)
	g.POST("/:songId", h.add)
	g.DELETE("/:songId", h.remove)
}

func (h *Handler) list(c *gin.Context) {
	items, pag, err := h.svc.List(c.Request.Context(), middleware.CurrentUserID(c), pagination.FromContext(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, items, pag)
}

func (h *Handler) status(c *gin.Context) {
	ok, err := h.svc.IsFavorite(c.Request.Context(), middleware.CurrentUserID(c), c.Param("songId"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"isFavorite": ok})
}

func (h *Handler) add(c *gin.Context) {
	fav, created, err := h.svc.Add(c.Request.Context(), middleware.CurrentUserID(c), c.Param("songId"))
	if err != nil {
		if errors.Is(err, errSongNotFound) {
			response.NotFoundMsg(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	if created {
		response.Created(c, fav)
		return
	}
	response.OK(c, fav)
}

func (h *Handler) remove(c *gin.Context) {
	if err := h.svc.Remove(c.Request.Context(), middleware.CurrentUserID(c), c.Param("songId")); err != nil {
		if errors.Is(err, errFavoriteNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}

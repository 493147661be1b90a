package album

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/soundscape/server/internal/database"
	"github.com/soundscape/server/internal/models"
	"github.com/soundscape/server/internal/modules/catalog/song"
	"github.com/soundscape/server/internal/pkg/media"
	"github.com/soundscape/server/internal/pkg/pagination"
	"github.com/soundscape/server/internal/pkg/response"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

var errAlbumNotFound = errors.New("album not found")

type albumResponse struct {
	models.Album
	Songs []models.Song `json:"songs"`
}

type Service struct {
	albums *mongo.Collection
	songs  *mongo.Collection
}

func NewService(db *mongo.Database) *Service {
	return &Service{albums: db.Collection(database.Albums), songs: db.Collection(database.Songs)}
}

func (s *Service) List(ctx context.Context, q pagination.Query) ([]models.Album, response.Pagination, error) {
	var items []models.Album
	pag, err := pagination.Paginate(ctx, s.albums, bson.M{}, bson.D{{Key: "createdAt", Value: -1}}, q, &items)
	return items, pag, err
}

func (s *Service) GetByID(ctx context.Context, id string) (*models.Album, error) {
	var a models.Album
	if err := s.albums.FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func (s *Service) Create(ctx context.Context, a *models.Album) error {
	a.Touch(time.Now())
	if a.SongIDs == nil {
		a.SongIDs = []string{}
	}
	_, err := s.albums.InsertOne(ctx, a)
	return err
}

// Delete removes the album; its songs stay in the catalog as singles.
func (s *Service) Delete(ctx context.Context, id string) error {
	res, err := s.albums.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return errAlbumNotFound
	}
	_, err = s.songs.UpdateMany(ctx, bson.M{"albumId": id}, bson.M{"$set": bson.M{"albumId": nil}})
	return err
}

type Handler struct {
	svc      *Service
	songs    *song.Service
	uploader media.Uploader
}

func NewHandler(svc *Service, songs *song.Service, uploader media.Uploader) *Handler {
	return &Handler{svc: svc, songs: songs, uploader: uploader}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW, adminMW gin.HandlerFunc) {
	g := rg.Group("/albums")
	g.GET("", h.list)
	g.GET("/:id", h.get)

	a := g.Group("", authMW, adminMW)
	a.POST("", h.create)
	a.DELETE("/:id", h.delete)
}

func (h *Handler) list(c *gin.Context) {
	items, pag, err := h.svc.List(c.Request.Context(), pagination.FromContext(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, items, pag)
}

// GET /albums/:id returns the album with its tracks.
func (h *Handler) get(c *gin.Context) {
	ctx := c.Request.Context()
	a, err := h.svc.GetByID(ctx, c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if a == nil {
		response.NotFound(c)
		return
	}
	songs, err := h.songs.ByAlbum(ctx, a.ID)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, albumResponse{Album: *a, Songs: songs})
}

// POST /albums (multipart: title, artist, releaseYear, imageFile)
func (h *Handler) create(c *gin.Context) {
	a := &models.Album{
		Title:  strings.TrimSpace(c.PostForm("title")),
		Artist: strings.TrimSpace(c.PostForm("artist")),
	}
	if a.Title == "" || a.Artist == "" {
		response.BadRequest(c, "title and artist are required")
		return
	}
	if raw := strings.TrimSpace(c.PostForm("releaseYear")); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil || year < 1900 || year > time.Now().Year()+1 {
			response.BadRequest(c, "invalid releaseYear")
			return
		}
		a.ReleaseYear = year
	}

	image, err := c.FormFile("imageFile")
	if err != nil {
		response.BadRequest(c, "imageFile is required")
		return
	}
	if a.ImageURL, err = media.UploadFormFile(c.Request.Context(), h.uploader, "albums", image, "image/"); err != nil {
		if errors.Is(err, media.ErrNotConfigured) {
			response.UnprocessableEntity(c, err.Error())
			return
		}
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.svc.Create(c.Request.Context(), a); err != nil {
		response.InternalError(c, err)
		return
	}
	response.Created(c, a)
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, errAlbumNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}

package song

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/soundscape/server/internal/models"
	"github.com/soundscape/server/internal/pkg/media"
	"github.com/soundscape/server/internal/pkg/pagination"
	"github.com/soundscape/server/internal/pkg/response"
)

type Handler struct {
	svc      *Service
	uploader media.Uploader
}

func NewHandler(svc *Service, uploader media.Uploader) *Handler {
	return &Handler{svc: svc, uploader: uploader}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW, adminMW gin.HandlerFunc) {
	g := rg.Group("/songs")
	g.GET("", h.list)
	g.GET("/featured", h.featured)
	g.GET("/trending", h.trending)
	g.GET("/:id", h.get)

	a := g.Group("", authMW, adminMW)
	a.POST("", h.create)
	a.DELETE("/:id", h.delete)
}

// GET /songs?genre=&artist=&q=
func (h *Handler) list(c *gin.Context) {
	f := ListFilter{Genre: c.Query("genre"), Artist: c.Query("artist"), Search: c.Query("q")}
	items, pag, err := h.svc.List(c.Request.Context(), f, pagination.FromContext(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, items, pag)
}

func (h *Handler) featured(c *gin.Context) {
	items, err := h.svc.Featured(c.Request.Context())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, items)
}

func (h *Handler) trending(c *gin.Context) {
	items, err := h.svc.Trending(c.Request.Context())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, items)
}

func (h *Handler) get(c *gin.Context) {
	song, err := h.svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if song == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, song)
}

// POST /songs (multipart: title, artist, artistId, albumId, genre, duration, audioFile, imageFile)
func (h *Handler) create(c *gin.Context) {
	song, err := songFromForm(c)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	audio, err := c.FormFile("audioFile")
	if err != nil {
		response.BadRequest(c, "audioFile is required")
		return
	}
	image, err := c.FormFile("imageFile")
	if err != nil {
		response.BadRequest(c, "imageFile is required")
		return
	}

	ctx := c.Request.Context()
	if song.AudioURL, err = media.UploadFormFile(ctx, h.uploader, "songs", audio, "audio/"); err != nil {
		uploadFailed(c, err)
		return
	}
	if song.ImageURL, err = media.UploadFormFile(ctx, h.uploader, "covers", image, "image/"); err != nil {
		uploadFailed(c, err)
		return
	}

	if err := h.svc.Create(ctx, song); err != nil {
		response.InternalError(c, err)
		return
	}
	response.Created(c, song)
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		if IsNotFound(err) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}

func songFromForm(c *gin.Context) (*models.Song, error) {
	song := &models.Song{
		Title:    strings.TrimSpace(c.PostForm("title")),
		Artist:   strings.TrimSpace(c.PostForm("artist")),
		ArtistID: strings.TrimSpace(c.PostForm("artistId")),
		Genre:    strings.TrimSpace(c.PostForm("genre")),
	}
	if song.Title == "" || song.Artist == "" {
		return nil, errors.New("title and artist are required")
	}
	if albumID := strings.TrimSpace(c.PostForm("albumId")); albumID != "" && albumID != "none" {
		song.AlbumID = &albumID
	}
	if raw := strings.TrimSpace(c.PostForm("duration")); raw != "" {
		d, err := strconv.Atoi(raw)
		if err != nil || d < 0 {
			return nil, errors.New("duration must be a non-negative number of seconds")
		}
		song.Duration = d
	}
	return song, nil
}

func uploadFailed(c *gin.Context, err error) {
	if errors.Is(err, media.ErrNotConfigured) {
		response.UnprocessableEntity(c, err.Error())
		return
	}
	response.BadRequest(c, err.Error())
}

package artist

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/soundscape/server/internal/middleware"
	"github.com/soundscape/server/internal/models"
	"github.com/soundscape/server/internal/pkg/markdown"
	"github.com/soundscape/server/internal/pkg/pagination"
	"github.com/soundscape/server/internal/pkg/response"
	"go.uber.org/zap"
)

// Directory lists verified artists.
type Directory interface {
	Users
	ListVerified(ctx context.Context, q pagination.Query) ([]models.User, response.Pagination, error)
}

// Catalog returns the songs credited to an artist.
type Catalog interface {
	ByArtist(ctx context.Context, artistID string) ([]models.Song, error)
}

// Profile is the public artist page.
type Profile struct {
	Artist  *models.User  `json:"artist"`
	BioHTML string        `json:"bioHtml"`
	Songs   []models.Song `json:"songs"`
}

type Handler struct {
	users        Directory
	songs        Catalog
	verification *VerificationService
	logger       *zap.Logger
}

func NewHandler(users Directory, songs Catalog, verification *VerificationService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{users: users, songs: songs, verification: verification, logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/artists")
	g.GET("", h.list)
	g.POST("/verification", authMW, h.submit)
	g.GET("/verification", authMW, h.latest)
	g.GET("/:id", h.get)
}

func (h *Handler) list(c *gin.Context) {
	items, pag, err := h.users.ListVerified(c.Request.Context(), pagination.FromContext(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, items, pag)
}

func (h *Handler) get(c *gin.Context) {
	ctx := c.Request.Context()
	u, err := h.users.GetByID(ctx, c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if u == nil || !u.IsVerified {
		response.NotFoundMsg(c, "artist not found")
		return
	}
	songs, err := h.songs.ByArtist(ctx, u.ID)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	bio, err := markdown.Render(u.Bio)
	if err != nil {
		h.logger.Warn("artist bio render failed", zap.String("artist", u.ID), zap.Error(err))
	}
	response.OK(c, Profile{Artist: u, BioHTML: bio, Songs: songs})
}

func (h *Handler) submit(c *gin.Context) {
	var dto VerificationDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	req, err := h.verification.Submit(c.Request.Context(), middleware.CurrentUserID(c), dto)
	if err != nil {
		WriteError(c, err)
		return
	}
	response.Created(c, req)
}

func (h *Handler) latest(c *gin.Context) {
	req, err := h.verification.Latest(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if req == nil {
		response.NotFoundMsg(c, "no verification request")
		return
	}
	response.OK(c, req)
}

// WriteError maps verification errors to HTTP responses.
func WriteError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrRequestNotFound):
		response.NotFoundMsg(c, err.Error())
	case errors.Is(err, ErrAlreadyReviewed), errors.Is(err, ErrAlreadyVerified), errors.Is(err, ErrPendingExists):
		response.Conflict(c, err.Error())
	case errors.Is(err, errArtistNameMissing), errors.Is(err, errArtistNameLong),
		errors.Is(err, errBioTooLong), errors.Is(err, errTooManyLinks), errors.Is(err, errInvalidLink):
		response.BadRequest(c, err.Error())
	default:
		response.InternalError(c, err)
	}
}

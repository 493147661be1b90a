package auth

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/soundscape/server/internal/middleware"
	"github.com/soundscape/server/internal/models"
	"github.com/soundscape/server/internal/modules/user"
	"github.com/soundscape/server/internal/pkg/response"
)

type checkResponse struct {
	ID      string `json:"id"`
	IsAdmin bool   `json:"isAdmin"`
}

// Users is the part of the user service the auth routes need.
type Users interface {
	Upsert(ctx context.Context, principalID string, dto *user.UpsertUserDTO) (*models.User, error)
	IsAdmin(ctx context.Context, principalID, email string) (bool, error)
}

type Handler struct {
	users Users
}

func NewHandler(users Users) *Handler {
	return &Handler{users: users}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/auth", authMW)
	g.POST("/callback", h.callback)
	g.GET("/check", h.check)
}

// POST /auth/callback syncs the signed-in principal into the user store.
// Token claims fill in whatever the body leaves out.
func (h *Handler) callback(c *gin.Context) {
	var dto user.UpsertUserDTO
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&dto); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
	}
	if claims := middleware.CurrentClaims(c); claims != nil {
		if dto.FullName == "" {
			dto.FullName = claims.Name
		}
		if dto.ImageURL == "" {
			dto.ImageURL = claims.Picture
		}
		if dto.Email == "" {
			dto.Email = claims.Email
		}
	}

	u, err := h.users.Upsert(c.Request.Context(), middleware.CurrentUserID(c), &dto)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, u)
}

// GET /auth/check
func (h *Handler) check(c *gin.Context) {
	id := middleware.CurrentUserID(c)
	isAdmin, err := h.users.IsAdmin(c.Request.Context(), id, middleware.CurrentEmail(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, checkResponse{ID: id, IsAdmin: isAdmin})
}

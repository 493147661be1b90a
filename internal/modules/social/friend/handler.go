package friend

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/soundscape/server/internal/middleware"
	"github.com/soundscape/server/internal/pkg/response"
)

type SendRequestDTO struct {
	ReceiverID string `json:"receiverId" binding:"required"`
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/friends", authMW)
	g.GET("", h.list)
	g.DELETE("/:userId", h.unfriend)

	r := g.Group("/requests")
	r.GET("", h.pending)
	r.POST("", h.send)
	r.POST("/:id/accept", h.accept)
	r.POST("/:id/reject", h.reject)
	r.DELETE("/:id", h.cancel)
}

func (h *Handler) list(c *gin.Context) {
	items, err := h.svc.Friends(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, items)
}

func (h *Handler) unfriend(c *gin.Context) {
	if err := h.svc.Unfriend(c.Request.Context(), middleware.CurrentUserID(c), c.Param("userId")); err != nil {
		writeError(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) pending(c *gin.Context) {
	view, err := h.svc.Pending(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, view)
}

// POST /friends/requests answers 201 for a new request and 200 when an
// existing request was returned or a reverse request was accepted.
func (h *Handler) send(c *gin.Context) {
	var dto SendRequestDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	res, err := h.svc.SendRequest(c.Request.Context(), middleware.CurrentUserID(c), dto.ReceiverID)
	if err != nil {
		writeError(c, err)
		return
	}
	if res.Created {
		response.Created(c, res)
		return
	}
	response.OK(c, res)
}

func (h *Handler) accept(c *gin.Context) {
	f, err := h.svc.Accept(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, f)
}

func (h *Handler) reject(c *gin.Context) {
	if err := h.svc.Reject(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c)); err != nil {
		writeError(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) cancel(c *gin.Context) {
	if err := h.svc.Cancel(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c)); err != nil {
		writeError(c, err)
		return
	}
	response.NoContent(c)
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errSelfRequest):
		response.BadRequest(c, err.Error())
	case errors.Is(err, errAlreadyFriends):
		response.Conflict(c, err.Error())
	case errors.Is(err, errUserNotFound), errors.Is(err, errRequestNotFound), errors.Is(err, errNotFriends):
		response.NotFoundMsg(c, err.Error())
	default:
		response.InternalError(c, err)
	}
}

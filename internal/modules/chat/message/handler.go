package message

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/soundscape/server/internal/middleware"
	"github.com/soundscape/server/internal/pkg/pagination"
	"github.com/soundscape/server/internal/pkg/response"
)

type SendMessageDTO struct {
	ReceiverID string `json:"receiverId" binding:"required"`
	Content    string `json:"content"`
}

type EditMessageDTO struct {
	Content string `json:"content"`
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/messages", authMW)
	g.GET("/conversations", h.conversations)
	g.GET("/unread", h.unread)
	g.POST("", h.send)

	// GET and POST /read address a peer; PATCH and DELETE address a message.
	// gin needs one wildcard name per segment, so both are read as :id.
	g.GET("/:id", h.thread)
	g.POST("/:id/read", h.markRead)
	g.PATCH("/:id", h.edit)
	g.DELETE("/:id", h.delete)
}

func (h *Handler) conversations(c *gin.Context) {
	items, err := h.svc.Conversations(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, items)
}

func (h *Handler) unread(c *gin.Context) {
	summary, err := h.svc.Unread(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, summary)
}

// GET /messages/:id returns the thread with that user, newest first.
func (h *Handler) thread(c *gin.Context) {
	peerID := c.Param("id")
	items, pag, err := h.svc.Thread(c.Request.Context(), middleware.CurrentUserID(c), peerID, pagination.FromContext(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, items, pag)
}

func (h *Handler) send(c *gin.Context) {
	var dto SendMessageDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	m, err := h.svc.Send(c.Request.Context(), middleware.CurrentUserID(c), dto.ReceiverID, dto.Content)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Created(c, m)
}

func (h *Handler) markRead(c *gin.Context) {
	peerID := c.Param("id")
	n, err := h.svc.MarkRead(c.Request.Context(), middleware.CurrentUserID(c), peerID)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"updated": n})
}

// PATCH /messages/:id
func (h *Handler) edit(c *gin.Context) {
	var dto EditMessageDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	m, err := h.svc.Edit(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c), dto.Content)
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, m)
}

// DELETE /messages/:id
func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c)); err != nil {
		writeError(c, err)
		return
	}
	response.NoContent(c)
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errEmptyContent), errors.Is(err, errContentTooLong), errors.Is(err, errSelfMessage):
		response.BadRequest(c, err.Error())
	case errors.Is(err, errReceiverNotFound), errors.Is(err, errMessageNotFound):
		response.NotFoundMsg(c, err.Error())
	default:
		response.InternalError(c, err)
	}
}

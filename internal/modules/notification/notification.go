package notification

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/soundscape/server/internal/database"
	"github.com/soundscape/server/internal/middleware"
	"github.com/soundscape/server/internal/models"
	"github.com/soundscape/server/internal/pkg/pagination"
	"github.com/soundscape/server/internal/pkg/response"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

var errNotFound = errors.New("notification not found")

// Counter re-pushes a recipient's unread count after a mutation.
type Counter interface {
	PushCount(recipientID string)
}

type Service struct {
	coll    *mongo.Collection
	counter Counter
}

func NewService(db *mongo.Database, counter Counter) *Service {
	return &Service{coll: db.Collection(database.Notifications), counter: counter}
}

func listFilter(recipientID string, unreadOnly bool) bson.M {
	filter := bson.M{"recipientId": recipientID}
	if unreadOnly {
		filter["isRead"] = false
	}
	return filter
}

func (s *Service) List(ctx context.Context, recipientID string, unreadOnly bool, q pagination.Query) ([]models.Notification, response.Pagination, error) {
	items := []models.Notification{}
	pag, err := pagination.Paginate(ctx, s.coll, listFilter(recipientID, unreadOnly),
		bson.D{{Key: "createdAt", Value: -1}}, q, &items)
	return items, pag, err
}

func (s *Service) UnreadCount(ctx context.Context, recipientID string) (int64, error) {
	return s.coll.CountDocuments(ctx, listFilter(recipientID, true))
}

func (s *Service) MarkRead(ctx context.Context, recipientID, id string) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id, "recipientId": recipientID},
		bson.M{"$set": bson.M{"isRead": true}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errNotFound
	}
	s.changed(recipientID)
	return nil
}

func (s *Service) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	res, err := s.coll.UpdateMany(ctx, listFilter(recipientID, true), bson.M{"$set": bson.M{"isRead": true}})
	if err != nil {
		return 0, err
	}
	s.changed(recipientID)
	return res.ModifiedCount, nil
}

func (s *Service) Delete(ctx context.Context, recipientID, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id, "recipientId": recipientID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return errNotFound
	}
	s.changed(recipientID)
	return nil
}

func (s *Service) changed(recipientID string) {
	if s.counter != nil {
		s.counter.PushCount(recipientID)
	}
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/notifications", authMW)
	g.GET("", h.list)
	g.GET("/count", h.count)
	g.POST("/read-all", h.readAll)
	g.PATCH("/:id/read", h.read)
	g.DELETE("/:id", h.delete)
}

func (h *Handler) list(c *gin.Context) {
	unread := c.Query("unread") == "true" || c.Query("unread") == "1"
	items, pag, err := h.svc.List(c.Request.Context(), middleware.CurrentUserID(c), unread, pagination.FromContext(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, items, pag)
}

func (h *Handler) count(c *gin.Context) {
	n, err := h.svc.UnreadCount(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"count": n})
}

func (h *Handler) read(c *gin.Context) {
	if err := h.svc.MarkRead(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) readAll(c *gin.Context) {
	n, err := h.svc.MarkAllRead(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"updated": n})
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	response.NoContent(c)
}

func writeError(c *gin.Context, err error) {
	if errors.Is(err, errNotFound) {
		response.NotFoundMsg(c, err.Error())
		return
	}
	response.InternalError(c, err)
}

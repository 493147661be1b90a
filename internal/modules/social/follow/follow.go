package follow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/soundscape/server/internal/database"
	"github.com/soundscape/server/internal/middleware"
	"github.com/soundscape/server/internal/models"
	"github.com/soundscape/server/internal/modules/user"
	"github.com/soundscape/server/internal/pkg/pagination"
	"github.com/soundscape/server/internal/pkg/response"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Notifier persists and pushes a notification.
type Notifier interface {
	Notify(ctx context.Context, n *models.Notification) error
}

var (
	errSelfFollow       = errors.New("you cannot follow yourself")
	errAlreadyFollowing = errors.New("already following")
	errNotFollowing     = errors.New("not following")
	errUserNotFound     = errors.New("user not found")
)

type statusResponse struct {
	IsFollowing  bool `json:"isFollowing"`
	IsFollowedBy bool `json:"isFollowedBy"`
}

type Service struct {
	follows  *mongo.Collection
	users    *mongo.Collection
	userSvc  *user.Service
	notifier Notifier
	logger   *zap.Logger
}

func NewService(db *mongo.Database, userSvc *user.Service, notifier Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		follows:  db.Collection(database.Follows),
		users:    db.Collection(database.Users),
		userSvc:  userSvc,
		notifier: notifier,
		logger:   logger,
	}
}

func (s *Service) Follow(ctx context.Context, followerID, followingID string) (*models.Follow, error) {
	if followerID == followingID {
		return nil, errSelfFollow
	}
	target, err := s.userSvc.GetByID(ctx, followingID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, errUserNotFound
	}

	f := &models.Follow{ID: models.NewID(), FollowerID: followerID, FollowingID: followingID, CreatedAt: time.Now()}
	if _, err := s.follows.InsertOne(ctx, f); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, errAlreadyFollowing
		}
		return nil, fmt.Errorf("insert follow: %w", err)
	}
	s.bumpCounts(ctx, followerID, followingID, 1)

	if s.notifier != nil {
		follower, _ := s.userSvc.GetByID(ctx, followerID)
		name := "Someone"
		if follower != nil && follower.DisplayName() != "" {
			name = follower.DisplayName()
		}
		err := s.notifier.Notify(ctx, &models.Notification{
			RecipientID: followingID,
			SenderID:    followerID,
			Type:        models.NotificationFollow,
			Title:       "New follower",
			Message:     name + " started following you",
			Data:        map[string]any{"userId": followerID},
		})
		if err != nil {
			s.logger.Warn("follow notification failed", zap.Error(err))
		}
	}
	return f, nil
}

func (s *Service) Unfollow(ctx context.Context, followerID, followingID string) error {
	res, err := s.follows.DeleteOne(ctx, bson.M{"followerId": followerID, "followingId": followingID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return errNotFollowing
	}
	s.bumpCounts(ctx, followerID, followingID, -1)
	return nil
}

func (s *Service) bumpCounts(ctx context.Context, followerID, followingID string, by int) {
	if _, err := s.users.UpdateByID(ctx, followerID, bson.M{"$inc": bson.M{"followingCount": by}}); err != nil {
		s.logger.Warn("update followingCount failed", zap.String("user", followerID), zap.Error(err))
	}
	if _, err := s.users.UpdateByID(ctx, followingID, bson.M{"$inc": bson.M{"followersCount": by}}); err != nil {
		s.logger.Warn("update followersCount failed", zap.String("user", followingID), zap.Error(err))
	}
}

// Followers pages through the users following userID.
func (s *Service) Followers(ctx context.Context, userID string, q pagination.Query) ([]models.User, response.Pagination, error) {
	return s.page(ctx, bson.M{"followingId": userID}, func(f models.Follow) string { return f.FollowerID }, q)
}

// Following pages through the users userID follows.
func (s *Service) Following(ctx context.Context, userID string, q pagination.Query) ([]models.User, response.Pagination, error) {
	return s.page(ctx, bson.M{"followerId": userID}, func(f models.Follow) string { return f.FollowingID }, q)
}

func (s *Service) page(ctx context.Context, filter bson.M, pick func(models.Follow) string, q pagination.Query) ([]models.User, response.Pagination, error) {
	var rows []models.Follow
	pag, err := pagination.Paginate(ctx, s.follows, filter, bson.D{{Key: "createdAt", Value: -1}}, q, &rows)
	if err != nil {
		return nil, pag, err
	}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, pick(r))
	}
	byID, err := s.userSvc.GetMany(ctx, ids)
	if err != nil {
		return nil, pag, err
	}
	out := make([]models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			out = append(out, u)
		}
	}
	return out, pag, nil
}

func (s *Service) Status(ctx context.Context, viewerID, userID string) (statusResponse, error) {
	following, err := s.exists(ctx, viewerID, userID)
	if err != nil {
		return statusResponse{}, err
	}
	followedBy, err := s.exists(ctx, userID, viewerID)
	if err != nil {
		return statusResponse{}, err
	}
	return statusResponse{IsFollowing: following, IsFollowedBy: followedBy}, nil
}

func (s *Service) exists(ctx context.Context, followerID, followingID string) (bool, error) {
	n, err := s.follows.CountDocuments(ctx, bson.M{"followerId": followerID, "followingId": followingID}, options.Count().SetLimit(1))
	return n > 0, err
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/follows", authMW)
	g.POST("/:userId", h.follow)
	g.DELETE("/:userId", h.unfollow)
	g.GET("/:userId/followers", h.followers)
	g.GET("/:userId/following", h.following)
	g.GET("/:userId/status", h.status)
}

func (h *Handler) follow(c *gin.Context) {
	f, err := h.svc.Follow(c.Request.Context(), middleware.CurrentUserID(c), c.Param("userId"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Created(c, f)
}

func (h *Handler) unfollow(c *gin.Context) {
	if err := h.svc.Unfollow(c.Request.Context(), middleware.CurrentUserID(c), c.Param("userId")); err != nil {
		writeError(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) followers(c *gin.Context) {
	items, pag, err := h.svc.Followers(c.Request.Context(), c.Param("userId"), pagination.FromContext(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, items, pag)
}

func (h *Handler) following(c *gin.Context) {
	items, pag, err := h.svc.Following(c.Request.Context(), c.Param("userId"), pagination.FromContext(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, items, pag)
}

func (h *Handler) status(c *gin.Context) {
	st, err := h.svc.Status(c.Request.Context(), middleware.CurrentUserID(c), c.Param("userId"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, st)
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errSelfFollow):
		response.BadRequest(c, err.Error())
	case errors.Is(err, errAlreadyFollowing):
		response.Conflict(c, err.Error())
	case errors.Is(err, errNotFollowing), errors.Is(err, errUserNotFound):
		response.NotFoundMsg(c, err.Error())
	default:
		response.InternalError(c, err)
	}
}

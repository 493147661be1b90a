package user

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/soundscape/server/internal/database"
	"github.com/soundscape/server/internal/middleware"
	"github.com/soundscape/server/internal/models"
	"github.com/soundscape/server/internal/pkg/pagination"
	"github.com/soundscape/server/internal/pkg/response"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// UpsertUserDTO is what the identity provider callback sends after sign-in.
type UpsertUserDTO struct {
	FullName string `json:"fullName"`
	ImageURL string `json:"imageUrl"`
	Email    string `json:"email"`
}

type UpdateUserDTO struct {
	FullName *string `json:"fullName"`
	ImageURL *string `json:"imageUrl"`
	Bio      *string `json:"bio"`
}

// Presence is the slice of the realtime registry the user module needs.
type Presence interface {
	Remove(principalID string) bool
	OnlineSet() []string
	Activities() [][2]string
}

var errUserNotFound = errors.New("user not found")

type Service struct {
	db     *mongo.Database
	users  *mongo.Collection
	admins map[string]struct{}
	logger *zap.Logger
}

func NewService(db *mongo.Database, adminEmails []string, logger *zap.Logger) *Service {
	admins := make(map[string]struct{}, len(adminEmails))
	for _, email := range adminEmails {
		admins[strings.ToLower(strings.TrimSpace(email))] = struct{}{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, users: db.Collection(database.Users), admins: admins, logger: logger}
}

// Upsert creates the principal's record on first sign-in and refreshes the
// profile fields afterwards.
func (s *Service) Upsert(ctx context.Context, principalID string, dto *UpsertUserDTO) (*models.User, error) {
	now := time.Now()
	set := bson.M{"updatedAt": now, "lastSeenAt": now}
	if v := strings.TrimSpace(dto.FullName); v != "" {
		set["fullName"] = v
	}
	if v := strings.TrimSpace(dto.ImageURL); v != "" {
		set["imageUrl"] = v
	}
	if v := strings.ToLower(strings.TrimSpace(dto.Email)); v != "" {
		set["email"] = v
	}
	update := bson.M{
		"$set": set,
		"$setOnInsert": bson.M{
			"createdAt":      now,
			"bio":            "",
			"isAdmin":        false,
			"isVerified":     false,
			"followersCount": 0,
			"followingCount": 0,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var u models.User
	if err := s.users.FindOneAndUpdate(ctx, bson.M{"_id": principalID}, update, opts).Decode(&u); err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return &u, nil
}

// GetByID returns nil, nil when the user does not exist.
func (s *Service) GetByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.users.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// GetMany returns users keyed by id; missing ids are skipped.
func (s *Service) GetMany(ctx context.Context, ids []string) (map[string]models.User, error) {
	out := make(map[string]models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	var items []models.User
	if err := cur.All(ctx, &items); err != nil {
		return nil, err
	}
	for _, u := range items {
		out[u.ID] = u
	}
	return out, nil
}

// ListOthers pages through every user except excludeID, optionally filtered by name.
func (s *Service) ListOthers(ctx context.Context, excludeID, search string, q pagination.Query) ([]models.User, response.Pagination, error) {
	filter := bson.M{"_id": bson.M{"$ne": excludeID}}
	if search = strings.TrimSpace(search); search != "" {
		pattern := primitiveRegex(search)
		filter["$or"] = bson.A{
			bson.M{"fullName": pattern},
			bson.M{"artistName": pattern},
		}
	}
	var items []models.User
	pag, err := pagination.Paginate(ctx, s.users, filter, bson.D{{Key: "fullName", Value: 1}}, q, &items)
	return items, pag, err
}

func (s *Service) Update(ctx context.Context, id string, dto *UpdateUserDTO) (*models.User, error) {
	set := bson.M{"updatedAt": time.Now()}
	if dto.FullName != nil {
		set["fullName"] = strings.TrimSpace(*dto.FullName)
	}
	if dto.ImageURL != nil {
		set["imageUrl"] = strings.TrimSpace(*dto.ImageURL)
	}
	if dto.Bio != nil {
		set["bio"] = *dto.Bio
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var u models.User
	if err := s.users.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// ListVerified pages through verified artists by name.
func (s *Service) ListVerified(ctx context.Context, q pagination.Query) ([]models.User, response.Pagination, error) {
	items := []models.User{}
	pag, err := pagination.Paginate(ctx, s.users, bson.M{"isVerified": true}, bson.D{{Key: "artistName", Value: 1}}, q, &items)
	return items, pag, err
}

// SetVerified flips the verified badge. Approval also copies the artist name,
// and the bio when one was supplied.
func (s *Service) SetVerified(ctx context.Context, id string, verified bool, artistName, bio string) error {
	set := bson.M{"isVerified": verified, "updatedAt": time.Now()}
	if verified {
		if v := strings.TrimSpace(artistName); v != "" {
			set["artistName"] = v
		}
		if v := strings.TrimSpace(bio); v != "" {
			set["bio"] = v
		}
	}
	res, err := s.users.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errUserNotFound
	}
	return nil
}

// Delete removes the user record and the data that only makes sense while it exists.
func (s *Service) Delete(ctx context.Context, id string) error {
	res, err := s.users.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return errUserNotFound
	}

	cleanup := map[string]bson.M{
		database.Favorites:            {"userId": id},
		database.ListeningHistory:     {"userId": id},
		database.Playlists:            {"ownerId": id},
		database.Follows:              {"$or": bson.A{bson.M{"followerId": id}, bson.M{"followingId": id}}},
		database.Friendships:          {"$or": bson.A{bson.M{"userA": id}, bson.M{"userB": id}}},
		database.FriendRequests:       {"$or": bson.A{bson.M{"senderId": id}, bson.M{"receiverId": id}}},
		database.Notifications:        {"recipientId": id},
		database.VerificationRequests: {"userId": id},
	}
	for coll, filter := range cleanup {
		if _, err := s.db.Collection(coll).DeleteMany(ctx, filter); err != nil {
			s.logger.Warn("user cleanup failed", zap.String("collection", coll), zap.String("user", id), zap.Error(err))
		}
	}
	return nil
}

// IsAdmin grants admin to flagged records and to allow-listed emails.
func (s *Service) IsAdmin(ctx context.Context, principalID, email string) (bool, error) {
	if s.isAdminEmail(email) {
		return true, nil
	}
	u, err := s.GetByID(ctx, principalID)
	if err != nil || u == nil {
		return false, err
	}
	return u.IsAdmin || s.isAdminEmail(u.Email), nil
}

func (s *Service) isAdminEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false
	}
	_, ok := s.admins[email]
	return ok
}

func primitiveRegex(search string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(search), "$options": "i"}
}

type onlineResponse struct {
	Online     []string    `json:"online"`
	Activities [][2]string `json:"activities"`
}

type Handler struct {
	svc      *Service
	presence Presence
}

func NewHandler(svc *Service, presence Presence) *Handler {
	return &Handler{svc: svc, presence: presence}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/users", authMW)
	g.GET("", h.list)
	g.GET("/me", h.me)
	g.PATCH("/me", h.update)
	g.DELETE("/me", h.delete)
	g.GET("/online", h.online)
	g.GET("/:id", h.get)
}

// GET /users
func (h *Handler) list(c *gin.Context) {
	items, pag, err := h.svc.ListOthers(c.Request.Context(), middleware.CurrentUserID(c), c.Query("q"), pagination.FromContext(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, items, pag)
}

func (h *Handler) me(c *gin.Context) {
	u, err := h.svc.GetByID(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if u == nil {
		response.NotFoundMsg(c, "profile not synced yet")
		return
	}
	response.OK(c, u)
}

func (h *Handler) update(c *gin.Context) {
	var dto UpdateUserDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	u, err := h.svc.Update(c.Request.Context(), middleware.CurrentUserID(c), &dto)
	if err != nil {
		if errors.Is(err, errUserNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, u)
}

// DELETE /users/me also drops the principal from presence.
func (h *Handler) delete(c *gin.Context) {
	id := middleware.CurrentUserID(c)
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, errUserNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	if h.presence != nil {
		h.presence.Remove(id)
	}
	response.NoContent(c)
}

// GET /users/online
func (h *Handler) online(c *gin.Context) {
	if h.presence == nil {
		response.OK(c, onlineResponse{Online: []string{}, Activities: [][2]string{}})
		return
	}
	response.OK(c, onlineResponse{Online: h.presence.OnlineSet(), Activities: h.presence.Activities()})
}

func (h *Handler) get(c *gin.Context) {
	u, err := h.svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if u == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, u)
}

package genre

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/soundscape/server/internal/database"
	"github.com/soundscape/server/internal/models"
	"github.com/soundscape/server/internal/pkg/response"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type Service struct {
	songs *mongo.Collection
}

func NewService(db *mongo.Database) *Service {
	return &Service{songs: db.Collection(database.Songs)}
}

// List returns each distinct genre with the number of songs tagged with it.
func (s *Service) List(ctx context.Context) ([]models.GenreCount, error) {
	cur, err := s.songs.Aggregate(ctx, pipeline())
	if err != nil {
		return nil, err
	}
	items := []models.GenreCount{}
	if err := cur.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func pipeline() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"genre": bson.M{"$nin": bson.A{"", nil}}}}},
		{{Key: "$group", Value: bson.M{"_id": "$genre", "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
	}
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/genres", h.list)
}

func (h *Handler) list(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, items)
}

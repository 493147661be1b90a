package admin

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/soundscape/server/internal/database"
	"github.com/soundscape/server/internal/middleware"
	"github.com/soundscape/server/internal/models"
	"github.com/soundscape/server/internal/modules/artist"
	"github.com/soundscape/server/internal/modules/gateway/gateway"
	pkgcron "github.com/soundscape/server/internal/pkg/cron"
	"github.com/soundscape/server/internal/pkg/pagination"
	"github.com/soundscape/server/internal/pkg/response"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Realtime reports live connection numbers.
type Realtime interface {
	Stats(ctx context.Context) gateway.Stats
}

// Jobs exposes the background scheduler.
type Jobs interface {
	List() []pkgcron.ListItem
	Run(ctx context.Context, name string) error
}

type Stats struct {
	Users                int64         `json:"users"`
	Artists              int64         `json:"artists"`
	Songs                int64         `json:"songs"`
	Albums               int64         `json:"albums"`
	Playlists            int64         `json:"playlists"`
	Messages             int64         `json:"messages"`
	PendingVerifications int64         `json:"pendingVerifications"`
	Online               int           `json:"online"`
	Realtime             gateway.Stats `json:"realtime"`
}

type counter struct {
	coll   string
	filter bson.M
	dst    *int64
}

type Service struct {
	db       *mongo.Database
	realtime Realtime
}

func NewService(db *mongo.Database, realtime Realtime) *Service {
	return &Service{db: db, realtime: realtime}
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	out := &Stats{}
	counters := []counter{
		{database.Users, bson.M{}, &out.Users},
		{database.Users, bson.M{"isVerified": true}, &out.Artists},
		{database.Songs, bson.M{}, &out.Songs},
		{database.Albums, bson.M{}, &out.Albums},
		{database.Playlists, bson.M{}, &out.Playlists},
		{database.Messages, bson.M{}, &out.Messages},
		{database.VerificationRequests, bson.M{"status": models.VerificationPending}, &out.PendingVerifications},
	}
	for _, c := range counters {
		n, err := s.db.Collection(c.coll).CountDocuments(ctx, c.filter)
		if err != nil {
			return nil, err
		}
		*c.dst = n
	}
	if s.realtime != nil {
		out.Realtime = s.realtime.Stats(ctx)
		out.Online = out.Realtime.Online
	}
	return out, nil
}

type Handler struct {
	svc          *Service
	verification *artist.VerificationService
	jobs         Jobs
}

func NewHandler(svc *Service, verification *artist.VerificationService, jobs Jobs) *Handler {
	return &Handler{svc: svc, verification: verification, jobs: jobs}
}

// RegisterRoutes mounts the admin surface behind both gates.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW, adminMW gin.HandlerFunc) {
	g := rg.Group("/admin", authMW, adminMW)
	g.GET("/check", h.check)
	g.GET("/stats", h.stats)
	g.GET("/verifications", h.verifications)
	g.POST("/verifications/:id/approve", h.review(true))
	g.POST("/verifications/:id/reject", h.review(false))
	g.GET("/jobs", h.listJobs)
	g.POST("/jobs/:name/run", h.runJob)
}

func (h *Handler) check(c *gin.Context) {
	response.OK(c, gin.H{"admin": true})
}

func (h *Handler) stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, stats)
}

func (h *Handler) verifications(c *gin.Context) {
	items, pag, err := h.verification.List(c.Request.Context(), c.Query("status"), pagination.FromContext(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, items, pag)
}

func (h *Handler) review(approve bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var dto artist.ReviewDTO
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&dto); err != nil {
				response.BadRequest(c, err.Error())
				return
			}
		}
		req, err := h.verification.Review(c.Request.Context(), c.Param("id"), middleware.CurrentUserID(c), approve, dto.Note)
		if err != nil {
			artist.WriteError(c, err)
			return
		}
		response.OK(c, req)
	}
}

func (h *Handler) listJobs(c *gin.Context) {
	if h.jobs == nil {
		response.OK(c, []pkgcron.ListItem{})
		return
	}
	response.OK(c, h.jobs.List())
}

// POST /admin/jobs/:name/run runs a job synchronously.
func (h *Handler) runJob(c *gin.Context) {
	if h.jobs == nil {
		response.NotFound(c)
		return
	}
	if err := h.jobs.Run(c.Request.Context(), c.Param("name")); err != nil {
		response.NotFoundMsg(c, err.Error())
		return
	}
	response.OK(c, h.jobs.List())
}

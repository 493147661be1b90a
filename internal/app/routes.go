package app

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/soundscape/server/internal/middleware"
	"github.com/soundscape/server/internal/modules/admin"
	"github.com/soundscape/server/internal/modules/artist"
	"github.com/soundscape/server/internal/modules/auth"
	"github.com/soundscape/server/internal/modules/catalog/album"
	"github.com/soundscape/server/internal/modules/catalog/genre"
	"github.com/soundscape/server/internal/modules/catalog/song"
	"github.com/soundscape/server/internal/modules/chat/message"
	"github.com/soundscape/server/internal/modules/gateway/gateway"
	"github.com/soundscape/server/internal/modules/library/favorite"
	"github.com/soundscape/server/internal/modules/library/history"
	"github.com/soundscape/server/internal/modules/library/playlist"
	"github.com/soundscape/server/internal/modules/notification"
	"github.com/soundscape/server/internal/modules/social/follow"
	"github.com/soundscape/server/internal/modules/social/friend"
	"github.com/soundscape/server/internal/modules/system/health"
	"github.com/soundscape/server/internal/modules/user"
	"github.com/soundscape/server/internal/pkg/response"
)

const apiPrefix = "/api"

func (a *App) registerRoutes() {
	r := a.router
	authMW := middleware.Auth(a.verifier)
	adminMW := middleware.Admin(a.users.IsAdmin)
	registry := a.hub.Registry()

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	// socket.io lives beside the API so its own CORS handling applies.
	gateway.RegisterRoutes(r.Group(""), a.hub)

	api := r.Group(apiPrefix)
	api.Use(middleware.OptionalAuth(a.verifier))
	api.Use(middleware.RateLimit(a.rc.Raw(), a.cfg.RateLimit.Max, a.cfg.RateLimit.Window, a.logger.Named("RateLimit")))

	api.GET("", a.info)
	api.GET("/ping", func(c *gin.Context) {
		response.OK(c, gin.H{"pong": true, "uptime": humanizeDuration(time.Since(a.started))})
	})
	gateway.RegisterAPIRoutes(api, a.hub)
	health.RegisterRoutes(api, map[string]health.Check{
		"database": func(ctx context.Context) error { return a.client.Ping(ctx, nil) },
		"redis":    func(ctx context.Context) error { return a.rc.Raw().Ping(ctx).Err() },
	})

	songs := song.NewService(a.db, a.rc, a.logger.Named("SongService"))
	verification := artist.NewVerificationService(a.db, a.users, a.notifier, a.logger.Named("Verification"))

	auth.NewHandler(a.users).RegisterRoutes(api, authMW)
	user.NewHandler(a.users, registry).RegisterRoutes(api, authMW)

	song.NewHandler(songs, a.uploader).RegisterRoutes(api, authMW, adminMW)
	album.NewHandler(album.NewService(a.db), songs, a.uploader).RegisterRoutes(api, authMW, adminMW)
	genre.NewHandler(genre.NewService(a.db)).RegisterRoutes(api)

	playlist.NewHandler(playlist.NewService(a.db, songs)).RegisterRoutes(api, authMW)
	favorite.NewHandler(favorite.NewService(favorite.NewMongoStore(a.db), songs)).RegisterRoutes(api, authMW)
	history.NewHandler(history.NewService(a.db, songs)).RegisterRoutes(api, authMW)

	follow.NewHandler(follow.NewService(a.db, a.users, a.notifier, a.logger.Named("FollowService"))).RegisterRoutes(api, authMW)
	friendSvc := friend.NewService(friend.NewMongoStore(a.db), a.users, a.notifier, registry, a.logger.Named("FriendService"))
	friend.NewHandler(friendSvc).RegisterRoutes(api, authMW)

	message.NewHandler(message.NewService(message.NewMongoStore(a.db), a.users, a.notifier)).RegisterRoutes(api, authMW)
	notification.NewHandler(notification.NewService(a.db, a.notifier)).RegisterRoutes(api, authMW)

	artist.NewHandler(a.users, songs, verification, a.logger.Named("Artist")).RegisterRoutes(api, authMW)
	admin.NewHandler(admin.NewService(a.db, a.hub), verification, a.sched).RegisterRoutes(api, authMW, adminMW)
}

func (a *App) info(c *gin.Context) {
	response.OK(c, gin.H{
		"name":    "soundscape-server",
		"version": "1.0.0",
		"env":     a.cfg.Env,
		"uptime":  humanizeDuration(time.Since(a.started)),
		"online":  a.hub.Registry().Count(),
	})
}

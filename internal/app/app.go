package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/soundscape/server/internal/config"
	"github.com/soundscape/server/internal/database"
	"github.com/soundscape/server/internal/middleware"
	"github.com/soundscape/server/internal/modules/gateway/gateway"
	"github.com/soundscape/server/internal/modules/gateway/notify"
	"github.com/soundscape/server/internal/modules/user"
	pkgcron "github.com/soundscape/server/internal/pkg/cron"
	jwtpkg "github.com/soundscape/server/internal/pkg/jwt"
	"github.com/soundscape/server/internal/pkg/media"
	pkgredis "github.com/soundscape/server/internal/pkg/redis"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const defaultJWTSecret = "soundscape-development-secret"

// App holds all application dependencies.
type App struct {
	cfg      *config.AppConfig
	router   *gin.Engine
	client   *mongo.Client
	db       *mongo.Database
	rc       *pkgredis.Client
	hub      *gateway.Hub
	notifier *notify.Writer
	users    *user.Service
	uploader media.Uploader
	verifier *jwtpkg.Verifier
	logger   *zap.Logger
	cancel   context.CancelFunc
	sched    *pkgcron.Scheduler
	started  time.Time
}

// New initializes the application: config → Mongo → Redis → realtime → routes → cron.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	client, db, err := database.Connect(ctx, cfg)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("database: %w", err)
	}
	if err := database.EnsureIndexes(ctx, db); err != nil {
		logger.Warn("index creation failed", zap.Error(err))
	}

	rc, err := pkgredis.Connect(cfg.RedisURL)
	if err != nil {
		cancel()
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("redis: %w", err)
	}

	uploader, err := media.New(media.Options{
		Endpoint:        cfg.Media.Endpoint,
		Region:          cfg.Media.Region,
		Bucket:          cfg.Media.Bucket,
		AccessKeyID:     cfg.Media.AccessKeyID,
		SecretAccessKey: cfg.Media.SecretAccessKey,
		CustomDomain:    cfg.Media.CustomDomain,
		PathStyle:       cfg.Media.PathStyle,
	})
	if err != nil {
		cancel()
		_ = client.Disconnect(context.Background())
		_ = rc.Close()
		return nil, fmt.Errorf("media: %w", err)
	}
	if cfg.Media.Bucket == "" {
		logger.Warn("media.bucket is empty, uploads are disabled")
	}

	secret := strings.TrimSpace(cfg.JWTSecret)
	if secret == "" {
		logger.Warn("jwt_secret is empty, using built-in development secret")
		secret = defaultJWTSecret
	}

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger, "/socket.io", apiPrefix+"/health"))
	router.Use(cors.New(corsConfig(cfg)))

	users := user.NewService(db, cfg.AdminEmails, logger.Named("UserService"))
	hub := gateway.NewHub(user.NewDirectory(users), cfg.AllowedOrigins, rc, logger.Named("Gateway"))
	go hub.Run(ctx)
	notifier := notify.New(notify.NewMongoStore(db), hub.Registry(), logger.Named("Notify"))

	app := &App{
		cfg:      cfg,
		router:   router,
		client:   client,
		db:       db,
		rc:       rc,
		hub:      hub,
		notifier: notifier,
		users:    users,
		uploader: uploader,
		verifier: jwtpkg.NewVerifier(secret),
		logger:   logger,
		cancel:   cancel,
		sched:    pkgcron.New(logger.Named("CronService")),
		started:  time.Now(),
	}
	app.registerCronJobs()
	go app.sched.Start(ctx)
	app.registerRoutes()

	return app, nil
}

func corsConfig(cfg *config.AppConfig) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || cfg.IsDev() {
		c.AllowOriginFunc = func(string) bool { return true }
		return c
	}
	patterns := cfg.AllowedOrigins
	c.AllowOriginFunc = func(origin string) bool {
		return originAllowed(patterns, origin)
	}
	return c
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Shutdown stops background work, waits for pending pushes and closes the stores.
func (a *App) Shutdown(ctx context.Context) {
	a.cancel()
	a.notifier.Wait()
	if err := a.rc.Close(); err != nil {
		a.logger.Warn("redis close failed", zap.Error(err))
	}
	if err := a.client.Disconnect(ctx); err != nil {
		a.logger.Warn("mongo disconnect failed", zap.Error(err))
	}
}

package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"regexp"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/statuskit/core/internal/config"
	"github.com/statuskit/core/internal/database"
	"github.com/statuskit/core/internal/middleware"
	"github.com/statuskit/core/internal/modules/auth"
	"github.com/statuskit/core/internal/modules/notification"
	"github.com/statuskit/core/internal/modules/system/configs"
	"github.com/statuskit/core/internal/pkg/cron"
	"github.com/statuskit/core/internal/pkg/jwt"
	"github.com/statuskit/core/internal/pkg/redis"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App wires the HTTP surface, storage, and the background queue drain
// together. Construct with New, serve via Engine, stop with Shutdown.
type App struct {
	cfg       *config.AppConfig
	log       *zap.Logger
	db        *gorm.DB
	rdb       *redis.Client
	engine    *gin.Engine
	scheduler *cron.Scheduler
	cancel    context.CancelFunc
}

func New(log *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg.JWTSecret != "" {
		jwt.SetSecret(cfg.JWTSecret)
	}

	db, err := database.Connect(cfg, true)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	rdb, err := redis.Connect(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}

	if !cfg.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	engine.Use(gin.Recovery())
	engine.Use(middleware.Logger(log))
	engine.Use(corsLayer(cfg))

	a := &App{
		cfg:       cfg,
		log:       log,
		db:        db,
		rdb:       rdb,
		engine:    engine,
		scheduler: cron.New(),
	}

	cfgSvc := configs.NewService(db)
	mailer := notification.NewMailer(db, cfgSvc)
	queue := notification.NewQueue(db, mailer, cfgSvc, log)
	composer := notification.NewComposer(db, cfgSvc, queue, log)

	authSvc := auth.NewService(db)
	if err := authSvc.EnsureOwner(os.Getenv("SK_ADMIN_USER"), os.Getenv("SK_ADMIN_PASSWORD")); err != nil {
		return nil, fmt.Errorf("bootstrap owner: %w", err)
	}

	a.registerRoutes(cfgSvc, mailer, composer, authSvc)
	a.registerJobs(queue)

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.scheduler.Start(ctx)

	return a, nil
}

// publicPath matches the unauthenticated status-page surface: subscribe,
// verify, unsubscribe, subscriber-count and the public page payload.
var publicPath = regexp.MustCompile(`^/api/status-page/[^/]+(/(subscribe|subscriber-count|verify/[^/]+|unsubscribe/[^/]+))?$`)

// corsLayer keeps the public subscription endpoints open to any origin,
// they are embedded in arbitrary status page frontends. A configured
// allowed_origins list binds only the admin surface; without one the admin
// surface is open too and relies on JWT alone.
func corsLayer(cfg *config.AppConfig) gin.HandlerFunc {
	open := cors.DefaultConfig()
	open.AllowAllOrigins = true
	open.AllowHeaders = append(open.AllowHeaders, "Authorization")
	public := cors.New(open)

	if len(cfg.AllowedOrigins) == 0 {
		return public
	}

	restricted := cors.DefaultConfig()
	restricted.AllowOrigins = cfg.AllowedOrigins
	restricted.AllowHeaders = append(restricted.AllowHeaders, "Authorization")
	admin := cors.New(restricted)

	return func(c *gin.Context) {
		if publicPath.MatchString(c.Request.URL.Path) {
			public(c)
			return
		}
		admin(c)
	}
}

// Engine exposes the router for the HTTP server and for tests.
func (a *App) Engine() http.Handler { return a.engine }

// Shutdown stops the background scheduler. The HTTP listener is owned and
// shut down by the caller.
func (a *App) Shutdown() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.log.Warn("closing redis", zap.Error(err))
		}
	}
}

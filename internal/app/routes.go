package app

import (
	"github.com/gin-gonic/gin"
	"github.com/statuskit/core/internal/middleware"
	"github.com/statuskit/core/internal/modules/auth"
	"github.com/statuskit/core/internal/modules/incident"
	"github.com/statuskit/core/internal/modules/monitor"
	"github.com/statuskit/core/internal/modules/notification"
	"github.com/statuskit/core/internal/modules/statuspage"
	"github.com/statuskit/core/internal/modules/subscription"
	"github.com/statuskit/core/internal/modules/system/configs"
	"github.com/statuskit/core/internal/pkg/response"
)

func (a *App) registerRoutes(
	cfgSvc *configs.Service,
	mailer *notification.Mailer,
	composer *notification.Composer,
	authSvc *auth.Service,
) {
	authMW := middleware.Auth()
	rateLimitMW := middleware.RateLimit(a.rdb.Raw())

	api := a.engine.Group("/api")

	auth.NewHandler(authSvc).RegisterRoutes(api, authMW)
	configs.NewHandler(cfgSvc).RegisterRoutes(api, authMW)
	notification.NewHandler(a.db, mailer).RegisterRoutes(api, authMW)

	statuspage.NewHandler(statuspage.NewService(a.db)).RegisterRoutes(api, authMW)
	incident.NewHandler(incident.NewService(a.db, composer, a.log)).RegisterRoutes(api, authMW)
	monitor.NewHandler(monitor.NewService(a.db, composer, a.log)).RegisterRoutes(api, authMW)

	subSvc := subscription.NewService(a.db, composer, a.rdb, a.log)
	subscription.NewHandler(subSvc).RegisterRoutes(api, authMW, rateLimitMW)

	a.registerCronRoutes(api, authMW)

	a.engine.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	a.engine.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})
}

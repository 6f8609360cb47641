package app

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/statuskit/core/internal/modules/notification"
	"github.com/statuskit/core/internal/pkg/cron"
	"github.com/statuskit/core/internal/pkg/response"
)

const drainInterval = 60 * time.Second

func (a *App) registerJobs(queue *notification.Queue) {
	a.scheduler.Register(cron.Job{
		Name:        "notification-queue-drain",
		Description: "deliver pending subscriber notifications",
		Interval:    drainInterval,
		RunOnStart:  true,
		Fn:          queue.Drain,
	})
}

func (a *App) registerCronRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/cron", authMW)
	g.GET("", func(c *gin.Context) {
		response.OK(c, gin.H{"jobs": a.scheduler.List()})
	})
	g.POST("/:name/run", func(c *gin.Context) {
		// the triggered run outlives the request, so it is not bound to
		// the request context
		if err := a.scheduler.Run(context.Background(), c.Param("name")); err != nil {
			response.NotFoundMsg(c, err.Error())
			return
		}
		response.OK(c, gin.H{"msg": "job triggered"})
	})
}

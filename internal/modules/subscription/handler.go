package subscription

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/statuskit/core/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW, rateLimitMW gin.HandlerFunc) {
	pg := rg.Group("/status-page/:slug")
	pg.POST("/subscribe", rateLimitMW, h.subscribe)
	pg.GET("/verify/:token", h.verify)
	pg.GET("/unsubscribe/:token", h.unsubscribe)
	pg.GET("/subscriber-count", h.subscriberCount)

	rg.GET("/subscribers", authMW, h.listSubscribers)
	pg.GET("/subscriptions", authMW, h.listSubscriptions)
}

type subscribeDTO struct {
	Email               string `json:"email" binding:"required"`
	ComponentID         string `json:"componentId"`
	NotifyIncidents     *bool  `json:"notifyIncidents"`
	NotifyMaintenance   *bool  `json:"notifyMaintenance"`
	NotifyStatusChanges *bool  `json:"notifyStatusChanges"`
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func (h *Handler) subscribe(c *gin.Context) {
	var dto subscribeDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.svc.Subscribe(SubscribeInput{
		Email:               dto.Email,
		Slug:                c.Param("slug"),
		MonitorID:           dto.ComponentID,
		NotifyIncidents:     boolOr(dto.NotifyIncidents, true),
		NotifyMaintenance:   boolOr(dto.NotifyMaintenance, true),
		NotifyStatusChanges: boolOr(dto.NotifyStatusChanges, true),
	})
	switch {
	case errors.Is(err, ErrInvalidEmail):
		response.BadRequest(c, "a valid email address is required")
	case errors.Is(err, ErrPageNotFound):
		response.NotFoundMsg(c, "status page not found")
	case err != nil:
		response.InternalError(c, err)
	case result.AlreadySubscribed:
		response.OK(c, gin.H{
			"msg":               "you are already subscribed to this page",
			"alreadySubscribed": true,
		})
	default:
		response.OK(c, gin.H{
			"msg":               "check your inbox to confirm the subscription",
			"needsVerification": true,
		})
	}
}

func (h *Handler) verify(c *gin.Context) {
	err := h.svc.Verify(c.Param("token"))
	switch {
	case errors.Is(err, ErrTokenUnknown):
		renderPage(c, http.StatusNotFound, "Link not found",
			"This verification link is invalid or has expired.")
	case err != nil:
		renderPage(c, http.StatusInternalServerError, "Something went wrong",
			"We could not verify your subscription. Please try again later.")
	default:
		renderPage(c, http.StatusOK, "Subscription confirmed",
			"Your email address is verified. You will now receive status updates.")
	}
}

func (h *Handler) unsubscribe(c *gin.Context) {
	err := h.svc.Unsubscribe(c.Param("token"))
	switch {
	case errors.Is(err, ErrTokenUnknown):
		renderPage(c, http.StatusNotFound, "Link not found",
			"This unsubscribe link is invalid or has expired.")
	case err != nil:
		renderPage(c, http.StatusInternalServerError, "Something went wrong",
			"We could not process your request. Please try again later.")
	default:
		renderPage(c, http.StatusOK, "Unsubscribed",
			"You have been removed from all status update emails.")
	}
}

func (h *Handler) subscriberCount(c *gin.Context) {
	count, err := h.svc.SubscriberCount(c.Request.Context(), c.Param("slug"))
	switch {
	case errors.Is(err, ErrPageNotFound):
		response.NotFoundMsg(c, "status page not found")
	case err != nil:
		response.InternalError(c, err)
	default:
		response.OK(c, gin.H{"count": count})
	}
}

func (h *Handler) listSubscribers(c *gin.Context) {
	subscribers, err := h.svc.ListSubscribers()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"subscribers": subscribers})
}

func (h *Handler) listSubscriptions(c *gin.Context) {
	subs, err := h.svc.ListSubscriptions(c.Param("slug"))
	switch {
	case errors.Is(err, ErrPageNotFound):
		response.NotFoundMsg(c, "status page not found")
	case err != nil:
		response.InternalError(c, err)
	default:
		response.OK(c, gin.H{"subscriptions": subs})
	}
}

const resultPage = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>%s</title></head>
<body style="font-family: -apple-system, Helvetica, Arial, sans-serif; background: #f4f5f7; margin: 0; padding: 48px 16px;">
  <div style="max-width: 480px; margin: 0 auto; background: #ffffff; border-radius: 8px; padding: 32px; text-align: center;">
    <h1 style="font-size: 20px; margin: 0 0 12px;">%s</h1>
    <p style="color: #555; margin: 0;">%s</p>
  </div>
</body>
</html>`

// verify and unsubscribe are opened from email clients, so they answer with
// a plain HTML page instead of JSON.
func renderPage(c *gin.Context, status int, title, body string) {
	html := fmt.Sprintf(resultPage, title, title, body)
	c.Data(status, "text/html; charset=utf-8", []byte(html))
}

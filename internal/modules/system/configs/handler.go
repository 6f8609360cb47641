package configs

import (
	"encoding/json"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/statuskit/core/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/config", authMW)
	g.GET("", h.get)
	g.PATCH("", h.patch)
	g.POST("/reload", h.reload)
}

func (h *Handler) get(c *gin.Context) {
	cfg, err := h.svc.Get()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"config": cfg})
}

func (h *Handler) patch(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if !json.Valid(body) {
		response.BadRequest(c, "invalid json")
		return
	}
	cfg, err := h.svc.Patch(body)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"config": cfg})
}

// reload drops the in-memory cache and re-reads the persisted config. Used
// when the options row was edited out-of-band or by another replica.
func (h *Handler) reload(c *gin.Context) {
	h.svc.Invalidate()
	cfg, err := h.svc.Get()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"config": cfg})
}

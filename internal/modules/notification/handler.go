package notification

import (
	"encoding/json"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/statuskit/core/internal/models"
	"github.com/statuskit/core/internal/pkg/response"
	"gorm.io/gorm"
)

// Handler exposes the admin surface: channel management and queue
// inspection. The queue itself has no public endpoints.
type Handler struct {
	db     *gorm.DB
	mailer *Mailer
}

func NewHandler(db *gorm.DB, mailer *Mailer) *Handler {
	return &Handler{db: db, mailer: mailer}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	ch := rg.Group("/notification-channels", authMW)
	ch.GET("", h.listChannels)
	ch.POST("", h.createChannel)
	ch.DELETE("/:id", h.deleteChannel)
	ch.POST("/:id/default", h.markDefault)

	rg.GET("/notifications", authMW, h.listQueued)
}

type channelDTO struct {
	Name      string          `json:"name"   binding:"required"`
	Type      string          `json:"type"   binding:"required"`
	IsDefault bool            `json:"is_default"`
	Config    json.RawMessage `json:"config"`
}

func (h *Handler) listChannels(c *gin.Context) {
	var channels []models.NotificationChannelModel
	if err := h.db.Order("created_at ASC").Find(&channels).Error; err != nil {
		response.InternalError(c, err)
		return
	}
	selected, _ := h.mailer.SelectChannel()
	selectedID := ""
	if selected != nil {
		selectedID = selected.ID
	}
	response.OK(c, gin.H{"channels": channels, "active_channel_id": selectedID})
}

func (h *Handler) createChannel(c *gin.Context) {
	var dto channelDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	ch := models.NotificationChannelModel{
		Name:      dto.Name,
		Type:      dto.Type,
		IsDefault: dto.IsDefault,
		Config:    string(dto.Config),
	}
	err := h.db.Transaction(func(tx *gorm.DB) error {
		if ch.IsDefault {
			if err := tx.Model(&models.NotificationChannelModel{}).
				Where("is_default = ?", true).
				Update("is_default", false).Error; err != nil {
				return err
			}
		}
		return tx.Create(&ch).Error
	})
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Created(c, gin.H{"channel": ch})
}

func (h *Handler) deleteChannel(c *gin.Context) {
	result := h.db.Where("id = ?", c.Param("id")).Delete(&models.NotificationChannelModel{})
	if result.Error != nil {
		response.InternalError(c, result.Error)
		return
	}
	if result.RowsAffected == 0 {
		response.NotFound(c)
		return
	}
	response.OK(c, gin.H{"msg": "channel deleted"})
}

func (h *Handler) markDefault(c *gin.Context) {
	id := c.Param("id")
	var ch models.NotificationChannelModel
	if err := h.db.First(&ch, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.NotificationChannelModel{}).
			Where("is_default = ?", true).
			Update("is_default", false).Error; err != nil {
			return err
		}
		return tx.Model(&ch).Update("is_default", true).Error
	})
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"msg": "default channel updated"})
}

func (h *Handler) listQueued(c *gin.Context) {
	query := h.db.Model(&models.QueuedNotificationModel{}).Order("created_at DESC").Limit(200)
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if t := c.Query("type"); t != "" {
		query = query.Where("type = ?", t)
	}
	var records []models.QueuedNotificationModel
	if err := query.Find(&records).Error; err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"notifications": records})
}

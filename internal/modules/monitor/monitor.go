package monitor

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/statuskit/core/internal/models"
	"github.com/statuskit/core/internal/modules/notification"
	"github.com/statuskit/core/internal/pkg/response"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db       *gorm.DB
	composer *notification.Composer
	log      *zap.Logger
}

func NewService(db *gorm.DB, composer *notification.Composer, log *zap.Logger) *Service {
	return &Service{db: db, composer: composer, log: log}
}

func (s *Service) Create(statusPageID, name string) (*models.MonitorModel, error) {
	var page models.StatusPageModel
	if err := s.db.First(&page, "id = ?", statusPageID).Error; err != nil {
		return nil, err
	}
	m := models.MonitorModel{
		StatusPageID: page.ID,
		Name:         name,
		Status:       models.MonitorStatusPending,
		Active:       true,
	}
	if err := s.db.Create(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// SetStatus records a new status. Subscribers are only notified when the
// status actually changes.
func (s *Service) SetStatus(id string, status int) (*models.MonitorModel, error) {
	if models.MonitorStatusLabel(status) == "Unknown" {
		return nil, ErrBadStatus
	}

	var m models.MonitorModel
	if err := s.db.First(&m, "id = ?", id).Error; err != nil {
		return nil, err
	}
	if m.Status == status {
		return &m, nil
	}

	if err := s.db.Model(&m).Update("status", status).Error; err != nil {
		return nil, err
	}
	m.Status = status

	if err := s.composer.OnMonitorStatusChanged(m.ID); err != nil {
		s.log.Warn("failed to compose status change notifications",
			zap.String("monitor_id", m.ID),
			zap.Error(err))
	}
	return &m, nil
}

var ErrBadStatus = errors.New("unknown monitor status code")

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	admin := rg.Group("/monitors", authMW)
	admin.GET("", h.list)
	admin.POST("", h.create)
	admin.POST("/:id/status", h.setStatus)
	admin.PATCH("/:id", h.update)
	admin.DELETE("/:id", h.remove)
}

func (h *Handler) list(c *gin.Context) {
	query := h.svc.db.Order("created_at ASC")
	if pageID := c.Query("status_page_id"); pageID != "" {
		query = query.Where("status_page_id = ?", pageID)
	}
	var monitors []models.MonitorModel
	if err := query.Find(&monitors).Error; err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"monitors": monitors})
}

type createDTO struct {
	StatusPageID string `json:"status_page_id" binding:"required"`
	Name         string `json:"name"           binding:"required"`
}

func (h *Handler) create(c *gin.Context) {
	var dto createDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	m, err := h.svc.Create(dto.StatusPageID, dto.Name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFoundMsg(c, "status page not found")
			return
		}
		response.InternalError(c, err)
		return
	}
	response.Created(c, gin.H{"monitor": m})
}

type statusDTO struct {
	Status *int `json:"status" binding:"required"`
}

func (h *Handler) setStatus(c *gin.Context) {
	var dto statusDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	m, err := h.svc.SetStatus(c.Param("id"), *dto.Status)
	switch {
	case errors.Is(err, ErrBadStatus):
		response.BadRequest(c, "unknown status code")
	case errors.Is(err, gorm.ErrRecordNotFound):
		response.NotFound(c)
	case err != nil:
		response.InternalError(c, err)
	default:
		response.OK(c, gin.H{"monitor": m})
	}
}

func (h *Handler) update(c *gin.Context) {
	var m models.MonitorModel
	if err := h.svc.db.First(&m, "id = ?", c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}

	var dto struct {
		Name   *string `json:"name"`
		Active *bool   `json:"active"`
	}
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	updates := map[string]interface{}{}
	if dto.Name != nil {
		updates["name"] = *dto.Name
	}
	if dto.Active != nil {
		updates["active"] = *dto.Active
	}
	if len(updates) > 0 {
		if err := h.svc.db.Model(&m).Updates(updates).Error; err != nil {
			response.InternalError(c, err)
			return
		}
	}
	response.OK(c, gin.H{"monitor": m})
}

func (h *Handler) remove(c *gin.Context) {
	result := h.svc.db.Where("id = ?", c.Param("id")).Delete(&models.MonitorModel{})
	if result.Error != nil {
		response.InternalError(c, result.Error)
		return
	}
	if result.RowsAffected == 0 {
		response.NotFound(c)
		return
	}
	response.OK(c, gin.H{"msg": "monitor deleted"})
}

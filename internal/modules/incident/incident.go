package incident

import (
	"errors"
	"time"

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

type CreateInput struct {
	StatusPageID string
	Title        string
	Content      string
	Style        string
	Pinned       bool
}

func (s *Service) Create(in CreateInput) (*models.IncidentModel, error) {
	var page models.StatusPageModel
	if err := s.db.First(&page, "id = ?", in.StatusPageID).Error; err != nil {
		return nil, err
	}

	style := in.Style
	if style == "" {
		style = "warning"
	}
	inc := models.IncidentModel{
		StatusPageID: page.ID,
		Title:        in.Title,
		Content:      in.Content,
		Style:        style,
		Pinned:       in.Pinned,
	}
	if err := s.db.Create(&inc).Error; err != nil {
		return nil, err
	}
	s.notify(inc.ID, s.composer.OnIncidentCreated)
	return &inc, nil
}

type UpdateInput struct {
	Title   *string
	Content *string
	Style   *string
	Pinned  *bool
}

func (s *Service) Update(id string, in UpdateInput) (*models.IncidentModel, error) {
	var inc models.IncidentModel
	if err := s.db.First(&inc, "id = ?", id).Error; err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Title != nil {
		updates["title"] = *in.Title
	}
	if in.Content != nil {
		updates["content"] = *in.Content
	}
	if in.Style != nil {
		updates["style"] = *in.Style
	}
	if in.Pinned != nil {
		updates["pinned"] = *in.Pinned
	}
	if len(updates) == 0 {
		return &inc, nil
	}
	if err := s.db.Model(&inc).Updates(updates).Error; err != nil {
		return nil, err
	}
	s.notify(inc.ID, s.composer.OnIncidentUpdated)
	return &inc, nil
}

// Resolve marks the incident resolved. Resolving twice is a no-op and does
// not queue a second round of emails.
func (s *Service) Resolve(id string) (*models.IncidentModel, error) {
	var inc models.IncidentModel
	if err := s.db.First(&inc, "id = ?", id).Error; err != nil {
		return nil, err
	}
	if inc.Resolved {
		return &inc, nil
	}

	now := time.Now()
	if err := s.db.Model(&inc).Updates(map[string]interface{}{
		"resolved":    true,
		"resolved_at": now,
	}).Error; err != nil {
		return nil, err
	}
	inc.Resolved = true
	inc.ResolvedAt = &now
	s.notify(inc.ID, s.composer.OnIncidentResolved)
	return &inc, nil
}

// notify fans the event out to subscribers. A composition failure never
// fails the admin write that triggered it.
func (s *Service) notify(incidentID string, fn func(string) error) {
	if err := fn(incidentID); err != nil {
		s.log.Warn("failed to compose incident notifications",
			zap.String("incident_id", incidentID),
			zap.Error(err))
	}
}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	admin := rg.Group("/incidents", authMW)
	admin.GET("", h.list)
	admin.POST("", h.create)
	admin.PATCH("/:id", h.update)
	admin.POST("/:id/resolve", h.resolve)
	admin.DELETE("/:id", h.remove)
}

func (h *Handler) list(c *gin.Context) {
	query := h.svc.db.Order("created_at DESC")
	if pageID := c.Query("status_page_id"); pageID != "" {
		query = query.Where("status_page_id = ?", pageID)
	}
	var incidents []models.IncidentModel
	if err := query.Find(&incidents).Error; err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"incidents": incidents})
}

type createDTO struct {
	StatusPageID string `json:"status_page_id" binding:"required"`
	Title        string `json:"title"          binding:"required"`
	Content      string `json:"content"`
	Style        string `json:"style"`
	Pinned       bool   `json:"pinned"`
}

func (h *Handler) create(c *gin.Context) {
	var dto createDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	inc, err := h.svc.Create(CreateInput{
		StatusPageID: dto.StatusPageID,
		Title:        dto.Title,
		Content:      dto.Content,
		Style:        dto.Style,
		Pinned:       dto.Pinned,
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFoundMsg(c, "status page not found")
			return
		}
		response.InternalError(c, err)
		return
	}
	response.Created(c, gin.H{"incident": inc})
}

type updateDTO struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
	Style   *string `json:"style"`
	Pinned  *bool   `json:"pinned"`
}

func (h *Handler) update(c *gin.Context) {
	var dto updateDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	inc, err := h.svc.Update(c.Param("id"), UpdateInput{
		Title:   dto.Title,
		Content: dto.Content,
		Style:   dto.Style,
		Pinned:  dto.Pinned,
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"incident": inc})
}

func (h *Handler) resolve(c *gin.Context) {
	inc, err := h.svc.Resolve(c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"incident": inc})
}

func (h *Handler) remove(c *gin.Context) {
	result := h.svc.db.Where("id = ?", c.Param("id")).Delete(&models.IncidentModel{})
	if result.Error != nil {
		response.InternalError(c, result.Error)
		return
	}
	if result.RowsAffected == 0 {
		response.NotFound(c)
		return
	}
	response.OK(c, gin.H{"msg": "incident deleted"})
}

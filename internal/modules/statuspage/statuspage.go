package statuspage

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/statuskit/core/internal/models"
	"github.com/statuskit/core/internal/pkg/response"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("status page not found")

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func (s *Service) BySlug(slug string) (*models.StatusPageModel, error) {
	var page models.StatusPageModel
	if err := s.db.Where("slug = ?", slug).First(&page).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &page, nil
}

// MonitorView is a monitor decorated with its display label and color for
// the public page payload.
type MonitorView struct {
	models.MonitorModel
	StatusLabel string `json:"status_label"`
	StatusColor string `json:"status_color"`
}

type PublicPage struct {
	Page      models.StatusPageModel `json:"page"`
	Monitors  []MonitorView          `json:"monitors"`
	Incidents []models.IncidentModel `json:"incidents"`
}

// PublicBySlug assembles the public page payload: the page, its active
// monitors, and unresolved plus pinned incidents.
func (s *Service) PublicBySlug(slug string) (*PublicPage, error) {
	page, err := s.BySlug(slug)
	if err != nil {
		return nil, err
	}
	if !page.Published {
		return nil, ErrNotFound
	}

	var monitors []models.MonitorModel
	if err := s.db.Where("status_page_id = ? AND active = ?", page.ID, true).
		Order("created_at ASC").Find(&monitors).Error; err != nil {
		return nil, err
	}
	views := make([]MonitorView, 0, len(monitors))
	for _, m := range monitors {
		views = append(views, MonitorView{
			MonitorModel: m,
			StatusLabel:  models.MonitorStatusLabel(m.Status),
			StatusColor:  models.MonitorStatusColor(m.Status),
		})
	}

	var incidents []models.IncidentModel
	if err := s.db.Where("status_page_id = ? AND (resolved = ? OR pinned = ?)", page.ID, false, true).
		Order("created_at DESC").Find(&incidents).Error; err != nil {
		return nil, err
	}

	return &PublicPage{Page: *page, Monitors: views, Incidents: incidents}, nil
}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	rg.GET("/status-page/:slug", h.publicPage)

	admin := rg.Group("/status-pages", authMW)
	admin.GET("", h.list)
	admin.POST("", h.create)
	admin.PATCH("/:id", h.update)
	admin.DELETE("/:id", h.remove)
}

func (h *Handler) publicPage(c *gin.Context) {
	page, err := h.svc.PublicBySlug(c.Param("slug"))
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFoundMsg(c, "status page not found")
	case err != nil:
		response.InternalError(c, err)
	default:
		response.OK(c, gin.H{
			"page":      page.Page,
			"monitors":  page.Monitors,
			"incidents": page.Incidents,
		})
	}
}

func (h *Handler) list(c *gin.Context) {
	var pages []models.StatusPageModel
	if err := h.svc.db.Order("created_at ASC").Find(&pages).Error; err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"pages": pages})
}

type pageDTO struct {
	Slug        string `json:"slug"  binding:"required"`
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Published   *bool  `json:"published"`
}

func (h *Handler) create(c *gin.Context) {
	var dto pageDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	page := models.StatusPageModel{
		Slug:        dto.Slug,
		Title:       dto.Title,
		Description: dto.Description,
		Published:   dto.Published == nil || *dto.Published,
	}
	if err := h.svc.db.Create(&page).Error; err != nil {
		response.InternalError(c, err)
		return
	}
	response.Created(c, gin.H{"page": page})
}

func (h *Handler) update(c *gin.Context) {
	var page models.StatusPageModel
	if err := h.svc.db.First(&page, "id = ?", c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}

	var dto struct {
		Slug        *string `json:"slug"`
		Title       *string `json:"title"`
		Description *string `json:"description"`
		Published   *bool   `json:"published"`
	}
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	updates := map[string]interface{}{}
	if dto.Slug != nil {
		updates["slug"] = *dto.Slug
	}
	if dto.Title != nil {
		updates["title"] = *dto.Title
	}
	if dto.Description != nil {
		updates["description"] = *dto.Description
	}
	if dto.Published != nil {
		updates["published"] = *dto.Published
	}
	if len(updates) > 0 {
		if err := h.svc.db.Model(&page).Updates(updates).Error; err != nil {
			response.InternalError(c, err)
			return
		}
	}
	response.OK(c, gin.H{"page": page})
}

func (h *Handler) remove(c *gin.Context) {
	result := h.svc.db.Where("id = ?", c.Param("id")).Delete(&models.StatusPageModel{})
	if result.Error != nil {
		response.InternalError(c, result.Error)
		return
	}
	if result.RowsAffected == 0 {
		response.NotFound(c)
		return
	}
	response.OK(c, gin.H{"msg": "status page deleted"})
}

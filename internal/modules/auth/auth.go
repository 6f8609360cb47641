package auth

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/statuskit/core/internal/middleware"
	"github.com/statuskit/core/internal/models"
	"github.com/statuskit/core/internal/pkg/jwt"
	"github.com/statuskit/core/internal/pkg/response"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const tokenTTL = 7 * 24 * time.Hour

type LoginDTO struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

// Login verifies credentials and returns a signed JWT.
func (s *Service) Login(dto *LoginDTO) (string, *models.UserModel, error) {
	var user models.UserModel
	if err := s.db.Where("username = ?", dto.Username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, errors.New("invalid credentials")
		}
		return "", nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(dto.Password)) != nil {
		return "", nil, errors.New("invalid credentials")
	}

	token, err := jwt.Sign(user.ID, tokenTTL)
	if err != nil {
		return "", nil, err
	}

	now := time.Now()
	s.db.Model(&user).Update("last_login_at", &now)
	return token, &user, nil
}

// EnsureOwner creates the owner account on first boot when none exists.
func (s *Service) EnsureOwner(username, password string) error {
	if username == "" || password == "" {
		return nil
	}
	var count int64
	if err := s.db.Model(&models.UserModel{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.db.Create(&models.UserModel{Username: username, Password: string(hash)}).Error
}

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/auth")
	g.POST("/login", h.login)
	g.GET("/me", authMW, h.me)
}

func (h *Handler) login(c *gin.Context) {
	var dto LoginDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	token, user, err := h.svc.Login(&dto)
	if err != nil {
		response.Unauthorized(c)
		return
	}
	response.OK(c, gin.H{"token": token, "username": user.Username})
}

func (h *Handler) me(c *gin.Context) {
	var user models.UserModel
	if err := h.svc.db.First(&user, "id = ?", middleware.CurrentUserID(c)).Error; err != nil {
		response.Unauthorized(c)
		return
	}
	response.OK(c, gin.H{"id": user.ID, "username": user.Username})
}

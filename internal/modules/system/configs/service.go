package configs

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/statuskit/core/internal/config"
	"github.com/statuskit/core/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const configKey = "site_config"

// Service manages the persisted SiteConfig.
type Service struct {
	db  *gorm.DB
	mu  sync.RWMutex
	cfg *config.SiteConfig
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Get returns the current config, loading from DB if not cached.
func (s *Service) Get() (*config.SiteConfig, error) {
	s.mu.RLock()
	if s.cfg != nil {
		defer s.mu.RUnlock()
		return s.cfg, nil
	}
	s.mu.RUnlock()

	return s.load()
}

func (s *Service) load() (*config.SiteConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var opt models.OptionModel
	err := s.db.Where("name = ?", configKey).First(&opt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		defaults := config.DefaultSiteConfig()
		s.cfg = &defaults
		_ = s.persist(&defaults)
		return s.cfg, nil
	}
	if err != nil {
		return nil, err
	}

	cfg := config.DefaultSiteConfig()
	if err := json.Unmarshal([]byte(opt.Value), &cfg); err != nil {
		return nil, err
	}
	s.cfg = &cfg
	return s.cfg, nil
}

// Patch applies a partial JSON update over the current config and persists
// the result. Only fields present in the patch are overwritten.
func (s *Service) Patch(partial json.RawMessage) (*config.SiteConfig, error) {
	current, err := s.Get()
	if err != nil {
		return nil, err
	}

	updated := *current
	if err := json.Unmarshal(partial, &updated); err != nil {
		return nil, err
	}
	if updated.Queue.BatchSize <= 0 {
		updated.Queue.BatchSize = config.DefaultSiteConfig().Queue.BatchSize
	}
	if updated.Queue.MaxAttempts <= 0 {
		updated.Queue.MaxAttempts = config.DefaultSiteConfig().Queue.MaxAttempts
	}

	s.mu.Lock()
	s.cfg = &updated
	s.mu.Unlock()

	return &updated, s.persist(&updated)
}

// BaseURL returns the configured public base URL, "" when unset.
func (s *Service) BaseURL() (string, error) {
	cfg, err := s.Get()
	if err != nil {
		return "", err
	}
	return strings.TrimRight(strings.TrimSpace(cfg.URL.PrimaryBaseURL), "/"), nil
}

func (s *Service) persist(cfg *config.SiteConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	opt := models.OptionModel{Name: configKey, Value: string(data)}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&opt).Error
}

// Invalidate clears the in-memory cache, forcing a DB reload on next Get.
func (s *Service) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = nil
}
